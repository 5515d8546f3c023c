package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"github.com/draxon/pulse/internal/database"
	"github.com/draxon/pulse/internal/metrics"
	"github.com/draxon/pulse/internal/output"
	"github.com/draxon/pulse/internal/roles"
	"github.com/draxon/pulse/internal/services"
	slackutil "github.com/draxon/pulse/internal/slack"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// RoleLookup returns the organizational roles a Slack user holds
type RoleLookup interface {
	UserRoles(ctx context.Context, userID string) ([]string, error)
}

// Responder is the subset of the Slack messenger the handler replies through
type Responder interface {
	Reply(ctx context.Context, channelID, userID, text string, blocks ...slack.Block) error
	PostNotice(ctx context.Context, channelID, text string) error
	OpenModal(ctx context.Context, triggerID string, view slack.ModalViewRequest) error
	IsMember(ctx context.Context, channelID string) (bool, error)
}

// ChannelResolver turns a setup argument into a channel ID
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, arg string) (string, error)
}

// AlertPipeline runs alert submissions
type AlertPipeline interface {
	Open(ctx context.Context, submitter services.Submitter) error
	Submit(ctx context.Context, submitter services.Submitter, form services.AlertForm) (*database.Alert, error)
}

// ChannelSetter persists the alert channel
type ChannelSetter interface {
	SetAlertChannel(ctx context.Context, channelID string) error
}

// StatusSource builds status reports
type StatusSource interface {
	Report(ctx context.Context) services.StatusReport
}

// SlackHandler handles PULSE slash commands and modal submissions
type SlackHandler struct {
	hierarchy *roles.Hierarchy
	roles     RoleLookup
	responder Responder
	channels  ChannelResolver
	pipeline  AlertPipeline
	config    ChannelSetter
	status    StatusSource
	build     services.BuildInfo
}

// NewSlackHandler creates a new Slack handler
func NewSlackHandler(
	hierarchy *roles.Hierarchy,
	roleLookup RoleLookup,
	responder Responder,
	channels ChannelResolver,
	pipeline AlertPipeline,
	config ChannelSetter,
	status StatusSource,
	build services.BuildInfo,
) *SlackHandler {
	return &SlackHandler{
		hierarchy: hierarchy,
		roles:     roleLookup,
		responder: responder,
		channels:  channels,
		pipeline:  pipeline,
		config:    config,
		status:    status,
		build:     build,
	}
}

// HandleSocketMode consumes Socket Mode events until ctx is done or the
// event channel closes. Every request is acked before its work starts.
func (h *SlackHandler) HandleSocketMode(ctx context.Context, socketClient *socketmode.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-socketClient.Events:
			if !ok {
				return
			}
			h.dispatch(ctx, socketClient, evt)
		}
	}
}

func (h *SlackHandler) dispatch(ctx context.Context, socketClient *socketmode.Client, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Printf("SlackHandler: Connecting to Slack with Socket Mode...")
	case socketmode.EventTypeConnectionError:
		log.Printf("SlackHandler: Connection failed, retrying later...")
	case socketmode.EventTypeConnected:
		log.Printf("SlackHandler: Connected to Slack with Socket Mode")

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			log.Printf("SlackHandler: Ignored %+v", evt)
			return
		}
		ack(socketClient, evt)
		metrics.SlackEventsTotal.WithLabelValues("command").Inc()

		work := context.WithoutCancel(ctx)
		go h.safely(cmd.ChannelID, cmd.UserID, func() {
			h.HandleCommand(work, cmd)
		})

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			log.Printf("SlackHandler: Ignored %+v", evt)
			return
		}
		if !isAlertSubmission(callback) {
			ack(socketClient, evt)
			return
		}
		metrics.SlackEventsTotal.WithLabelValues("submission").Inc()

		// Field errors must travel in the ack so Slack keeps the modal open
		if resp := ReviewSubmission(callback); resp != nil {
			ack(socketClient, evt, resp)
			return
		}
		ack(socketClient, evt)

		// Acked work outlives the connection: a reload must not cut a
		// submission off between delivery and the reply.
		work := context.WithoutCancel(ctx)
		go h.safely(callback.View.PrivateMetadata, callback.User.ID, func() {
			h.HandleSubmission(work, callback)
		})

	case socketmode.EventTypeHello, socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			ack(socketClient, evt)
		}

	default:
		log.Printf("SlackHandler: Unexpected event type received: %s", evt.Type)
	}
}

func ack(socketClient *socketmode.Client, evt socketmode.Event, payload ...interface{}) {
	if evt.Request == nil {
		return
	}
	socketClient.Ack(*evt.Request, payload...)
}

func isAlertSubmission(callback slack.InteractionCallback) bool {
	return callback.Type == slack.InteractionTypeViewSubmission &&
		callback.View.CallbackID == slackutil.AlertModalCallbackID
}

// safely runs one unit of work, turning a panic into the generic failure reply
func (h *SlackHandler) safely(channelID, userID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SlackHandlerPanicsTotal.Inc()
			log.Printf("SlackHandler: Recovered from panic: %v\n%s", r, debug.Stack())
			h.reply(context.Background(), channelID, userID, services.MsgGenericFailure)
		}
	}()
	fn()
}

// HandleCommand routes a slash command
func (h *SlackHandler) HandleCommand(ctx context.Context, cmd slack.SlashCommand) {
	log.Printf("SlackHandler: %s from %s (%s) in %s", cmd.Command, cmd.UserName, cmd.UserID, cmd.ChannelID)

	switch cmd.Command {
	case output.CommandSOS:
		h.handleSOS(ctx, cmd)
	case output.CommandSetup:
		h.handleSetup(ctx, cmd)
	case output.CommandStatus:
		h.handleStatus(ctx, cmd)
	case output.CommandAbout:
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.AboutMessage,
			output.AboutBlocks(h.build.Version, h.build.BuildDate)...)
	default:
		log.Printf("SlackHandler: Unknown command %s", cmd.Command)
	}
}

func (h *SlackHandler) handleSOS(ctx context.Context, cmd slack.SlashCommand) {
	submitter, err := h.submitter(ctx, cmd.UserID, cmd.UserName)
	if err != nil {
		log.Printf("SlackHandler: %v", err)
		h.reply(ctx, cmd.ChannelID, cmd.UserID, services.MsgGenericFailure)
		return
	}

	if err := h.pipeline.Open(ctx, submitter); err != nil {
		h.reply(ctx, cmd.ChannelID, cmd.UserID, services.UserMessage(err))
		return
	}

	if err := h.responder.OpenModal(ctx, cmd.TriggerID, slackutil.AlertModal(cmd.ChannelID)); err != nil {
		log.Printf("SlackHandler: Failed to open alert form for %s: %v", cmd.UserID, err)
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.FormOpenFailedText)
	}
}

func (h *SlackHandler) handleSetup(ctx context.Context, cmd slack.SlashCommand) {
	userRoles, err := h.roles.UserRoles(ctx, cmd.UserID)
	if err != nil {
		log.Printf("SlackHandler: Failed to look up roles for %s: %v", cmd.UserID, err)
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupFailedText)
		return
	}
	if !h.hierarchy.AtLeast(userRoles, roles.TierLeadership) {
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupForbiddenText)
		return
	}

	arg := strings.TrimSpace(cmd.Text)
	if arg == "" {
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupUsageText)
		return
	}

	channelID, err := h.channels.ResolveChannel(ctx, arg)
	if err != nil {
		log.Printf("SlackHandler: Failed to resolve channel %q: %v", arg, err)
		if errors.Is(err, slackutil.ErrChannelNotFound) {
			h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupChannelNotFoundText(arg))
		} else {
			h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupFailedText)
		}
		return
	}

	member, err := h.responder.IsMember(ctx, channelID)
	if err != nil {
		log.Printf("SlackHandler: Failed to check membership of %s: %v", channelID, err)
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupChannelNotFoundText(arg))
		return
	}
	if !member {
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupNotMemberText(channelID))
		return
	}

	if err := h.config.SetAlertChannel(ctx, channelID); err != nil {
		log.Printf("SlackHandler: Failed to save alert channel: %v", err)
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupFailedText)
		return
	}
	log.Printf("SlackHandler: Alert channel set to %s by %s (%s)", channelID, cmd.UserName, cmd.UserID)

	h.reply(ctx, cmd.ChannelID, cmd.UserID, output.SetupConfirmText(channelID))
	if err := h.responder.PostNotice(ctx, channelID, output.SetupNoticeText); err != nil {
		log.Printf("SlackHandler: Failed to post setup notice to %s: %v", channelID, err)
	}
}

func (h *SlackHandler) handleStatus(ctx context.Context, cmd slack.SlashCommand) {
	userRoles, err := h.roles.UserRoles(ctx, cmd.UserID)
	if err != nil {
		log.Printf("SlackHandler: Failed to look up roles for %s: %v", cmd.UserID, err)
		h.reply(ctx, cmd.ChannelID, cmd.UserID, services.MsgGenericFailure)
		return
	}
	if !h.hierarchy.AtLeast(userRoles, roles.TierManagement) {
		h.reply(ctx, cmd.ChannelID, cmd.UserID, output.StatusForbiddenText)
		return
	}

	report := h.status.Report(ctx)
	h.reply(ctx, cmd.ChannelID, cmd.UserID, output.StatusText(report), output.StatusBlocks(report)...)
}

// ReviewSubmission validates the alert form fields so errors can be shown
// inline. It returns nil when the form is acceptable.
func ReviewSubmission(callback slack.InteractionCallback) *slack.ViewSubmissionResponse {
	form := slackutil.ParseAlertForm(callback.View).Normalize()
	var invalid *services.InvalidInputError
	if err := form.Validate(); errors.As(err, &invalid) {
		return slackutil.ValidationResponse(invalid)
	}
	return nil
}

// HandleSubmission runs an accepted alert form through the pipeline and
// tells the submitter how it went in the channel /sos was invoked from.
func (h *SlackHandler) HandleSubmission(ctx context.Context, callback slack.InteractionCallback) {
	channelID := callback.View.PrivateMetadata
	userID := callback.User.ID

	submitter, err := h.submitter(ctx, userID, displayName(callback.User))
	if err != nil {
		log.Printf("SlackHandler: %v", err)
		h.reply(ctx, channelID, userID, services.MsgGenericFailure)
		return
	}

	alert, err := h.pipeline.Submit(ctx, submitter, slackutil.ParseAlertForm(callback.View))
	if err != nil {
		h.reply(ctx, channelID, userID, services.UserMessage(err))
		return
	}
	h.reply(ctx, channelID, userID, output.SuccessText(alert.HasThread()))
}

func (h *SlackHandler) submitter(ctx context.Context, userID, name string) (services.Submitter, error) {
	userRoles, err := h.roles.UserRoles(ctx, userID)
	if err != nil {
		return services.Submitter{}, fmt.Errorf("failed to look up roles for %s: %w", userID, err)
	}
	if name == "" {
		name = userID
	}
	return services.Submitter{ID: userID, Name: name, Roles: userRoles}, nil
}

func displayName(u slack.User) string {
	if u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	if u.RealName != "" {
		return u.RealName
	}
	return u.Name
}

func (h *SlackHandler) reply(ctx context.Context, channelID, userID, text string, blocks ...slack.Block) {
	if err := h.responder.Reply(ctx, channelID, userID, text, blocks...); err != nil {
		log.Printf("SlackHandler: Failed to reply to %s: %v", userID, err)
	}
}
