package slack

import (
	"context"
	"fmt"
	"log"

	"github.com/draxon/pulse/internal/output"
	"github.com/draxon/pulse/internal/services"
	"github.com/slack-go/slack"
)

// Messenger posts PULSE messages through the Slack Web API. It is the
// platform the submission pipeline delivers through.
type Messenger struct {
	clients ClientProvider
}

// NewMessenger creates a new messenger
func NewMessenger(clients ClientProvider) *Messenger {
	return &Messenger{clients: clients}
}

// PostAlert posts an alert to channelID and returns the message timestamp
func (m *Messenger) PostAlert(ctx context.Context, channelID string, msg services.AlertMessage) (string, error) {
	client, err := currentClient(m.clients)
	if err != nil {
		return "", err
	}
	_, ts, err := client.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(output.AlertText(msg), false),
		slack.MsgOptionBlocks(output.AlertBlocks(msg)...),
	)
	if err != nil {
		return "", fmt.Errorf("failed to post alert: %w", err)
	}
	return ts, nil
}

// CreateThread opens the coordination thread under a posted alert by
// replying to it. Slack threads are addressed by their parent message, so the
// returned reference is messageRef itself. Slack threads never auto-archive,
// so thread.AutoArchive has no effect here.
func (m *Messenger) CreateThread(ctx context.Context, channelID, messageRef string, thread services.ThreadOptions) (string, error) {
	client, err := currentClient(m.clients)
	if err != nil {
		return "", err
	}
	_, _, err = client.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(output.ThreadSeedText(thread), false),
		slack.MsgOptionTS(messageRef),
	)
	if err != nil {
		return "", fmt.Errorf("failed to seed thread: %w", err)
	}
	return messageRef, nil
}

// PostEphemeral shows text to a single user in channelID
func (m *Messenger) PostEphemeral(ctx context.Context, channelID, userID, text string, blocks ...slack.Block) error {
	client, err := currentClient(m.clients)
	if err != nil {
		return err
	}
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}
	if _, err := client.PostEphemeralContext(ctx, channelID, userID, opts...); err != nil {
		return fmt.Errorf("failed to post ephemeral message: %w", err)
	}
	return nil
}

// DirectMessage sends text to userID's direct message channel
func (m *Messenger) DirectMessage(ctx context.Context, userID, text string) error {
	client, err := currentClient(m.clients)
	if err != nil {
		return err
	}
	if _, _, err := client.PostMessageContext(ctx, userID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("failed to send direct message: %w", err)
	}
	return nil
}

// Reply shows text privately to userID in channelID, falling back to a
// direct message when the ephemeral post fails (for example when the bot is
// not in that channel).
func (m *Messenger) Reply(ctx context.Context, channelID, userID, text string, blocks ...slack.Block) error {
	err := m.PostEphemeral(ctx, channelID, userID, text, blocks...)
	if err == nil {
		return nil
	}
	log.Printf("Messenger: Ephemeral reply to %s in %s failed, sending direct message: %v", userID, channelID, err)

	if dmErr := m.DirectMessage(ctx, userID, text); dmErr != nil {
		return fmt.Errorf("reply to %s failed: %v; %w", userID, err, dmErr)
	}
	return nil
}

// PostNotice posts a plain message to channelID
func (m *Messenger) PostNotice(ctx context.Context, channelID, text string) error {
	client, err := currentClient(m.clients)
	if err != nil {
		return err
	}
	if _, _, err := client.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("failed to post notice: %w", err)
	}
	return nil
}

// OpenModal shows a modal view in response to an interaction trigger
func (m *Messenger) OpenModal(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	client, err := currentClient(m.clients)
	if err != nil {
		return err
	}
	if _, err := client.OpenViewContext(ctx, triggerID, view); err != nil {
		return fmt.Errorf("failed to open modal: %w", err)
	}
	return nil
}

// ChannelName returns the name of channelID
func (m *Messenger) ChannelName(ctx context.Context, channelID string) (string, error) {
	client, err := currentClient(m.clients)
	if err != nil {
		return "", err
	}
	ch, err := client.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return "", fmt.Errorf("failed to get channel info: %w", err)
	}
	return ch.Name, nil
}

// IsMember reports whether the bot has joined channelID
func (m *Messenger) IsMember(ctx context.Context, channelID string) (bool, error) {
	client, err := currentClient(m.clients)
	if err != nil {
		return false, err
	}
	ch, err := client.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return false, fmt.Errorf("failed to get channel info: %w", err)
	}
	return ch.IsMember, nil
}
