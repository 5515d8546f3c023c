package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/draxon/pulse/internal/api"
	"github.com/draxon/pulse/internal/cooldown"
	"github.com/draxon/pulse/internal/database"
	"github.com/draxon/pulse/internal/metrics"
	"github.com/draxon/pulse/internal/roles"
	"github.com/draxon/pulse/internal/utils"
	"github.com/google/uuid"
)

// Longest location excerpt written to the log
const logPreviewLen = 40

// Form field identifiers shared with the platform adapter
const (
	FieldLocation = "location"
	FieldReason   = "reason"
)

// ThreadAutoArchive is how long a coordination thread stays open
const ThreadAutoArchive = 24 * time.Hour

// Submitter is the member reporting an emergency
type Submitter struct {
	ID    string
	Name  string
	Roles []string
}

// AlertForm holds the fields collected by the alert form. Length limits
// count characters and match the alerts table columns.
type AlertForm struct {
	Location string `validate:"required,max=100"`
	Reason   string `validate:"required,max=200"`
}

var fieldLabels = map[string]string{
	FieldLocation: "Location",
	FieldReason:   "Emergency description",
}

// Normalize trims surrounding whitespace from every field
func (f AlertForm) Normalize() AlertForm {
	return AlertForm{
		Location: strings.TrimSpace(f.Location),
		Reason:   strings.TrimSpace(f.Reason),
	}
}

// Validate checks required fields and length limits
func (f AlertForm) Validate() error {
	errs := api.Validate(f)
	if len(errs) == 0 {
		return nil
	}

	fields := make(map[string]string, len(errs))
	for field, msg := range errs {
		if label, ok := fieldLabels[field]; ok {
			msg = label + " " + msg
		}
		fields[field] = msg
	}
	return &InvalidInputError{Fields: fields}
}

// AlertMessage is the content posted to the alert channel
type AlertMessage struct {
	SubmitterID   string
	SubmitterName string
	Location      string
	Reason        string
	SubmittedAt   time.Time
}

// ThreadOptions describes the coordination thread for an alert
type ThreadOptions struct {
	Name        string
	SubmitterID string
	AutoArchive time.Duration
}

// ThreadName builds the deterministic thread name for a submission
func ThreadName(submitterName string, at time.Time) string {
	return fmt.Sprintf("Emergency: %s - %s", submitterName, at.Format("2006-01-02 15:04"))
}

// Platform is the chat platform the pipeline delivers through
type Platform interface {
	// PostAlert posts msg to channelID and returns a reference to the message
	PostAlert(ctx context.Context, channelID string, msg AlertMessage) (string, error)
	// CreateThread attaches a coordination thread to a posted message
	CreateThread(ctx context.Context, channelID, messageRef string, thread ThreadOptions) (string, error)
}

// ChannelSource provides the configured alert channel
type ChannelSource interface {
	AlertChannel(ctx context.Context) (string, bool)
}

// AlertWriter appends alerts to durable storage
type AlertWriter interface {
	Append(ctx context.Context, entry AlertEntry) (*database.Alert, error)
}

// AlertObserver is told about every alert after it has been logged
type AlertObserver interface {
	AlertSubmitted(alert *database.Alert)
}

// SubmissionPipeline turns a submission into a delivered, logged alert.
// Cheap checks run before any external effect; the channel post runs before
// the durable write; the cooldown is recorded last.
type SubmissionPipeline struct {
	hierarchy *roles.Hierarchy
	channels  ChannelSource
	alerts    AlertWriter
	cooldowns *cooldown.Tracker
	platform  Platform
	observers []AlertObserver

	now   func() time.Time
	newID func() string
}

// NewSubmissionPipeline creates a new submission pipeline
func NewSubmissionPipeline(
	hierarchy *roles.Hierarchy,
	channels ChannelSource,
	alerts AlertWriter,
	cooldowns *cooldown.Tracker,
	platform Platform,
) *SubmissionPipeline {
	return &SubmissionPipeline{
		hierarchy: hierarchy,
		channels:  channels,
		alerts:    alerts,
		cooldowns: cooldowns,
		platform:  platform,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock replaces the pipeline clock
func (p *SubmissionPipeline) WithClock(now func() time.Time) *SubmissionPipeline {
	p.now = now
	return p
}

// AddObserver registers an observer for logged alerts. Not safe to call
// once submissions are being processed.
func (p *SubmissionPipeline) AddObserver(o AlertObserver) {
	p.observers = append(p.observers, o)
}

// Open runs the authorization, configuration and cooldown gates before the
// alert form is shown. It has no side effects.
func (p *SubmissionPipeline) Open(ctx context.Context, submitter Submitter) error {
	_, err := p.checkGates(ctx, submitter, p.now())
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(outcome(err)).Inc()
		log.Printf("SubmissionPipeline: Form for %s (%s) rejected: %v", submitter.Name, submitter.ID, err)
	}
	return err
}

// Submit runs the full pipeline for a completed form. Work for the same
// submitter is serialized so two concurrent submissions cannot both pass the
// cooldown gate.
func (p *SubmissionPipeline) Submit(ctx context.Context, submitter Submitter, form AlertForm) (*database.Alert, error) {
	unlock := p.cooldowns.Lock(submitter.ID)
	defer unlock()

	alert, err := p.submitLocked(ctx, submitter, form)
	metrics.SubmissionsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		log.Printf("SubmissionPipeline: Submission from %s (%s) failed: %v", submitter.Name, submitter.ID, err)
		return nil, err
	}

	log.Printf("SubmissionPipeline: Alert %d logged for %s (%s) in channel %s: %s",
		alert.ID, submitter.Name, submitter.ID, alert.ChannelID, utils.TruncateText(alert.Location, logPreviewLen))

	for _, o := range p.observers {
		o.AlertSubmitted(alert)
	}
	return alert, nil
}

func (p *SubmissionPipeline) submitLocked(ctx context.Context, submitter Submitter, form AlertForm) (*database.Alert, error) {
	now := p.now()

	// 1-3: authorization, configuration, cooldown
	channelID, err := p.checkGates(ctx, submitter, now)
	if err != nil {
		return nil, err
	}

	// 4: intake
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	// 5: delivery
	start := time.Now()
	messageRef, err := p.platform.PostAlert(ctx, channelID, AlertMessage{
		SubmitterID:   submitter.ID,
		SubmitterName: submitter.Name,
		Location:      form.Location,
		Reason:        form.Reason,
		SubmittedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: channel %s: %v", ErrDeliveryFailed, channelID, err)
	}

	// The message is visible from here on; steps 6-8 run to completion even
	// if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	// 6: coordination thread; the posted message stands on its own if this fails
	var threadRef *string
	ref, err := p.platform.CreateThread(ctx, channelID, messageRef, ThreadOptions{
		Name:        ThreadName(submitter.Name, now),
		SubmitterID: submitter.ID,
		AutoArchive: ThreadAutoArchive,
	})
	if err != nil {
		metrics.ThreadFailuresTotal.Inc()
		log.Printf("SubmissionPipeline: Thread creation failed for message %s in %s, logging alert without thread: %v",
			messageRef, channelID, err)
	} else {
		threadRef = &ref
	}
	metrics.DeliveryDuration.Observe(time.Since(start).Seconds())

	// 7: durable log. The channel message already exists and is not rolled back.
	alert, err := p.alerts.Append(ctx, AlertEntry{
		SubmissionID:  p.newID(),
		SubmitterID:   submitter.ID,
		SubmitterName: submitter.Name,
		ChannelID:     channelID,
		MessageRef:    messageRef,
		Location:      form.Location,
		Reason:        form.Reason,
		ThreadRef:     threadRef,
	})
	if err != nil {
		log.Printf("SubmissionPipeline: Alert message %s in %s was posted but not logged", messageRef, channelID)
		if !errors.Is(err, ErrStorage) {
			err = fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return nil, err
	}

	// 8: cooldown
	p.cooldowns.Record(submitter.ID, now)

	return alert, nil
}

// checkGates runs steps 1-3 and returns the configured channel
func (p *SubmissionPipeline) checkGates(ctx context.Context, submitter Submitter, now time.Time) (string, error) {
	if !p.hierarchy.CanSubmit(submitter.Roles) {
		return "", ErrUnauthorized
	}

	channelID, ok := p.channels.AlertChannel(ctx)
	if !ok || channelID == "" {
		return "", ErrNotConfigured
	}

	if blocked, remaining := p.cooldowns.Check(submitter.ID, now); blocked {
		return "", &RateLimitedError{Remaining: remaining}
	}

	return channelID, nil
}
