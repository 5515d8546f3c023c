package testhelpers

import (
	"time"

	"github.com/draxon/pulse/internal/database"
	"github.com/google/uuid"
)

// ========================================
// Alert Builder
// ========================================

// AlertBuilder builds Alert rows for testing
type AlertBuilder struct {
	alert database.Alert
}

// NewAlertBuilder creates a new alert builder with defaults
func NewAlertBuilder() *AlertBuilder {
	thread := "1700000000.000200"
	return &AlertBuilder{
		alert: database.Alert{
			SubmissionID:  uuid.NewString(),
			SubmitterID:   "U0ALICE",
			SubmitterName: "Alice",
			ChannelID:     "C0ALERTS",
			MessageRef:    "1700000000.000100",
			Location:      "Bay 3",
			Reason:        "Hull breach",
			SubmittedAt:   time.Now().UTC(),
			ThreadRef:     &thread,
		},
	}
}

// WithSubmitter sets the submitter id and display name
func (b *AlertBuilder) WithSubmitter(id, name string) *AlertBuilder {
	b.alert.SubmitterID = id
	b.alert.SubmitterName = name
	return b
}

// WithChannel sets the delivery channel
func (b *AlertBuilder) WithChannel(channelID string) *AlertBuilder {
	b.alert.ChannelID = channelID
	return b
}

// WithLocation sets the location
func (b *AlertBuilder) WithLocation(location string) *AlertBuilder {
	b.alert.Location = location
	return b
}

// WithReason sets the reason
func (b *AlertBuilder) WithReason(reason string) *AlertBuilder {
	b.alert.Reason = reason
	return b
}

// SubmittedAt sets the submission time (stored in UTC)
func (b *AlertBuilder) SubmittedAt(at time.Time) *AlertBuilder {
	b.alert.SubmittedAt = at.UTC()
	return b
}

// WithoutThread clears the thread reference
func (b *AlertBuilder) WithoutThread() *AlertBuilder {
	b.alert.ThreadRef = nil
	return b
}

// Build returns the constructed alert
func (b *AlertBuilder) Build() database.Alert {
	return b.alert
}
