package database

import (
	"time"
)

// Field limits enforced by the alert form and mirrored in the column sizes
const (
	MaxLocationLength = 100
	MaxReasonLength   = 200
)

// ConfigKeyAlertChannel is the config key holding the alert channel ID
const ConfigKeyAlertChannel = "alert_channel"

// ConfigEntry is a single key/value configuration row. Writes replace the
// whole row; there is no history.
type ConfigEntry struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ConfigEntry) TableName() string {
	return "config"
}

// Alert is an emergency alert that was delivered to the alert channel.
// Rows are written once and never updated.
type Alert struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmissionID  string    `gorm:"uniqueIndex;size:36;not null" json:"submission_id"`
	SubmitterID   string    `gorm:"size:64;not null;index" json:"submitter_id"`
	SubmitterName string    `gorm:"size:255" json:"submitter_name"`
	ChannelID     string    `gorm:"size:64" json:"channel_id"`
	MessageRef    string    `gorm:"size:64" json:"message_ref"`
	Location      string    `gorm:"size:100;not null" json:"location"`
	Reason        string    `gorm:"size:200;not null" json:"reason"`
	SubmittedAt   time.Time `gorm:"not null;index" json:"submitted_at"`
	ThreadRef     *string   `gorm:"size:64" json:"thread_ref,omitempty"`
}

func (Alert) TableName() string {
	return "alerts"
}

// HasThread reports whether a coordination thread was created for the alert
func (a *Alert) HasThread() bool {
	return a.ThreadRef != nil && *a.ThreadRef != ""
}
