package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/draxon/pulse/internal/database"
	"github.com/draxon/pulse/internal/metrics"
	"gorm.io/gorm"
)

// RecentWindow is the trailing window counted as "recent" in alert stats
const RecentWindow = 24 * time.Hour

// AlertEntry is the data appended to the alert log for one submission
type AlertEntry struct {
	SubmissionID  string
	SubmitterID   string
	SubmitterName string
	ChannelID     string
	MessageRef    string
	Location      string
	Reason        string
	ThreadRef     *string
}

// AlertStats summarizes the alert log
type AlertStats struct {
	Total  int64 `json:"total"`
	Recent int64 `json:"recent"`

	// Degraded is set when the counts could not be read and are zero
	Degraded bool `json:"degraded,omitempty"`
}

// AlertLog is the append-only record of delivered alerts
type AlertLog struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAlertLog creates a new alert log
func NewAlertLog(db *gorm.DB) *AlertLog {
	return &AlertLog{db: db, now: time.Now}
}

// WithClock replaces the clock used for write timestamps
func (l *AlertLog) WithClock(now func() time.Time) *AlertLog {
	l.now = now
	return l
}

// Append writes a new alert. It performs no business validation.
func (l *AlertLog) Append(ctx context.Context, entry AlertEntry) (*database.Alert, error) {
	alert := &database.Alert{
		SubmissionID:  entry.SubmissionID,
		SubmitterID:   entry.SubmitterID,
		SubmitterName: entry.SubmitterName,
		ChannelID:     entry.ChannelID,
		MessageRef:    entry.MessageRef,
		Location:      entry.Location,
		Reason:        entry.Reason,
		SubmittedAt:   l.now().UTC(),
		ThreadRef:     entry.ThreadRef,
	}

	if err := l.db.WithContext(ctx).Create(alert).Error; err != nil {
		metrics.AlertLogFailuresTotal.WithLabelValues("append").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return alert, nil
}

// Stats counts all alerts and those submitted strictly after now-24h. Both
// counts come from one transaction. On failure the result is zeroed and
// marked degraded.
func (l *AlertLog) Stats(ctx context.Context, now time.Time) AlertStats {
	var stats AlertStats
	cutoff := now.Add(-RecentWindow).UTC()

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.Alert{}).Count(&stats.Total).Error; err != nil {
			return err
		}
		return tx.Model(&database.Alert{}).Where("submitted_at > ?", cutoff).Count(&stats.Recent).Error
	})
	if err != nil {
		metrics.AlertLogFailuresTotal.WithLabelValues("stats").Inc()
		log.Printf("AlertLog: Failed to read alert stats: %v", err)
		return AlertStats{Degraded: true}
	}
	return stats
}

// List returns one page of alerts, newest first, and the total row count
func (l *AlertLog) List(ctx context.Context, offset, limit int) ([]database.Alert, int64, error) {
	if limit <= 0 {
		limit = 20
	}

	var total int64
	var alerts []database.Alert
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.Alert{}).Count(&total).Error; err != nil {
			return err
		}
		return tx.Order("id DESC").Offset(offset).Limit(limit).Find(&alerts).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return alerts, total, nil
}
