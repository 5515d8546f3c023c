package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/draxon/pulse/internal/database"
	"github.com/draxon/pulse/internal/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConfigStore is a durable key/value store backed by the config table
type ConfigStore struct {
	db *gorm.DB
}

// NewConfigStore creates a new config store
func NewConfigStore(db *gorm.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// Set upserts value under key in a single statement
func (s *ConfigStore) Set(ctx context.Context, key, value string) error {
	entry := database.ConfigEntry{Key: key, Value: value}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		log.Printf("ConfigStore: Failed to set %s: %v", key, err)
		return fmt.Errorf("failed to set config %s: %w", key, err)
	}
	return nil
}

// Get returns the value for key. A failed lookup is reported the same way as
// a missing key; the failure is logged and counted so operators can tell the
// two apart.
func (s *ConfigStore) Get(ctx context.Context, key string) (string, bool) {
	if key == "" {
		return "", false
	}

	var entry database.ConfigEntry
	err := s.db.WithContext(ctx).Where(&database.ConfigEntry{Key: key}).First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.ConfigLookupFailuresTotal.Inc()
			log.Printf("ConfigStore: Lookup of %s failed, treating as not configured: %v", key, err)
		}
		return "", false
	}
	return entry.Value, true
}

// AlertChannel returns the configured alert channel ID
func (s *ConfigStore) AlertChannel(ctx context.Context) (string, bool) {
	return s.Get(ctx, database.ConfigKeyAlertChannel)
}

// SetAlertChannel replaces the configured alert channel ID
func (s *ConfigStore) SetAlertChannel(ctx context.Context, channelID string) error {
	return s.Set(ctx, database.ConfigKeyAlertChannel, channelID)
}
