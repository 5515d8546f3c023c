package services

import (
	"context"
	"log"
	"time"

	"github.com/draxon/pulse/internal/roles"
)

// RoleDirectory reports live membership for organizational roles
type RoleDirectory interface {
	// RoleCounts returns the number of human members holding each role name.
	// Roles that do not exist in the workspace are omitted.
	RoleCounts(ctx context.Context, roleNames []string) (map[string]int, error)
}

// ChannelNamer resolves a channel ID to its display name
type ChannelNamer interface {
	ChannelName(ctx context.Context, channelID string) (string, error)
}

// StatsSource provides alert log statistics
type StatsSource interface {
	Stats(ctx context.Context, now time.Time) AlertStats
}

// RoleCount is the live member count of one role
type RoleCount struct {
	Tier    roles.Tier `json:"tier"`
	Role    string     `json:"role"`
	Members int        `json:"members"`
}

// StatusReport is the aggregate system status shown to privileged staff
type StatusReport struct {
	Version     string        `json:"version"`
	BuildDate   string        `json:"build_date"`
	Uptime      time.Duration `json:"uptime_ns"`
	GeneratedAt time.Time     `json:"generated_at"`

	AlertChannelID    string `json:"alert_channel_id,omitempty"`
	AlertChannelName  string `json:"alert_channel_name,omitempty"`
	ChannelConfigured bool   `json:"channel_configured"`

	Roles          []RoleCount `json:"roles"`
	TotalMembers   int         `json:"total_members"`
	RolesAvailable bool        `json:"roles_available"`

	Alerts AlertStats `json:"alerts"`

	DatabaseOK bool `json:"database_ok"`
}

// BuildInfo identifies the running build
type BuildInfo struct {
	Version   string
	BuildDate string
}

// StatusReporter aggregates configuration, alert stats and role membership.
// A failing section is reported as unavailable instead of failing the report.
type StatusReporter struct {
	hierarchy *roles.Hierarchy
	channels  ChannelSource
	stats     StatsSource
	directory RoleDirectory
	namer     ChannelNamer
	ping      func(ctx context.Context) error
	build     BuildInfo
	startedAt time.Time
	now       func() time.Time
}

// NewStatusReporter creates a new status reporter. directory, namer and ping
// may be nil; their sections are then reported as unavailable.
func NewStatusReporter(
	hierarchy *roles.Hierarchy,
	channels ChannelSource,
	stats StatsSource,
	directory RoleDirectory,
	namer ChannelNamer,
	ping func(ctx context.Context) error,
	build BuildInfo,
) *StatusReporter {
	return &StatusReporter{
		hierarchy: hierarchy,
		channels:  channels,
		stats:     stats,
		directory: directory,
		namer:     namer,
		ping:      ping,
		build:     build,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// WithClock replaces the reporter clock and resets the start time to it
func (r *StatusReporter) WithClock(now func() time.Time) *StatusReporter {
	r.now = now
	r.startedAt = now()
	return r
}

// Report builds a status report
func (r *StatusReporter) Report(ctx context.Context) StatusReport {
	now := r.now()

	report := StatusReport{
		Version:     r.build.Version,
		BuildDate:   r.build.BuildDate,
		Uptime:      now.Sub(r.startedAt),
		GeneratedAt: now,
	}

	if channelID, ok := r.channels.AlertChannel(ctx); ok && channelID != "" {
		report.AlertChannelID = channelID
		report.ChannelConfigured = true
		if r.namer != nil {
			if name, err := r.namer.ChannelName(ctx, channelID); err == nil {
				report.AlertChannelName = name
			} else {
				log.Printf("StatusReporter: Could not resolve channel %s: %v", channelID, err)
			}
		}
	}

	report.Roles, report.TotalMembers, report.RolesAvailable = r.roleCounts(ctx)

	report.Alerts = r.stats.Stats(ctx, now)

	if r.ping != nil {
		if err := r.ping(ctx); err != nil {
			log.Printf("StatusReporter: Database ping failed: %v", err)
		} else {
			report.DatabaseOK = true
		}
	}

	return report
}

func (r *StatusReporter) roleCounts(ctx context.Context) ([]RoleCount, int, bool) {
	if r.directory == nil {
		return nil, 0, false
	}

	entries := r.hierarchy.Roles()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Role)
	}

	counts, err := r.directory.RoleCounts(ctx, names)
	if err != nil {
		log.Printf("StatusReporter: Failed to load role membership: %v", err)
		return nil, 0, false
	}

	var out []RoleCount
	total := 0
	for _, e := range entries {
		n, ok := counts[e.Role]
		if !ok {
			continue
		}
		out = append(out, RoleCount{Tier: e.Tier, Role: e.Role, Members: n})
		total += n
	}
	return out, total, true
}
