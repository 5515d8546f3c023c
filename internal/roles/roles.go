// Package roles defines the organizational tier hierarchy used to gate
// alert submission, channel setup and status reporting.
package roles

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tier is one of the fixed organizational levels
type Tier string

const (
	TierLeadership Tier = "leadership"
	TierManagement Tier = "management"
	TierStaff      Tier = "staff"
	TierRestricted Tier = "restricted"
)

// Tiers lists every tier from most to least privileged
var Tiers = []Tier{TierLeadership, TierManagement, TierStaff, TierRestricted}

// rank returns the position of t in Tiers, or -1 for an unknown tier
func (t Tier) rank() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// Valid returns true if t is one of the known tiers
func (t Tier) Valid() bool {
	return t.rank() >= 0
}

// Hierarchy maps each tier to the role names that belong to it
type Hierarchy struct {
	tiers map[Tier][]string
}

// TierRole is a single role entry in hierarchy order
type TierRole struct {
	Tier Tier
	Role string
}

// DefaultHierarchy returns the built-in role layout
func DefaultHierarchy() *Hierarchy {
	return &Hierarchy{
		tiers: map[Tier][]string{
			TierLeadership: {"Chairman", "Director"},
			TierManagement: {"Manager", "Team Leader"},
			TierStaff:      {"Employee"},
			TierRestricted: {"Applicant"},
		},
	}
}

// NewHierarchy builds a hierarchy from an explicit tier -> roles mapping
func NewHierarchy(tiers map[Tier][]string) (*Hierarchy, error) {
	h := &Hierarchy{tiers: make(map[Tier][]string, len(tiers))}
	seen := make(map[string]Tier)

	for tier, names := range tiers {
		if !tier.Valid() {
			return nil, fmt.Errorf("unknown tier %q", tier)
		}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, fmt.Errorf("empty role name in tier %q", tier)
			}
			key := strings.ToLower(name)
			if prev, ok := seen[key]; ok {
				return nil, fmt.Errorf("role %q appears in both %q and %q", name, prev, tier)
			}
			seen[key] = tier
			h.tiers[tier] = append(h.tiers[tier], name)
		}
	}

	return h, nil
}

// hierarchyFile is the on-disk YAML layout:
//
//	leadership: [Chairman, Director]
//	management: [Manager, Team Leader]
//	staff: [Employee]
//	restricted: [Applicant]
type hierarchyFile map[Tier][]string

// LoadHierarchy reads a hierarchy from a YAML file
func LoadHierarchy(path string) (*Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roles file: %w", err)
	}
	return ParseHierarchy(data)
}

// ParseHierarchy parses a YAML hierarchy document
func ParseHierarchy(data []byte) (*Hierarchy, error) {
	var file hierarchyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse roles file: %w", err)
	}
	if len(file) == 0 {
		return nil, fmt.Errorf("roles file defines no tiers")
	}
	return NewHierarchy(file)
}

// TierOf returns the tier a single role belongs to
func (h *Hierarchy) TierOf(role string) (Tier, bool) {
	for tier, names := range h.tiers {
		for _, name := range names {
			if strings.EqualFold(name, role) {
				return tier, true
			}
		}
	}
	return "", false
}

// HighestTier returns the most privileged tier held across roles
func (h *Hierarchy) HighestTier(roles []string) (Tier, bool) {
	best := -1
	for _, role := range roles {
		tier, ok := h.TierOf(role)
		if !ok {
			continue
		}
		if r := tier.rank(); best < 0 || r < best {
			best = r
		}
	}
	if best < 0 {
		return "", false
	}
	return Tiers[best], true
}

// AtLeast returns true if roles include any role at min or a higher tier.
// The restricted tier never satisfies a check.
func (h *Hierarchy) AtLeast(roles []string, min Tier) bool {
	tier, ok := h.HighestTier(roles)
	if !ok || tier == TierRestricted {
		return false
	}
	return tier.rank() <= min.rank()
}

// CanSubmit returns true if roles include any non-restricted role
func (h *Hierarchy) CanSubmit(roles []string) bool {
	return h.AtLeast(roles, TierStaff)
}

// Roles returns every role in tier order
func (h *Hierarchy) Roles() []TierRole {
	var out []TierRole
	for _, tier := range Tiers {
		for _, name := range h.tiers[tier] {
			out = append(out, TierRole{Tier: tier, Role: name})
		}
	}
	return out
}

// RolesIn returns the role names of a single tier
func (h *Hierarchy) RolesIn(tier Tier) []string {
	return append([]string(nil), h.tiers[tier]...)
}
