package slack

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

// DefaultDirectoryTTL is how long a workspace snapshot is reused
const DefaultDirectoryTTL = 5 * time.Minute

// Directory maps Slack user groups to organizational roles. A member holds a
// role when they belong to a user group whose name or handle matches it.
type Directory struct {
	clients ClientProvider
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	source   *slack.Client // client the snapshot was loaded with
	groups   []slack.UserGroup
	humans   map[string]bool // user id -> active, non-bot member
	loadedAt time.Time
}

// NewDirectory creates a directory that refreshes its snapshot after ttl
func NewDirectory(clients ClientProvider, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultDirectoryTTL
	}
	return &Directory{
		clients: clients,
		ttl:     ttl,
		now:     time.Now,
	}
}

// UserRoles returns the names and handles of the user groups userID belongs
// to. A role matches either one, as in RoleCounts.
func (d *Directory) UserRoles(ctx context.Context, userID string) ([]string, error) {
	groups, err := d.userGroups(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, g := range groups {
		for _, member := range g.Users {
			if member != userID {
				continue
			}
			names = append(names, g.Name)
			if g.Handle != "" && !strings.EqualFold(g.Handle, g.Name) {
				names = append(names, g.Handle)
			}
			break
		}
	}
	return names, nil
}

// RoleCounts returns the number of active human members of each role in
// roleNames. Roles with no matching user group are left out of the result.
func (d *Directory) RoleCounts(ctx context.Context, roleNames []string) (map[string]int, error) {
	groups, err := d.userGroups(ctx)
	if err != nil {
		return nil, err
	}
	humans, err := d.members(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(roleNames))
	for _, role := range roleNames {
		for _, g := range groups {
			if !matchesRole(g, role) {
				continue
			}
			n := 0
			for _, member := range g.Users {
				if humans[member] {
					n++
				}
			}
			counts[role] = n
			break
		}
	}
	return counts, nil
}

// Invalidate drops the cached snapshot
func (d *Directory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

func (d *Directory) reset() {
	d.source = nil
	d.groups = nil
	d.humans = nil
	d.loadedAt = time.Time{}
}

func matchesRole(g slack.UserGroup, role string) bool {
	return strings.EqualFold(g.Name, role) || strings.EqualFold(g.Handle, role)
}

func (d *Directory) fresh() bool {
	return !d.loadedAt.IsZero() && d.now().Sub(d.loadedAt) < d.ttl
}

// client returns the current Slack client, dropping the snapshot when the
// connection was replaced by a reload. Callers hold d.mu.
func (d *Directory) client() (*slack.Client, error) {
	client, err := currentClient(d.clients)
	if err != nil {
		return nil, err
	}
	if client != d.source {
		d.reset()
		d.source = client
	}
	return client, nil
}

func (d *Directory) userGroups(ctx context.Context) ([]slack.UserGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	client, err := d.client()
	if err != nil {
		return nil, err
	}
	if d.groups != nil && d.fresh() {
		return d.groups, nil
	}

	groups, err := client.GetUserGroupsContext(ctx, slack.GetUserGroupsOptionIncludeUsers(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	if groups == nil {
		groups = []slack.UserGroup{}
	}

	d.groups = groups
	d.humans = nil
	d.loadedAt = d.now()
	log.Printf("Directory: Loaded %d user groups", len(groups))
	return groups, nil
}

func (d *Directory) members(ctx context.Context) (map[string]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	client, err := d.client()
	if err != nil {
		return nil, err
	}
	if d.humans != nil && d.fresh() {
		return d.humans, nil
	}

	users, err := client.GetUsersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	humans := make(map[string]bool, len(users))
	for _, u := range users {
		if u.Deleted || u.IsBot || u.ID == "USLACKBOT" {
			continue
		}
		humans[u.ID] = true
	}
	d.humans = humans
	return humans, nil
}
