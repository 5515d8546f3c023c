package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/draxon/pulse/internal/utils"
	"github.com/slack-go/slack"
)

// ErrChannelNotFound is returned when a channel argument cannot be resolved
var ErrChannelNotFound = errors.New("channel not found")

// ChannelResolver resolves channel names to IDs
type ChannelResolver struct {
	clients ClientProvider
	cache   map[string]string // name -> id
	mu      sync.RWMutex
}

// NewChannelResolver creates a new channel resolver
func NewChannelResolver(clients ClientProvider) *ChannelResolver {
	return &ChannelResolver{
		clients: clients,
		cache:   make(map[string]string),
	}
}

// ResolveChannel resolves a channel argument to a channel ID
// Accepts:
// - Channel mention (<#C01234567890|alerts> or <#C01234567890>)
// - Channel ID (C01234567890)
// - Channel name (#alerts or alerts)
func (r *ChannelResolver) ResolveChannel(ctx context.Context, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("channel name/ID is empty")
	}

	if id, _, ok := utils.ParseChannelMention(arg); ok {
		return id, nil
	}

	if isChannelID(arg) {
		return arg, nil
	}

	channelName := strings.ToLower(strings.TrimPrefix(arg, "#"))

	r.mu.RLock()
	if id, ok := r.cache[channelName]; ok {
		r.mu.RUnlock()
		return id, nil
	}
	r.mu.RUnlock()

	id, err := r.lookupChannel(ctx, channelName)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[channelName] = id
	r.mu.Unlock()

	log.Printf("ChannelResolver: Resolved channel '%s' to '%s'", channelName, id)
	return id, nil
}

// lookupChannel pages through the workspace's channels looking for name
func (r *ChannelResolver) lookupChannel(ctx context.Context, name string) (string, error) {
	client, err := currentClient(r.clients)
	if err != nil {
		return "", err
	}
	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           1000,
		Types:           []string{"public_channel", "private_channel"},
	}

	for {
		channels, cursor, err := client.GetConversationsContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("failed to list channels: %w", err)
		}

		for _, channel := range channels {
			if channel.Name == name {
				return channel.ID, nil
			}
		}

		if cursor == "" {
			break
		}
		params.Cursor = cursor
	}

	return "", fmt.Errorf("%w: %s", ErrChannelNotFound, name)
}

// ClearCache clears the channel name resolution cache
func (r *ChannelResolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]string)
	log.Printf("ChannelResolver: Cleared channel resolution cache")
}

// isChannelID checks if a string looks like a Slack channel ID.
// Public channel IDs start with C, older private channels with G.
func isChannelID(s string) bool {
	if len(s) < 9 || len(s) > 15 {
		return false
	}
	if !strings.HasPrefix(s, "C") && !strings.HasPrefix(s, "G") {
		return false
	}
	for _, c := range s[1:] {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
