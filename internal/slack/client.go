package slack

import (
	"errors"

	"github.com/slack-go/slack"
)

// ErrNotConnected is returned when Slack is disabled or not yet started
var ErrNotConnected = errors.New("slack is not connected")

// ClientProvider returns the current Web API client, or nil when Slack is
// not connected. Manager implements it, so components built once at startup
// follow reconnects and token reloads.
type ClientProvider interface {
	GetClient() *slack.Client
}

type staticClient struct {
	client *slack.Client
}

func (s staticClient) GetClient() *slack.Client {
	return s.client
}

// StaticClient wraps a fixed client as a ClientProvider
func StaticClient(client *slack.Client) ClientProvider {
	return staticClient{client: client}
}

func currentClient(p ClientProvider) (*slack.Client, error) {
	if p == nil {
		return nil, ErrNotConnected
	}
	c := p.GetClient()
	if c == nil {
		return nil, ErrNotConnected
	}
	return c, nil
}
