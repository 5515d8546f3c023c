package slack

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// Settings holds the credentials and transport options for a Slack connection
type Settings struct {
	BotToken string
	AppToken string
	ProxyURL string
	Debug    bool
}

// IsActive returns true if both Socket Mode tokens are present
func (s Settings) IsActive() bool {
	return s.BotToken != "" && s.AppToken != ""
}

// SettingsLoader returns the current Slack settings
type SettingsLoader func() (Settings, error)

// EventHandler consumes events for one connection. ctx is cancelled when the
// connection is stopped or replaced. It is called with the manager lock held
// and must not block.
type EventHandler func(ctx context.Context, socketClient *socketmode.Client, client *slack.Client)

// Manager manages the Slack client lifecycle with hot-reload support
type Manager struct {
	mu sync.RWMutex

	load SettingsLoader

	// Current active clients
	client       *slack.Client
	socketClient *socketmode.Client

	// Control channels
	cancel     context.CancelFunc
	stopChan   chan struct{}
	doneChan   chan struct{}
	reloadChan chan struct{}

	// Event handler - receives both socket client and regular client
	eventHandler EventHandler

	// State
	running bool
}

// NewManager creates a new Slack manager
func NewManager(load SettingsLoader) *Manager {
	return &Manager{
		load:       load,
		reloadChan: make(chan struct{}, 1),
	}
}

// GetClient returns the current Slack client (may be nil if not configured)
func (m *Manager) GetClient() *slack.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// GetSocketClient returns the current Socket Mode client (may be nil if not configured)
func (m *Manager) GetSocketClient() *socketmode.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.socketClient
}

// IsRunning returns true if Socket Mode is currently active
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// SetEventHandler sets the function that will handle socket mode events
// The handler receives both the socket mode client and the regular Slack client
func (m *Manager) SetEventHandler(handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventHandler = handler
}

// Start initializes and starts the Slack connection from the current settings
func (m *Manager) Start(ctx context.Context) error {
	settings, err := m.load()
	if err != nil {
		return fmt.Errorf("failed to load Slack settings: %w", err)
	}

	if !settings.IsActive() {
		log.Printf("SlackManager: Slack is disabled (SLACK_BOT_TOKEN and SLACK_APP_TOKEN are required)")
		return nil
	}

	return m.startWithSettings(ctx, settings)
}

// NewClient builds a Web API client for settings, routed through the
// configured proxy if any
func NewClient(settings Settings) (*slack.Client, error) {
	options := []slack.Option{
		slack.OptionDebug(settings.Debug),
		slack.OptionAppLevelToken(settings.AppToken),
	}

	if settings.ProxyURL != "" {
		proxyURL, err := url.Parse(settings.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid Slack proxy URL: %w", err)
		}
		httpClient := &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}
		options = append(options, slack.OptionHTTPClient(httpClient))
		log.Printf("SlackManager: Using proxy: %s", proxyURL.Redacted())
	}

	return slack.New(settings.BotToken, options...), nil
}

// startWithSettings initializes clients with specific settings
func (m *Manager) startWithSettings(ctx context.Context, settings Settings) error {
	client, err := NewClient(settings)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Stop existing connection if running
	if m.running {
		m.stopLocked()
	}

	m.client = client
	m.socketClient = socketmode.New(
		m.client,
		socketmode.OptionDebug(settings.Debug),
		socketmode.OptionLog(log.New(os.Stdout, "socketmode: ", log.Lshortfile|log.LstdFlags)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})

	// Start the event handler if set - pass both clients to avoid deadlock
	if m.eventHandler != nil {
		m.eventHandler(runCtx, m.socketClient, m.client)
	}

	socketClient, stopChan, doneChan := m.socketClient, m.stopChan, m.doneChan
	go func() {
		defer close(doneChan)
		log.Printf("SlackManager: Starting Socket Mode connection...")

		if err := socketClient.RunContext(runCtx); err != nil {
			select {
			case <-stopChan:
				log.Printf("SlackManager: Socket Mode stopped gracefully")
			default:
				log.Printf("SlackManager: Socket Mode error: %v", err)
			}
		}
	}()

	m.running = true
	log.Printf("SlackManager: Slack integration is ACTIVE")
	return nil
}

// Stop gracefully stops the Slack connection
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// stopLocked stops the connection (caller must hold the lock)
func (m *Manager) stopLocked() {
	if !m.running {
		return
	}

	log.Printf("SlackManager: Stopping Slack connection...")

	close(m.stopChan)
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	select {
	case <-m.doneChan:
		log.Printf("SlackManager: Socket Mode stopped")
	default:
		log.Printf("SlackManager: Socket Mode stop signal sent")
	}

	m.running = false
	m.client = nil
	m.socketClient = nil
}

// Reload reloads Slack settings and reconnects
func (m *Manager) Reload(ctx context.Context) error {
	log.Printf("SlackManager: Reloading Slack settings...")

	settings, err := m.load()
	if err != nil {
		log.Printf("SlackManager: Could not load Slack settings: %v", err)
		m.Stop()
		return err
	}

	if !settings.IsActive() {
		log.Printf("SlackManager: Slack is now disabled, stopping connection")
		m.Stop()
		return nil
	}

	// Start with new settings (this will stop existing connection first)
	return m.startWithSettings(ctx, settings)
}

// TriggerReload signals that a reload is needed (non-blocking)
func (m *Manager) TriggerReload() {
	select {
	case m.reloadChan <- struct{}{}:
		log.Printf("SlackManager: Reload triggered")
	default:
		log.Printf("SlackManager: Reload already pending")
	}
}

// WatchForReloads runs a loop that watches for reload signals
func (m *Manager) WatchForReloads(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.reloadChan:
			if err := m.Reload(ctx); err != nil {
				log.Printf("SlackManager: Reload failed: %v", err)
			}
		}
	}
}
