package slack

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/draxon/pulse/internal/testhelpers"
)

// --- isChannelID tests ---

func TestIsChannelID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"standard channel ID", "C01234567890", true},
		{"short channel ID", "C01234567", true},
		{"private group ID", "G01234567", true},
		{"too long", "C012345678901234", false},
		{"empty string", "", false},
		{"too short", "C1234567", false},
		{"starts with D", "D01234567890", false},
		{"starts with U", "U01234567890", false},
		{"lowercase letters", "C01234abcdef", false},
		{"channel name", "#alerts", false},
		{"has dashes", "C0123-4567890", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isChannelID(tt.input); got != tt.want {
				t.Errorf("isChannelID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// --- ChannelResolver tests ---

func TestChannelResolver_ResolveChannel_WithoutAPI(t *testing.T) {
	resolver := &ChannelResolver{
		// no client provider: none of these inputs may reach the API
		cache: map[string]string{
			"alerts-prod": "C11111111111",
		},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"C01234567890", "C01234567890"},
		{"<#C0ALERTS01|alerts>", "C0ALERTS01"},
		{"<#C0ALERTS01>", "C0ALERTS01"},
		{"  <#C0ALERTS01|alerts>  ", "C0ALERTS01"},
		{"#alerts-prod", "C11111111111"},
		{"alerts-prod", "C11111111111"},
		{"#Alerts-Prod", "C11111111111"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := resolver.ResolveChannel(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveChannel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestChannelResolver_ResolveChannel_EmptyInput(t *testing.T) {
	resolver := NewChannelResolver(nil)

	if _, err := resolver.ResolveChannel(context.Background(), "   "); err == nil {
		t.Error("expected error for empty input, got nil")
	}
}

func TestChannelResolver_ResolveChannel_LookupPages(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	page := 0
	stub.RespondFunc("conversations.list", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		page++
		if page == 1 {
			w.Write([]byte(`{"ok":true,"channels":[{"id":"C0GENERAL1","name":"general"}],"response_metadata":{"next_cursor":"page2"}}`))
			return
		}
		w.Write([]byte(`{"ok":true,"channels":[{"id":"C0ALERTS01","name":"alerts"}],"response_metadata":{"next_cursor":""}}`))
	})

	resolver := NewChannelResolver(StaticClient(stub.Client()))
	id, err := resolver.ResolveChannel(context.Background(), "#alerts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "C0ALERTS01" {
		t.Errorf("got %q, want C0ALERTS01", id)
	}

	calls := stub.Calls("conversations.list")
	if len(calls) != 2 {
		t.Fatalf("expected 2 list calls, got %d", len(calls))
	}
	if calls[1].Value("cursor") != "page2" {
		t.Errorf("second call should pass cursor, got %q", calls[1].Value("cursor"))
	}

	// Cached afterwards
	if _, err := resolver.ResolveChannel(context.Background(), "alerts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(stub.Calls("conversations.list")); n != 2 {
		t.Errorf("cached lookup should not call the API, got %d calls", n)
	}
}

func TestChannelResolver_ResolveChannel_NotFound(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Respond("conversations.list", map[string]interface{}{
		"channels":          []map[string]string{{"id": "C0GENERAL1", "name": "general"}},
		"response_metadata": map[string]string{"next_cursor": ""},
	})

	resolver := NewChannelResolver(StaticClient(stub.Client()))
	_, err := resolver.ResolveChannel(context.Background(), "#missing")
	if !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestChannelResolver_ResolveChannel_APIError(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Fail("conversations.list", "missing_scope")

	resolver := NewChannelResolver(StaticClient(stub.Client()))
	_, err := resolver.ResolveChannel(context.Background(), "alerts")
	if err == nil || errors.Is(err, ErrChannelNotFound) {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestChannelResolver_ClearCache(t *testing.T) {
	resolver := &ChannelResolver{
		cache: map[string]string{
			"alerts":  "C01234567890",
			"random":  "C09876543210",
			"general": "C11111111111",
		},
	}

	resolver.ClearCache()

	if len(resolver.cache) != 0 {
		t.Errorf("cache should be empty after clear, got %d entries", len(resolver.cache))
	}
}

func TestChannelResolver_ConcurrentCacheRead(t *testing.T) {
	resolver := &ChannelResolver{
		cache: map[string]string{"alerts": "C01234567890"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = resolver.ResolveChannel(context.Background(), "#alerts")
		}()
	}
	wg.Wait()
}

func TestChannelResolver_NotConnected(t *testing.T) {
	resolver := NewChannelResolver(StaticClient(nil))
	if _, err := resolver.ResolveChannel(context.Background(), "alerts"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}
