package slack

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/draxon/pulse/internal/services"
	"github.com/draxon/pulse/internal/testhelpers"
)

var bayAlert = services.AlertMessage{
	SubmitterID:   "U0ALICE",
	SubmitterName: "Alice",
	Location:      "Bay 3",
	Reason:        "Hull breach",
	SubmittedAt:   time.Date(2024, 11, 3, 14, 5, 0, 0, time.UTC),
}

func TestMessenger_PostAlert(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Respond("chat.postMessage", map[string]interface{}{"channel": "C0ALERTS", "ts": "1700000000.000100"})

	m := NewMessenger(StaticClient(stub.Client()))
	ref, err := m.PostAlert(context.Background(), "C0ALERTS", bayAlert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "1700000000.000100" {
		t.Errorf("ref = %q, want message ts", ref)
	}

	calls := stub.Calls("chat.postMessage")
	if len(calls) != 1 {
		t.Fatalf("expected 1 post, got %d", len(calls))
	}
	call := calls[0]
	if call.Value("channel") != "C0ALERTS" {
		t.Errorf("channel = %q", call.Value("channel"))
	}
	if !strings.Contains(call.Value("text"), "Bay 3") {
		t.Errorf("text should carry the fallback alert: %q", call.Value("text"))
	}
	if !strings.Contains(call.Value("blocks"), "Hull breach") {
		t.Errorf("blocks should carry the alert: %q", call.Value("blocks"))
	}
}

func TestMessenger_PostAlert_Error(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Fail("chat.postMessage", "channel_not_found")

	m := NewMessenger(StaticClient(stub.Client()))
	if _, err := m.PostAlert(context.Background(), "C0ALERTS", bayAlert); err == nil {
		t.Fatal("expected error")
	} else if !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("error should carry the Slack error: %v", err)
	}
}

func TestMessenger_CreateThread(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Respond("chat.postMessage", map[string]interface{}{"channel": "C0ALERTS", "ts": "1700000000.000200"})

	m := NewMessenger(StaticClient(stub.Client()))
	ref, err := m.CreateThread(context.Background(), "C0ALERTS", "1700000000.000100", services.ThreadOptions{
		Name:        "Emergency: Alice - 2024-11-03 14:05",
		SubmitterID: "U0ALICE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "1700000000.000100" {
		t.Errorf("thread ref = %q, want parent ts", ref)
	}

	call := stub.Calls("chat.postMessage")[0]
	if call.Value("thread_ts") != "1700000000.000100" {
		t.Errorf("seed should reply in thread, thread_ts = %q", call.Value("thread_ts"))
	}
	if !strings.Contains(call.Value("text"), "Emergency: Alice - 2024-11-03 14:05") {
		t.Errorf("seed should carry thread name: %q", call.Value("text"))
	}
}

func TestMessenger_Reply_FallsBackToDirectMessage(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Fail("chat.postEphemeral", "channel_not_found")
	stub.Respond("chat.postMessage", map[string]interface{}{"channel": "D0ALICE", "ts": "1.2"})

	m := NewMessenger(StaticClient(stub.Client()))
	if err := m.Reply(context.Background(), "C0RANDOM", "U0ALICE", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dms := stub.Calls("chat.postMessage")
	if len(dms) != 1 {
		t.Fatalf("expected direct message fallback, got %d posts", len(dms))
	}
	if dms[0].Value("channel") != "U0ALICE" {
		t.Errorf("direct message should target the user, got %q", dms[0].Value("channel"))
	}
}

func TestMessenger_Reply_Ephemeral(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Respond("chat.postEphemeral", map[string]interface{}{"message_ts": "1.2"})

	m := NewMessenger(StaticClient(stub.Client()))
	if err := m.Reply(context.Background(), "C0RANDOM", "U0ALICE", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := stub.Calls("chat.postEphemeral")
	if len(calls) != 1 || calls[0].Value("user") != "U0ALICE" {
		t.Fatalf("expected one ephemeral post to U0ALICE, got %+v", calls)
	}
	if n := len(stub.Calls("chat.postMessage")); n != 0 {
		t.Errorf("no fallback expected, got %d posts", n)
	}
}

func TestMessenger_Reply_BothFail(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Fail("chat.postEphemeral", "channel_not_found")
	stub.Fail("chat.postMessage", "cannot_dm_bot")

	m := NewMessenger(StaticClient(stub.Client()))
	if err := m.Reply(context.Background(), "C0RANDOM", "U0ALICE", "hello"); err == nil {
		t.Error("expected error when both replies fail")
	}
}

func TestMessenger_ChannelInfo(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Respond("conversations.info", map[string]interface{}{
		"channel": map[string]interface{}{"id": "C0ALERTS", "name": "alerts", "is_member": true},
	})

	m := NewMessenger(StaticClient(stub.Client()))
	name, err := m.ChannelName(context.Background(), "C0ALERTS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "alerts" {
		t.Errorf("name = %q, want alerts", name)
	}

	member, err := m.IsMember(context.Background(), "C0ALERTS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !member {
		t.Error("expected bot to be a member")
	}
}

func TestMessenger_IsMember_Error(t *testing.T) {
	stub := testhelpers.NewSlackStub(t)
	stub.Fail("conversations.info", "channel_not_found")

	m := NewMessenger(StaticClient(stub.Client()))
	if _, err := m.IsMember(context.Background(), "C0MISSING"); err == nil {
		t.Error("expected error")
	}
}

func TestMessenger_NotConnected(t *testing.T) {
	m := NewMessenger(StaticClient(nil))

	if _, err := m.PostAlert(context.Background(), "C0ALERTS", bayAlert); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PostAlert error = %v, want ErrNotConnected", err)
	}
	if err := m.Reply(context.Background(), "C0ALERTS", "U0ALICE", "hi"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Reply error = %v, want ErrNotConnected", err)
	}
}
