package slack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bosunhq/bosun/internal/notify"
	slackapi "github.com/slack-go/slack"
)

var _ notify.Adapter = (*Adapter)(nil)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu       sync.Mutex
	authResp *slackapi.AuthTestResponse
	authErr  error
	posted   []string
	postErrs []error // returned in order, then nil
}

func newMockSlackClient() *mockSlackClient {
	return &mockSlackClient{authResp: &slackapi.AuthTestResponse{UserID: "U_BOT_123"}}
}

func (m *mockSlackClient) AuthTest() (*slackapi.AuthTestResponse, error) {
	return m.authResp, m.authErr
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.postErrs) > 0 {
		err := m.postErrs[0]
		m.postErrs = m.postErrs[1:]
		return "", "", err
	}
	m.posted = append(m.posted, channelID)
	return channelID, "1234567890.123456", nil
}

func (m *mockSlackClient) postedChannels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.posted...)
}

func connected(t *testing.T, client *mockSlackClient, channel string) *Adapter {
	t.Helper()
	a, err := New(AdapterOpts{ChannelID: channel, Client: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return a
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Fatal("expected error without bot token")
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb-test"}); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestConnect_SetsBotUserID(t *testing.T) {
	a := connected(t, newMockSlackClient(), "C1")
	if a.BotUserID() != "U_BOT_123" {
		t.Errorf("BotUserID = %q, want U_BOT_123", a.BotUserID())
	}
}

func TestConnect_AuthError(t *testing.T) {
	client := newMockSlackClient()
	client.authErr = errors.New("invalid_auth")
	a, _ := New(AdapterOpts{Client: client})
	if err := a.Connect(context.Background()); err == nil {
		t.Fatal("expected auth error")
	}
}

func TestConnect_AfterClose(t *testing.T) {
	a, _ := New(AdapterOpts{Client: newMockSlackClient()})
	a.Close()
	if err := a.Connect(context.Background()); err == nil {
		t.Fatal("Connect after Close should fail")
	}
}

func TestSend_RequiresConnect(t *testing.T) {
	a, _ := New(AdapterOpts{Client: newMockSlackClient(), ChannelID: "C1"})
	if err := a.Send(context.Background(), notify.OutboundMessage{Text: "hi"}); err == nil {
		t.Fatal("Send before Connect should fail")
	}
}

func TestSend_DefaultAndExplicitChannel(t *testing.T) {
	client := newMockSlackClient()
	a := connected(t, client, "C_DEFAULT")
	ctx := context.Background()

	if err := a.Send(ctx, notify.OutboundMessage{Text: "digest"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := a.Send(ctx, notify.OutboundMessage{ChannelID: "C_OTHER", Text: "digest"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got := client.postedChannels()
	if len(got) != 2 || got[0] != "C_DEFAULT" || got[1] != "C_OTHER" {
		t.Errorf("posted to %v", got)
	}
}

func TestSend_NoChannel(t *testing.T) {
	a := connected(t, newMockSlackClient(), "")
	if err := a.Send(context.Background(), notify.OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("expected error without channel")
	}
}

func TestSend_RetriesOnRateLimit(t *testing.T) {
	client := newMockSlackClient()
	client.postErrs = []error{&slackapi.RateLimitedError{RetryAfter: time.Millisecond}}
	a := connected(t, client, "C1")

	if err := a.Send(context.Background(), notify.OutboundMessage{Text: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := len(client.postedChannels()); n != 1 {
		t.Errorf("posted %d, want 1 after retry", n)
	}
}

func TestSend_OtherErrorNotRetried(t *testing.T) {
	client := newMockSlackClient()
	client.postErrs = []error{errors.New("channel_not_found")}
	a := connected(t, client, "C1")

	if err := a.Send(context.Background(), notify.OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if n := len(client.postedChannels()); n != 0 {
		t.Errorf("posted %d, want 0", n)
	}
}

func TestRetryOnRateLimit_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryOnRateLimit(ctx, func() error {
		return &slackapi.RateLimitedError{RetryAfter: time.Hour}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEventToAttachment(t *testing.T) {
	att := eventToAttachment(notify.FormattedEvent{
		Title: "Osprey",
		Body:  "Overdue: Oil change",
		Color: notify.ColorWarning,
		Fields: []notify.Field{
			{Name: "Overdue", Value: "1", Short: true},
		},
	})
	if att.Title != "Osprey" || att.Text != "Overdue: Oil change" || att.Color != notify.ColorWarning {
		t.Errorf("attachment = %+v", att)
	}
	if att.Fallback != "Osprey" {
		t.Errorf("fallback = %q, want title", att.Fallback)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "Overdue" || !att.Fields[0].Short {
		t.Errorf("fields = %+v", att.Fields)
	}
}

func TestBuildMessageOptions(t *testing.T) {
	if n := len(buildMessageOptions(notify.OutboundMessage{Text: "x"})); n != 1 {
		t.Errorf("text-only options = %d, want 1", n)
	}
	msg := notify.OutboundMessage{Text: "x", Events: []notify.FormattedEvent{{Title: "a"}}}
	if n := len(buildMessageOptions(msg)); n != 2 {
		t.Errorf("options with events = %d, want 2", n)
	}
}
