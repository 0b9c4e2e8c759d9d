package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/store/memory"
)

// recorderServer collects webhook request bodies.
type recorderServer struct {
	mu     sync.Mutex
	bodies [][]byte
	srv    *httptest.Server
}

func newRecorderServer(t *testing.T) *recorderServer {
	rs := &recorderServer{}
	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		rs.bodies = append(rs.bodies, body)
		rs.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *recorderServer) count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.bodies)
}

func TestDispatcherFansOut(t *testing.T) {
	st := memory.New()
	user := &models.User{Username: "alice", Email: "alice@example.org"}
	profile := &models.Profile{APIKey: "key-alice"}
	if err := st.CreateUser(context.Background(), user, profile); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	slack := newRecorderServer(t)
	hook := newRecorderServer(t)
	for _, ch := range []*models.Channel{
		{UserID: user.ID, Kind: models.ChannelSlack, Value: slack.srv.URL},
		{UserID: user.ID, Kind: models.ChannelWebhook, Value: hook.srv.URL},
		// Unverified email channels are skipped, not failed.
		{UserID: user.ID, Kind: models.ChannelEmail, Value: "alice@example.org"},
	} {
		if err := st.CreateChannel(context.Background(), ch); err != nil {
			t.Fatalf("seed channel: %v", err)
		}
	}

	d := NewDispatcher(st, config.SMTPConfig{}, zap.NewNop())
	check := &models.Check{Code: "code-1", UserID: user.ID, Name: "Backups"}

	if err := d.NotifyCheckDown(context.Background(), check); err != nil {
		t.Fatalf("NotifyCheckDown: %v", err)
	}

	if slack.count() != 1 {
		t.Fatalf("slack deliveries = %d, want 1", slack.count())
	}
	if hook.count() != 1 {
		t.Fatalf("webhook deliveries = %d, want 1", hook.count())
	}

	var payload map[string]any
	if err := json.Unmarshal(hook.bodies[0], &payload); err != nil {
		t.Fatalf("decode webhook payload: %v", err)
	}
	if payload["check_name"] != "Backups" {
		t.Fatalf("check_name = %v, want Backups", payload["check_name"])
	}
	if payload["status"] != models.StatusDown {
		t.Fatalf("status = %v, want down", payload["status"])
	}
}

func TestDispatcherNoChannels(t *testing.T) {
	st := memory.New()
	d := NewDispatcher(st, config.SMTPConfig{}, zap.NewNop())

	check := &models.Check{Code: "code-1", UserID: 42}
	if err := d.NotifyCheckUp(context.Background(), check); err != nil {
		t.Fatalf("NotifyCheckUp with no channels: %v", err)
	}
}

func TestFormatMessage(t *testing.T) {
	m := &Message{
		Body:      "The check went down.",
		CheckCode: "code-1",
		Status:    models.StatusDown,
		Time:      "2026-01-02T03:04:05Z",
	}

	// With no name set, the code identifies the check.
	got := FormatMessage(m)
	for _, want := range []string{"The check went down.", "code-1", "down"} {
		if !strings.Contains(got, want) {
			t.Errorf("message missing %q:\n%s", want, got)
		}
	}
}
