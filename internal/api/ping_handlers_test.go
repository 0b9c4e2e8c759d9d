package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pulsetrack/pulsetrack/internal/models"
)

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	check := env.seedCheck(t, user.ID, nil)

	rec := env.do(t, http.MethodGet, "/ping/"+check.Code, nil, map[string]string{
		"User-Agent": "curl/8.0",
	})

	wantStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "OK" {
		t.Fatalf("body = %q, want OK", rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Fatalf("Cache-Control = %q, want no-cache", cc)
	}

	got, err := env.store.CheckByCode(context.Background(), check.Code)
	if err != nil {
		t.Fatalf("reload check: %v", err)
	}
	if got.Status != models.StatusUp {
		t.Fatalf("status = %q, want up", got.Status)
	}
	if got.NPings != 1 {
		t.Fatalf("n_pings = %d, want 1", got.NPings)
	}
	if got.LastPing == nil {
		t.Fatal("last_ping not set")
	}

	pings, err := env.store.PingsForCheck(context.Background(), got.ID, 10)
	if err != nil {
		t.Fatalf("load pings: %v", err)
	}
	if len(pings) != 1 {
		t.Fatalf("ping rows = %d, want 1", len(pings))
	}
	if pings[0].UA != "curl/8.0" {
		t.Fatalf("ua = %q, want curl/8.0", pings[0].UA)
	}
}

func TestPingAcceptsPost(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	check := env.seedCheck(t, user.ID, nil)

	rec := env.do(t, http.MethodPost, "/ping/"+check.Code, "some job output", nil)
	wantStatus(t, rec, http.StatusOK)
}

func TestPingTrailingSlash(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	check := env.seedCheck(t, user.ID, nil)

	rec := env.do(t, http.MethodGet, "/ping/"+check.Code+"/", nil, nil)
	wantStatus(t, rec, http.StatusOK)
}

func TestPingBadCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ping/not-a-uuid", nil, nil)
	wantError(t, rec, http.StatusBadRequest, "code is not a valid uuid")
}

func TestPingUnknownCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ping/07c2f548-9850-4f27-9444-5eb9d17b0516", nil, nil)
	wantStatus(t, rec, http.StatusNotFound)
}

func TestPingTruncatesUserAgent(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	check := env.seedCheck(t, user.ID, nil)

	long := strings.Repeat("a", 300)
	rec := env.do(t, http.MethodGet, "/ping/"+check.Code, nil, map[string]string{
		"User-Agent": long,
	})
	wantStatus(t, rec, http.StatusOK)

	pings, _ := env.store.PingsForCheck(context.Background(), check.ID, 1)
	if len(pings) != 1 {
		t.Fatalf("ping rows = %d, want 1", len(pings))
	}
	if len(pings[0].UA) != models.MaxUserAgentLength {
		t.Fatalf("ua length = %d, want %d", len(pings[0].UA), models.MaxUserAgentLength)
	}
	if pings[0].UA != long[:models.MaxUserAgentLength] {
		t.Fatal("ua is not a prefix of the original value")
	}
}

func TestPingTruncatesUserAgentOnRuneBoundary(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	check := env.seedCheck(t, user.ID, nil)

	// A multi-byte rune straddles the 200-byte mark; truncation must
	// count characters, not bytes, and never store broken UTF-8.
	ua := strings.Repeat("a", 199) + "é" + strings.Repeat("b", 50)
	rec := env.do(t, http.MethodGet, "/ping/"+check.Code, nil, map[string]string{
		"User-Agent": ua,
	})
	wantStatus(t, rec, http.StatusOK)

	pings, _ := env.store.PingsForCheck(context.Background(), check.ID, 1)
	if len(pings) != 1 {
		t.Fatalf("ping rows = %d, want 1", len(pings))
	}
	got := pings[0].UA
	if !utf8.ValidString(got) {
		t.Fatalf("stored ua is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != models.MaxUserAgentLength {
		t.Fatalf("ua rune count = %d, want %d", n, models.MaxUserAgentLength)
	}
	if !strings.HasSuffix(got, "é") {
		t.Fatalf("ua = %q, want the straddling rune kept whole", got)
	}
}

func TestPingForwardedHeaders(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	check := env.seedCheck(t, user.ID, nil)

	rec := env.do(t, http.MethodGet, "/ping/"+check.Code, nil, map[string]string{
		"X-Forwarded-For":   "1.1.1.1, 2.2.2.2",
		"X-Forwarded-Proto": "https",
	})
	wantStatus(t, rec, http.StatusOK)

	pings, _ := env.store.PingsForCheck(context.Background(), check.ID, 1)
	if len(pings) != 1 {
		t.Fatalf("ping rows = %d, want 1", len(pings))
	}
	if pings[0].RemoteAddr != "1.1.1.1" {
		t.Fatalf("remote_addr = %q, want 1.1.1.1", pings[0].RemoteAddr)
	}
	if pings[0].Scheme != "https" {
		t.Fatalf("scheme = %q, want https", pings[0].Scheme)
	}
}

func TestPingRevivesPausedCheck(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	check := env.seedCheck(t, user.ID, func(c *models.Check) {
		c.Status = models.StatusPaused
	})

	rec := env.do(t, http.MethodGet, "/ping/"+check.Code, nil, nil)
	wantStatus(t, rec, http.StatusOK)

	got, _ := env.store.CheckByCode(context.Background(), check.Code)
	if got.Status != models.StatusUp {
		t.Fatalf("status = %q, want up", got.Status)
	}
}

func TestPingRevivesDownCheck(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	old := time.Now().UTC().Add(-48 * time.Hour)
	check := env.seedCheck(t, user.ID, func(c *models.Check) {
		c.Status = models.StatusDown
		c.LastPing = &old
		c.NPings = 5
	})

	rec := env.do(t, http.MethodGet, "/ping/"+check.Code, nil, nil)
	wantStatus(t, rec, http.StatusOK)

	got, _ := env.store.CheckByCode(context.Background(), check.Code)
	if got.Status != models.StatusUp {
		t.Fatalf("status = %q, want up", got.Status)
	}
	if got.NPings != 6 {
		t.Fatalf("n_pings = %d, want 6", got.NPings)
	}
	if !got.LastPing.After(old) {
		t.Fatal("last_ping not advanced")
	}
}

func TestPingCountsEveryPing(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	check := env.seedCheck(t, user.ID, nil)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/ping/"+check.Code, nil, nil)
		wantStatus(t, rec, http.StatusOK)
	}

	got, _ := env.store.CheckByCode(context.Background(), check.Code)
	if got.NPings != 2 {
		t.Fatalf("n_pings = %d, want 2", got.NPings)
	}
	pings, _ := env.store.PingsForCheck(context.Background(), check.ID, 10)
	if len(pings) != 2 {
		t.Fatalf("ping rows = %d, want 2", len(pings))
	}
}
