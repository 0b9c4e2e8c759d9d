package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pulsetrack/pulsetrack/internal/models"
)

func TestCreateCheck(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "alice", "alice@example.org", "key-alice")

	rec := env.do(t, http.MethodPost, "/api/v1/checks/", map[string]any{
		"api_key": "key-alice",
		"name":    "Backups",
		"tags":    "prod db",
		"timeout": 3600,
		"grace":   60,
	}, nil)

	wantStatus(t, rec, http.StatusCreated)
	doc := decodeBody(t, rec)
	if doc["name"] != "Backups" {
		t.Fatalf("name = %v, want Backups", doc["name"])
	}
	if doc["tags"] != "prod db" {
		t.Fatalf("tags = %v, want \"prod db\"", doc["tags"])
	}
	if doc["timeout"].(float64) != 3600 {
		t.Fatalf("timeout = %v, want 3600", doc["timeout"])
	}
	if doc["status"] != models.StatusNew {
		t.Fatalf("status = %v, want new", doc["status"])
	}
	if doc["n_pings"].(float64) != 0 {
		t.Fatalf("n_pings = %v, want 0", doc["n_pings"])
	}
	if doc["last_ping"] != nil {
		t.Fatalf("last_ping = %v, want null", doc["last_ping"])
	}

	pingURL, _ := doc["ping_url"].(string)
	if !strings.HasPrefix(pingURL, "http://example.com/ping/") {
		t.Fatalf("ping_url = %q", pingURL)
	}
	pauseURL, _ := doc["pause_url"].(string)
	if !strings.HasPrefix(pauseURL, "http://example.com/api/v1/checks/") || !strings.HasSuffix(pauseURL, "/pause") {
		t.Fatalf("pause_url = %q", pauseURL)
	}
}

func TestCreateCheckDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "alice", "alice@example.org", "key-alice")

	rec := env.do(t, http.MethodPost, "/api/v1/checks/", map[string]any{
		"api_key": "key-alice",
	}, nil)

	wantStatus(t, rec, http.StatusCreated)
	doc := decodeBody(t, rec)
	if doc["timeout"].(float64) != 86400 {
		t.Fatalf("timeout = %v, want 86400", doc["timeout"])
	}
	if doc["grace"].(float64) != 3600 {
		t.Fatalf("grace = %v, want 3600", doc["grace"])
	}
	if doc["name"] != "" {
		t.Fatalf("name = %v, want empty", doc["name"])
	}
}

func TestCreateCheckHeaderKey(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "alice", "alice@example.org", "key-alice")

	rec := env.do(t, http.MethodPost, "/api/v1/checks/", map[string]any{
		"name": "Header auth",
	}, map[string]string{"X-Api-Key": "key-alice"})

	wantStatus(t, rec, http.StatusCreated)
}

func TestCreateCheckWrongKey(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "alice", "alice@example.org", "key-alice")

	for _, body := range []map[string]any{
		{"api_key": "nonexistent"},
		{},
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/checks/", body, nil)
		wantError(t, rec, http.StatusBadRequest, "wrong api_key")
	}
}

func TestCreateCheckValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "alice", "alice@example.org", "key-alice")

	cases := []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"string timeout", map[string]any{"api_key": "key-alice", "timeout": "3600"}, "timeout is not a number"},
		{"timeout too small", map[string]any{"api_key": "key-alice", "timeout": 10}, "timeout is too small"},
		{"timeout too large", map[string]any{"api_key": "key-alice", "timeout": 604801}, "timeout is too large"},
		{"string grace", map[string]any{"api_key": "key-alice", "grace": "60"}, "grace is not a number"},
		{"grace too small", map[string]any{"api_key": "key-alice", "grace": 1}, "grace is too small"},
		{"bool name", map[string]any{"api_key": "key-alice", "name": false}, "name is not a string"},
		{"numeric tags", map[string]any{"api_key": "key-alice", "tags": 7}, "tags is not a string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/checks/", tc.body, nil)
			wantError(t, rec, http.StatusBadRequest, tc.msg)
		})
	}
}

func TestCreateCheckMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "alice", "alice@example.org", "key-alice")

	rec := env.do(t, http.MethodPost, "/api/v1/checks/", "{not json", nil)
	wantError(t, rec, http.StatusBadRequest, "could not parse request body")
}

func TestListChecks(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	bob, _ := env.seedAccount(t, "bob", "bob@example.org", "key-bob")

	recent := time.Now().UTC().Add(-time.Minute)
	old := time.Now().UTC().Add(-48 * time.Hour)
	env.seedCheck(t, alice.ID, func(c *models.Check) {
		c.Name = "Fresh"
		c.LastPing = &recent
	})
	env.seedCheck(t, alice.ID, func(c *models.Check) {
		c.Name = "Stale"
		c.LastPing = &old
	})
	env.seedCheck(t, bob.ID, func(c *models.Check) {
		c.Name = "Bobs"
	})

	rec := env.do(t, http.MethodGet, "/api/v1/checks/", nil, map[string]string{"X-Api-Key": "key-alice"})
	wantStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	list, _ := body["checks"].([]any)
	if len(list) != 2 {
		t.Fatalf("checks = %d, want 2", len(list))
	}

	// Status is derived at render time, not read from the stored field.
	byName := map[string]string{}
	for _, item := range list {
		doc := item.(map[string]any)
		byName[doc["name"].(string)] = doc["status"].(string)
	}
	if byName["Fresh"] != models.StatusUp {
		t.Fatalf("Fresh status = %q, want up", byName["Fresh"])
	}
	if byName["Stale"] != models.StatusDown {
		t.Fatalf("Stale status = %q, want down", byName["Stale"])
	}
	if _, ok := byName["Bobs"]; ok {
		t.Fatal("another account's check leaked into the listing")
	}
}

func TestListChecksWrongKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/checks/", nil, map[string]string{"X-Api-Key": "nope"})
	wantError(t, rec, http.StatusBadRequest, "wrong api_key")
}

func TestPauseCheck(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	recent := time.Now().UTC().Add(-time.Minute)
	check := env.seedCheck(t, alice.ID, func(c *models.Check) {
		c.Status = models.StatusUp
		c.LastPing = &recent
	})

	rec := env.do(t, http.MethodPost, "/api/v1/checks/"+check.Code+"/pause",
		map[string]any{"api_key": "key-alice"}, nil)
	wantStatus(t, rec, http.StatusOK)

	doc := decodeBody(t, rec)
	if doc["status"] != models.StatusPaused {
		t.Fatalf("status = %v, want paused", doc["status"])
	}

	// Paused is sticky: a recent last_ping does not override it.
	got, _ := env.store.CheckByCode(context.Background(), check.Code)
	if got.Status != models.StatusPaused {
		t.Fatalf("stored status = %q, want paused", got.Status)
	}

	// The next ping flips it back.
	rec = env.do(t, http.MethodGet, "/ping/"+check.Code, nil, nil)
	wantStatus(t, rec, http.StatusOK)
	got, _ = env.store.CheckByCode(context.Background(), check.Code)
	if got.Status != models.StatusUp {
		t.Fatalf("status after ping = %q, want up", got.Status)
	}
}

func TestPauseForeignCheck(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "alice", "alice@example.org", "key-alice")
	bob, _ := env.seedAccount(t, "bob", "bob@example.org", "key-bob")
	check := env.seedCheck(t, bob.ID, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/checks/"+check.Code+"/pause",
		map[string]any{"api_key": "key-alice"}, nil)
	wantStatus(t, rec, http.StatusNotFound)
}

func TestPauseBadCode(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "alice", "alice@example.org", "key-alice")

	rec := env.do(t, http.MethodPost, "/api/v1/checks/not-a-uuid/pause",
		map[string]any{"api_key": "key-alice"}, nil)
	wantError(t, rec, http.StatusBadRequest, "code is not a valid uuid")
}
