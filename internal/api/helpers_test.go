package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/notification"
	"github.com/pulsetrack/pulsetrack/internal/store/memory"
	"github.com/pulsetrack/pulsetrack/internal/tokens"
)

type testEnv struct {
	store  *memory.Store
	cfg    *config.Config
	signer *tokens.Signer
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	cfg := &config.Config{
		SiteRoot:    "http://example.com",
		JWTSecret:   "test-jwt-secret",
		SecretKey:   "test-secret-key",
		Environment: "development",
		CORSOrigins: []string{"*"},
	}
	log := zap.NewNop()
	signer := tokens.NewSigner(cfg.SecretKey)
	mailer := notification.NewMailer(cfg.SMTP, log)
	dispatcher := notification.NewDispatcher(st, cfg.SMTP, log)

	return &testEnv{
		store:  st,
		cfg:    cfg,
		signer: signer,
		router: NewRouter(cfg, st, nil, dispatcher, mailer, signer, log),
	}
}

// seedAccount creates a user with a profile directly in the store.
func (e *testEnv) seedAccount(t *testing.T, username, email, apiKey string) (*models.User, *models.Profile) {
	t.Helper()
	user := &models.User{
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	profile := &models.Profile{
		APIKey:         apiKey,
		ReportsAllowed: models.ReportsOff,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.store.CreateUser(context.Background(), user, profile); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return user, profile
}

// seedCheck creates a check with sane defaults, optionally mutated first.
func (e *testEnv) seedCheck(t *testing.T, userID int, mutate func(*models.Check)) *models.Check {
	t.Helper()
	c := &models.Check{
		Code:      uuid.NewString(),
		UserID:    userID,
		Timeout:   86400,
		Grace:     3600,
		Status:    models.StatusNew,
		CreatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(c)
	}
	if err := e.store.CreateCheck(context.Background(), c); err != nil {
		t.Fatalf("seed check: %v", err)
	}
	return c
}

// do sends a request through the router. A string body is sent verbatim;
// anything else is JSON encoded.
func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	wantStatus(t, rec, status)
	body := decodeBody(t, rec)
	if got, _ := body["error"].(string); got != msg {
		t.Fatalf("error = %q, want %q", got, msg)
	}
}

func (e *testEnv) sessionHeader(t *testing.T, userID int) map[string]string {
	t.Helper()
	token, err := generateJWT(userID, e.cfg.JWTSecret)
	if err != nil {
		t.Fatalf("generate session token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
