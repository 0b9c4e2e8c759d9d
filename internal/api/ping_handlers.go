package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/checks"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/notification"
	"github.com/pulsetrack/pulsetrack/internal/store"
	"github.com/pulsetrack/pulsetrack/internal/websocket"
)

// HandlePing accepts a liveness signal for a check. Any HTTP method is
// accepted and a structurally valid code is never rejected: paused and
// down checks flip back to up. The counter increment, timestamp update,
// status change and ping log row are applied as one atomic unit.
func HandlePing(st store.Store, dispatcher *notification.Dispatcher, hub *websocket.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Intermediaries must never serve a stale ping response.
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		code := chi.URLParam(r, "code")
		if _, err := uuid.Parse(code); err != nil {
			writeError(w, http.StatusBadRequest, "code is not a valid uuid")
			return
		}

		check, err := st.CheckByCode(r.Context(), code)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			log.Error("failed to load check", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		now := time.Now().UTC()
		wasDown := check.Status == models.StatusDown

		ping := &models.Ping{
			CheckID:    check.ID,
			RemoteAddr: remoteAddr(r),
			Scheme:     scheme(r),
			UA:         truncate(r.UserAgent(), models.MaxUserAgentLength),
			Created:    now,
		}

		checks.RegisterPing(check, now)
		if err := st.RecordPing(r.Context(), check, ping); err != nil {
			log.Error("failed to record ping", zap.String("code", code), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if wasDown && dispatcher != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := dispatcher.NotifyCheckUp(ctx, check); err != nil {
					log.Warn("up notification failed", zap.String("code", code), zap.Error(err))
				}
			}()
		}

		if hub != nil {
			hub.Broadcast("ping", map[string]any{
				"code":    check.Code,
				"status":  check.Status,
				"n_pings": check.NPings,
				"time":    now.Format(time.RFC3339),
			})
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

// remoteAddr resolves the ping source. A forwarding header wins over the
// direct connection, first entry first.
func remoteAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := fwd
		if i := strings.Index(fwd, ","); i >= 0 {
			first = fwd[:i]
		}
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func scheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// truncate limits a string to max characters, never splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
