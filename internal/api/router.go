package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/notification"
	"github.com/pulsetrack/pulsetrack/internal/store"
	"github.com/pulsetrack/pulsetrack/internal/tokens"
	"github.com/pulsetrack/pulsetrack/internal/websocket"
)

// NewRouter creates the HTTP router
func NewRouter(cfg *config.Config, st store.Store, hub *websocket.Hub, dispatcher *notification.Dispatcher, mailer *notification.Mailer, signer *tokens.Signer, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	pingLimiter := NewRateLimiter(rate.Limit(20), 60)
	authLimiter := NewRateLimiter(rate.Limit(1), 10)

	// Ping endpoint: any method, never cached
	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(pingLimiter))
		r.HandleFunc("/ping/{code}", HandlePing(st, dispatcher, hub, log))
		r.HandleFunc("/ping/{code}/", HandlePing(st, dispatcher, hub, log))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(authLimiter))
			r.Post("/auth/login", HandleLogin(st, cfg, mailer, log))
			r.HandleFunc("/auth/check_token/{username}/{token}", HandleCheckToken(st, cfg, log))
			r.Post("/auth/set_password/{username}/{token}", HandleSetPassword(st, log))
		})

		// Check API, authenticated by API key
		r.Post("/checks/", HandleCreateCheck(st, cfg, log))
		r.Get("/checks/", HandleListChecks(st, cfg, log))
		r.Post("/checks/{code}/pause", HandlePauseCheck(st, cfg, log))
		r.Get("/badges", HandleListBadges(st, cfg, signer, log))

		// Signed unsubscribe link, no session required
		r.Get("/accounts/unsubscribe_reports/{username}", HandleUnsubscribeReports(st, signer))

		// Profile routes, authenticated by session token
		r.Route("/profile", func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.JWTSecret, st))
			r.Get("/", HandleGetProfile(st))
			r.Post("/set_password_link", HandleSetPasswordLink(st, cfg, mailer, log))
			r.Post("/regenerate_api_key", HandleRegenerateAPIKey(st))
			r.Post("/reports", HandleUpdateReports(st))
			r.Post("/invite", HandleInviteMember(st, cfg, mailer, log))
			r.Post("/remove_member", HandleRemoveMember(st, log))
			r.Post("/team_name", HandleSetTeamName(st))
		})
	})

	// Badge endpoint (public, signed)
	r.Get("/badge/{username}/{sig}/{tag}.svg", HandleBadge(st, signer, log))

	// WebSocket endpoint
	if hub != nil {
		r.Get("/ws", hub.HandleWebSocket)
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
