package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/notification"
	"github.com/pulsetrack/pulsetrack/internal/store"
	"github.com/pulsetrack/pulsetrack/internal/tokens"
)

type contextKey string

const userContextKey contextKey = "user"

// LoginResponse represents a successful session grant
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// HandleLogin handles the login endpoint. With a password present it
// authenticates directly; without one it issues a single-use sign-in
// token and emails the link, creating the account on first sight.
func HandleLogin(st store.Store, cfg *config.Config, mailer *notification.Mailer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}

		email, _ := fields["email"].(string)
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || !strings.Contains(email, "@") {
			writeError(w, http.StatusBadRequest, "email is not valid")
			return
		}

		if password, _ := fields["password"].(string); password != "" {
			handlePasswordLogin(w, r, st, cfg, email, password, log)
			return
		}

		user, err := st.UserByEmail(r.Context(), email)
		if errors.Is(err, store.ErrNotFound) {
			user, err = createAccount(r.Context(), st, email)
		}
		if err != nil {
			log.Error("login failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		profile, err := st.ProfileByUserID(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		raw, hash, err := tokens.New()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		profile.Token = hash
		if err := st.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		link := fmt.Sprintf("%s/api/v1/auth/check_token/%s/%s", cfg.SiteRoot, user.Username, raw)
		body := "Hello,\n\nTo log into PulseTrack, follow the link below:\n\n" + link + "\n"
		if err := mailer.Send(email, "Log in to PulseTrack", body); err != nil {
			log.Error("failed to send login link", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "login link sent"})
	}
}

func handlePasswordLogin(w http.ResponseWriter, r *http.Request, st store.Store, cfg *config.Config, email, password string, log *zap.Logger) {
	user, err := st.UserByEmail(r.Context(), email)
	if err != nil || !user.HasPassword() {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := generateJWT(user.ID, cfg.JWTSecret)
	if err != nil {
		log.Error("failed to generate session token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// HandleCheckToken verifies an emailed sign-in token. The stored hash is
// cleared on success, so every link works exactly once.
func HandleCheckToken(st store.Store, cfg *config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		rawToken := chi.URLParam(r, "token")

		user, profile, ok := userAndProfile(r.Context(), st, username)
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		if !tokens.Check(rawToken, profile.Token) {
			writeError(w, http.StatusBadRequest, "invalid token")
			return
		}

		profile.Token = ""
		if err := st.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := generateJWT(user.ID, cfg.JWTSecret)
		if err != nil {
			log.Error("failed to generate session token", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
	}
}

// HandleSetPassword sets the account password using the same single-use
// token mechanism as the sign-in link.
func HandleSetPassword(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		rawToken := chi.URLParam(r, "token")

		fields, err := decodeFields(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}
		password, _ := fields["password"].(string)
		if len(password) < 8 {
			writeError(w, http.StatusBadRequest, "password is too short")
			return
		}

		user, profile, ok := userAndProfile(r.Context(), st, username)
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		if !tokens.Check(rawToken, profile.Token) {
			writeError(w, http.StatusBadRequest, "invalid token")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to hash password", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		user.Password = string(hash)
		profile.Token = ""

		if err := st.SaveUser(r.Context(), user); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := st.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "password set"})
	}
}

// AuthMiddleware validates JWT bearer tokens and loads the user.
func AuthMiddleware(jwtSecret string, st store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			uid, ok := claims["user_id"].(float64)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			user, err := st.UserByID(r.Context(), int(uid))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentUser returns the user loaded by AuthMiddleware.
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

// apiKeyProfile resolves the profile for an API key supplied in the
// X-Api-Key header or the api_key body field. Both unknown keys and
// missing keys produce the same result, so callers leak nothing about
// account existence.
func apiKeyProfile(r *http.Request, st store.Store, fields map[string]any) (*models.Profile, error) {
	key := strings.TrimSpace(r.Header.Get("X-Api-Key"))
	if key == "" && fields != nil {
		key, _ = fields["api_key"].(string)
	}
	if key == "" {
		return nil, store.ErrNotFound
	}
	return st.ProfileByAPIKey(r.Context(), key)
}

func userAndProfile(ctx context.Context, st store.Store, username string) (*models.User, *models.Profile, bool) {
	user, err := st.UserByUsername(ctx, username)
	if err != nil {
		return nil, nil, false
	}
	profile, err := st.ProfileByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, false
	}
	return user, profile, true
}

// createAccount provisions a user with its profile and a fresh API key.
func createAccount(ctx context.Context, st store.Store, email string) (*models.User, error) {
	username := usernameFromEmail(email)
	if _, err := st.UserByUsername(ctx, username); err == nil {
		suffix, err := randomToken(4)
		if err != nil {
			return nil, err
		}
		username = username + "-" + suffix
	}

	apiKey, err := randomToken(24)
	if err != nil {
		return nil, err
	}

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
	if err := st.CreateUser(ctx, user, profile); err != nil {
		return nil, err
	}
	return user, nil
}

func usernameFromEmail(email string) string {
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}
	var b strings.Builder
	for _, r := range local {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// generateJWT generates a session token for a user
func generateJWT(userID int, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(2 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(secret))
}
