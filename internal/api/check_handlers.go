package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/checks"
	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/store"
)

// CheckDoc is the API representation of a check. Status is always derived
// from elapsed time at render time; the stored field alone is never
// trusted.
type CheckDoc struct {
	Name     string     `json:"name"`
	Tags     string     `json:"tags"`
	Timeout  int        `json:"timeout"`
	Grace    int        `json:"grace"`
	PingURL  string     `json:"ping_url"`
	PauseURL string     `json:"pause_url"`
	Status   string     `json:"status"`
	LastPing *time.Time `json:"last_ping"`
	NPings   int        `json:"n_pings"`
}

func checkDoc(cfg *config.Config, c *models.Check, now time.Time) CheckDoc {
	return CheckDoc{
		Name:     c.Name,
		Tags:     c.Tags,
		Timeout:  c.Timeout,
		Grace:    c.Grace,
		PingURL:  fmt.Sprintf("%s/ping/%s", cfg.SiteRoot, c.Code),
		PauseURL: fmt.Sprintf("%s/api/v1/checks/%s/pause", cfg.SiteRoot, c.Code),
		Status:   checks.Compute(c, now),
		LastPing: c.LastPing,
		NPings:   c.NPings,
	}
}

// HandleCreateCheck creates a new check for the API key's account.
func HandleCreateCheck(st store.Store, cfg *config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}

		profile, err := apiKeyProfile(r, st, fields)
		if err != nil {
			writeError(w, http.StatusBadRequest, "wrong api_key")
			return
		}

		params, err := checks.ParseParams(fields)
		if err != nil {
			var verr *checks.ValidationError
			if errors.As(err, &verr) {
				writeError(w, http.StatusBadRequest, verr.Msg)
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		check := &models.Check{
			Code:      uuid.NewString(),
			UserID:    profile.UserID,
			Name:      params.Name,
			Tags:      params.Tags,
			Timeout:   params.Timeout,
			Grace:     params.Grace,
			Status:    models.StatusNew,
			CreatedAt: time.Now().UTC(),
		}

		if err := st.CreateCheck(r.Context(), check); err != nil {
			log.Error("failed to create check", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, checkDoc(cfg, check, time.Now().UTC()))
	}
}

// HandleListChecks returns the API key account's checks with freshly
// derived status.
func HandleListChecks(st store.Store, cfg *config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := apiKeyProfile(r, st, nil)
		if err != nil {
			writeError(w, http.StatusBadRequest, "wrong api_key")
			return
		}

		list, err := st.ChecksForUser(r.Context(), profile.UserID)
		if err != nil {
			log.Error("failed to list checks", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		now := time.Now().UTC()
		docs := make([]CheckDoc, len(list))
		for i := range list {
			docs[i] = checkDoc(cfg, &list[i], now)
		}

		writeJSON(w, http.StatusOK, map[string]any{"checks": docs})
	}
}

// HandlePauseCheck puts a check into the sticky paused state. Only the
// next ping brings it back.
func HandlePauseCheck(st store.Store, cfg *config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}

		profile, err := apiKeyProfile(r, st, fields)
		if err != nil {
			writeError(w, http.StatusBadRequest, "wrong api_key")
			return
		}

		code := chi.URLParam(r, "code")
		if _, err := uuid.Parse(code); err != nil {
			writeError(w, http.StatusBadRequest, "code is not a valid uuid")
			return
		}

		check, err := st.CheckByCode(r.Context(), code)
		if errors.Is(err, store.ErrNotFound) || (err == nil && check.UserID != profile.UserID) {
			// Foreign checks are indistinguishable from absent ones.
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			log.Error("failed to load check", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		checks.Pause(check)
		if err := st.UpdateCheckStatus(r.Context(), check.ID, check.Status); err != nil {
			log.Error("failed to pause check", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, checkDoc(cfg, check, time.Now().UTC()))
	}
}
