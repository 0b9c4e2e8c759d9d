package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/checks"
	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/store"
	"github.com/pulsetrack/pulsetrack/internal/tokens"
)

var nonWordChars = regexp.MustCompile(`\W`)

// sanitizeTag keeps only word characters so tags are safe in URLs.
func sanitizeTag(tag string) string {
	return nonWordChars.ReplaceAllString(tag, "")
}

// badgeSignature signs a username/tag pair for public badge URLs. The
// signature is truncated; verification matches the prefix.
func badgeSignature(signer *tokens.Signer, username, tag string) string {
	return signer.Signature("badge/" + username + "/" + tag)[:10]
}

// HandleListBadges returns, per sanitized tag of the account's checks,
// the public badge URL.
func HandleListBadges(st store.Store, cfg *config.Config, signer *tokens.Signer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := apiKeyProfile(r, st, nil)
		if err != nil {
			writeError(w, http.StatusBadRequest, "wrong api_key")
			return
		}

		user, err := st.UserByID(r.Context(), profile.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		list, err := st.ChecksForUser(r.Context(), profile.UserID)
		if err != nil {
			log.Error("failed to list checks", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		badges := make(map[string]string)
		for i := range list {
			for _, tag := range strings.Fields(list[i].Tags) {
				clean := sanitizeTag(tag)
				if clean == "" {
					continue
				}
				sig := badgeSignature(signer, user.Username, clean)
				badges[clean] = fmt.Sprintf("%s/badge/%s/%s/%s.svg", cfg.SiteRoot, user.Username, sig, clean)
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{"badges": badges})
	}
}

// HandleBadge serves the public per-tag status badge. The embedded
// signature is verified before any lookup and fails closed.
func HandleBadge(st store.Store, signer *tokens.Signer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		sig := chi.URLParam(r, "sig")
		tag := chi.URLParam(r, "tag")

		if tag != sanitizeTag(tag) || !signer.Verify("badge/"+username+"/"+tag, sig) {
			writeError(w, http.StatusBadRequest, "bad signature")
			return
		}

		user, err := st.UserByUsername(r.Context(), username)
		if err != nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		list, err := st.ChecksForUser(r.Context(), user.ID)
		if err != nil {
			log.Error("failed to list checks", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		statusText, color := tagStatus(list, tag, time.Now().UTC())
		svg := generateBadgeSVG(tag, statusText, color)

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Write([]byte(svg))
	}
}

// tagStatus derives the worst status among the checks carrying a tag:
// any down check wins, then any late one. Paused and never-pinged checks
// do not drag a tag down.
func tagStatus(list []models.Check, tag string, now time.Time) (text, color string) {
	text, color = "up", "brightgreen"
	matched := false
	for i := range list {
		if !hasTag(&list[i], tag) {
			continue
		}
		matched = true
		switch checks.Compute(&list[i], now) {
		case models.StatusDown:
			return "down", "red"
		case models.StatusGrace:
			text, color = "late", "yellow"
		}
	}
	if !matched {
		return "unknown", "gray"
	}
	return text, color
}

func hasTag(c *models.Check, tag string) bool {
	for _, t := range strings.Fields(c.Tags) {
		if sanitizeTag(t) == tag {
			return true
		}
	}
	return false
}

// generateBadgeSVG generates a shields.io style badge
func generateBadgeSVG(label, message, color string) string {
	colorMap := map[string]string{
		"brightgreen": "#4c1",
		"green":       "#97ca00",
		"yellow":      "#dfb317",
		"orange":      "#fe7d37",
		"red":         "#e05d44",
		"gray":        "#555",
	}

	hexColor, ok := colorMap[color]
	if !ok {
		hexColor = colorMap["gray"]
	}

	labelWidth := len(label)*6 + 10
	messageWidth := len(message)*6 + 10
	totalWidth := labelWidth + messageWidth

	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="20">
  <linearGradient id="b" x2="0" y2="100%%">
    <stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
    <stop offset="1" stop-opacity=".1"/>
  </linearGradient>
  <mask id="a">
    <rect width="%d" height="20" rx="3" fill="#fff"/>
  </mask>
  <g mask="url(#a)">
    <path fill="#555" d="M0 0h%dv20H0z"/>
    <path fill="%s" d="M%d 0h%dv20H%dz"/>
    <path fill="url(#b)" d="M0 0h%dv20H0z"/>
  </g>
  <g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="11">
    <text x="%d" y="15" fill="#010101" fill-opacity=".3">%s</text>
    <text x="%d" y="14">%s</text>
    <text x="%d" y="15" fill="#010101" fill-opacity=".3">%s</text>
    <text x="%d" y="14">%s</text>
  </g>
</svg>`,
		totalWidth,
		totalWidth,
		labelWidth, hexColor, labelWidth, messageWidth, labelWidth,
		totalWidth,
		labelWidth/2, label,
		labelWidth/2, label,
		labelWidth+messageWidth/2, message,
		labelWidth+messageWidth/2, message,
	)

	return svg
}
