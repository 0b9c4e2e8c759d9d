package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/notification"
	"github.com/pulsetrack/pulsetrack/internal/store"
	"github.com/pulsetrack/pulsetrack/internal/tokens"
)

// ProfileDoc is the session-authenticated view of an account.
type ProfileDoc struct {
	Username          string `json:"username"`
	Email             string `json:"email"`
	APIKey            string `json:"api_key"`
	TeamName          string `json:"team_name"`
	TeamAccessAllowed bool   `json:"team_access_allowed"`
	ReportsAllowed    string `json:"reports_allowed"`
}

// HandleGetProfile returns the current account's profile.
func HandleGetProfile(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		profile, err := st.ProfileByUserID(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, ProfileDoc{
			Username:          user.Username,
			Email:             user.Email,
			APIKey:            profile.APIKey,
			TeamName:          profile.TeamName,
			TeamAccessAllowed: profile.TeamAccessAllowed,
			ReportsAllowed:    profile.ReportsAllowed,
		})
	}
}

// HandleSetPasswordLink issues a fresh single-use token and emails the
// set-password link. Any previously issued token stops working.
func HandleSetPasswordLink(st store.Store, cfg *config.Config, mailer *notification.Mailer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
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

		link := fmt.Sprintf("%s/api/v1/auth/set_password/%s/%s", cfg.SiteRoot, user.Username, raw)
		body := "Hello,\n\nHere's a link to set a password for your account on PulseTrack:\n\n" + link + "\n"
		if err := mailer.Send(user.Email, "Set password on PulseTrack", body); err != nil {
			log.Error("failed to send set-password link", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "set-password link sent"})
	}
}

// HandleRegenerateAPIKey replaces the account's API key.
func HandleRegenerateAPIKey(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		profile, err := st.ProfileByUserID(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		key, err := randomToken(24)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		profile.APIKey = key
		if err := st.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"api_key": key})
	}
}

// HandleUpdateReports sets the report cadence. The next digest is
// scheduled one full period out.
func HandleUpdateReports(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}
		cadence, _ := fields["reports_allowed"].(string)
		switch cadence {
		case models.ReportsOff, models.ReportsDaily, models.ReportsWeekly, models.ReportsMonthly:
		default:
			writeError(w, http.StatusBadRequest, "reports_allowed is not valid")
			return
		}

		user := currentUser(r)
		profile, err := st.ProfileByUserID(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		profile.ReportsAllowed = cadence
		if period := profile.ReportPeriod(); period > 0 {
			next := time.Now().UTC().Add(period)
			profile.NextReportAt = &next
		} else {
			profile.NextReportAt = nil
		}
		if err := st.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"reports_allowed": cadence})
	}
}

// HandleInviteMember adds a user to the current account's team, creating
// the account on first sight. Requires the team-access flag.
func HandleInviteMember(st store.Store, cfg *config.Config, mailer *notification.Mailer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		profile, err := st.ProfileByUserID(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !profile.TeamAccessAllowed {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

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

		invitee, err := st.UserByEmail(r.Context(), email)
		if errors.Is(err, store.ErrNotFound) {
			invitee, err = createAccount(r.Context(), st, email)
		}
		if err != nil {
			log.Error("invite failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Re-inviting an existing member is a no-op, not a conflict.
		existing, err := st.MembersOfTeam(r.Context(), profile.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		for i := range existing {
			if existing[i].UserID == invitee.ID {
				writeJSON(w, http.StatusOK, map[string]string{"message": "member invited"})
				return
			}
		}

		member := &models.Member{
			TeamID:    profile.ID,
			UserID:    invitee.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := st.AddMember(r.Context(), member); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		inviteeProfile, err := st.ProfileByUserID(r.Context(), invitee.ID)
		if err == nil {
			inviteeProfile.CurrentTeamID = &profile.ID
			if err := st.SaveProfile(r.Context(), inviteeProfile); err != nil {
				log.Warn("failed to set current team", zap.Error(err))
			}
		}

		subject := fmt.Sprintf("You have been invited to join %s on PulseTrack", user.Email)
		body := fmt.Sprintf("Hello,\n\n%s invites you to their team on PulseTrack. "+
			"You will be able to manage their existing monitoring checks and set up new ones.\n\n%s\n",
			user.Email, cfg.SiteRoot)
		if err := mailer.Send(email, subject, body); err != nil {
			log.Warn("failed to send invite email", zap.Error(err))
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "member invited"})
	}
}

// HandleRemoveMember removes a user from the current account's team.
func HandleRemoveMember(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		profile, err := st.ProfileByUserID(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		fields, err := decodeFields(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}
		email, _ := fields["email"].(string)
		email = strings.ToLower(strings.TrimSpace(email))

		member, err := st.UserByEmail(r.Context(), email)
		if err != nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		if err := st.RemoveMember(r.Context(), profile.ID, member.ID); err != nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		memberProfile, err := st.ProfileByUserID(r.Context(), member.ID)
		if err == nil && memberProfile.CurrentTeamID != nil && *memberProfile.CurrentTeamID == profile.ID {
			memberProfile.CurrentTeamID = nil
			if err := st.SaveProfile(r.Context(), memberProfile); err != nil {
				log.Warn("failed to clear current team", zap.Error(err))
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "member removed"})
	}
}

// HandleSetTeamName renames the current account's team.
func HandleSetTeamName(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}
		name, _ := fields["team_name"].(string)
		name = strings.TrimSpace(name)
		if name == "" || len(name) > 200 {
			writeError(w, http.StatusBadRequest, "team_name is not valid")
			return
		}

		user := currentUser(r)
		profile, err := st.ProfileByUserID(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		profile.TeamName = name
		if err := st.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"team_name": name})
	}
}

// HandleUnsubscribeReports turns report digests off through a signed
// link. A bad signature fails closed with a 400. A valid signature whose
// value no longer matches the stored one is silently ignored; the link
// simply went stale, which is not an attack.
func HandleUnsubscribeReports(st store.Store, signer *tokens.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		signed := r.URL.Query().Get("token")

		if _, err := signer.Unsign(signed); err != nil {
			writeError(w, http.StatusBadRequest, "bad signature")
			return
		}

		_, profile, ok := userAndProfile(r.Context(), st, username)
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		if signed != profile.Token {
			// Valid signature, stale value: no state change.
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
			return
		}

		profile.ReportsAllowed = models.ReportsOff
		profile.NextReportAt = nil
		if err := st.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "unsubscribed"})
	}
}
