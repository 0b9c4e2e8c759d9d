package jobs

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/checks"
	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/notification"
	"github.com/pulsetrack/pulsetrack/internal/store"
	"github.com/pulsetrack/pulsetrack/internal/tokens"
)

// Reporter emails periodic digests of an account's checks with their
// derived statuses. Each digest carries a signed unsubscribe link; the
// signed value is stored on the profile so stale links become no-ops.
type Reporter struct {
	store  store.Store
	cfg    *config.Config
	mailer *notification.Mailer
	signer *tokens.Signer
	log    *zap.Logger
}

// NewReporter creates a Reporter.
func NewReporter(st store.Store, cfg *config.Config, mailer *notification.Mailer, signer *tokens.Signer, log *zap.Logger) *Reporter {
	return &Reporter{store: st, cfg: cfg, mailer: mailer, signer: signer, log: log}
}

// SendDue sends digests to every profile whose cadence has come around.
func (r *Reporter) SendDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	due, err := r.store.ProfilesDueReports(ctx, time.Now().UTC())
	if err != nil {
		r.log.Error("failed to load due profiles", zap.Error(err))
		return
	}

	for i := range due {
		if err := r.SendReport(ctx, &due[i]); err != nil {
			r.log.Warn("report failed", zap.Int("profile", due[i].ID), zap.Error(err))
		}
	}
}

// SendReport builds and sends one digest, then advances the schedule.
func (r *Reporter) SendReport(ctx context.Context, profile *models.Profile) error {
	user, err := r.store.UserByID(ctx, profile.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	list, err := r.store.ChecksForUser(ctx, profile.UserID)
	if err != nil {
		return fmt.Errorf("failed to load checks: %w", err)
	}

	// The unsubscribe link carries a signed random value; the same value
	// is stored so only the latest emailed link acts. Persist it before
	// sending, otherwise a failed save leaves a link that never matches.
	nonce, err := randomNonce()
	if err != nil {
		return err
	}
	signed := r.signer.Sign(nonce)
	profile.Token = signed
	if err := r.store.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to store unsubscribe value: %w", err)
	}

	subject := capitalize(profile.ReportsAllowed) + " Report"
	body := r.renderDigest(user, list, signed)

	if err := r.mailer.Send(user.Email, subject, body); err != nil {
		return err
	}

	period := profile.ReportPeriod()
	if period > 0 {
		next := time.Now().UTC().Add(period)
		profile.NextReportAt = &next
	}
	return r.store.SaveProfile(ctx, profile)
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (r *Reporter) renderDigest(user *models.User, list []models.Check, signed string) string {
	now := time.Now().UTC()

	var b strings.Builder
	b.WriteString("Hello,\n\nThis is a summary of your checks on PulseTrack:\n\n")
	if len(list) == 0 {
		b.WriteString("  (no checks yet)\n")
	}
	for i := range list {
		c := &list[i]
		name := c.Name
		if name == "" {
			name = c.Code
		}
		last := "never"
		if c.LastPing != nil {
			last = c.LastPing.Format(time.RFC3339)
		}
		fmt.Fprintf(&b, "  %-30s %-6s last ping: %s\n", name, checks.Compute(c, now), last)
	}
	fmt.Fprintf(&b, "\nTo stop receiving these reports, follow this link:\n%s/api/v1/accounts/unsubscribe_reports/%s?token=%s\n",
		r.cfg.SiteRoot, user.Username, signed)
	return b.String()
}
