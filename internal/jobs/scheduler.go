// Package jobs runs the periodic work that cannot wait for a request:
// flipping overdue checks to down, and sending report digests.
package jobs

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/config"
	"github.com/pulsetrack/pulsetrack/internal/notification"
	"github.com/pulsetrack/pulsetrack/internal/store"
	"github.com/pulsetrack/pulsetrack/internal/tokens"
	"github.com/pulsetrack/pulsetrack/internal/websocket"
)

// Scheduler manages background jobs
type Scheduler struct {
	cron     *cron.Cron
	alerter  *Alerter
	reporter *Reporter
	log      *zap.Logger
}

// NewScheduler creates a new job scheduler
func NewScheduler(st store.Store, cfg *config.Config, dispatcher *notification.Dispatcher, mailer *notification.Mailer, signer *tokens.Signer, hub *websocket.Hub, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		alerter:  NewAlerter(st, dispatcher, hub, log),
		reporter: NewReporter(st, cfg, mailer, signer, log),
		log:      log,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Sweep for overdue checks every minute
	s.cron.AddFunc("* * * * *", func() {
		s.alerter.Sweep()
	})

	// Send due report digests every morning at 6:00
	s.cron.AddFunc("0 6 * * *", func() {
		s.reporter.SendDue()
	})

	s.cron.Start()
	s.log.Info("job scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("job scheduler stopped")
}
