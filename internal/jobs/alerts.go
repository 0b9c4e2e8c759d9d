package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/checks"
	"github.com/pulsetrack/pulsetrack/internal/models"
	"github.com/pulsetrack/pulsetrack/internal/notification"
	"github.com/pulsetrack/pulsetrack/internal/store"
	"github.com/pulsetrack/pulsetrack/internal/websocket"
)

// Alerter finds checks whose derived status has fallen to down while the
// stored status still says up or grace, persists the transition and
// fires the down notification. Recovery (down to up) happens in the ping
// handler; time alone never brings a check back up.
type Alerter struct {
	store      store.CheckStore
	dispatcher *notification.Dispatcher
	hub        *websocket.Hub
	log        *zap.Logger
}

// NewAlerter creates an Alerter.
func NewAlerter(st store.CheckStore, dispatcher *notification.Dispatcher, hub *websocket.Hub, log *zap.Logger) *Alerter {
	return &Alerter{store: st, dispatcher: dispatcher, hub: hub, log: log}
}

// Sweep runs one pass over the candidate checks.
func (a *Alerter) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	candidates, err := a.store.ChecksInStatus(ctx, []string{models.StatusUp, models.StatusGrace})
	if err != nil {
		a.log.Error("alert sweep failed to load checks", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for i := range candidates {
		c := &candidates[i]
		derived := checks.Compute(c, now)
		if derived != models.StatusDown {
			if derived != c.Status {
				// Keep the stored field roughly current, no alert needed.
				if err := a.store.UpdateCheckStatus(ctx, c.ID, derived); err != nil {
					a.log.Warn("failed to update check status", zap.String("code", c.Code), zap.Error(err))
				}
			}
			continue
		}

		if err := a.store.UpdateCheckStatus(ctx, c.ID, models.StatusDown); err != nil {
			a.log.Error("failed to mark check down", zap.String("code", c.Code), zap.Error(err))
			continue
		}
		c.Status = models.StatusDown

		if a.dispatcher != nil {
			if err := a.dispatcher.NotifyCheckDown(ctx, c); err != nil {
				a.log.Warn("down notification failed", zap.String("code", c.Code), zap.Error(err))
			}
		}
		if a.hub != nil {
			a.hub.Broadcast("status", map[string]any{
				"code":   c.Code,
				"status": models.StatusDown,
				"time":   now.Format(time.RFC3339),
			})
		}

		a.log.Info("check went down", zap.String("code", c.Code), zap.String("name", c.Name))
	}
}
