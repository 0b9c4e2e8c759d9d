// Package checks owns the check status state machine. Status is never
// advanced by a timer; it is derived from the stored fields and the wall
// clock whenever a check is read.
package checks

import (
	"time"

	"github.com/pulsetrack/pulsetrack/internal/models"
)

// Compute derives the current status of a check at the given instant.
// Paused is sticky: once set it wins regardless of elapsed time, until a
// ping clears it. Before the first ping the check is "new". Otherwise the
// status follows elapsed time against timeout and grace.
func Compute(c *models.Check, now time.Time) string {
	if c.Status == models.StatusPaused {
		return models.StatusPaused
	}
	if c.LastPing == nil {
		return models.StatusNew
	}

	elapsed := now.Sub(*c.LastPing)
	if elapsed <= c.TimeoutDuration() {
		return models.StatusUp
	}
	if elapsed <= c.TimeoutDuration()+c.GraceDuration() {
		return models.StatusGrace
	}
	return models.StatusDown
}

// Pause puts the check into the sticky paused state. Idempotent.
func Pause(c *models.Check) {
	c.Status = models.StatusPaused
}

// RegisterPing applies the state changes of one accepted ping: the counter
// and timestamp advance and the status flips to "up", clearing "paused".
// Callers persist the result together with the new ping row in a single
// transaction.
func RegisterPing(c *models.Check, now time.Time) {
	t := now
	c.NPings++
	c.LastPing = &t
	c.Status = models.StatusUp
}
