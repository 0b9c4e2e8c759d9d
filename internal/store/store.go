// Package store defines the persistence interfaces the handlers and jobs
// are written against, with a GORM implementation for production and an
// in-memory implementation for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/pulsetrack/pulsetrack/internal/models"
)

// ErrNotFound is returned when a record does not exist or belongs to
// another account. Callers treat both cases identically.
var ErrNotFound = errors.New("not found")

// CheckStore persists checks and their ping log.
type CheckStore interface {
	CreateCheck(ctx context.Context, c *models.Check) error
	CheckByCode(ctx context.Context, code string) (*models.Check, error)
	ChecksForUser(ctx context.Context, userID int) ([]models.Check, error)
	ChecksInStatus(ctx context.Context, statuses []string) ([]models.Check, error)
	UpdateCheckStatus(ctx context.Context, checkID int, status string) error

	// RecordPing persists the already-mutated check fields (n_pings,
	// last_ping, status) together with the new ping row as one atomic
	// unit, so concurrent pings for the same code cannot lose updates.
	RecordPing(ctx context.Context, c *models.Check, p *models.Ping) error
	PingsForCheck(ctx context.Context, checkID, limit int) ([]models.Ping, error)
}

// AccountStore persists users, profiles and team memberships.
type AccountStore interface {
	CreateUser(ctx context.Context, u *models.User, p *models.Profile) error
	UserByID(ctx context.Context, id int) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error

	ProfileByAPIKey(ctx context.Context, key string) (*models.Profile, error)
	ProfileByUserID(ctx context.Context, userID int) (*models.Profile, error)
	SaveProfile(ctx context.Context, p *models.Profile) error
	ProfilesDueReports(ctx context.Context, now time.Time) ([]models.Profile, error)

	AddMember(ctx context.Context, m *models.Member) error
	RemoveMember(ctx context.Context, teamID, userID int) error
	MembersOfTeam(ctx context.Context, teamID int) ([]models.Member, error)
}

// ChannelStore persists notification channels.
type ChannelStore interface {
	CreateChannel(ctx context.Context, ch *models.Channel) error
	ChannelsForUser(ctx context.Context, userID int) ([]models.Channel, error)
}

// Store is the full persistence surface.
type Store interface {
	CheckStore
	AccountStore
	ChannelStore
}
