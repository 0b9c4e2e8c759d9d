package models

import "time"

// Check statuses. "new" means no ping has ever arrived, "paused" is an
// explicit sticky state that only the next ping clears.
const (
	StatusNew    = "new"
	StatusUp     = "up"
	StatusGrace  = "grace"
	StatusDown   = "down"
	StatusPaused = "paused"
)

// Check represents a monitored periodic task. An external job pings the
// check's URL; when pings stop arriving the check eventually goes down.
type Check struct {
	ID        int        `json:"-" gorm:"primaryKey;autoIncrement"`
	Code      string     `json:"code" gorm:"uniqueIndex;not null"`
	UserID    int        `json:"-" gorm:"not null;index"`
	Name      string     `json:"name"`
	Tags      string     `json:"tags"`
	Timeout   int        `json:"timeout" gorm:"default:86400"` // seconds
	Grace     int        `json:"grace" gorm:"default:3600"`    // seconds
	LastPing  *time.Time `json:"last_ping"`
	NPings    int        `json:"n_pings" gorm:"default:0"`
	Status    string     `json:"status" gorm:"default:new;index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relationships (optional, for eager loading)
	User  User   `json:"-" gorm:"foreignKey:UserID"`
	Pings []Ping `json:"-" gorm:"foreignKey:CheckID"`
}

// TableName specifies the table name for Check
func (Check) TableName() string {
	return "checks"
}

// TimeoutDuration returns the expected maximum interval between pings.
func (c *Check) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GraceDuration returns the extra allowance after the timeout elapses.
func (c *Check) GraceDuration() time.Duration {
	return time.Duration(c.Grace) * time.Second
}
