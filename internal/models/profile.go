package models

import "time"

// Report cadences for the periodic digest email.
const (
	ReportsOff     = "off"
	ReportsDaily   = "daily"
	ReportsWeekly  = "weekly"
	ReportsMonthly = "monthly"
)

// Profile carries per-account settings: the API key, the single-use token
// slot used by the set-password and unsubscribe links, team settings and
// the report preference.
type Profile struct {
	ID                int        `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID            int        `json:"user_id" gorm:"uniqueIndex;not null"`
	APIKey            string     `json:"-" gorm:"uniqueIndex;not null"`
	Token             string     `json:"-"` // bcrypt hash or signed value, empty when unused
	TeamName          string     `json:"team_name"`
	TeamAccessAllowed bool       `json:"team_access_allowed" gorm:"default:false"`
	CurrentTeamID     *int       `json:"current_team_id"` // profile whose checks this user manages
	ReportsAllowed    string     `json:"reports_allowed" gorm:"default:off"`
	NextReportAt      *time.Time `json:"next_report_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relationship (optional, for eager loading)
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// ReportPeriod returns the interval between digests, or zero when reports
// are turned off.
func (p *Profile) ReportPeriod() time.Duration {
	switch p.ReportsAllowed {
	case ReportsDaily:
		return 24 * time.Hour
	case ReportsWeekly:
		return 7 * 24 * time.Hour
	case ReportsMonthly:
		return 30 * 24 * time.Hour
	}
	return 0
}
