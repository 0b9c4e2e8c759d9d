package models

import "time"

// MaxUserAgentLength is the longest user agent string stored with a ping.
// Longer values are truncated, never rejected.
const MaxUserAgentLength = 200

// Ping is one liveness signal received for a check. Rows are append-only;
// the service never mutates or deletes them.
type Ping struct {
	ID         int       `json:"id" gorm:"primaryKey;autoIncrement"`
	CheckID    int       `json:"check_id" gorm:"not null;index:idx_check_created"`
	RemoteAddr string    `json:"remote_addr"`
	Scheme     string    `json:"scheme" gorm:"default:http"`
	UA         string    `json:"ua" gorm:"column:ua"`
	Created    time.Time `json:"created" gorm:"not null;index:idx_check_created,sort:desc"`

	// Relationship (optional, for eager loading)
	Check Check `json:"-" gorm:"foreignKey:CheckID"`
}

// TableName specifies the table name for Ping
func (Ping) TableName() string {
	return "pings"
}
