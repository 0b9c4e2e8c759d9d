package models

import "time"

// Channel kinds.
const (
	ChannelEmail   = "email"
	ChannelSlack   = "slack"
	ChannelWebhook = "webhook"
)

// Channel is a notification destination for a user's checks. Value holds
// the email address or webhook URL depending on the kind.
type Channel struct {
	ID            int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        int       `json:"user_id" gorm:"not null;index"`
	Kind          string    `json:"kind" gorm:"not null"`
	Value         string    `json:"value" gorm:"not null"`
	EmailVerified bool      `json:"email_verified" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`

	// Relationship (optional, for eager loading)
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for Channel
func (Channel) TableName() string {
	return "channels"
}
