package models

import "time"

// Member links a user into another profile's team. The team is identified
// by the owning profile's id.
type Member struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	TeamID    int       `json:"team_id" gorm:"not null;index"` // owning profile id
	UserID    int       `json:"user_id" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships (optional, for eager loading)
	Team Profile `json:"-" gorm:"foreignKey:TeamID"`
	User User    `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for Member
func (Member) TableName() string {
	return "members"
}
