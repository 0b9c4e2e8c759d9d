package models

import "time"

// User represents an account in the system. Users created through the
// email-link login flow have no password until they explicitly set one.
type User struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-"` // bcrypt hash, empty until set
	CreatedAt time.Time `json:"created_at"`

	// Relationships (optional, for eager loading)
	Checks   []Check   `json:"-" gorm:"foreignKey:UserID"`
	Channels []Channel `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// HasPassword reports whether the user has set a password.
func (u *User) HasPassword() bool {
	return u.Password != ""
}
