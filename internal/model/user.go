package model

import "time"

// User is a planner account keyed by the Telegram chat it talks from.
// Username is the handle other users invite into projects with.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName prefers the @username and falls back to the first name.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "user"
}
