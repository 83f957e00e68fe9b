package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash; RefreshToken holds the single currently
// valid refresh token for the user, or "" when no session is active.
type User struct {
	ID            string
	Username      string // stored lowercase, unique
	Email         string // unique
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
