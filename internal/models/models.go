package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultRole = "User"

// User is a registered identity together with its single active session.
// RefreshToken is nil when no session is active.
type User struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	Username               string    `gorm:"not null"                  json:"username"`
	Email                  string    `gorm:"uniqueIndex;not null"      json:"email"`
	Role                   string    `gorm:"not null;default:User"     json:"role"`
	PasswordHash           string    `gorm:"not null"                  json:"-"`
	RefreshToken           *string   `gorm:"index"                     json:"-"`
	RefreshTokenExpiryTime time.Time `                                 json:"-"`
	TokenCreated           time.Time `                                 json:"-"`
}

// HasSession reports whether a refresh token is stored, regardless of expiry.
func (u *User) HasSession() bool {
	return u.RefreshToken != nil && *u.RefreshToken != ""
}

// TokenPair is returned by Login and RefreshSession and never stored as a record.
type TokenPair struct {
	UserID       uuid.UUID `json:"-"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	AccessExp    time.Time `json:"-"`
	RefreshExp   time.Time `json:"-"`
}
