package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeUserRegistered   = "user_registered"
	TypeUserLoggedIn     = "user_logged_in"
	TypeSessionRefreshed = "session_refreshed"
)

// UserEvent never carries tokens or password material.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

type Noop struct{}

func (Noop) Publish(context.Context, string, string, any) error { return nil }
