// Package statestore holds pending OAuth authorization states. Each state
// carries its principal and creation time, expires after a TTL and can be
// consumed exactly once.
package statestore

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long a user may take on the consent screen
const DefaultTTL = 10 * time.Minute

// ErrNotFound is returned for unknown, expired or already consumed states
var ErrNotFound = errors.New("oauth state not found")

// Entry is what a state resolves to
type Entry struct {
	PrincipalID string    `json:"principal_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists pending states
type Store interface {
	Put(ctx context.Context, state string, entry Entry) error

	// Consume returns and deletes the entry in one step
	Consume(ctx context.Context, state string) (*Entry, error)
}
