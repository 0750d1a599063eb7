// Package limiter defines login admission control: repeated failures for the
// same (email, client) pair lock that pair out for a while.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, email string, clientHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, email string, clientHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, email string, clientHash []byte) (bool, time.Duration, error)
}

// Policy tunes lockout behavior.
type Policy struct {
	Window   time.Duration // failures older than this start a new count
	MaxFails int           // failures within Window that trigger a block
	BlockFor time.Duration // lockout length
}

// HashClient returns a stable hash for a client address to avoid storing raw addresses.
func HashClient(addr string) []byte {
	h := sha256.Sum256([]byte(addr))
	return h[:]
}

// Unlimited admits everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return true, 0, nil
}
func (Unlimited) Success(context.Context, string, []byte) error { return nil }
func (Unlimited) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	return false, 0, nil
}

var _ Limiter = Unlimited{}
