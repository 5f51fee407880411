package ports

import (
	"context"
	"time"
)

// LoginAttemptStore counts failed sign-in attempts per username.
type LoginAttemptStore interface {
	Failures(ctx context.Context, username string) (int, error)
	RegisterFailure(ctx context.Context, username string, window time.Duration) (int, error)
	Reset(ctx context.Context, username string) error
}
