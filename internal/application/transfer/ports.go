package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers a one-time verification code out-of-band. Delivery
// transport (email/SMS) lives outside this core.
type Notifier interface {
	Send(ctx context.Context, ownerID uuid.UUID, code string) error
}

// Directory resolves a public identifier (email or phone) to the account
// identity it belongs to. Returns shared.ErrRecipientNotFound when no
// account matches.
type Directory interface {
	Resolve(ctx context.Context, publicIdentifier string) (uuid.UUID, error)
}

// Clock abstracts time for expiry decisions
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// VerifyAttemptLimiter bounds wrong-code verification attempts per
// identity. A nil limiter means unlimited attempts.
type VerifyAttemptLimiter interface {
	// Allow records an attempt and reports whether it is within bounds
	Allow(ctx context.Context, ownerID uuid.UUID) (bool, error)
	// Reset clears the attempt counter after a successful verification
	Reset(ctx context.Context, ownerID uuid.UUID) error
}

// StatementArchive stores rendered statements durably
type StatementArchive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
