package account

import (
	"context"
	"errors"
)

// Sentinel errors a BrokerDirectory uses to report resolution outcomes.
// The broker-selection stage maps them onto user-facing validation failures.
var (
	// ErrNoPrimary means the user has no broker link marked primary.
	ErrNoPrimary = errors.New("no primary broker link")
	// ErrAmbiguousPrimary means more than one link claims to be primary.
	// The directory refuses to guess; upstream data needs repair.
	ErrAmbiguousPrimary = errors.New("multiple primary broker links")
)

// SubscriptionSource resolves the current subscription tier for a user.
type SubscriptionSource interface {
	// TierFor returns the user's effective tier. Implementations resolve
	// an expired subscription to the base tier instead of returning an error.
	TierFor(ctx context.Context, userID string) (string, error)
}

// BrokerDirectory resolves the user's single primary brokerage link.
type BrokerDirectory interface {
	// PrimaryBroker returns a snapshot of the user's primary link.
	// Returns ErrNoPrimary or ErrAmbiguousPrimary when exactly one cannot
	// be resolved. Context deadline errors surface as-is so callers can
	// distinguish an unreachable directory from a missing link.
	PrimaryBroker(ctx context.Context, userID string) (BrokerSnapshot, error)
}
