// Package account defines the read-only contracts the validation pipeline
// consumes for subscription and broker-link lookups. This keeps the pipeline
// testable with fakes and independent of any concrete directory backend.
package account

import "time"

// LinkStatus is the connection state of a brokerage link.
type LinkStatus string

const (
	StatusConnected    LinkStatus = "connected"
	StatusDisconnected LinkStatus = "disconnected"
	StatusPending      LinkStatus = "pending" // OAuth handshake started, tokens not yet issued
)

// BrokerSnapshot is a point-in-time, read-only view of a user's primary
// brokerage link. The pipeline never mutates it; margin debits happen
// downstream after a plan is accepted.
type BrokerSnapshot struct {
	ID              string     // Directory-assigned link ID
	Name            string     // Broker display name, e.g. "zerodha"
	Status          LinkStatus // Connection state at fetch time
	AvailableMargin float64    // Funds available for new orders, account currency
	FetchedAt       time.Time  // When the snapshot was taken
}

// Connected reports whether the link can accept orders.
func (b BrokerSnapshot) Connected() bool {
	return b.Status == StatusConnected
}

// Subscription describes an account's plan as stored in the directory.
type Subscription struct {
	UserID    string
	Tier      string    // e.g. "free", "pro", "institutional"
	ExpiresAt time.Time // Zero value means the plan never expires
}

// Expired reports whether the subscription has lapsed at the given instant.
func (s Subscription) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
