// Package model defines the domain types used across the application.
package model

import "time"

// Platform tags identifying the source each job was fetched from.
const (
	PlatformRemoteOK       = "RemoteOK"
	PlatformHackerNews     = "Hacker News"
	PlatformGitHub         = "GitHub"
	PlatformWeWorkRemotely = "We Work Remotely"
)

// Job represents a single job posting aggregated from an external source.
// Jobs are immutable once stored; the ID is stable across fetches.
type Job struct {
	ID          string
	Title       string
	Description string
	BudgetMin   *int64
	BudgetMax   *int64
	Skills      []string
	URL         string
	Platform    string
	PostedAt    time.Time
	FetchedAt   time.Time
}

// SubscriptionLevel is a user's tier.
type SubscriptionLevel string

// Supported subscription levels.
const (
	SubFree    SubscriptionLevel = "free"
	SubPremium SubscriptionLevel = "premium"
)

// Filters holds a user's job matching preferences.
// Skills are accepted and stored but not yet applied to matching.
type Filters struct {
	MinBudget *int64   `json:"min_budget,omitempty"`
	MaxBudget *int64   `json:"max_budget,omitempty"`
	Skills    []string `json:"skills,omitempty"`
}

// User represents a subscriber and their delivery quota.
type User struct {
	ID                int64
	TelegramID        int64
	Filters           Filters
	SubscriptionLevel SubscriptionLevel
	CreditsRemaining  int
	CreatedAt         time.Time
	LastAlertSent     *time.Time
}

// IsPremium reports whether the user is on the premium tier.
func (u *User) IsPremium() bool {
	return u.SubscriptionLevel == SubPremium
}

// PaymentStatus is the state of a payment record.
type PaymentStatus string

// Supported payment statuses. Payment confirmation is not wired up yet,
// so records stay pending.
const (
	PaymentPending PaymentStatus = "pending"
)

// Payment records an upgrade purchase attempt.
type Payment struct {
	ID               int64
	UserID           int64
	AmountStars      int64
	SubscriptionDays int
	Status           PaymentStatus
	CreatedAt        time.Time
}
