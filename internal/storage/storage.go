// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"jobalert_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// Jobs. Inserts are idempotent by job ID; existing rows win.
	InsertJobs(ctx context.Context, jobs []model.Job) (int, error)
	UnseenJobs(ctx context.Context, userID int64, f model.Filters, limit int) ([]model.Job, error)
	CleanupJobs(ctx context.Context, olderThan time.Time) (int64, error)

	// Users.
	GetOrCreateUser(ctx context.Context, telegramID int64, defaultCredits int) (*model.User, error)
	GetUser(ctx context.Context, telegramID int64) (*model.User, error)
	UpdateUserFilters(ctx context.Context, telegramID int64, f model.Filters) error
	UpdateUserSubscription(ctx context.Context, telegramID int64, level model.SubscriptionLevel) error
	ListDuePremiumUsers(ctx context.Context, olderThan time.Time) ([]model.User, error)
	SetLastAlertSent(ctx context.Context, userID int64, t time.Time) error
	DecrementCredits(ctx context.Context, userID int64, n int) error
	ResetFreeCredits(ctx context.Context, credits int) (int64, error)

	// Delivery ledger. Appends are idempotent per (user, job) pair.
	FilterUnsent(ctx context.Context, userID int64, jobIDs []string) ([]string, error)
	RecordSent(ctx context.Context, userID int64, jobIDs []string) (int, error)
	CountSent(ctx context.Context) (int64, error)
	CountSentSince(ctx context.Context, t time.Time) (int64, error)

	// Payments.
	CreatePayment(ctx context.Context, p *model.Payment) error

	// Stats reads all tables read-only for reporting.
	Stats(ctx context.Context) (*StatsSnapshot, error)

	Close() error
}

// StatsSnapshot is a read-only view of the database for reporting.
type StatsSnapshot struct {
	TotalUsers     int64
	UsersByLevel   map[string]int64
	NewUsers7d     int64
	ActiveUsers24h int64

	TotalJobs      int64
	JobsByPlatform map[string]int64
	JobsAdded24h   int64
	LastFetchAt    *time.Time

	TotalAlerts  int64
	AlertsToday  int64
	PaymentsSeen int64
}
