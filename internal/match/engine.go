// Package match implements the job matching engine.
package match

import (
	"context"

	"jobalert_bot/internal/model"
	"jobalert_bot/internal/storage"
)

const (
	// DefaultLimit bounds how many unseen jobs are pulled per match.
	DefaultLimit = 10
	// FreeTierBatch caps a single free-tier delivery.
	FreeTierBatch = 5
)

// Engine selects the unseen jobs to deliver to a user.
type Engine struct {
	store storage.Storage
}

// New creates an Engine backed by the given storage.
func New(store storage.Storage) *Engine {
	return &Engine{store: store}
}

// Match returns the user's unseen jobs, newest first, with the user's
// budget filters applied. Free-tier results are truncated to the smaller
// of FreeTierBatch and the user's remaining credits; exhausted credits
// yield nothing. Skill filters are stored but not applied here yet.
func (e *Engine) Match(ctx context.Context, user *model.User) ([]model.Job, error) {
	if !user.IsPremium() && user.CreditsRemaining <= 0 {
		return nil, nil
	}

	jobs, err := e.store.UnseenJobs(ctx, user.ID, user.Filters, DefaultLimit)
	if err != nil {
		return nil, err
	}

	if !user.IsPremium() {
		n := FreeTierBatch
		if user.CreditsRemaining < n {
			n = user.CreditsRemaining
		}
		if len(jobs) > n {
			jobs = jobs[:n]
		}
	}
	return jobs, nil
}
