// Package alert implements the delivery driver: it pulls matches from the
// engine, pushes them through the notification channel, and records what
// actually went out.
package alert

import (
	"context"
	"log/slog"
	"time"

	"jobalert_bot/internal/match"
	"jobalert_bot/internal/model"
	"jobalert_bot/internal/storage"
)

// Sender is the interface for delivering job notifications.
type Sender interface {
	// SendJob delivers a full job card.
	SendJob(chatID int64, job model.Job) error
	// SendJobAlert delivers the compact form used by scheduled alerts.
	SendJobAlert(chatID int64, job model.Job) error
}

// Driver delivers matched jobs and maintains the delivery ledger.
type Driver struct {
	store  storage.Storage
	engine *match.Engine
	sender Sender
	log    *slog.Logger

	// sendDelay throttles consecutive messages; Telegram allows
	// roughly 20 messages per second.
	sendDelay time.Duration
}

// New creates a Driver.
func New(store storage.Storage, engine *match.Engine, sender Sender, log *slog.Logger) *Driver {
	return &Driver{
		store:     store,
		engine:    engine,
		sender:    sender,
		log:       log,
		sendDelay: 50 * time.Millisecond,
	}
}

// SendMatches delivers the user's current matches on demand and returns
// how many jobs went out.
func (d *Driver) SendMatches(ctx context.Context, user *model.User) (int, error) {
	jobs, err := d.engine.Match(ctx, user)
	if err != nil {
		return 0, err
	}
	return d.deliver(ctx, user, jobs, false), nil
}

// BroadcastAlerts runs the scheduled premium fan-out: every premium user
// whose last alert is missing or older than interval gets up to
// FreeTierBatch jobs. One user's failure never affects the others.
func (d *Driver) BroadcastAlerts(ctx context.Context, interval time.Duration) {
	cutoff := time.Now().UTC().Add(-interval)
	users, err := d.store.ListDuePremiumUsers(ctx, cutoff)
	if err != nil {
		d.log.Error("list due premium users", "error", err)
		return
	}
	if len(users) == 0 {
		return
	}

	d.log.Info("broadcasting alerts", "users", len(users))

	for i := range users {
		if ctx.Err() != nil {
			return
		}
		user := &users[i]

		jobs, err := d.engine.Match(ctx, user)
		if err != nil {
			d.log.Error("match user", "user_id", user.ID, "error", err)
			continue
		}
		if len(jobs) > match.FreeTierBatch {
			jobs = jobs[:match.FreeTierBatch]
		}

		sent := d.deliver(ctx, user, jobs, true)
		if sent > 0 {
			if err := d.store.SetLastAlertSent(ctx, user.ID, time.Now().UTC()); err != nil {
				d.log.Error("set last alert sent", "user_id", user.ID, "error", err)
			}
		}
	}
}

// deliver sends jobs in order, skipping individual failures, then records
// exactly the delivered IDs in the ledger. Free-tier credits are consumed
// by the count of ledger rows actually inserted, so partial delivery
// records partial success and quota cannot drift from the ledger.
func (d *Driver) deliver(ctx context.Context, user *model.User, jobs []model.Job, compact bool) int {
	var sentIDs []string
	for _, job := range jobs {
		var err error
		if compact {
			err = d.sender.SendJobAlert(user.TelegramID, job)
		} else {
			err = d.sender.SendJob(user.TelegramID, job)
		}
		if err != nil {
			d.log.Error("send job", "user_id", user.ID, "job_id", job.ID, "error", err)
			continue
		}
		sentIDs = append(sentIDs, job.ID)

		if d.sendDelay > 0 {
			time.Sleep(d.sendDelay)
		}
	}

	if len(sentIDs) == 0 {
		return 0
	}

	inserted, err := d.store.RecordSent(ctx, user.ID, sentIDs)
	if err != nil {
		d.log.Error("record sent", "user_id", user.ID, "error", err)
	}

	if !user.IsPremium() && inserted > 0 {
		if err := d.store.DecrementCredits(ctx, user.ID, inserted); err != nil {
			d.log.Error("decrement credits", "user_id", user.ID, "error", err)
		}
	}

	return len(sentIDs)
}
