package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"jobalert_bot/internal/model"
	"jobalert_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertJobs stores the given jobs, silently skipping IDs that already
// exist. Returns the number of newly inserted rows.
func (s *SQLite) InsertJobs(ctx context.Context, jobs []model.Job) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	inserted := 0
	for _, job := range jobs {
		skills, err := json.Marshal(job.Skills)
		if err != nil {
			return inserted, fmt.Errorf("marshal skills for %s: %w", job.ID, err)
		}

		postedAt := job.PostedAt
		if postedAt.IsZero() {
			postedAt = now
		}
		fetchedAt := job.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO jobs
			 (id, title, description, budget_min, budget_max, skills_json, url, platform, posted_at, fetched_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.Title, job.Description, job.BudgetMin, job.BudgetMax,
			string(skills), job.URL, job.Platform,
			postedAt.UTC().Format(timeLayout), fetchedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert job %s: %w", job.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// UnseenJobs returns jobs not yet delivered to the user, filtered by the
// user's budget range, newest first. A job with an unknown budget always
// passes the budget filters.
func (s *SQLite) UnseenJobs(ctx context.Context, userID int64, f model.Filters, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, title, description, budget_min, budget_max, skills_json, url, platform, posted_at, fetched_at
	 FROM jobs
	 WHERE id NOT IN (SELECT job_id FROM user_jobs_sent WHERE user_id = ?)`
	args := []any{userID}

	if f.MinBudget != nil {
		query += ` AND (budget_max IS NULL OR budget_max >= ?)`
		args = append(args, *f.MinBudget)
	}
	if f.MaxBudget != nil {
		query += ` AND (budget_min IS NULL OR budget_min <= ?)`
		args = append(args, *f.MaxBudget)
	}

	query += ` ORDER BY posted_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unseen jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CleanupJobs deletes jobs posted before the given threshold and returns
// the number of rows removed. Ledger entries are kept; they reference
// job IDs that simply no longer resolve.
func (s *SQLite) CleanupJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE posted_at < ?`,
		olderThan.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// GetOrCreateUser returns the user with the given Telegram ID, creating a
// free-tier record with the default quota on first contact.
func (s *SQLite) GetOrCreateUser(ctx context.Context, telegramID int64, defaultCredits int) (*model.User, error) {
	user, err := s.GetUser(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (telegram_id, filters_json, subscription_level, credits_remaining, created_at)
		 VALUES (?, '{}', ?, ?, ?)`,
		telegramID, string(model.SubFree), defaultCredits, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, telegramID)
}

// GetUser returns the user with the given Telegram ID.
// Returns sql.ErrNoRows when the user does not exist.
func (s *SQLite) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, filters_json, subscription_level, credits_remaining, created_at, last_alert_sent
		 FROM users WHERE telegram_id = ?`, telegramID,
	)
	return scanUser(row)
}

// UpdateUserFilters replaces the user's stored filter preferences.
func (s *SQLite) UpdateUserFilters(ctx context.Context, telegramID int64, f model.Filters) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET filters_json = ? WHERE telegram_id = ?`,
		string(raw), telegramID,
	)
	if err != nil {
		return fmt.Errorf("update filters: %w", err)
	}
	return nil
}

// UpdateUserSubscription changes the user's tier.
func (s *SQLite) UpdateUserSubscription(ctx context.Context, telegramID int64, level model.SubscriptionLevel) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET subscription_level = ? WHERE telegram_id = ?`,
		string(level), telegramID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// ListDuePremiumUsers returns premium users whose last alert is missing
// or older than the given threshold.
func (s *SQLite) ListDuePremiumUsers(ctx context.Context, olderThan time.Time) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, telegram_id, filters_json, subscription_level, credits_remaining, created_at, last_alert_sent
		 FROM users
		 WHERE subscription_level = ?
		   AND (last_alert_sent IS NULL OR last_alert_sent < ?)
		 ORDER BY id`,
		string(model.SubPremium), olderThan.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query due premium users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetLastAlertSent records when a scheduled alert run last delivered
// something to the user.
func (s *SQLite) SetLastAlertSent(ctx context.Context, userID int64, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_alert_sent = ? WHERE id = ?`,
		t.UTC().Format(timeLayout), userID,
	)
	if err != nil {
		return fmt.Errorf("set last alert sent: %w", err)
	}
	return nil
}

// DecrementCredits reduces a user's remaining quota by n, clamped at zero.
func (s *SQLite) DecrementCredits(ctx context.Context, userID int64, n int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET credits_remaining = MAX(credits_remaining - ?, 0) WHERE id = ?`,
		n, userID,
	)
	if err != nil {
		return fmt.Errorf("decrement credits: %w", err)
	}
	return nil
}

// ResetFreeCredits restores the daily quota for all free-tier users and
// returns the number of users affected.
func (s *SQLite) ResetFreeCredits(ctx context.Context, credits int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET credits_remaining = ? WHERE subscription_level = ?`,
		credits, string(model.SubFree),
	)
	if err != nil {
		return 0, fmt.Errorf("reset free credits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// FilterUnsent returns the subset of jobIDs that have no ledger entry for
// the user, preserving input order.
func (s *SQLite) FilterUnsent(ctx context.Context, userID int64, jobIDs []string) ([]string, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(jobIDs)-1) + "?"
	args := make([]any, 0, len(jobIDs)+1)
	args = append(args, userID)
	for _, id := range jobIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id FROM user_jobs_sent WHERE user_id = ? AND job_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query sent jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sent := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sent job: %w", err)
		}
		sent[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var unsent []string
	for _, id := range jobIDs {
		if !sent[id] {
			unsent = append(unsent, id)
		}
	}
	return unsent, nil
}

// RecordSent appends ledger entries for the given jobs, ignoring pairs
// already present. Returns the number of rows actually inserted.
func (s *SQLite) RecordSent(ctx context.Context, userID int64, jobIDs []string) (int, error) {
	now := time.Now().UTC().Format(timeLayout)
	inserted := 0
	for _, jobID := range jobIDs {
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_jobs_sent (user_id, job_id, sent_at) VALUES (?, ?, ?)`,
			userID, jobID, now,
		)
		if err != nil {
			return inserted, fmt.Errorf("record sent %s: %w", jobID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// CountSent returns the total number of ledger entries.
func (s *SQLite) CountSent(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_jobs_sent`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sent: %w", err)
	}
	return n, nil
}

// CountSentSince returns the number of ledger entries created at or after t.
func (s *SQLite) CountSentSince(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_jobs_sent WHERE sent_at >= ?`,
		t.UTC().Format(timeLayout),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sent since: %w", err)
	}
	return n, nil
}

// CreatePayment inserts a payment record and populates its ID and CreatedAt.
func (s *SQLite) CreatePayment(ctx context.Context, p *model.Payment) error {
	now := time.Now().UTC().Format(timeLayout)
	status := p.Status
	if status == "" {
		status = model.PaymentPending
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (user_id, amount_stars, subscription_days, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.AmountStars, p.SubscriptionDays, string(status), now,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	p.Status = status
	p.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// Stats gathers a read-only snapshot of the database for reporting.
func (s *SQLite) Stats(ctx context.Context) (*StatsSnapshot, error) {
	snap := &StatsSnapshot{
		UsersByLevel:   make(map[string]int64),
		JobsByPlatform: make(map[string]int64),
	}

	dayAgo := time.Now().UTC().Add(-24 * time.Hour).Format(timeLayout)
	weekAgo := time.Now().UTC().Add(-7 * 24 * time.Hour).Format(timeLayout)
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour).Format(timeLayout)

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&snap.TotalUsers); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := s.countGrouped(ctx, `SELECT subscription_level, COUNT(*) FROM users GROUP BY subscription_level`, snap.UsersByLevel); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at > ?`, weekAgo).Scan(&snap.NewUsers7d); err != nil {
		return nil, fmt.Errorf("count new users: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM user_jobs_sent WHERE sent_at > ?`, dayAgo).Scan(&snap.ActiveUsers24h); err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&snap.TotalJobs); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	if err := s.countGrouped(ctx, `SELECT platform, COUNT(*) FROM jobs GROUP BY platform`, snap.JobsByPlatform); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE fetched_at > ?`, dayAgo).Scan(&snap.JobsAdded24h); err != nil {
		return nil, fmt.Errorf("count fresh jobs: %w", err)
	}

	var lastFetch sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(fetched_at) FROM jobs`).Scan(&lastFetch); err != nil {
		return nil, fmt.Errorf("last fetch: %w", err)
	}
	if lastFetch.Valid {
		t, err := time.Parse(timeLayout, lastFetch.String)
		if err == nil {
			snap.LastFetchAt = &t
		}
	}

	var err error
	if snap.TotalAlerts, err = s.CountSent(ctx); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_jobs_sent WHERE sent_at >= ?`, startOfDay).Scan(&snap.AlertsToday); err != nil {
		return nil, fmt.Errorf("count alerts today: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`).Scan(&snap.PaymentsSeen); err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}

	return snap, nil
}

func (s *SQLite) countGrouped(ctx context.Context, query string, dst map[string]int64) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("grouped count: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan grouped count: %w", err)
		}
		dst[key] = n
	}
	return rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (model.Job, error) {
	var job model.Job
	var budgetMin, budgetMax sql.NullInt64
	var skillsRaw, postedStr, fetchedStr string
	err := row.Scan(&job.ID, &job.Title, &job.Description, &budgetMin, &budgetMax,
		&skillsRaw, &job.URL, &job.Platform, &postedStr, &fetchedStr)
	if err != nil {
		return job, fmt.Errorf("scan job: %w", err)
	}
	if budgetMin.Valid {
		job.BudgetMin = &budgetMin.Int64
	}
	if budgetMax.Valid {
		job.BudgetMax = &budgetMax.Int64
	}
	if skillsRaw != "" {
		if err := json.Unmarshal([]byte(skillsRaw), &job.Skills); err != nil {
			return job, fmt.Errorf("unmarshal skills: %w", err)
		}
	}
	job.PostedAt, _ = time.Parse(timeLayout, postedStr)
	job.FetchedAt, _ = time.Parse(timeLayout, fetchedStr)
	return job, nil
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var filtersRaw, levelStr, createdStr string
	var lastAlert sql.NullString
	err := row.Scan(&u.ID, &u.TelegramID, &filtersRaw, &levelStr, &u.CreditsRemaining, &createdStr, &lastAlert)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if filtersRaw != "" {
		if err := json.Unmarshal([]byte(filtersRaw), &u.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal filters: %w", err)
		}
	}
	u.SubscriptionLevel = model.SubscriptionLevel(levelStr)
	u.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	if lastAlert.Valid {
		t, _ := time.Parse(timeLayout, lastAlert.String)
		u.LastAlertSent = &t
	}
	return &u, nil
}
