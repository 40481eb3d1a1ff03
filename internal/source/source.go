// Package source implements the job feed adapters and their fan-out.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"jobalert_bot/internal/model"
)

const (
	userAgent   = "JobAlertBot/1.0"
	maxBodySize = 5 * 1024 * 1024
	maxDescLen  = 500
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Adapter translates one external job source into job records.
type Adapter interface {
	// Name returns the platform tag of the source.
	Name() string
	// Fetch pulls the source's current postings, capped per run.
	// The returned slice may be empty.
	Fetch(ctx context.Context) ([]model.Job, error)
}

// FetchAll invokes every adapter and concatenates whatever succeeded.
// A failing adapter is logged and contributes zero jobs; it never blocks
// the others.
func FetchAll(ctx context.Context, adapters []Adapter, log *slog.Logger) []model.Job {
	var all []model.Job
	for _, a := range adapters {
		if ctx.Err() != nil {
			return all
		}
		jobs, err := a.Fetch(ctx)
		if err != nil {
			log.Error("fetch source", "source", a.Name(), "error", err)
			continue
		}
		log.Info("fetched jobs", "source", a.Name(), "count", len(jobs))
		all = append(all, jobs...)
	}
	return all
}

// getJSON issues a GET with a bounded timeout and decodes the JSON body
// into v.
func getJSON(ctx context.Context, client HTTPClient, url string, timeout time.Duration, v any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// jobID builds a deterministic, namespace-prefixed job ID.
// When the source has no native ID, a SHA-256 hash of the title is used.
func jobID(prefix, native, title string) string {
	if native != "" {
		return prefix + native
	}
	h := sha256.Sum256([]byte(title))
	return fmt.Sprintf("%ssha256:%x", prefix, h[:16])
}

// truncate bounds a description to at most n bytes, never splitting a
// multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
