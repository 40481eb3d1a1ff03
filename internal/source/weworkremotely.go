package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"jobalert_bot/internal/model"
)

const wwrFeedURL = "https://weworkremotely.com/categories/remote-programming-jobs.rss"

// WeWorkRemotely fetches postings from the We Work Remotely RSS feed.
type WeWorkRemotely struct {
	client  HTTPClient
	url     string
	timeout time.Duration
	limit   int
}

// NewWeWorkRemotely creates a We Work Remotely adapter.
func NewWeWorkRemotely(client HTTPClient, timeout time.Duration, limit int) *WeWorkRemotely {
	return &WeWorkRemotely{client: client, url: wwrFeedURL, timeout: timeout, limit: limit}
}

// Name returns the platform tag.
func (w *WeWorkRemotely) Name() string { return model.PlatformWeWorkRemotely }

// Fetch downloads and parses the RSS feed, capped per run.
func (w *WeWorkRemotely) Fetch(ctx context.Context) ([]model.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := feed.Items
	if len(items) > w.limit {
		items = items[:w.limit]
	}

	now := time.Now().UTC()
	var jobs []model.Job
	for _, item := range items {
		postedAt := now
		if item.PublishedParsed != nil {
			postedAt = item.PublishedParsed.UTC()
		}

		jobs = append(jobs, model.Job{
			ID:          jobID("wwr_", item.GUID, item.Title),
			Title:       item.Title,
			Description: truncate(item.Description, maxDescLen),
			Skills:      item.Categories,
			URL:         item.Link,
			Platform:    model.PlatformWeWorkRemotely,
			PostedAt:    postedAt,
		})
	}
	return jobs, nil
}
