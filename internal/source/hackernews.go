package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"jobalert_bot/internal/model"
)

const hnBaseURL = "https://hacker-news.firebaseio.com/v0"

// HackerNews fetches job stories from the Hacker News Firebase API.
// The list endpoint returns story IDs; each story needs its own request.
type HackerNews struct {
	client  HTTPClient
	baseURL string
	timeout time.Duration
	limit   int
}

// NewHackerNews creates a Hacker News adapter.
func NewHackerNews(client HTTPClient, timeout time.Duration, limit int) *HackerNews {
	return &HackerNews{client: client, baseURL: hnBaseURL, timeout: timeout, limit: limit}
}

// Name returns the platform tag.
func (h *HackerNews) Name() string { return model.PlatformHackerNews }

type hnItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
	Time  int64  `json:"time"`
}

// Fetch pulls the newest job story IDs and resolves each one.
// A story that fails to resolve is skipped.
func (h *HackerNews) Fetch(ctx context.Context) ([]model.Job, error) {
	var ids []int64
	if err := getJSON(ctx, h.client, h.baseURL+"/jobstories.json", h.timeout, &ids); err != nil {
		return nil, err
	}
	if len(ids) > h.limit {
		ids = ids[:h.limit]
	}

	// Per-item requests use a tighter timeout so one slow story cannot
	// eat the whole run.
	itemTimeout := h.timeout / 2
	if itemTimeout <= 0 {
		itemTimeout = h.timeout
	}

	now := time.Now().UTC()
	var jobs []model.Job
	for _, id := range ids {
		if ctx.Err() != nil {
			return jobs, ctx.Err()
		}

		var item hnItem
		url := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)
		if err := getJSON(ctx, h.client, url, itemTimeout, &item); err != nil {
			continue
		}
		if item.Title == "" {
			continue
		}

		postedAt := now
		if item.Time > 0 {
			postedAt = time.Unix(item.Time, 0).UTC()
		}

		jobs = append(jobs, model.Job{
			ID:          jobID("hn_", strconv.FormatInt(item.ID, 10), item.Title),
			Title:       item.Title,
			Description: truncate(item.Text, maxDescLen),
			URL:         item.URL,
			Platform:    model.PlatformHackerNews,
			PostedAt:    postedAt,
		})
	}
	return jobs, nil
}
