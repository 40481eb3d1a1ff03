package source

import (
	"context"
	"encoding/json"
	"time"

	"jobalert_bot/internal/model"
)

const remoteOKURL = "https://remoteok.com/api"

// RemoteOK fetches postings from the RemoteOK public API.
type RemoteOK struct {
	client  HTTPClient
	url     string
	timeout time.Duration
	limit   int
}

// NewRemoteOK creates a RemoteOK adapter.
func NewRemoteOK(client HTTPClient, timeout time.Duration, limit int) *RemoteOK {
	return &RemoteOK{client: client, url: remoteOKURL, timeout: timeout, limit: limit}
}

// Name returns the platform tag.
func (r *RemoteOK) Name() string { return model.PlatformRemoteOK }

// remoteOKEntry mirrors one element of the RemoteOK API response.
// The first element is a legal notice, filtered out by its type.
type remoteOKEntry struct {
	Type        string     `json:"type"`
	ID          flexibleID `json:"id"`
	Position    string     `json:"position"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	URL         string     `json:"url"`
	Date        string     `json:"date"`
}

// Fetch pulls up to the configured limit of job entries.
func (r *RemoteOK) Fetch(ctx context.Context) ([]model.Job, error) {
	var entries []remoteOKEntry
	if err := getJSON(ctx, r.client, r.url, r.timeout, &entries); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var jobs []model.Job
	for _, e := range entries {
		if len(jobs) >= r.limit {
			break
		}
		if e.Type != "job" {
			continue
		}

		postedAt := now
		if t, err := time.Parse(time.RFC3339, e.Date); err == nil {
			postedAt = t.UTC()
		}

		jobs = append(jobs, model.Job{
			ID:          jobID("remoteok_", string(e.ID), e.Position),
			Title:       e.Position,
			Description: truncate(e.Description, maxDescLen),
			Skills:      e.Tags,
			URL:         e.URL,
			Platform:    model.PlatformRemoteOK,
			PostedAt:    postedAt,
		})
	}
	return jobs, nil
}

// flexibleID accepts both string and numeric JSON IDs; the RemoteOK API
// has used both over time.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}
