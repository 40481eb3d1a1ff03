package source

import (
	"context"
	"strconv"
	"time"

	"jobalert_bot/internal/model"
)

const githubJobsURL = "https://api.github.com/repos/github/jobs/issues?labels=job&per_page=20"

// GitHub fetches job postings filed as issues on the archived github/jobs
// repository.
type GitHub struct {
	client  HTTPClient
	url     string
	timeout time.Duration
	limit   int
}

// NewGitHub creates a GitHub adapter.
func NewGitHub(client HTTPClient, timeout time.Duration, limit int) *GitHub {
	return &GitHub{client: client, url: githubJobsURL, timeout: timeout, limit: limit}
}

// Name returns the platform tag.
func (g *GitHub) Name() string { return model.PlatformGitHub }

type githubIssue struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
}

// Fetch pulls up to the configured limit of issues.
func (g *GitHub) Fetch(ctx context.Context) ([]model.Job, error) {
	var issues []githubIssue
	if err := getJSON(ctx, g.client, g.url, g.timeout, &issues); err != nil {
		return nil, err
	}
	if len(issues) > g.limit {
		issues = issues[:g.limit]
	}

	now := time.Now().UTC()
	var jobs []model.Job
	for _, issue := range issues {
		postedAt := now
		if t, err := time.Parse(time.RFC3339, issue.CreatedAt); err == nil {
			postedAt = t.UTC()
		}

		jobs = append(jobs, model.Job{
			ID:          jobID("gh_", strconv.FormatInt(issue.ID, 10), issue.Title),
			Title:       issue.Title,
			Description: truncate(issue.Body, maxDescLen),
			URL:         issue.HTMLURL,
			Platform:    model.PlatformGitHub,
			PostedAt:    postedAt,
		})
	}
	return jobs, nil
}
