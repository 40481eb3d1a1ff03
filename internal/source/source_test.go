package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobalert_bot/internal/model"
)

// mockClient serves canned responses keyed by full request URL.
type mockClient struct {
	responses map[string]string
	statuses  map[string]int
	err       error
	requests  []string
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	m.requests = append(m.requests, url)
	if m.err != nil {
		return nil, m.err
	}

	body, ok := m.responses[url]
	status := http.StatusOK
	if s, found := m.statuses[url]; found {
		status = s
	}
	if !ok && status == http.StatusOK {
		status = http.StatusNotFound
	}

	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}, nil
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRemoteOKFetch(t *testing.T) {
	client := &mockClient{responses: map[string]string{
		remoteOKURL: loadFixture(t, "remoteok.json"),
	}}
	adapter := NewRemoteOK(client, time.Second, 20)

	jobs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 3, "legal notice entry must be skipped")

	first := jobs[0]
	assert.Equal(t, "remoteok_123456", first.ID)
	assert.Equal(t, "Senior Go Engineer", first.Title)
	assert.Equal(t, []string{"golang", "postgres", "kubernetes"}, first.Skills)
	assert.Equal(t, model.PlatformRemoteOK, first.Platform)
	assert.Equal(t, time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC), first.PostedAt)

	// String IDs are accepted alongside numeric ones.
	assert.Equal(t, "remoteok_789012", jobs[1].ID)
	// An unparseable date falls back to fetch time.
	assert.WithinDuration(t, time.Now().UTC(), jobs[1].PostedAt, time.Minute)
}

func TestRemoteOKFetchLimit(t *testing.T) {
	client := &mockClient{responses: map[string]string{
		remoteOKURL: loadFixture(t, "remoteok.json"),
	}}
	adapter := NewRemoteOK(client, time.Second, 2)

	jobs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestRemoteOKFetchHTTPError(t *testing.T) {
	client := &mockClient{statuses: map[string]int{
		remoteOKURL: http.StatusTooManyRequests,
	}}
	adapter := NewRemoteOK(client, time.Second, 20)

	_, err := adapter.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHackerNewsFetch(t *testing.T) {
	client := &mockClient{
		responses: map[string]string{
			hnBaseURL + "/jobstories.json": `[101, 102, 103]`,
			hnBaseURL + "/item/101.json":   `{"id":101,"title":"Acme is hiring a Go engineer","url":"https://example.com/101","time":1755770400}`,
			hnBaseURL + "/item/103.json":   `{"id":103,"title":"Globex is hiring","text":"Remote OK","time":1755597600}`,
		},
		statuses: map[string]int{
			hnBaseURL + "/item/102.json": http.StatusInternalServerError,
		},
	}
	adapter := NewHackerNews(client, time.Second, 10)

	jobs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2, "failing item must be skipped, not fatal")

	assert.Equal(t, "hn_101", jobs[0].ID)
	assert.Equal(t, "Acme is hiring a Go engineer", jobs[0].Title)
	assert.Equal(t, time.Unix(1755770400, 0).UTC(), jobs[0].PostedAt)
	assert.Equal(t, "hn_103", jobs[1].ID)
	assert.Equal(t, "Remote OK", jobs[1].Description)
}

func TestHackerNewsFetchLimit(t *testing.T) {
	client := &mockClient{
		responses: map[string]string{
			hnBaseURL + "/jobstories.json": `[101, 102, 103]`,
			hnBaseURL + "/item/101.json":   `{"id":101,"title":"First","time":1755770400}`,
			hnBaseURL + "/item/102.json":   `{"id":102,"title":"Second","time":1755770400}`,
			hnBaseURL + "/item/103.json":   `{"id":103,"title":"Third","time":1755770400}`,
		},
	}
	adapter := NewHackerNews(client, time.Second, 2)

	jobs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	// Only the capped IDs are resolved.
	assert.NotContains(t, client.requests, hnBaseURL+"/item/103.json")
}

func TestHackerNewsSkipsEmptyTitle(t *testing.T) {
	client := &mockClient{
		responses: map[string]string{
			hnBaseURL + "/jobstories.json": `[101]`,
			hnBaseURL + "/item/101.json":   `{"id":101,"title":"","time":1755770400}`,
		},
	}
	adapter := NewHackerNews(client, time.Second, 10)

	jobs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestGitHubFetch(t *testing.T) {
	client := &mockClient{responses: map[string]string{
		githubJobsURL: loadFixture(t, "github_issues.json"),
	}}
	adapter := NewGitHub(client, time.Second, 10)

	jobs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, "gh_1001", jobs[0].ID)
	assert.Equal(t, "[Hiring] Backend Engineer at Acme", jobs[0].Title)
	assert.Equal(t, "https://github.com/github/jobs/issues/1001", jobs[0].URL)
	assert.Equal(t, model.PlatformGitHub, jobs[0].Platform)
	assert.Equal(t, time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC), jobs[0].PostedAt)
}

func TestGitHubFetchLimit(t *testing.T) {
	client := &mockClient{responses: map[string]string{
		githubJobsURL: loadFixture(t, "github_issues.json"),
	}}
	adapter := NewGitHub(client, time.Second, 1)

	jobs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestWeWorkRemotelyFetch(t *testing.T) {
	client := &mockClient{responses: map[string]string{
		wwrFeedURL: loadFixture(t, "wwr.xml"),
	}}
	adapter := NewWeWorkRemotely(client, time.Second, 10)

	jobs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	first := jobs[0]
	assert.Equal(t, "wwr_urn:wwr:job:55501", first.ID)
	assert.Equal(t, "Acme: Senior Backend Developer", first.Title)
	assert.Equal(t, []string{"golang", "backend"}, first.Skills)
	assert.Equal(t, model.PlatformWeWorkRemotely, first.Platform)
	assert.Equal(t, time.Date(2026, 8, 21, 14, 0, 0, 0, time.UTC), first.PostedAt)
}

func TestWeWorkRemotelyFetchBadFeed(t *testing.T) {
	client := &mockClient{responses: map[string]string{
		wwrFeedURL: "this is not xml",
	}}
	adapter := NewWeWorkRemotely(client, time.Second, 10)

	_, err := adapter.Fetch(context.Background())
	require.Error(t, err)
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	okClient := &mockClient{responses: map[string]string{
		remoteOKURL: loadFixture(t, "remoteok.json"),
	}}
	brokenClient := &mockClient{err: errors.New("connection refused")}

	adapters := []Adapter{
		NewGitHub(brokenClient, time.Second, 10),
		NewRemoteOK(okClient, time.Second, 20),
	}

	jobs := FetchAll(context.Background(), adapters, discardLogger())
	assert.Len(t, jobs, 3, "healthy adapter must still contribute")
	for _, j := range jobs {
		assert.Equal(t, model.PlatformRemoteOK, j.Platform)
	}
}

func TestFetchAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &mockClient{responses: map[string]string{
		remoteOKURL: loadFixture(t, "remoteok.json"),
	}}
	jobs := FetchAll(ctx, []Adapter{NewRemoteOK(client, time.Second, 20)}, discardLogger())
	assert.Empty(t, jobs)
	assert.Empty(t, client.requests)
}

func TestJobID(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		native string
		title  string
		want   string
	}{
		{name: "native id", prefix: "remoteok_", native: "42", title: "ignored", want: "remoteok_42"},
		{name: "hash fallback is deterministic", prefix: "gh_", native: "", title: "Some Job"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jobID(tt.prefix, tt.native, tt.title)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
				return
			}
			assert.True(t, strings.HasPrefix(got, tt.prefix+"sha256:"))
			assert.Equal(t, got, jobID(tt.prefix, tt.native, tt.title))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "lo", truncate("long", 2))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// A euro sign is three bytes; the cut lands inside the first one.
	s := strings.Repeat("a", maxDescLen-2) + "€€"

	got := truncate(s, maxDescLen)
	assert.True(t, utf8.ValidString(got), "truncate produced invalid UTF-8: %q", got)
	assert.Equal(t, strings.Repeat("a", maxDescLen-2), got)

	// A cut exactly on a rune boundary keeps the whole rune.
	got = truncate(s, maxDescLen+1)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxDescLen-2)+"€", got)
}
