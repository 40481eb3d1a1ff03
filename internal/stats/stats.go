// Package stats renders a read-only report over the persisted tables.
package stats

import (
	"fmt"
	"sort"
	"strings"

	"jobalert_bot/internal/model"
	"jobalert_bot/internal/storage"
)

const (
	starsPerMonth = 200
	starsToUSD    = 0.01
)

// Render formats a snapshot as a plain-text report.
func Render(snap *storage.StatsSnapshot) string {
	var b strings.Builder

	section(&b, "USER STATS")
	fmt.Fprintf(&b, "Total users: %d\n", snap.TotalUsers)
	for _, level := range sortedKeys(snap.UsersByLevel) {
		n := snap.UsersByLevel[level]
		pct := int64(0)
		if snap.TotalUsers > 0 {
			pct = n * 100 / snap.TotalUsers
		}
		fmt.Fprintf(&b, "  %s: %d (%d%%)\n", level, n, pct)
	}
	fmt.Fprintf(&b, "  new (last 7 days): %d\n", snap.NewUsers7d)
	fmt.Fprintf(&b, "  active (last 24h): %d\n", snap.ActiveUsers24h)

	section(&b, "JOB STATS")
	fmt.Fprintf(&b, "Total jobs: %d\n", snap.TotalJobs)
	for _, platform := range sortedKeys(snap.JobsByPlatform) {
		fmt.Fprintf(&b, "  %s: %d\n", platform, snap.JobsByPlatform[platform])
	}
	fmt.Fprintf(&b, "  added (last 24h): %d\n", snap.JobsAdded24h)
	if snap.LastFetchAt != nil {
		fmt.Fprintf(&b, "  last fetch: %s\n", snap.LastFetchAt.Format("2006-01-02 15:04 UTC"))
	} else {
		b.WriteString("  no jobs fetched yet - is the fetch trigger running?\n")
	}

	section(&b, "ALERT STATS")
	fmt.Fprintf(&b, "Total alerts sent: %d\n", snap.TotalAlerts)
	fmt.Fprintf(&b, "  today: %d\n", snap.AlertsToday)

	section(&b, "REVENUE STATS")
	premium := snap.UsersByLevel[string(model.SubPremium)]
	fmt.Fprintf(&b, "Premium users: %d\n", premium)
	fmt.Fprintf(&b, "  estimated MRR: $%.2f\n", float64(premium)*starsPerMonth*starsToUSD)
	if snap.TotalUsers > 0 {
		fmt.Fprintf(&b, "  conversion rate: %.1f%%\n", float64(premium)/float64(snap.TotalUsers)*100)
	}
	fmt.Fprintf(&b, "  payment records: %d\n", snap.PaymentsSeen)

	return b.String()
}

func section(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "=== %s ===\n", title)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
