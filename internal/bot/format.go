package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"jobalert_bot/internal/model"
)

// FormatJob formats a job as the full notification card.
func FormatJob(job model.Job) string {
	var b strings.Builder
	b.WriteString(job.Title)
	fmt.Fprintf(&b, "\nPlatform: %s", job.Platform)
	if budget := FormatBudget(job.BudgetMin, job.BudgetMax); budget != "" {
		fmt.Fprintf(&b, "\nBudget: %s", budget)
	}
	if len(job.Skills) > 0 {
		fmt.Fprintf(&b, "\nSkills: %s", FormatSkills(job.Skills))
	}
	if job.Description != "" {
		b.WriteString("\n\n")
		desc := job.Description
		if len(desc) > 200 {
			desc = truncateText(desc, 200) + "..."
		}
		b.WriteString(desc)
	}
	if job.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(job.URL)
	}
	return b.String()
}

// FormatJobAlert formats the compact form used by scheduled alerts.
func FormatJobAlert(job model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", job.Title, job.Platform)
	if job.URL != "" {
		b.WriteString("\n")
		b.WriteString(job.URL)
	}
	return b.String()
}

// FormatBudget renders a budget range; an empty string means unknown.
func FormatBudget(min, max *int64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("$%d-$%d", *min, *max)
	case min != nil:
		return fmt.Sprintf("from $%d", *min)
	case max != nil:
		return fmt.Sprintf("up to $%d", *max)
	default:
		return ""
	}
}

// truncateText bounds s to at most n bytes, never splitting a
// multi-byte rune.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// FormatSkills joins a skill list for display.
func FormatSkills(skills []string) string {
	return strings.Join(skills, ", ")
}

// FormatFilters formats a user's stored preferences.
func FormatFilters(f model.Filters) string {
	if f.MinBudget == nil && f.MaxBudget == nil && len(f.Skills) == 0 {
		return "No preferences set yet. Use /filter to configure them."
	}

	var b strings.Builder
	b.WriteString("Your preferences:\n")
	if f.MinBudget != nil {
		fmt.Fprintf(&b, "Minimum budget: $%d\n", *f.MinBudget)
	}
	if f.MaxBudget != nil {
		fmt.Fprintf(&b, "Maximum budget: $%d\n", *f.MaxBudget)
	}
	if len(f.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s (matching coming soon)\n", FormatSkills(f.Skills))
	}
	return strings.TrimRight(b.String(), "\n")
}
