package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBudgetArg extracts a budget amount from a command argument string.
// A leading dollar sign is tolerated.
func ParseBudgetArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}
	s = strings.TrimPrefix(strings.Fields(s)[0], "$")
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil || amount < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

// ParseSkillsArg splits a comma-separated skill list, trimming blanks.
func ParseSkillsArg(args string) ([]string, error) {
	var skills []string
	for _, s := range strings.Split(args, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		skills = append(skills, strings.ToLower(s))
	}
	if len(skills) == 0 {
		return nil, fmt.Errorf("at least one skill is required")
	}
	return skills, nil
}
