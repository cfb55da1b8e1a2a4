package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	lastHoursRe   = regexp.MustCompile(`^(?:last|past)\s+(\d+)\s+hours?`)
	lastMinutesRe = regexp.MustCompile(`^(?:last|past)\s+(\d+)\s+minutes?`)
)

// ParseTimeExpression resolves a fuzzy time expression into a (start, end)
// window anchored at now. Day-relative expressions anchor to midnight of
// the current day, computed once per call. Unrecognized expressions
// default to the trailing 24 hours.
func ParseTimeExpression(expr string, now time.Time) (time.Time, time.Time) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Numeric relative windows first: "last 2 hours", "past 30 minutes".
	if m := lastHoursRe.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Hour), now
	}
	if m := lastMinutesRe.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Minute), now
	}

	switch expr {
	case "this morning":
		return midnight.Add(6 * time.Hour), midnight.Add(12 * time.Hour)
	case "this afternoon":
		return midnight.Add(12 * time.Hour), midnight.Add(18 * time.Hour)
	case "this evening", "tonight":
		return midnight.Add(18 * time.Hour), midnight.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	case "today":
		return midnight, now
	case "yesterday":
		return midnight.AddDate(0, 0, -1), midnight
	case "last hour", "past hour":
		return now.Add(-time.Hour), now
	case "last night":
		// Sleep window: 8 PM yesterday to 6 AM today.
		return midnight.AddDate(0, 0, -1).Add(20 * time.Hour), midnight.Add(6 * time.Hour)
	}

	return now.Add(-24 * time.Hour), now
}
