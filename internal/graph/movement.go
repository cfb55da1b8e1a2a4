package graph

import (
	"fmt"
	"time"
)

// MovementEvent records one transition of an entity between two sightings.
// Events are immutable once created.
type MovementEvent struct {
	Entity       string `json:"entity"`
	FromLocation string `json:"from_location"`
	ToLocation   string `json:"to_location"`
	FromPosition string `json:"from_position"`
	ToPosition   string `json:"to_position"`
	FromTime     string `json:"from_time"` // RFC 3339
	ToTime       string `json:"to_time"`
	FromMemoryID string `json:"from_memory_id"`
	ToMemoryID   string `json:"to_memory_id"`
}

// Duration returns a human-readable elapsed time between the two
// sightings, e.g. "2d 5h ago", "3h 45m ago", "15m ago", "30s ago".
func (m MovementEvent) Duration() string {
	from, err1 := time.Parse(time.RFC3339, m.FromTime)
	to, err2 := time.Parse(time.RFC3339, m.ToTime)
	if err1 != nil || err2 != nil {
		return "unknown"
	}
	d := to.Sub(from)
	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		return fmt.Sprintf("%dd %dh ago", days, hours)
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm ago", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
}

// Narrative renders the movement as one line of natural language.
func (m MovementEvent) Narrative() string {
	return fmt.Sprintf("%s moved from %s (%s) to %s (%s), %s",
		m.Entity, m.FromLocation, m.FromPosition,
		m.ToLocation, m.ToPosition, m.Duration())
}
