// Package recap turns session event logs into aggregated, health-annotated
// summaries for a requested time window.
package recap

import (
	"fmt"
	"strings"
	"time"
)

// Window is a half-open time interval [Start, End). A session is in the
// window iff its event span intersects it.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AllTime returns a window covering every representable instant.
func AllTime() Window {
	return Window{Start: time.Time{}, End: time.Unix(1<<62, 0)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Intersects reports whether the closed span [first, last] overlaps the
// window. A session straddling either boundary is included.
func (w Window) Intersects(first, last time.Time) bool {
	return !last.Before(w.Start) && first.Before(w.End)
}

// ParseSince resolves a user-supplied window start to a concrete Window
// ending at now. Accepted forms:
//
//	yesterday          previous day at 08:00 local
//	today              local midnight
//	week               seven days before now
//	YYYY-MM-DD HH:MM   explicit local datetime (24-hour)
//	YYYY-MM-DD         explicit local date at midnight
//
// Anything else is a configuration error, reported before any analysis work
// proceeds — never a silently-defaulted window.
func ParseSince(since string, now time.Time) (Window, error) {
	value := strings.ToLower(strings.TrimSpace(since))

	var start time.Time
	switch value {
	case "yesterday":
		y := now.AddDate(0, 0, -1)
		start = time.Date(y.Year(), y.Month(), y.Day(), 8, 0, 0, 0, now.Location())
	case "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		start = now.AddDate(0, 0, -7)
	default:
		var err error
		start, err = parseExplicit(value, now.Location())
		if err != nil {
			return Window{}, fmt.Errorf("cannot parse time window %q (want yesterday, today, week, or YYYY-MM-DD [HH:MM])", since)
		}
	}

	return Window{Start: start, End: now}, nil
}

func parseExplicit(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02 15:04", value, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", value, loc)
}
