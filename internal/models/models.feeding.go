package models

import "time"

// FeedEvent is one dispensing action reported by the appliance. Events are
// append-only.
type FeedEvent struct {
	ID         string    `json:"id" db:"id"`
	OccurredAt time.Time `json:"created_at" db:"created_at"`
	Portions   int       `json:"portions" db:"portions"`
}

// FeedCommand requests a dispensing action. The hub only records whether
// the insert succeeded.
type FeedCommand struct {
	Portions int `json:"portions" db:"portions"`
}

// FeedingHistory is the recent event list plus the portions it covers.
type FeedingHistory struct {
	Events        []FeedEvent `json:"events"`
	TotalPortions int         `json:"total_portions"`
}

// FeedingTally is the aggregate of portions dispensed in the current local day.
type FeedingTally struct {
	Portions   int       `json:"portions"`
	DayStart   time.Time `json:"day_start"`
	ComputedAt time.Time `json:"computed_at"`
}

// SumPortions adds the portions of the events within [from, to).
func SumPortions(events []FeedEvent, from, to time.Time) int {
	total := 0
	for _, e := range events {
		if e.OccurredAt.Before(from) || !e.OccurredAt.Before(to) {
			continue
		}
		total += e.Portions
	}
	return total
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
