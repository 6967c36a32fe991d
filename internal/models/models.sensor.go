// FilePath: internal/models/models.sensor.go
package models

import (
	"fmt"
	"time"
)

// FeedKind identifies one logical sensor feed of the feeder appliance.
type FeedKind string

const (
	FoodLevel FeedKind = "food_level"
	Weight    FeedKind = "weight"
	Motion    FeedKind = "motion"
)

// SensorFeeds lists every sensor feed in display order.
var SensorFeeds = []FeedKind{FoodLevel, Weight, Motion}

// ParseFeedKind accepts the canonical feed names plus the short tab names
// used by the dashboard ("food").
func ParseFeedKind(s string) (FeedKind, error) {
	switch s {
	case string(FoodLevel), "food":
		return FoodLevel, nil
	case string(Weight):
		return Weight, nil
	case string(Motion):
		return Motion, nil
	}
	return "", fmt.Errorf("unknown sensor feed %q", s)
}

// Unit returns the display unit for the feed's value.
func (k FeedKind) Unit() string {
	switch k {
	case FoodLevel:
		return "cm"
	case Weight:
		return "g"
	}
	return ""
}

// SensorReading is the latest known value of one feed. Motion readings are
// presence-only and carry no Value.
type SensorReading struct {
	Feed       FeedKind  `json:"feed"`
	Value      *float64  `json:"value,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// NewReading builds a valued reading.
func NewReading(feed FeedKind, value float64, observedAt time.Time) SensorReading {
	return SensorReading{Feed: feed, Value: &value, ObservedAt: observedAt}
}

// NewPresence builds a presence-only reading.
func NewPresence(feed FeedKind, observedAt time.Time) SensorReading {
	return SensorReading{Feed: feed, ObservedAt: observedAt}
}

// HasValue reports whether the reading carries a numeric value.
func (r SensorReading) HasValue() bool {
	return r.Value != nil
}

// Equal compares feed, value and observation time.
func (r SensorReading) Equal(o SensorReading) bool {
	if r.Feed != o.Feed || !r.ObservedAt.Equal(o.ObservedAt) {
		return false
	}
	if r.Value == nil || o.Value == nil {
		return r.Value == nil && o.Value == nil
	}
	return *r.Value == *o.Value
}

// SensorState mirrors one row of the sensor_states table.
type SensorState struct {
	Sensor       string     `json:"sensor" db:"sensor"`
	DistanceCM   *float64   `json:"distance_cm" db:"distance_cm"`
	WeightGrams  *float64   `json:"weight_grams" db:"weight_grams"`
	LastMotionAt *time.Time `json:"last_motion_at" db:"last_motion_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// HistoryReading is one row of a per-sensor reading table
// (food_level_readings, weight_readings, motion_events).
type HistoryReading struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Value     *float64  `json:"value,omitempty"`
}
