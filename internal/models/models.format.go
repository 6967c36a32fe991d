package models

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FoodCalibration maps the ultrasonic distance onto a fill percentage.
// Distances are measured from the lid, so a smaller distance is fuller.
type FoodCalibration struct {
	EmptyCM float64 `json:"empty_cm"`
	FullCM  float64 `json:"full_cm"`
}

// Percent returns the fill level in [0, 100].
func (c FoodCalibration) Percent(distanceCM float64) int {
	span := c.EmptyCM - c.FullCM
	if span <= 0 {
		return 0
	}
	p := (c.EmptyCM - distanceCM) / span * 100
	return int(math.Max(0, math.Min(100, math.Round(p))))
}

// FormatAgo renders how long ago t was relative to now. Anything under a
// minute is "now"; a zero time renders empty.
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if now.Sub(t) < time.Minute {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// SensorView is a reading prepared for display.
type SensorView struct {
	SensorReading
	Unit    string `json:"unit,omitempty"`
	Percent *int   `json:"percent,omitempty"`
	Ago     string `json:"ago"`
}

// Overview is the dashboard summary of all feeds.
type Overview struct {
	FoodLevel     *SensorView `json:"food_level"`
	Weight        *SensorView `json:"weight"`
	Motion        *SensorView `json:"motion"`
	FeedingsToday int         `json:"feedings_today"`
	HasData       bool        `json:"has_data"`
	GeneratedAt   time.Time   `json:"generated_at"`
}

// NewSensorView decorates a reading with unit, fill percentage and age.
func NewSensorView(r SensorReading, cal FoodCalibration, now time.Time) *SensorView {
	v := &SensorView{
		SensorReading: r,
		Unit:          r.Feed.Unit(),
		Ago:           FormatAgo(r.ObservedAt, now),
	}
	if r.Feed == FoodLevel && r.Value != nil {
		p := cal.Percent(*r.Value)
		v.Percent = &p
	}
	return v
}
