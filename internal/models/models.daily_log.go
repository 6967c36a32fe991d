package models

import "time"

// DailySensorLog is one externally produced aggregate row per sensor per day.
type DailySensorLog struct {
	ID          string    `json:"id" db:"id"`
	Sensor      FeedKind  `json:"sensor" db:"sensor"`
	LogDate     string    `json:"log_date" db:"log_date"`
	DistanceCM  *float64  `json:"distance_cm,omitempty" db:"distance_cm"`
	WeightGrams *float64  `json:"weight_grams,omitempty" db:"weight_grams"`
	MotionCount int       `json:"motion_count" db:"motion_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AggregateValue returns the column relevant for the log's sensor.
func (l DailySensorLog) AggregateValue() *float64 {
	switch l.Sensor {
	case FoodLevel:
		return l.DistanceCM
	case Weight:
		return l.WeightGrams
	case Motion:
		v := float64(l.MotionCount)
		return &v
	}
	return nil
}
