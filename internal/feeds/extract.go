package feeds

import (
	"fmt"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
)

// MotionProfile selects which timestamp a motion feed reports.
type MotionProfile string

const (
	// MotionLastMotion requires last_motion_at, the time of last detection.
	MotionLastMotion MotionProfile = "last_motion"
	// MotionUpdatedAtFallback uses updated_at when last_motion_at is null.
	MotionUpdatedAtFallback MotionProfile = "updated_at_fallback"
)

// ParseMotionProfile validates a configured profile name.
func ParseMotionProfile(s string) (MotionProfile, error) {
	switch p := MotionProfile(s); p {
	case MotionLastMotion, MotionUpdatedAtFallback:
		return p, nil
	case "":
		return MotionLastMotion, nil
	}
	return "", fmt.Errorf("unknown motion profile %q", s)
}

// Extractor turns a sensor_states row into a reading for one feed. It is
// pure: rows that fail its checks yield no reading and no error.
type Extractor struct {
	feed    models.FeedKind
	profile MotionProfile
}

// NewExtractor returns the extractor for feed. profile only matters for
// the motion feed.
func NewExtractor(feed models.FeedKind, profile MotionProfile) (Extractor, error) {
	switch feed {
	case models.FoodLevel, models.Weight, models.Motion:
	default:
		return Extractor{}, fmt.Errorf("no extractor for feed %q", feed)
	}
	if profile == "" {
		profile = MotionLastMotion
	}
	return Extractor{feed: feed, profile: profile}, nil
}

func (e Extractor) Feed() models.FeedKind {
	return e.feed
}

// Columns lists what the seed query must select.
func (e Extractor) Columns() []string {
	switch e.feed {
	case models.FoodLevel:
		return []string{remote.ColumnSensor, remote.ColumnDistanceCM, remote.ColumnUpdatedAt}
	case models.Weight:
		return []string{remote.ColumnSensor, remote.ColumnWeightGrams, remote.ColumnUpdatedAt}
	default:
		return []string{remote.ColumnSensor, remote.ColumnLastMotionAt, remote.ColumnUpdatedAt}
	}
}

// Extract maps row to a reading. A missing updated_at leaves ObservedAt zero.
func (e Extractor) Extract(row remote.Row) (models.SensorReading, bool) {
	if row == nil {
		return models.SensorReading{}, false
	}
	updatedAt, _ := row.Time(remote.ColumnUpdatedAt)

	switch e.feed {
	case models.FoodLevel:
		v, ok := row.Float(remote.ColumnDistanceCM)
		if !ok {
			return models.SensorReading{}, false
		}
		return models.NewReading(models.FoodLevel, v, updatedAt), true
	case models.Weight:
		v, ok := row.Float(remote.ColumnWeightGrams)
		if !ok {
			return models.SensorReading{}, false
		}
		return models.NewReading(models.Weight, v, updatedAt), true
	case models.Motion:
		if at, ok := row.Time(remote.ColumnLastMotionAt); ok {
			return models.NewPresence(models.Motion, at), true
		}
		if e.profile == MotionUpdatedAtFallback && !updatedAt.IsZero() {
			return models.NewPresence(models.Motion, updatedAt), true
		}
	}
	return models.SensorReading{}, false
}
