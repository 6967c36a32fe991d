package hubservice

import (
	"context"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
)

// FeedingHistory lists the latest feeding events.
func (s *FeederService) FeedingHistory(ctx context.Context, limit int) (*models.FeedingHistory, error) {
	return s.Feedings.History(ctx, limit)
}

// SensorLogs lists one sensor's daily aggregates. Sensor names accept the
// dashboard's short forms.
func (s *FeederService) SensorLogs(ctx context.Context, sensor string, limit int) ([]models.DailySensorLog, error) {
	kind, err := models.ParseFeedKind(sensor)
	if err != nil {
		return nil, errors.NewValidationError("unknown sensor", err)
	}
	return s.DailyLogs.List(ctx, kind, limit)
}

// ReadingHistory lists raw readings of one sensor feed.
func (s *FeederService) ReadingHistory(ctx context.Context, feed string, limit int) ([]models.HistoryReading, error) {
	kind, err := models.ParseFeedKind(feed)
	if err != nil {
		return nil, errors.NewValidationError("unknown sensor feed", err)
	}
	return s.Readings.History(ctx, kind, limit)
}

// Feed sends a manual feed command. The counter is not touched; the
// resulting feeding event arrives through its own feed.
func (s *FeederService) Feed(ctx context.Context, portions int) error {
	return s.Trigger.Feed(ctx, portions)
}
