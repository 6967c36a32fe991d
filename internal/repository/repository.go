// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// Default list sizes of the dashboard screens.
const (
	FeedingHistoryLimit = 100
	DailyLogLimit       = 50
	FoodHistoryLimit    = 50
	WeightHistoryLimit  = 100
	MotionHistoryLimit  = 100
	MaxLimit            = 500
)

// FeedingRepository reads the feeding event log
type FeedingRepository interface {
	History(ctx context.Context, limit int) (*models.FeedingHistory, error)
}

// DailyLogRepository reads the externally produced daily aggregates
type DailyLogRepository interface {
	List(ctx context.Context, sensor models.FeedKind, limit int) ([]models.DailySensorLog, error)
}

// ReadingRepository reads the raw per-sensor reading tables
type ReadingRepository interface {
	History(ctx context.Context, feed models.FeedKind, limit int) ([]models.HistoryReading, error)
}

// SnapshotMirror publishes the live snapshot to other processes
type SnapshotMirror interface {
	MirrorReading(ctx context.Context, reading models.SensorReading) error
	MirrorTally(ctx context.Context, tally models.FeedingTally) error
	Ping(ctx context.Context) error
	Close() error
}

// ReadingRecorder keeps a time series of accepted readings
type ReadingRecorder interface {
	RecordReading(ctx context.Context, reading models.SensorReading) error
	RecordTally(ctx context.Context, tally models.FeedingTally) error
	Close()
}

// ClampLimit applies def for a non-positive limit and caps it at MaxLimit.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
