// FilePath: internal/repository/backend/backend.reading.go
package backend

import (
	"context"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository"
)

// readingTables maps a feed to its raw reading table and value column.
var readingTables = map[models.FeedKind]struct {
	table  string
	column string
	limit  int
}{
	models.FoodLevel: {remote.TableFoodLevelReadings, remote.ColumnDistanceCM, repository.FoodHistoryLimit},
	models.Weight:    {remote.TableWeightReadings, remote.ColumnWeightGrams, repository.WeightHistoryLimit},
	models.Motion:    {remote.TableMotionEvents, "", repository.MotionHistoryLimit},
}

type ReadingRepo struct {
	BaseRepo
}

func NewReadingRepository(svc remote.DataService) *ReadingRepo {
	return &ReadingRepo{BaseRepo: BaseRepo{svc: svc}}
}

func (r *ReadingRepo) History(ctx context.Context, feed models.FeedKind, limit int) ([]models.HistoryReading, error) {
	src, ok := readingTables[feed]
	if !ok {
		return nil, errors.NewValidationError("unknown sensor feed", repository.ErrInvalidInput)
	}

	rows, err := r.query(ctx, remote.Query{
		Table: src.table,
		Order: newestFirst(remote.ColumnCreatedAt),
		Limit: repository.ClampLimit(limit, src.limit),
	}, string(feed)+" history")
	if err != nil {
		return nil, err
	}

	readings := make([]models.HistoryReading, 0, len(rows))
	for _, row := range rows {
		if h, ok := remote.HistoryFromRow(row, src.column); ok {
			readings = append(readings, h)
		}
	}
	return readings, nil
}
