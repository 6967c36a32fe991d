// FilePath: internal/repository/backend/backend.daily_log.go
package backend

import (
	"context"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository"
)

type DailyLogRepo struct {
	BaseRepo
}

func NewDailyLogRepository(svc remote.DataService) *DailyLogRepo {
	return &DailyLogRepo{BaseRepo: BaseRepo{svc: svc}}
}

func (r *DailyLogRepo) List(ctx context.Context, sensor models.FeedKind, limit int) ([]models.DailySensorLog, error) {
	rows, err := r.query(ctx, remote.Query{
		Table:   remote.TableSensorDailyLog,
		Filters: []remote.Filter{remote.Eq(remote.ColumnSensor, string(sensor))},
		Order:   newestFirst(remote.ColumnLogDate),
		Limit:   repository.ClampLimit(limit, repository.DailyLogLimit),
	}, "daily logs")
	if err != nil {
		return nil, err
	}

	logs := make([]models.DailySensorLog, 0, len(rows))
	for _, row := range rows {
		if log, ok := remote.DailyLogFromRow(row); ok && log.Sensor == sensor {
			logs = append(logs, log)
		}
	}
	return logs, nil
}
