// FilePath: internal/repository/backend/backend.feeding.go
package backend

import (
	"context"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository"
)

type FeedingRepo struct {
	BaseRepo
}

func NewFeedingRepository(svc remote.DataService) *FeedingRepo {
	return &FeedingRepo{BaseRepo: BaseRepo{svc: svc}}
}

// History returns the latest feeding events, newest first, with the total
// portions they add up to.
func (r *FeedingRepo) History(ctx context.Context, limit int) (*models.FeedingHistory, error) {
	rows, err := r.query(ctx, remote.Query{
		Table:   remote.TableFeedingEvents,
		Columns: []string{remote.ColumnID, remote.ColumnCreatedAt, remote.ColumnPortions},
		Order:   newestFirst(remote.ColumnCreatedAt),
		Limit:   repository.ClampLimit(limit, repository.FeedingHistoryLimit),
	}, "feeding history")
	if err != nil {
		return nil, err
	}

	history := &models.FeedingHistory{Events: remote.FeedEventsFromRows(rows)}
	for _, e := range history.Events {
		history.TotalPortions += e.Portions
	}
	return history, nil
}
