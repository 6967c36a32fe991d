// FilePath: internal/repository/backend/backend.baserepo.go
package backend

import (
	"context"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
)

// BaseRepo runs repository reads against the remote data service.
type BaseRepo struct {
	svc remote.DataService
}

func (r *BaseRepo) query(ctx context.Context, q remote.Query, what string) ([]remote.Row, error) {
	rows, err := r.svc.Query(ctx, q)
	if err != nil {
		return nil, errors.NewUpstreamError("failed to load "+what, err)
	}
	return rows, nil
}

func newestFirst(column string) *remote.Order {
	return &remote.Order{Column: column, Descending: true}
}
