package storage

import (
	"context"

	"github.com/ahmedelsayed5113/sells-project-1/models"
)

// UnitStore is the persisted-state surface the sync cycle needs: a full read
// of the current state and an all-or-nothing apply of one mutation set.
type UnitStore interface {
	FetchAll(ctx context.Context) (map[int64]*models.Unit, error)
	Apply(ctx context.Context, ms *models.MutationSet) error
}

// UnitReader serves the query endpoints.
type UnitReader interface {
	List(ctx context.Context, orderBy string) ([]*models.Unit, error)
	Stats(ctx context.Context) (*models.StatsReport, error)
}

// AdminStore exposes the administrative bulk reset of sold flags.
type AdminStore interface {
	ResetSoldFlags(ctx context.Context) (int64, error)
}
