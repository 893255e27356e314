package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmedelsayed5113/sells-project-1/models"
	"github.com/ahmedelsayed5113/sells-project-1/storage"
	"github.com/ahmedelsayed5113/sells-project-1/utils"
)

// ErrCycleRunning is returned when a trigger arrives while another cycle
// holds the Running slot. Triggers are rejected, never queued.
var ErrCycleRunning = errors.New("sync cycle already running")

// SnapshotFetcher produces one full fresh snapshot of the tracked universe.
// Individual upstream failures are absorbed into a smaller snapshot; only a
// catastrophic failure (e.g. cancelled context) surfaces as an error.
type SnapshotFetcher interface {
	Snapshot(ctx context.Context) ([]*models.Unit, error)
}

// Syncer runs full sync cycles: load persisted state, fetch a fresh
// snapshot, reconcile, and commit the mutation set atomically.
type Syncer struct {
	store      storage.UnitStore
	fetcher    SnapshotFetcher
	reconciler *Reconciler
	status     *StatusTracker
	logger     *utils.Logger
}

// New creates a Syncer with its own status tracker.
func New(store storage.UnitStore, fetcher SnapshotFetcher, threshold float64, logger *utils.Logger) *Syncer {
	return &Syncer{
		store:      store,
		fetcher:    fetcher,
		reconciler: NewReconciler(threshold, logger),
		status:     NewStatusTracker(),
		logger:     logger,
	}
}

// Status returns a snapshot of the cycle tracker.
func (s *Syncer) Status() StatusView {
	return s.status.View()
}

// RunCycle executes one sync cycle end to end. It returns ErrCycleRunning
// without doing any work when another cycle is in flight. Any persistence
// failure fails the cycle as a whole; the store is left untouched.
func (s *Syncer) RunCycle(ctx context.Context) (*models.SyncResult, error) {
	run, err := s.begin()
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// TriggerAsync claims the running slot and, on success, executes the cycle
// in a background goroutine. The manual trigger endpoint uses this so the
// request returns immediately.
func (s *Syncer) TriggerAsync() error {
	run, err := s.begin()
	if err != nil {
		return err
	}
	go run(context.Background())
	return nil
}

// begin claims the cycle slot and returns the function that runs the rest
// of the cycle and records its outcome.
func (s *Syncer) begin() (func(context.Context) (*models.SyncResult, error), error) {
	start := time.Now()
	cycleID, ok := s.status.TryStart(start)
	if !ok {
		return nil, ErrCycleRunning
	}

	return func(ctx context.Context) (*models.SyncResult, error) {
		s.logger.Info("[sync] cycle %s started", cycleID)
		res, err := s.runCycle(ctx, start)
		s.status.Finish(res, err)

		if err != nil {
			s.logger.Error("[sync] cycle %s failed: %v", cycleID, err)
			return nil, err
		}
		s.logger.Info("[sync] cycle %s complete — new: %d, updated: %d, sold: %d (coverage %.1f%%) in %s",
			cycleID, res.New, res.Updated, res.Sold, res.Coverage*100, res.Duration.Round(time.Millisecond))
		return res, nil
	}, nil
}

func (s *Syncer) runCycle(ctx context.Context, start time.Time) (*models.SyncResult, error) {
	existing, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing units: %w", err)
	}
	s.logger.Info("[sync] existing units in store: %d", len(existing))

	fresh, err := s.fetcher.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	s.logger.Info("[sync] fresh units fetched: %d", len(fresh))

	ms := s.reconciler.Reconcile(existing, fresh, start)

	if err := s.store.Apply(ctx, ms); err != nil {
		return nil, fmt.Errorf("apply mutations: %w", err)
	}

	return &models.SyncResult{
		New:           len(ms.Inserts),
		Updated:       len(ms.Updates),
		Sold:          len(ms.SoldIDs),
		FreshTotal:    len(fresh),
		ExistingTotal: len(existing),
		Coverage:      ms.Coverage,
		SoldSkipped:   ms.SoldSkipped,
		StartedAt:     start,
		Duration:      time.Since(start),
	}, nil
}
