package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmedelsayed5113/sells-project-1/models"
	"github.com/ahmedelsayed5113/sells-project-1/utils"
)

type fakeStore struct {
	existing map[int64]*models.Unit
	fetchErr error
	applyErr error
	applied  *models.MutationSet
}

func (f *fakeStore) FetchAll(ctx context.Context) (map[int64]*models.Unit, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.existing == nil {
		return map[int64]*models.Unit{}, nil
	}
	return f.existing, nil
}

func (f *fakeStore) Apply(ctx context.Context, ms *models.MutationSet) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = ms
	return nil
}

type fakeFetcher struct {
	units   []*models.Unit
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) Snapshot(ctx context.Context) ([]*models.Unit, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.units, f.err
}

func TestSyncerRunCycleCounts(t *testing.T) {
	store := &fakeStore{existing: existingOf(testUnit(1001, 500000))}
	fetcher := &fakeFetcher{units: []*models.Unit{testUnit(1002, 750000)}}
	s := New(store, fetcher, DefaultCoverageThreshold, utils.NewLogger())

	res, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.New != 1 || res.Updated != 0 || res.Sold != 1 {
		t.Errorf("counts: got %d/%d/%d, want 1/0/1", res.New, res.Updated, res.Sold)
	}
	if store.applied == nil {
		t.Fatal("mutation set was not applied")
	}
	if st := s.Status(); st.State != "completed" {
		t.Errorf("status: got %q, want %q", st.State, "completed")
	}
}

func TestSyncerRejectsConcurrentCycle(t *testing.T) {
	fetcher := &fakeFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(&fakeStore{}, fetcher, DefaultCoverageThreshold, utils.NewLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.RunCycle(context.Background()); err != nil {
			t.Errorf("first cycle failed: %v", err)
		}
	}()

	<-fetcher.started
	if _, err := s.RunCycle(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("second cycle: got %v, want ErrCycleRunning", err)
	}

	close(fetcher.release)
	<-done
}

func TestSyncerApplyFailureFailsCycle(t *testing.T) {
	store := &fakeStore{
		existing: existingOf(testUnit(1, 100)),
		applyErr: errors.New("write: connection reset"),
	}
	fetcher := &fakeFetcher{units: []*models.Unit{testUnit(2, 200)}}
	s := New(store, fetcher, DefaultCoverageThreshold, utils.NewLogger())

	if _, err := s.RunCycle(context.Background()); err == nil {
		t.Fatal("expected cycle failure")
	}
	if store.applied != nil {
		t.Error("no mutation set may be recorded on failure")
	}
	st := s.Status()
	if st.State != "failed" {
		t.Errorf("status: got %q, want %q", st.State, "failed")
	}
	if st.LastError == "" {
		t.Error("failed cycle must record its error")
	}

	// The slot is free again; the next cycle retries from scratch.
	store.applyErr = nil
	if _, err := s.RunCycle(context.Background()); err != nil {
		t.Errorf("retry cycle failed: %v", err)
	}
}

func TestSyncerFetchFailureFailsCycle(t *testing.T) {
	s := New(&fakeStore{}, &fakeFetcher{err: context.Canceled}, DefaultCoverageThreshold, utils.NewLogger())

	if _, err := s.RunCycle(context.Background()); err == nil {
		t.Fatal("expected cycle failure")
	}
	if st := s.Status(); st.State != "failed" {
		t.Errorf("status: got %q, want %q", st.State, "failed")
	}
}

func TestSyncerSkippedSoldReported(t *testing.T) {
	existing := existingOf()
	for i := int64(1); i <= 100; i++ {
		existing[i] = testUnit(i, float64(i))
	}
	store := &fakeStore{existing: existing}
	fetcher := &fakeFetcher{units: []*models.Unit{testUnit(1, 1)}}
	s := New(store, fetcher, DefaultCoverageThreshold, utils.NewLogger())

	res, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !res.SoldSkipped {
		t.Error("result must carry the skipped indicator")
	}
	if res.Sold != 0 {
		t.Errorf("sold: got %d, want 0", res.Sold)
	}
}

func TestSyncerTriggerAsync(t *testing.T) {
	fetcher := &fakeFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(&fakeStore{}, fetcher, DefaultCoverageThreshold, utils.NewLogger())

	if err := s.TriggerAsync(); err != nil {
		t.Fatalf("TriggerAsync: %v", err)
	}
	<-fetcher.started

	if err := s.TriggerAsync(); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("second trigger: got %v, want ErrCycleRunning", err)
	}

	close(fetcher.release)
	deadline := time.After(2 * time.Second)
	for s.Status().State == "running" {
		select {
		case <-deadline:
			t.Fatal("cycle did not finish")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
