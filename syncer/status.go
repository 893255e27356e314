package syncer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahmedelsayed5113/sells-project-1/models"
)

// CycleState is the lifecycle state of the sync cycle slot.
type CycleState int

const (
	StateIdle CycleState = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusTracker is the process-wide single-slot gate for sync cycles.
// TryStart is an exclusive claim: at most one cycle holds the Running slot,
// and a second caller is rejected rather than queued.
type StatusTracker struct {
	mu         sync.Mutex
	state      CycleState
	cycleID    uuid.UUID
	startedAt  time.Time
	finishedAt time.Time
	lastResult *models.SyncResult
	lastError  string
}

// NewStatusTracker returns a tracker in the Idle state.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{state: StateIdle}
}

// TryStart claims the Running slot. It returns the new cycle's id and true
// on success, or false when a cycle is already running.
func (t *StatusTracker) TryStart(now time.Time) (uuid.UUID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateRunning {
		return uuid.Nil, false
	}
	t.state = StateRunning
	t.cycleID = uuid.New()
	t.startedAt = now
	t.finishedAt = time.Time{}
	return t.cycleID, true
}

// Finish releases the Running slot and records the cycle outcome.
func (t *StatusTracker) Finish(res *models.SyncResult, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.finishedAt = time.Now()
	if err != nil {
		t.state = StateFailed
		t.lastError = err.Error()
		t.lastResult = nil
		return
	}
	t.state = StateCompleted
	t.lastError = ""
	t.lastResult = res
}

// StatusView is a point-in-time copy of the tracker, safe to serialise.
type StatusView struct {
	State       string             `json:"state"`
	CycleID     string             `json:"cycle_id,omitempty"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	New         int                `json:"new,omitempty"`
	Updated     int                `json:"updated,omitempty"`
	Sold        int                `json:"sold,omitempty"`
	Coverage    float64            `json:"coverage,omitempty"`
	SoldSkipped bool               `json:"sold_skipped,omitempty"`
	DurationSec float64            `json:"duration_sec,omitempty"`
	Result      *models.SyncResult `json:"-"`
}

// View copies the current tracker state.
func (t *StatusTracker) View() StatusView {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := StatusView{State: t.state.String(), LastError: t.lastError}
	if t.cycleID != uuid.Nil {
		v.CycleID = t.cycleID.String()
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		v.StartedAt = &started
	}
	if !t.finishedAt.IsZero() {
		finished := t.finishedAt
		v.FinishedAt = &finished
	}
	if t.lastResult != nil {
		v.Result = t.lastResult
		v.New = t.lastResult.New
		v.Updated = t.lastResult.Updated
		v.Sold = t.lastResult.Sold
		v.Coverage = t.lastResult.Coverage
		v.SoldSkipped = t.lastResult.SoldSkipped
		v.DurationSec = t.lastResult.Duration.Seconds()
	}
	return v
}
