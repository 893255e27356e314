package syncer

import (
	"sort"
	"time"

	"github.com/ahmedelsayed5113/sells-project-1/models"
	"github.com/ahmedelsayed5113/sells-project-1/utils"
)

// DefaultCoverageThreshold is the minimum fresh/existing ratio required
// before a unit's disappearance from the snapshot is read as "sold".
const DefaultCoverageThreshold = 0.10

// Reconciler diffs a fresh snapshot against the persisted state and produces
// the minimal mutation set: inserts for unknown units, tracked-field updates,
// last-seen touches, and sold-marks for trustworthy disappearances.
type Reconciler struct {
	threshold float64
	logger    *utils.Logger
}

// NewReconciler creates a Reconciler with the given coverage threshold.
// A non-positive threshold falls back to the default.
func NewReconciler(threshold float64, logger *utils.Logger) *Reconciler {
	if threshold <= 0 {
		threshold = DefaultCoverageThreshold
	}
	return &Reconciler{threshold: threshold, logger: logger}
}

// Reconcile computes the mutation set for one cycle. It mutates nothing
// itself; applying the result is the store's job, in one transaction.
//
// Candidates without a detail id cannot be reconciled and are discarded.
// When the same detail id appears more than once in the snapshot, the last
// occurrence wins.
func (r *Reconciler) Reconcile(existing map[int64]*models.Unit, fresh []*models.Unit, now time.Time) *models.MutationSet {
	ms := &models.MutationSet{Now: now}

	order := make([]int64, 0, len(fresh))
	last := make(map[int64]*models.Unit, len(fresh))
	for _, c := range fresh {
		if c == nil || c.DetailID == 0 {
			continue
		}
		if _, seen := last[c.DetailID]; !seen {
			order = append(order, c.DetailID)
		}
		last[c.DetailID] = c
	}

	for _, id := range order {
		c := last[id]
		old, ok := existing[id]
		if !ok {
			c.FirstSeen = now
			c.LastSeen = now
			c.IsSold = false
			c.SoldAt = nil
			ms.Inserts = append(ms.Inserts, c)
			continue
		}

		if trackedKey(c) != trackedKey(old) {
			c.LastSeen = now
			ms.Updates = append(ms.Updates, c)
		} else {
			ms.Touches = append(ms.Touches, id)
		}
	}

	ms.Coverage = float64(len(last)) / float64(max(1, len(existing)))

	if ms.Coverage < r.threshold {
		// Below threshold the snapshot cannot be trusted for disappearance
		// inference: a truncated fetch would mass-mark inventory as sold.
		ms.SoldSkipped = true
		r.logger.Warn("[reconcile] coverage %.1f%% below %.1f%% threshold — skipping sold detection",
			ms.Coverage*100, r.threshold*100)
		return ms
	}

	for id, old := range existing {
		if _, present := last[id]; present || old.IsSold {
			continue
		}
		ms.SoldIDs = append(ms.SoldIDs, id)
	}
	sort.Slice(ms.SoldIDs, func(i, j int) bool { return ms.SoldIDs[i] < ms.SoldIDs[j] })

	return ms
}
