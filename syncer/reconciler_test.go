package syncer

import (
	"testing"
	"time"

	"github.com/ahmedelsayed5113/sells-project-1/models"
	"github.com/ahmedelsayed5113/sells-project-1/utils"
)

func newTestReconciler() *Reconciler {
	return NewReconciler(DefaultCoverageThreshold, utils.NewLogger())
}

func fptr(v float64) *float64 { return &v }

func testUnit(id int64, price float64) *models.Unit {
	return &models.Unit{
		DetailID:     id,
		CompoundName: "Test Compound",
		UnitType:     "Apartment",
		TotalPrice:   fptr(price),
		BuiltUpArea:  fptr(150),
		PricePerSqm:  models.PricePerSqmOf(fptr(price), fptr(150)),
		PaymentPlan:  "10% down, 96 months",
		Finishing:    "Fully Finished",
	}
}

func existingOf(units ...*models.Unit) map[int64]*models.Unit {
	m := make(map[int64]*models.Unit, len(units))
	for _, u := range units {
		m[u.DetailID] = u
	}
	return m
}

func TestReconcileInsertsNewUnit(t *testing.T) {
	r := newTestReconciler()
	now := time.Now()

	ms := r.Reconcile(existingOf(), []*models.Unit{testUnit(2001, 1000000)}, now)

	if len(ms.Inserts) != 1 || len(ms.Updates) != 0 || len(ms.SoldIDs) != 0 {
		t.Fatalf("got inserts=%d updates=%d sold=%d, want 1/0/0",
			len(ms.Inserts), len(ms.Updates), len(ms.SoldIDs))
	}
	u := ms.Inserts[0]
	if !u.FirstSeen.Equal(now) || !u.LastSeen.Equal(now) {
		t.Errorf("first_seen/last_seen not set to cycle time: %v / %v", u.FirstSeen, u.LastSeen)
	}
	if u.IsSold || u.SoldAt != nil {
		t.Error("new unit must not be sold")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	r := newTestReconciler()
	now := time.Now()
	fresh := []*models.Unit{testUnit(1, 500000), testUnit(2, 750000)}

	first := r.Reconcile(existingOf(), fresh, now)
	if len(first.Inserts) != 2 {
		t.Fatalf("first run inserts: got %d, want 2", len(first.Inserts))
	}

	// Second run against the state the first run produced.
	existing := existingOf(first.Inserts...)
	second := r.Reconcile(existing, []*models.Unit{testUnit(1, 500000), testUnit(2, 750000)}, now.Add(time.Hour))

	if len(second.Inserts) != 0 || len(second.Updates) != 0 {
		t.Errorf("second run: got inserts=%d updates=%d, want 0/0",
			len(second.Inserts), len(second.Updates))
	}
	if len(second.Touches) != 2 {
		t.Errorf("second run touches: got %d, want 2", len(second.Touches))
	}
	if len(second.SoldIDs) != 0 {
		t.Errorf("second run sold: got %d, want 0", len(second.SoldIDs))
	}
}

func TestReconcileDiscardsCandidatesWithoutDetailID(t *testing.T) {
	r := newTestReconciler()

	anonymous := testUnit(0, 100)
	ms := r.Reconcile(existingOf(), []*models.Unit{anonymous, nil}, time.Now())

	if len(ms.Inserts) != 0 || len(ms.Updates) != 0 || len(ms.Touches) != 0 {
		t.Error("candidates without a detail id must be discarded")
	}
}

func TestReconcileDuplicateCandidateLastWins(t *testing.T) {
	r := newTestReconciler()
	old := testUnit(7, 500000)

	// Same id twice in one snapshot; the second matches the stored state.
	first := testUnit(7, 999999)
	second := testUnit(7, 500000)
	ms := r.Reconcile(existingOf(old), []*models.Unit{first, second}, time.Now())

	if len(ms.Updates) != 0 {
		t.Errorf("updates: got %d, want 0 (last candidate matches)", len(ms.Updates))
	}
	if len(ms.Touches) != 1 {
		t.Errorf("touches: got %d, want 1", len(ms.Touches))
	}
}

func TestReconcileTrackedChangeProducesUpdate(t *testing.T) {
	r := newTestReconciler()
	old := testUnit(42, 500000)
	old.IsSold = true
	soldAt := time.Now().Add(-24 * time.Hour)
	old.SoldAt = &soldAt

	changed := testUnit(42, 550000)
	now := time.Now()
	ms := r.Reconcile(existingOf(old), []*models.Unit{changed}, now)

	if len(ms.Updates) != 1 {
		t.Fatalf("updates: got %d, want 1", len(ms.Updates))
	}
	if len(ms.Touches) != 0 {
		t.Errorf("touches: got %d, want 0", len(ms.Touches))
	}
	if !ms.Updates[0].LastSeen.Equal(now) {
		t.Error("updated candidate must carry the cycle time as last_seen")
	}
}

func TestReconcileNoOpOnlyTouches(t *testing.T) {
	r := newTestReconciler()
	old := testUnit(42, 500000)
	same := testUnit(42, 500000)

	ms := r.Reconcile(existingOf(old), []*models.Unit{same}, time.Now())

	if len(ms.Updates) != 0 {
		t.Errorf("updates: got %d, want 0", len(ms.Updates))
	}
	if len(ms.Touches) != 1 || ms.Touches[0] != 42 {
		t.Errorf("touches: got %v, want [42]", ms.Touches)
	}
}

func TestReconcileSoldUnitReappearingUnchangedStaysSold(t *testing.T) {
	r := newTestReconciler()
	old := testUnit(9, 500000)
	old.IsSold = true

	ms := r.Reconcile(existingOf(old), []*models.Unit{testUnit(9, 500000)}, time.Now())

	// Unchanged tracked fields: just a touch. The sold flag only clears
	// through the update path, when a field actually changed.
	if len(ms.Updates) != 0 || len(ms.Touches) != 1 {
		t.Errorf("got updates=%d touches=%d, want 0/1", len(ms.Updates), len(ms.Touches))
	}
}

func TestReconcileCoverageGuardBlocksSoldMarking(t *testing.T) {
	r := newTestReconciler()

	existing := existingOf()
	for i := int64(1); i <= 100; i++ {
		existing[i] = testUnit(i, float64(i)*1000)
	}
	fresh := make([]*models.Unit, 0, 5)
	for i := int64(1); i <= 5; i++ {
		fresh = append(fresh, testUnit(i, float64(i)*1000))
	}

	ms := r.Reconcile(existing, fresh, time.Now())

	if !ms.SoldSkipped {
		t.Error("5% coverage must set the skipped indicator")
	}
	if len(ms.SoldIDs) != 0 {
		t.Errorf("sold ids: got %d, want 0", len(ms.SoldIDs))
	}
	if ms.Coverage != 0.05 {
		t.Errorf("coverage: got %.3f, want 0.05", ms.Coverage)
	}
	// The present units are still processed normally.
	if len(ms.Touches) != 5 {
		t.Errorf("touches: got %d, want 5", len(ms.Touches))
	}
}

func TestReconcileCoverageGuardAllowsSoldMarking(t *testing.T) {
	r := newTestReconciler()
	now := time.Now()

	ms := r.Reconcile(existingOf(testUnit(1001, 500000)), []*models.Unit{testUnit(1002, 750000)}, now)

	if ms.SoldSkipped {
		t.Error("100% coverage must not skip sold detection")
	}
	if len(ms.Inserts) != 1 || ms.Inserts[0].DetailID != 1002 {
		t.Errorf("inserts: got %v, want [1002]", ms.Inserts)
	}
	if len(ms.Updates) != 0 {
		t.Errorf("updates: got %d, want 0", len(ms.Updates))
	}
	if len(ms.SoldIDs) != 1 || ms.SoldIDs[0] != 1001 {
		t.Errorf("sold ids: got %v, want [1001]", ms.SoldIDs)
	}
}

func TestReconcileAlreadySoldUnitNotRemarked(t *testing.T) {
	r := newTestReconciler()
	gone := testUnit(5, 500000)
	gone.IsSold = true

	ms := r.Reconcile(existingOf(gone, testUnit(6, 100)), []*models.Unit{testUnit(6, 100)}, time.Now())

	if len(ms.SoldIDs) != 0 {
		t.Errorf("sold ids: got %v, want none (already sold)", ms.SoldIDs)
	}
}

func TestReconcileEmptyExistingFullCoverage(t *testing.T) {
	r := newTestReconciler()

	ms := r.Reconcile(existingOf(), []*models.Unit{testUnit(1, 100)}, time.Now())

	if ms.SoldSkipped {
		t.Error("empty store must not trigger the coverage skip")
	}
	if ms.Coverage != 1.0 {
		t.Errorf("coverage: got %.3f, want 1.0", ms.Coverage)
	}
}

func TestReconcileCustomThreshold(t *testing.T) {
	r := NewReconciler(0.5, utils.NewLogger())

	existing := existingOf(testUnit(1, 100), testUnit(2, 200), testUnit(3, 300))
	fresh := []*models.Unit{testUnit(1, 100)}

	ms := r.Reconcile(existing, fresh, time.Now())
	if !ms.SoldSkipped {
		t.Error("33% coverage must be skipped under a 50% threshold")
	}
}
