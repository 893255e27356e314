package syncer

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ahmedelsayed5113/sells-project-1/models"
)

// Tracked-field comparison happens on canonical string renderings, not raw
// typed values. The upstream source drifts between numeric representations
// across cycles (5000 vs 5000.0); rendering through decimal collapses that
// drift so it never registers as a change.

func canonFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return decimal.NewFromFloat(*v).String()
}

func canonInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// trackedKey renders the fixed tracked-field subset of a unit into one
// canonical string. Two units with equal keys are "unchanged" for the
// purposes of reconciliation.
func trackedKey(u *models.Unit) string {
	const sep = "\x1f"
	return canonFloat(u.TotalPrice) + sep +
		canonFloat(u.TotalPriceTo) + sep +
		canonFloat(u.CashPriceFrom) + sep +
		canonFloat(u.CashPriceTo) + sep +
		canonFloat(u.PricePerSqm) + sep +
		canonInt(u.Status) + sep +
		u.PaymentPlan + sep +
		canonInt(u.DeliveryFrom) + sep +
		canonInt(u.DeliveryTo) + sep +
		canonFloat(u.Maintenance) + sep +
		canonFloat(u.ClubFees) + sep +
		canonFloat(u.ParkingFees) + sep +
		u.Finishing
}
