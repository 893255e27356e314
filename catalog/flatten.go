package catalog

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmedelsayed5113/sells-project-1/config"
	"github.com/ahmedelsayed5113/sells-project-1/models"
)

// CompoundInfo identifies the compound a detail payload belongs to.
type CompoundInfo struct {
	ID      int64
	Name    string
	DevID   int64
	DevName string
}

// paymentPlanText renders the first upstream payment plan as a
// human-readable "<down-payment%> down, <installment-count> months" string.
func paymentPlanText(plans []PayPlan) string {
	if len(plans) == 0 {
		return ""
	}
	// Render through decimal so 0.1*100 comes out as "10", not a float64
	// artifact like "10.000000000000002".
	dp := decimal.NewFromFloat(plans[0].DownPayment).Mul(decimal.NewFromInt(100))
	return dp.String() + "% down, " +
		strconv.FormatInt(plans[0].Instalment, 10) + " months"
}

// Flatten turns one compound detail payload into flat candidate units.
// Candidates carry the cycle start time as both first_seen and last_seen
// and are never marked sold; that is the reconciler's call.
func Flatten(place config.Place, compound CompoundInfo, data *CompoundData, now time.Time) []*models.Unit {
	planText := paymentPlanText(data.PayPlans)

	var units []*models.Unit
	for unitType, entries := range data.Details {
		finishing := data.Finishing[unitType]
		if finishing == "" {
			finishing = "N/A"
		}

		for _, entry := range entries {
			units = append(units, &models.Unit{
				DetailID: entry.ID,

				CityName:     place.Name,
				CityID:       data.CityID,
				CompoundName: compound.Name,
				CompoundID:   ptr(compound.ID),
				DevName:      compound.DevName,
				DevID:        ptr(compound.DevID),
				PhaseName:    data.PhaseName,
				PhaseID:      data.PhaseID,

				UnitType: unitType,
				SubType:  entry.SubType,
				TypeID:   entry.TypeID,
				Bedrooms: entry.Bedrooms,
				Outdoor:  entry.Outdoor,

				BuiltUpArea:   entry.BuiltUpArea,
				TotalPrice:    entry.TotalPrice,
				TotalPriceTo:  entry.TotalPriceTo,
				PricePerSqm:   models.PricePerSqmOf(entry.TotalPrice, entry.BuiltUpArea),
				CashPriceFrom: entry.CashFrom,
				CashPriceTo:   entry.CashTo,

				DeliveryFrom: data.DeliveryFrom,
				DeliveryTo:   data.DeliveryTo,
				PaymentPlan:  planText,
				Maintenance:  data.Maintenance,
				ClubFees:     data.ClubFees,
				ParkingFees:  data.ParkingFees,
				Finishing:    finishing,
				CashDiscount: data.CashDiscount,
				Status:       data.Status,

				IsSold:    false,
				SoldAt:    nil,
				FirstSeen: now,
				LastSeen:  now,
			})
		}
	}
	return units
}

func ptr[T any](v T) *T { return &v }
