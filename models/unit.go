package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is one canonical listing record, keyed by the upstream DetailID.
// Pointer fields are nullable in the store; the upstream source omits them
// freely.
type Unit struct {
	DetailID int64 `json:"detail_id"`

	CityName     string  `json:"city_name"`
	CityID       *int64  `json:"city_id"`
	CompoundName string  `json:"compound_name"`
	CompoundID   *int64  `json:"compound_id"`
	DevName      string  `json:"developer_name"`
	DevID        *int64  `json:"developer_id"`
	PhaseName    *string `json:"phase_name"`
	PhaseID      *int64  `json:"phase_id"`

	UnitType string  `json:"unit_type"`
	SubType  *string `json:"sub_type"`
	TypeID   *int64  `json:"type_id"`
	Bedrooms *int64  `json:"bedrooms"`
	Outdoor  *bool   `json:"outdoor_area"`

	BuiltUpArea   *float64 `json:"built_up_area_sqm"`
	TotalPrice    *float64 `json:"total_price_egp"`
	TotalPriceTo  *float64 `json:"total_price_to_egp"`
	PricePerSqm   *float64 `json:"price_per_sqm_egp"`
	CashPriceFrom *float64 `json:"cash_price_from_egp"`
	CashPriceTo   *float64 `json:"cash_price_to_egp"`

	DeliveryFrom *int64   `json:"delivery_from_months"`
	DeliveryTo   *int64   `json:"delivery_to_months"`
	PaymentPlan  string   `json:"payment_plan"`
	Maintenance  *float64 `json:"maintenance"`
	ClubFees     *float64 `json:"club_fees"`
	ParkingFees  *float64 `json:"parking_fees"`
	Finishing    string   `json:"finishing_type"`
	CashDiscount *float64 `json:"cash_discount_percent"`
	Status       *int64   `json:"status"`

	IsSold    bool       `json:"is_sold"`
	SoldAt    *time.Time `json:"sold_at,omitempty"`
	FirstSeen time.Time  `json:"first_seen"`
	LastSeen  time.Time  `json:"last_seen"`
}

// PricePerSqmOf derives the per-sqm price from a total price and a built-up
// area, rounded to two decimals. Returns nil when either input is missing or
// the area is zero.
func PricePerSqmOf(totalPrice, builtUpArea *float64) *float64 {
	if totalPrice == nil || builtUpArea == nil || *builtUpArea == 0 {
		return nil
	}
	per, _ := decimal.NewFromFloat(*totalPrice).
		Div(decimal.NewFromFloat(*builtUpArea)).
		Round(2).
		Float64()
	return &per
}

// MutationSet is the store mutation plan computed by one reconcile pass.
// It is applied as a single transaction: all of it or none of it.
type MutationSet struct {
	Now time.Time

	Inserts []*Unit
	Updates []*Unit
	Touches []int64
	SoldIDs []int64

	Coverage    float64
	SoldSkipped bool
}

// SyncResult summarises one completed sync cycle.
type SyncResult struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Sold    int `json:"sold"`

	FreshTotal    int     `json:"fresh_total"`
	ExistingTotal int     `json:"existing_total"`
	Coverage      float64 `json:"coverage"`
	SoldSkipped   bool    `json:"sold_skipped"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"-"`
}

// StatsReport holds the aggregate numbers served by the stats endpoint.
type StatsReport struct {
	Total     int      `json:"total"`
	Sold      int      `json:"sold"`
	AvgPrice  *float64 `json:"avg_price"`
	MinPrice  *float64 `json:"min_price"`
	MaxPrice  *float64 `json:"max_price"`
	Compounds int      `json:"compounds"`
}
