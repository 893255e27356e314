package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ahmedelsayed5113/sells-project-1/models"
)

// ReadUnitsCSV parses a bulk-import CSV into units. The first row is a
// header of column names matching the units table; unknown columns are
// ignored and missing values stay null.
func ReadUnitsCSV(path string) ([]*models.Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["detail_id"]; !ok {
		return nil, fmt.Errorf("csv: %q has no detail_id column", path)
	}

	now := time.Now()
	var units []*models.Unit
	for _, row := range rows[1:] {
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		detailID, err := strconv.ParseInt(field("detail_id"), 10, 64)
		if err != nil {
			continue
		}

		u := &models.Unit{
			DetailID:     detailID,
			CityName:     field("city_name"),
			CityID:       csvInt(field("city_id")),
			CompoundName: field("compound_name"),
			CompoundID:   csvInt(field("compound_id")),
			DevName:      field("developer_name"),
			DevID:        csvInt(field("developer_id")),
			PhaseName:    csvString(field("phase_name")),
			PhaseID:      csvInt(field("phase_id")),

			UnitType: field("unit_type"),
			SubType:  csvString(field("sub_type")),
			TypeID:   csvInt(field("type_id")),
			Bedrooms: csvInt(field("bedrooms")),
			Outdoor:  csvBool(field("outdoor_area")),

			BuiltUpArea:   csvFloat(field("built_up_area_sqm")),
			TotalPrice:    csvFloat(field("total_price_egp")),
			TotalPriceTo:  csvFloat(field("total_price_to_egp")),
			CashPriceFrom: csvFloat(field("cash_price_from_egp")),
			CashPriceTo:   csvFloat(field("cash_price_to_egp")),

			DeliveryFrom: csvInt(field("delivery_from_months")),
			DeliveryTo:   csvInt(field("delivery_to_months")),
			PaymentPlan:  field("payment_plan"),
			Maintenance:  csvFloat(field("maintenance")),
			ClubFees:     csvFloat(field("club_fees")),
			ParkingFees:  csvFloat(field("parking_fees")),
			Finishing:    field("finishing_type"),
			CashDiscount: csvFloat(field("cash_discount_percent")),
			Status:       csvInt(field("status")),

			FirstSeen: now,
			LastSeen:  now,
		}
		u.PricePerSqm = models.PricePerSqmOf(u.TotalPrice, u.BuiltUpArea)
		units = append(units, u)
	}
	return units, nil
}

func csvString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func csvFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func csvInt(s string) *int64 {
	if s == "" {
		return nil
	}
	// Pandas exports integers with a trailing .0; tolerate that.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int64(f)
		return &n
	}
	return nil
}

func csvBool(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return nil
	}
	return &b
}
