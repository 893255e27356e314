package models

import "testing"

func fp(v float64) *float64 { return &v }

func TestPricePerSqmOf(t *testing.T) {
	tests := []struct {
		name  string
		price *float64
		area  *float64
		want  *float64
	}{
		{"round number", fp(1000000), fp(200), fp(5000.00)},
		{"rounded to two decimals", fp(1000000), fp(300), fp(3333.33)},
		{"zero area", fp(1000000), fp(0), nil},
		{"missing area", fp(1000000), nil, nil},
		{"missing price", nil, fp(200), nil},
		{"both missing", nil, nil, nil},
	}

	for _, tt := range tests {
		got := PricePerSqmOf(tt.price, tt.area)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("%s: got %v, want nil", tt.name, *got)
		case tt.want != nil && got == nil:
			t.Errorf("%s: got nil, want %v", tt.name, *tt.want)
		case tt.want != nil && *got != *tt.want:
			t.Errorf("%s: got %v, want %v", tt.name, *got, *tt.want)
		}
	}
}
