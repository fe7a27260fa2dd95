package order

import (
	"math"
	"testing"
)

func sampleProducts() []OrderProduct {
	return []OrderProduct{
		{Product: Product{Code: "COMIC_BOOKS", UnitValue: 15.5}, Quantity: 2},
		{Product: Product{Code: "BOOKS", UnitValue: 9.9}, Quantity: 1},
	}
}

func TestOrder_Totals(t *testing.T) {
	ord := Order{Products: sampleProducts()}
	amount, items := ord.Totals()
	if math.Abs(amount-40.9) > 1e-9 {
		t.Errorf("amount = %v, want 40.9", amount)
	}
	if items != 3 {
		t.Errorf("items = %d, want 3", items)
	}
}

func TestOrder_Totals_Empty(t *testing.T) {
	amount, items := Order{}.Totals()
	if amount != 0 || items != 0 {
		t.Errorf("empty order totals = (%v, %d), want (0, 0)", amount, items)
	}
}

func TestOrder_Validate(t *testing.T) {
	cases := []struct {
		name     string
		products []OrderProduct
		wantErr  bool
	}{
		{"valid", sampleProducts(), false},
		{"empty list", nil, true},
		{"missing code", []OrderProduct{{Product: Product{UnitValue: 1}, Quantity: 1}}, true},
		{"zero quantity", []OrderProduct{{Product: Product{Code: "BOOKS", UnitValue: 1}, Quantity: 0}}, true},
		{"negative quantity", []OrderProduct{{Product: Product{Code: "BOOKS", UnitValue: 1}, Quantity: -2}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Order{Products: tc.products}.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
