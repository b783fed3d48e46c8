package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeOrderTotal(t *testing.T) {
	cases := []struct {
		name    string
		order   Order
		details []OrderDetail
		want    float64
	}{
		{
			name:  "no lines only shipping",
			order: Order{ShipPrice: 30000},
			want:  30000,
		},
		{
			name:  "line and order discounts",
			order: Order{ShipPrice: 20000, Discount: 10},
			details: []OrderDetail{
				{UnitPrice: 100000, Discount: 20, NumberOfFlowers: 2},
				{UnitPrice: 50000, NumberOfFlowers: 1},
			},
			// (20000 + 160000 + 50000) * 0.9
			want: 207000,
		},
		{
			name:    "full order discount",
			order:   Order{ShipPrice: 10, Discount: 100},
			details: []OrderDetail{{UnitPrice: 5, NumberOfFlowers: 3}},
			want:    0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, RecomputeOrderTotal(tc.order, tc.details), 1e-9)
		})
	}
}

func TestRecomputeOrderTotalIsIdempotent(t *testing.T) {
	order := Order{ShipPrice: 15000, Discount: 5}
	details := []OrderDetail{
		{UnitPrice: 120000, Discount: 12.5, NumberOfFlowers: 3},
		{UnitPrice: 9999, Discount: 0, NumberOfFlowers: 7},
	}
	first := RecomputeOrderTotal(order, details)
	order.TotalPrice = first
	second := RecomputeOrderTotal(order, details)
	assert.Equal(t, first, second)
}

func TestFlowerPriceChanged(t *testing.T) {
	base := Flower{UnitPrice: 100, Discount: 5}
	assert.False(t, base.PriceChanged(Flower{UnitPrice: 100, Discount: 5, Name: "renamed"}))
	assert.True(t, base.PriceChanged(Flower{UnitPrice: 110, Discount: 5}))
	assert.True(t, base.PriceChanged(Flower{UnitPrice: 100, Discount: 6}))
}

func TestListQueryPaging(t *testing.T) {
	q := ListQuery{PageNumber: 3, PageSize: 10}
	assert.EqualValues(t, 20, q.Skip())
	assert.EqualValues(t, 10, q.Limit())

	q.IsExport = true
	assert.EqualValues(t, 0, q.Skip())
	assert.EqualValues(t, 0, q.Limit())
}
