package domain

// RecomputeOrderTotal derives an order's total from its shipping price, order-level
// discount and every line's price, line discount and quantity. Discounts are
// percentages in [0, 100]. The result is not rounded.
func RecomputeOrderTotal(order Order, details []OrderDetail) float64 {
	lines := 0.0
	for _, d := range details {
		lines += LineTotal(d)
	}
	return (order.ShipPrice + lines) * (1 - order.Discount/100)
}

// LineTotal is unitPrice × numberOfFlowers less the line discount.
func LineTotal(d OrderDetail) float64 {
	return d.UnitPrice * float64(d.NumberOfFlowers) * (1 - d.Discount/100)
}
