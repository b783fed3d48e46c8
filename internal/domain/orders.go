package domain

import "time"

// OrderStatus enumerates the lifecycle of an order.
type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusShipped        OrderStatus = "Shipped"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
	OrderStatusPendingPayment OrderStatus = "Pending payment processing"
)

// SalesStatuses are the statuses whose lines count toward best-seller ranking.
var SalesStatuses = []OrderStatus{OrderStatusShipped, OrderStatusDelivered, OrderStatusPendingPayment}

// Order is a customer purchase.
type Order struct {
	ID            string
	OrderUserID   string
	OrderDate     time.Time
	ShipAddress   string
	ShipPrice     float64
	Discount      float64
	TotalPrice    float64
	Status        OrderStatus
	PaymentMethod string
	Note          string
	IsDeleted     bool
	Audit
}

// OrderDetail is one line of an order. UnitPrice and Discount are copies taken at order time.
type OrderDetail struct {
	ID              string
	OrderID         string
	FlowerID        string
	UnitPrice       float64
	Discount        float64
	NumberOfFlowers int
}

// FlowerSales is the summed quantity sold for one flower.
type FlowerSales struct {
	FlowerID string
	Quantity int64
}
