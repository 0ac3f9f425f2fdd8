package domain

import "time"

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is one purchase intent. The order number is assigned at creation and
// never changes; the total is computed server-side, never taken from a client.
type Order struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	OrderNumber    string      `json:"order_number"`
	Status         OrderStatus `json:"status"`
	TotalAmount    float64     `json:"total_amount"`
	PromoCode      string      `json:"promo_code,omitempty"`
	DiscountAmount float64     `json:"discount_amount"`
	Notes          string      `json:"notes,omitempty"`
	Items          []OrderItem `json:"items,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderItem snapshots the product name and price at order time. The subtotal
// is always price × quantity, recomputed before persisting.
type OrderItem struct {
	OrderID      int64   `json:"order_id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductPrice float64 `json:"product_price"`
	Quantity     int     `json:"quantity"`
	Subtotal     float64 `json:"subtotal"`
}

// Stats is the admin order summary. Revenue excludes cancelled orders.
type Stats struct {
	TotalOrders  int64   `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
}
