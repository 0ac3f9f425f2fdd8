package domain

import "time"

// OrderPlacedEvent is published after an order and its items are committed.
type OrderPlacedEvent struct {
	EventID     string      `json:"event_id"`
	OrderID     int64       `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	TelegramID  int64       `json:"telegram_id"`
	Total       float64     `json:"total"`
	Items       []OrderItem `json:"items"`
	Timestamp   time.Time   `json:"timestamp"`
}

// OrderDecidedEvent is published after an admin accepts or rejects an order.
type OrderDecidedEvent struct {
	EventID     string      `json:"event_id"`
	OrderID     int64       `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
}
