package domain

import "time"

type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

// PromoCode is a discount definition. Validation against orders is not
// implemented yet; the model and the redemption ledger exist so the schema
// does not need to change when it lands.
type PromoCode struct {
	ID             int64        `json:"id"`
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discount_type"`
	DiscountValue  float64      `json:"discount_value"`
	MinOrderAmount float64      `json:"min_order_amount"`
	MaxUses        int          `json:"max_uses,omitempty"`
	UsedCount      int          `json:"used_count"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	IsActive       bool         `json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PromoUsage records one redemption of a code by a user on an order.
type PromoUsage struct {
	ID          int64     `json:"id"`
	PromoCodeID int64     `json:"promo_code_id"`
	UserID      int64     `json:"user_id"`
	OrderID     int64     `json:"order_id"`
	UsedAt      time.Time `json:"used_at"`
}
