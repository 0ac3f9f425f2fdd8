package store

import (
	"context"

	"shopflow/internal/domain"
)

// OrderWithUser pairs an order with its buyer for admin listings.
type OrderWithUser struct {
	Order domain.Order
	User  domain.User
}

// Store is the persistence boundary for users, orders and promo codes.
// Each method is one atomic unit: an order and its items commit together
// or not at all. Lookups return (nil, nil) when the row does not exist;
// mutations return domain.ErrNotFound.
type Store interface {
	UpsertUser(ctx context.Context, telegramID int64, firstName, username string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	GetOrderWithItems(ctx context.Context, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	// UpdateStatusFrom transitions only if the current status is one of
	// from, and reports whether a row changed. Concurrent decisions on the
	// same order cannot both win.
	UpdateStatusFrom(ctx context.Context, id int64, to domain.OrderStatus, from ...domain.OrderStatus) (bool, error)

	ListOrdersForUser(ctx context.Context, telegramID int64, limit int) ([]domain.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]OrderWithUser, error)
	GetStats(ctx context.Context) (*domain.Stats, error)

	GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error)
	CreatePromoUsage(ctx context.Context, promoCodeID, userID, orderID int64) error
}
