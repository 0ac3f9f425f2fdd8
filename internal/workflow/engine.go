package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shopflow/internal/domain"
	"shopflow/internal/notify"
	"shopflow/internal/store"
	"shopflow/internal/telemetry"
)

// EventPublisher publishes order lifecycle events to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Engine owns the order lifecycle: creation with authoritative totals,
// the status state machine, and the rule that every creation and every
// transition triggers best-effort notifications.
type Engine struct {
	store      store.Store
	dispatcher *notify.Dispatcher
	numbers    *NumberGenerator
	adminID    int64
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	publisher  EventPublisher
}

type EngineOption func(*Engine)

// WithPublisher attaches an event stream; without it events are dropped.
func WithPublisher(p EventPublisher) EngineOption {
	return func(e *Engine) {
		e.publisher = p
	}
}

func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(st store.Store, dispatcher *notify.Dispatcher, adminID int64, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      st,
		dispatcher: dispatcher,
		numbers:    NewNumberGenerator(),
		adminID:    adminID,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ItemRequest is one cart line as submitted by an ingress adapter. Name
// and price become the order-time snapshot; the subtotal is recomputed.
type ItemRequest struct {
	ProductID int64
	Name      string
	Price     float64
	Quantity  int
}

// PlaceOrderRequest is a validated cart submission. DeclaredTotal is an
// audit hint only; the engine never trusts it.
type PlaceOrderRequest struct {
	TelegramID     int64
	FirstName      string
	Username       string
	Items          []ItemRequest
	DeclaredTotal  float64
	PromoCode      string
	DiscountAmount float64
	Source         string
}

// PlaceOrder validates the cart, persists user + order + items, then
// attempts buyer and admin notifications and the event publish. Failures
// past the commit are logged and swallowed: the order stands.
func (e *Engine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	items, subtotal, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.DiscountAmount < 0 {
		return nil, fmt.Errorf("%w: negative discount", domain.ErrValidation)
	}
	if req.DiscountAmount > subtotal {
		return nil, fmt.Errorf("%w: discount %.2f exceeds subtotal %.2f", domain.ErrValidation, req.DiscountAmount, subtotal)
	}

	total := subtotal - req.DiscountAmount
	if req.DeclaredTotal != 0 && req.DeclaredTotal != total {
		e.logger.Warn("declared total differs from computed total",
			"declared", req.DeclaredTotal, "computed", total, "telegram_id", req.TelegramID)
	}

	user, err := e.store.UpsertUser(ctx, req.TelegramID, req.FirstName, req.Username)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:         user.ID,
		OrderNumber:    e.numbers.Next(time.Now()),
		Status:         domain.OrderStatusNew,
		TotalAmount:    total,
		PromoCode:      req.PromoCode,
		DiscountAmount: req.DiscountAmount,
		Items:          items,
	}
	if err := e.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	e.recordPromoUsage(ctx, order, user)

	for _, res := range e.dispatcher.OrderPlaced(ctx, order, user, req.Source) {
		e.logNotification("order placed", order, res)
	}

	e.publish(ctx, order.OrderNumber, domain.OrderPlacedEvent{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TelegramID:  user.TelegramID,
		Total:       order.TotalAmount,
		Items:       order.Items,
		Timestamp:   order.CreatedAt,
	})

	e.metrics.OrderPlaced(ctx)
	e.logger.Info("order placed", "order_number", order.OrderNumber, "order_id", order.ID,
		"telegram_id", user.TelegramID, "total", order.TotalAmount)

	return order, nil
}

// Decide applies an admin accept/reject to an order. Accept moves
// new → processing, reject moves new/processing → cancelled. A second
// decision on an already-decided order is rejected, and the conditional
// update guarantees concurrent decisions cannot both win.
func (e *Engine) Decide(ctx context.Context, orderID int64, accept bool, actingAdminID int64) (*domain.Order, error) {
	if e.adminID == 0 || actingAdminID != e.adminID {
		return nil, domain.ErrPermissionDenied
	}

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	target := domain.OrderStatusProcessing
	from := []domain.OrderStatus{domain.OrderStatusNew}
	if !accept {
		target = domain.OrderStatusCancelled
		from = []domain.OrderStatus{domain.OrderStatusNew, domain.OrderStatusProcessing}
	}

	changed, err := e.store.UpdateStatusFrom(ctx, orderID, target, from...)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, domain.ErrAlreadyDecided
	}
	order.Status = target

	user, err := e.store.GetUser(ctx, order.UserID)
	if err != nil {
		e.logger.Error("failed to load buyer for decision notice", "error", err, "order_id", orderID)
	} else if user != nil {
		e.logNotification("order decided", order, e.dispatcher.OrderDecided(ctx, order, user, accept))
	}

	e.publish(ctx, order.OrderNumber, domain.OrderDecidedEvent{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Timestamp:   time.Now().UTC(),
	})

	e.metrics.OrderDecided(ctx, accept)
	e.logger.Info("order decided", "order_number", order.OrderNumber, "status", order.Status)

	return order, nil
}

func (e *Engine) UserOrders(ctx context.Context, telegramID int64, limit int) ([]domain.Order, error) {
	return e.store.ListOrdersForUser(ctx, telegramID, limit)
}

func (e *Engine) RecentOrders(ctx context.Context, limit int) ([]store.OrderWithUser, error) {
	return e.store.ListRecentOrders(ctx, limit)
}

func (e *Engine) Stats(ctx context.Context) (*domain.Stats, error) {
	return e.store.GetStats(ctx)
}

func (e *Engine) OrderWithItems(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := e.store.GetOrderWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// IsAdmin reports whether id is the configured administrator identity.
func (e *Engine) IsAdmin(id int64) bool {
	return e.adminID != 0 && id == e.adminID
}

func buildItems(reqs []ItemRequest) ([]domain.OrderItem, float64, error) {
	if len(reqs) == 0 {
		return nil, 0, fmt.Errorf("%w: empty item list", domain.ErrValidation)
	}

	items := make([]domain.OrderItem, 0, len(reqs))
	var subtotal float64
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: quantity %d for %q", domain.ErrValidation, r.Quantity, r.Name)
		}
		if r.Price < 0 {
			return nil, 0, fmt.Errorf("%w: negative price for %q", domain.ErrValidation, r.Name)
		}
		sub := r.Price * float64(r.Quantity)
		items = append(items, domain.OrderItem{
			ProductID:    r.ProductID,
			ProductName:  r.Name,
			ProductPrice: r.Price,
			Quantity:     r.Quantity,
			Subtotal:     sub,
		})
		subtotal += sub
	}

	return items, subtotal, nil
}

// recordPromoUsage writes the redemption ledger row when the submitted
// code exists. Code validation itself is not implemented yet, so a
// missing or inactive code is ignored rather than rejected.
func (e *Engine) recordPromoUsage(ctx context.Context, order *domain.Order, user *domain.User) {
	if order.PromoCode == "" {
		return
	}

	promo, err := e.store.GetPromoCode(ctx, order.PromoCode)
	if err != nil {
		e.logger.Error("failed to look up promo code", "error", err, "code", order.PromoCode)
		return
	}
	if promo == nil {
		return
	}

	if err := e.store.CreatePromoUsage(ctx, promo.ID, user.ID, order.ID); err != nil {
		e.logger.Error("failed to record promo usage", "error", err, "code", order.PromoCode, "order_id", order.ID)
	}
}

func (e *Engine) logNotification(event string, order *domain.Order, res notify.Result) {
	if res.Ok() {
		return
	}
	e.metrics.NotificationFailed(context.Background())
	e.logger.Error("notification failed", "event", event, "error", res.Err,
		"recipient", res.Recipient, "order_number", order.OrderNumber)
}

func (e *Engine) publish(ctx context.Context, key string, event any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Error("failed to publish order event", "error", err, "key", key)
	}
}
