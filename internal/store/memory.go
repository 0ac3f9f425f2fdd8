package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopflow/internal/domain"
)

// MemStore is an in-memory Store used by unit tests. It mirrors the
// postgres semantics, including the conditional status transition.
type MemStore struct {
	mu sync.Mutex

	users       map[int64]*domain.User
	orders      map[int64]*domain.Order
	items       map[int64][]domain.OrderItem
	promoCodes  map[string]*domain.PromoCode
	promoUsages []domain.PromoUsage

	nextUserID  int64
	nextOrderID int64
	nextPromoID int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:      make(map[int64]*domain.User),
		orders:     make(map[int64]*domain.Order),
		items:      make(map[int64][]domain.OrderItem),
		promoCodes: make(map[string]*domain.PromoCode),
	}
}

func (s *MemStore) UpsertUser(_ context.Context, telegramID int64, firstName, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.TelegramID == telegramID {
			u.FirstName = firstName
			u.Username = username
			u.UpdatedAt = time.Now()
			copied := *u
			return &copied, nil
		}
	}

	s.nextUserID++
	now := time.Now()
	u := &domain.User{
		ID:         s.nextUserID,
		TelegramID: telegramID,
		FirstName:  firstName,
		Username:   username,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (s *MemStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *MemStore) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOrderID++
	order.ID = s.nextOrderID
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	items := make([]domain.OrderItem, len(order.Items))
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		items[i] = order.Items[i]
	}

	copied := *order
	copied.Items = nil
	s.orders[order.ID] = &copied
	s.items[order.ID] = items

	return nil
}

func (s *MemStore) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (s *MemStore) GetOrderWithItems(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *o
	copied.Items = append([]domain.OrderItem(nil), s.items[id]...)
	return &copied, nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) UpdateStatusFrom(_ context.Context, id int64, to domain.OrderStatus, from ...domain.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if o.Status == st {
			o.Status = to
			o.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) ListOrdersForUser(_ context.Context, telegramID int64, limit int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var userID int64 = -1
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			userID = u.ID
			break
		}
	}

	orders := []domain.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			copied := *o
			copied.Items = append([]domain.OrderItem(nil), s.items[o.ID]...)
			orders = append(orders, copied)
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *MemStore) ListRecentOrders(_ context.Context, limit int) ([]OrderWithUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []OrderWithUser
	for _, o := range s.orders {
		u, ok := s.users[o.UserID]
		if !ok {
			continue
		}
		result = append(result, OrderWithUser{Order: *o, User: *u})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Order.CreatedAt.After(result[j].Order.CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemStore) GetStats(_ context.Context) (*domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &domain.Stats{}
	for _, o := range s.orders {
		stats.TotalOrders++
		if o.Status != domain.OrderStatusCancelled {
			stats.TotalRevenue += o.TotalAmount
		}
	}
	return stats, nil
}

func (s *MemStore) GetPromoCode(_ context.Context, code string) (*domain.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promoCodes[code]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (s *MemStore) CreatePromoUsage(_ context.Context, promoCodeID, userID, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promoUsages = append(s.promoUsages, domain.PromoUsage{
		ID:          int64(len(s.promoUsages) + 1),
		PromoCodeID: promoCodeID,
		UserID:      userID,
		OrderID:     orderID,
		UsedAt:      time.Now(),
	})
	for _, p := range s.promoCodes {
		if p.ID == promoCodeID {
			p.UsedCount++
		}
	}
	return nil
}

// AddPromoCode seeds a code for tests.
func (s *MemStore) AddPromoCode(p domain.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		s.nextPromoID++
		p.ID = s.nextPromoID
	}
	s.promoCodes[p.Code] = &p
}

// PromoUsageCount reports redemptions recorded, for tests.
func (s *MemStore) PromoUsageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.promoUsages)
}
