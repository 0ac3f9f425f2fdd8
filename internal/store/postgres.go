package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"shopflow/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) UpsertUser(ctx context.Context, telegramID int64, firstName, username string) (*domain.User, error) {
	user := &domain.User{}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (telegram_id, first_name, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    username = EXCLUDED.username,
		    updated_at = NOW()
		RETURNING id, telegram_id, COALESCE(username, ''), COALESCE(first_name, ''),
		          COALESCE(last_name, ''), COALESCE(phone_number, ''), created_at, updated_at
	`, telegramID, firstName, username).Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.FirstName,
		&user.LastName, &user.Phone, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user := &domain.User{}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, COALESCE(username, ''), COALESCE(first_name, ''),
		       COALESCE(last_name, ''), COALESCE(phone_number, ''), created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.FirstName,
		&user.LastName, &user.Phone, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, order_number, status, total_amount, promo_code, discount_amount, notes)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''))
		RETURNING id, created_at, updated_at
	`, order.UserID, order.OrderNumber, order.Status, order.TotalAmount,
		order.PromoCode, order.DiscountAmount, order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, product_price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.OrderID, item.ProductID, item.ProductName, item.ProductPrice, item.Quantity, item.Subtotal)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, order_number, status, total_amount,
		       COALESCE(promo_code, ''), discount_amount, COALESCE(notes, ''), created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.UserID, &order.OrderNumber, &order.Status, &order.TotalAmount,
		&order.PromoCode, &order.DiscountAmount, &order.Notes, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

func (s *PostgresStore) GetOrderWithItems(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil || order == nil {
		return order, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, product_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.ProductName,
			&item.ProductPrice, &item.Quantity, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return order, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (s *PostgresStore) UpdateStatusFrom(ctx context.Context, id int64, to domain.OrderStatus, from ...domain.OrderStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`, to, id, pq.Array(allowed))
	if err != nil {
		return false, fmt.Errorf("transition order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition order status: %w", err)
	}

	return rowsAffected > 0, nil
}

func (s *PostgresStore) ListOrdersForUser(ctx context.Context, telegramID int64, limit int) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.user_id, o.order_number, o.status, o.total_amount,
		       COALESCE(o.promo_code, ''), o.discount_amount, COALESCE(o.notes, ''), o.created_at, o.updated_at
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE u.telegram_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2
	`, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[int64]*domain.Order)
	var orderIDs []int64

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.OrderNumber, &order.Status, &order.TotalAmount,
			&order.PromoCode, &order.DiscountAmount, &order.Notes, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, product_price, quantity, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.OrderID, &item.ProductID, &item.ProductName,
			&item.ProductPrice, &item.Quantity, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order := orderMap[item.OrderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (s *PostgresStore) ListRecentOrders(ctx context.Context, limit int) ([]OrderWithUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.user_id, o.order_number, o.status, o.total_amount,
		       COALESCE(o.promo_code, ''), o.discount_amount, o.created_at, o.updated_at,
		       u.id, u.telegram_id, COALESCE(u.username, ''), COALESCE(u.first_name, '')
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []OrderWithUser
	for rows.Next() {
		var row OrderWithUser
		if err := rows.Scan(&row.Order.ID, &row.Order.UserID, &row.Order.OrderNumber, &row.Order.Status,
			&row.Order.TotalAmount, &row.Order.PromoCode, &row.Order.DiscountAmount,
			&row.Order.CreatedAt, &row.Order.UpdatedAt,
			&row.User.ID, &row.User.TelegramID, &row.User.Username, &row.User.FirstName); err != nil {
			return nil, fmt.Errorf("scan recent order: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent orders: %w", err)
	}

	return result, nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(id), COALESCE(SUM(total_amount) FILTER (WHERE status <> 'cancelled'), 0)
		FROM orders
	`).Scan(&stats.TotalOrders, &stats.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	return stats, nil
}

func (s *PostgresStore) GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	promo := &domain.PromoCode{}
	var maxUses sql.NullInt64
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, discount_type, discount_value, min_order_amount,
		       max_uses, used_count, expires_at, is_active, created_at
		FROM promo_codes
		WHERE code = $1
	`, code).Scan(
		&promo.ID, &promo.Code, &promo.DiscountType, &promo.DiscountValue, &promo.MinOrderAmount,
		&maxUses, &promo.UsedCount, &expiresAt, &promo.IsActive, &promo.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get promo code: %w", err)
	}

	if maxUses.Valid {
		promo.MaxUses = int(maxUses.Int64)
	}
	if expiresAt.Valid {
		promo.ExpiresAt = &expiresAt.Time
	}

	return promo, nil
}

func (s *PostgresStore) CreatePromoUsage(ctx context.Context, promoCodeID, userID, orderID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promo usage: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO promo_usage (promo_code_id, user_id, order_id)
		VALUES ($1, $2, $3)
	`, promoCodeID, userID, orderID)
	if err != nil {
		return fmt.Errorf("insert promo usage: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE promo_codes SET used_count = used_count + 1
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)
	`, promoCodeID)
	if err != nil {
		return fmt.Errorf("bump promo used count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promo usage: %w", err)
	}

	return nil
}
