package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopflow/internal/domain"
)

// sendTimeout bounds one notification attempt so a stalled channel cannot
// block the triggering operation indefinitely.
const sendTimeout = 10 * time.Second

// Dispatcher formats buyer- and admin-facing order messages and sends them
// through the channel-agnostic Notifier. Buyer and admin attempts are
// independent: one failing never blocks the other, and neither failure
// propagates to the triggering operation.
type Dispatcher struct {
	notifier Notifier
	adminID  int64
}

// NewDispatcher builds a dispatcher. adminID 0 means no administrator is
// configured and admin notifications are skipped entirely.
func NewDispatcher(notifier Notifier, adminID int64) *Dispatcher {
	return &Dispatcher{notifier: notifier, adminID: adminID}
}

func (d *Dispatcher) AdminID() int64 {
	return d.adminID
}

// OrderPlaced sends the buyer confirmation and, when an admin is
// configured, the admin alert with accept/reject controls. Results are
// returned in buyer-first order for the caller to log.
func (d *Dispatcher) OrderPlaced(ctx context.Context, order *domain.Order, user *domain.User, source string) []Result {
	items := formatItems(order.Items)

	buyerText := fmt.Sprintf(
		"✅ *Заказ оформлен!*\n\n📦 `%s`\n\n%s\n\n💰 *Итого: %.0f₽*\n\n⏳ Ожидайте подтверждения!",
		order.OrderNumber, items, order.TotalAmount,
	)
	results := []Result{d.send(ctx, user.TelegramID, buyerText, nil)}

	if d.adminID == 0 {
		return results
	}

	header := "🆕 *НОВЫЙ ЗАКАЗ*"
	if source != "" {
		header = fmt.Sprintf("🆕 *НОВЫЙ ЗАКАЗ (%s)*", source)
	}
	username := "—"
	if user.Username != "" {
		username = "@" + user.Username
	}
	adminText := fmt.Sprintf(
		"%s\n\n📦 `%s`\n👤 %s (%s)\n\n%s\n\n💰 *%.0f₽*",
		header, order.OrderNumber, user.FirstName, username, items, order.TotalAmount,
	)
	results = append(results, d.send(ctx, d.adminID, adminText, AdminOrderKeyboard(order.ID, user.TelegramID)))

	return results
}

// OrderDecided tells the buyer the outcome of an admin decision.
func (d *Dispatcher) OrderDecided(ctx context.Context, order *domain.Order, user *domain.User, accepted bool) Result {
	var text string
	if accepted {
		text = fmt.Sprintf("✅ *Заказ принят!*\n\n📦 `%s`\n\nМы свяжемся для уточнения доставки!", order.OrderNumber)
	} else {
		text = fmt.Sprintf("😔 *Заказ отклонён*\n\n📦 `%s`", order.OrderNumber)
	}

	return d.send(ctx, user.TelegramID, text, nil)
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, markup ReplyMarkup) Result {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	return Result{
		Recipient: chatID,
		Err:       d.notifier.SendMessage(ctx, chatID, text, markup),
	}
}

// AdminOrderKeyboard builds the accept/reject controls attached to an
// admin order alert, plus a direct link to the buyer.
func AdminOrderKeyboard(orderID, buyerTelegramID int64) InlineKeyboard {
	return InlineKeyboard{InlineKeyboard: [][]InlineButton{
		{
			{Text: "✅ Принять", CallbackData: fmt.Sprintf("accept_%d", orderID)},
			{Text: "❌ Отклонить", CallbackData: fmt.Sprintf("reject_%d", orderID)},
		},
		{
			{Text: "📞 Связаться", URL: fmt.Sprintf("tg://user?id=%d", buyerTelegramID)},
		},
	}}
}

func formatItems(items []domain.OrderItem) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, fmt.Sprintf(
			"%d. %s\n   %d × %.0f₽ = %.0f₽",
			i+1, item.ProductName, item.Quantity, item.ProductPrice, item.Subtotal,
		))
	}
	return strings.Join(lines, "\n")
}
