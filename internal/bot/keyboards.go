package bot

import (
	"shopflow/internal/domain"
	"shopflow/internal/notify"
)

// MainKeyboard is the persistent menu: the shop web-app button for
// everyone, plus the admin shortcuts for the configured admin.
func MainKeyboard(isAdmin bool, webAppURL string) notify.MenuKeyboard {
	rows := [][]notify.KeyboardButton{
		{{Text: "🛍️ Открыть магазин", WebApp: &notify.WebAppInfo{URL: webAppURL}}},
	}
	if isAdmin {
		rows = append(rows, []notify.KeyboardButton{
			{Text: "📊 Статистика"}, {Text: "📋 Заказы"},
		})
	}
	return notify.MenuKeyboard{Keyboard: rows, ResizeKeyboard: true}
}

var statusIcons = map[domain.OrderStatus]string{
	domain.OrderStatusNew:        "🆕",
	domain.OrderStatusProcessing: "⏳",
	domain.OrderStatusPaid:       "💳",
	domain.OrderStatusShipped:    "🚚",
	domain.OrderStatusDelivered:  "✅",
	domain.OrderStatusCancelled:  "❌",
}

func statusIcon(status domain.OrderStatus) string {
	if icon, ok := statusIcons[status]; ok {
		return icon
	}
	return "❓"
}
