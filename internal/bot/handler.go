package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"shopflow/internal/domain"
	"shopflow/internal/notify"
	"shopflow/internal/workflow"
)

const recentOrdersLimit = 20

// Handler routes bot updates: commands, web-app order payloads and the
// admin accept/reject callbacks. It is the chat counterpart of the HTTP
// API and funnels into the same workflow engine.
type Handler struct {
	engine    *workflow.Engine
	client    *notify.Telegram
	webAppURL string
	logger    *slog.Logger
}

func NewHandler(engine *workflow.Engine, client *notify.Telegram, webAppURL string, logger *slog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		client:    client,
		webAppURL: webAppURL,
		logger:    logger,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd notify.Update) {
	switch {
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.WebAppData != nil:
		h.handleWebAppOrder(ctx, upd.Message)
	case upd.Message != nil:
		h.handleCommand(ctx, upd.Message)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *notify.Message) {
	if msg.From == nil {
		return
	}

	switch strings.TrimSpace(msg.Text) {
	case "/start":
		h.handleStart(ctx, msg)
	case "/orders", "📋 Заказы":
		h.handleOrders(ctx, msg)
	case "/stats", "📊 Статистика":
		h.handleStats(ctx, msg)
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *notify.Message) {
	isAdmin := h.engine.IsAdmin(msg.From.ID)

	var text string
	if isAdmin {
		text = fmt.Sprintf("👋 Привет, %s!\n\n👨‍💼 *Режим админа*\n\n/orders - Заказы\n/stats - Статистика", msg.From.FirstName)
	} else {
		text = fmt.Sprintf("👋 Привет, %s!\n\n🛍️ Добро пожаловать в *Shop*!", msg.From.FirstName)
	}

	keyboard := MainKeyboard(isAdmin, h.webAppURL)
	if err := h.client.SendMessage(ctx, msg.Chat.ID, text, keyboard); err != nil {
		h.logger.Error("failed to send start menu", "error", err, "chat_id", msg.Chat.ID)
	}
}

func (h *Handler) handleOrders(ctx context.Context, msg *notify.Message) {
	// admin surface: silently ignored for everyone else, as the source does
	if !h.engine.IsAdmin(msg.From.ID) {
		return
	}

	rows, err := h.engine.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		h.logger.Error("failed to list recent orders", "error", err)
		return
	}

	if len(rows) == 0 {
		h.reply(ctx, msg.Chat.ID, "📭 Заказов нет")
		return
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s `%s`\n👤 %s • %.0f₽",
			statusIcon(row.Order.Status), row.Order.OrderNumber, row.User.FirstName, row.Order.TotalAmount))
	}

	h.reply(ctx, msg.Chat.ID, "📋 *ЗАКАЗЫ*\n\n"+strings.Join(lines, "\n\n"))
}

func (h *Handler) handleStats(ctx context.Context, msg *notify.Message) {
	if !h.engine.IsAdmin(msg.From.ID) {
		return
	}

	stats, err := h.engine.Stats(ctx)
	if err != nil {
		h.logger.Error("failed to load stats", "error", err)
		return
	}

	h.reply(ctx, msg.Chat.ID, fmt.Sprintf(
		"📊 *СТАТИСТИКА*\n\n📦 Заказов: *%d*\n💰 Выручка: *%.0f₽*",
		stats.TotalOrders, stats.TotalRevenue))
}

type webAppItem struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type webAppOrder struct {
	Items          []webAppItem `json:"items"`
	Total          float64      `json:"total"`
	PromoCode      string       `json:"promoCode"`
	DiscountAmount float64      `json:"discountAmount"`
}

func (h *Handler) handleWebAppOrder(ctx context.Context, msg *notify.Message) {
	if msg.From == nil {
		return
	}

	var payload webAppOrder
	if err := json.Unmarshal([]byte(msg.WebAppData.Data), &payload); err != nil {
		h.logger.Error("failed to parse web app order", "error", err, "telegram_id", msg.From.ID)
		h.reply(ctx, msg.Chat.ID, "❌ Ошибка обработки заказа")
		return
	}

	items := make([]workflow.ItemRequest, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, workflow.ItemRequest{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	_, err := h.engine.PlaceOrder(ctx, workflow.PlaceOrderRequest{
		TelegramID:     msg.From.ID,
		FirstName:      msg.From.FirstName,
		Username:       msg.From.Username,
		Items:          items,
		DeclaredTotal:  payload.Total,
		PromoCode:      payload.PromoCode,
		DiscountAmount: payload.DiscountAmount,
	})
	if err != nil {
		h.logger.Error("failed to place bot order", "error", err, "telegram_id", msg.From.ID)
		h.reply(ctx, msg.Chat.ID, "❌ Ошибка обработки заказа")
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *notify.CallbackQuery) {
	if cb.From == nil {
		return
	}

	accept := strings.HasPrefix(cb.Data, "accept_")
	reject := strings.HasPrefix(cb.Data, "reject_")
	if !accept && !reject {
		return
	}

	orderID, err := strconv.ParseInt(cb.Data[strings.Index(cb.Data, "_")+1:], 10, 64)
	if err != nil {
		h.answer(ctx, cb.ID, "❌ Заказ не найден")
		return
	}

	order, err := h.engine.Decide(ctx, orderID, accept, cb.From.ID)
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		h.answer(ctx, cb.ID, "❌ Доступ запрещён")
		return
	case errors.Is(err, domain.ErrNotFound):
		h.answer(ctx, cb.ID, "❌ Заказ не найден")
		return
	case errors.Is(err, domain.ErrAlreadyDecided):
		h.answer(ctx, cb.ID, "⚠️ Заказ уже обработан")
		return
	case err != nil:
		h.logger.Error("failed to decide order", "error", err, "order_id", orderID)
		h.answer(ctx, cb.ID, "❌ Ошибка")
		return
	}

	if cb.Message != nil {
		// best effort: the buttons may already be gone
		if err := h.client.ClearInlineKeyboard(ctx, cb.Message.Chat.ID, cb.Message.MessageID); err != nil {
			h.logger.Warn("failed to clear order keyboard", "error", err, "order_id", orderID)
		}

		outcome := fmt.Sprintf("✅ Заказ `%s` принят", order.OrderNumber)
		if !accept {
			outcome = fmt.Sprintf("❌ Заказ `%s` отклонён", order.OrderNumber)
		}
		h.reply(ctx, cb.Message.Chat.ID, outcome)
	}

	if accept {
		h.answer(ctx, cb.ID, "✅ Принят")
	} else {
		h.answer(ctx, cb.ID, "❌ Отклонён")
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.client.SendMessage(ctx, chatID, text, nil); err != nil {
		h.logger.Error("failed to send bot reply", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if err := h.client.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		h.logger.Error("failed to answer callback", "error", err)
	}
}
