package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"shopflow/internal/domain"
	"shopflow/internal/notify"
	"shopflow/internal/store"
	"shopflow/internal/workflow"
)

const adminID = int64(42)

type apiCall struct {
	Method  string
	Payload map[string]any
}

type fixture struct {
	handler *Handler
	engine  *workflow.Engine
	store   *store.MemStore

	mu    sync.Mutex
	calls []apiCall
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)

		f.mu.Lock()
		f.calls = append(f.calls, apiCall{Method: parts[len(parts)-1], Payload: payload})
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok": true, "result": {}}`)
	}))
	t.Cleanup(server.Close)

	client := notify.NewTelegram("test-token", server.Client(), notify.WithAPIBase(server.URL))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.store = store.NewMemStore()
	dispatcher := notify.NewDispatcher(client, adminID)
	f.engine = workflow.NewEngine(f.store, dispatcher, adminID, logger)
	f.handler = NewHandler(f.engine, client, "https://shop.example/app", logger)

	return f
}

func (f *fixture) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = f.calls[:0]
}

func (f *fixture) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fixture) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func messageFrom(userID int64, text string) notify.Update {
	return notify.Update{
		UpdateID: 1,
		Message: &notify.Message{
			MessageID: 10,
			From:      &notify.Sender{ID: userID, FirstName: "Ivan", Username: "ivan"},
			Chat:      notify.Chat{ID: userID},
			Text:      text,
		},
	}
}

func placeOrder(t *testing.T, f *fixture, telegramID int64) *domain.Order {
	t.Helper()
	order, err := f.engine.PlaceOrder(context.Background(), workflow.PlaceOrderRequest{
		TelegramID: telegramID,
		FirstName:  "Ivan",
		Items:      []workflow.ItemRequest{{ProductID: 1, Name: "Букет", Price: 500, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}
	f.reset()
	return order
}

func TestHandleStart(t *testing.T) {
	t.Run("regular user", func(t *testing.T) {
		f := newFixture(t)

		f.handler.HandleUpdate(context.Background(), messageFrom(1001, "/start"))

		sends := f.callsTo("sendMessage")
		if len(sends) != 1 {
			t.Fatalf("expected 1 message, got %d", len(sends))
		}
		text := sends[0].Payload["text"].(string)
		if strings.Contains(text, "Режим админа") {
			t.Fatalf("regular user saw the admin greeting: %s", text)
		}

		raw, _ := json.Marshal(sends[0].Payload["reply_markup"])
		var kb notify.MenuKeyboard
		if err := json.Unmarshal(raw, &kb); err != nil {
			t.Fatalf("failed to decode keyboard: %v", err)
		}
		if len(kb.Keyboard) != 1 {
			t.Fatalf("expected single keyboard row for regular user, got %d", len(kb.Keyboard))
		}
		if kb.Keyboard[0][0].WebApp == nil || kb.Keyboard[0][0].WebApp.URL != "https://shop.example/app" {
			t.Fatalf("expected web app button, got %+v", kb.Keyboard[0][0])
		}
	})

	t.Run("admin", func(t *testing.T) {
		f := newFixture(t)

		f.handler.HandleUpdate(context.Background(), messageFrom(adminID, "/start"))

		sends := f.callsTo("sendMessage")
		if len(sends) != 1 {
			t.Fatalf("expected 1 message, got %d", len(sends))
		}
		if !strings.Contains(sends[0].Payload["text"].(string), "Режим админа") {
			t.Fatalf("expected admin greeting, got: %s", sends[0].Payload["text"])
		}

		raw, _ := json.Marshal(sends[0].Payload["reply_markup"])
		var kb notify.MenuKeyboard
		if err := json.Unmarshal(raw, &kb); err != nil {
			t.Fatalf("failed to decode keyboard: %v", err)
		}
		if len(kb.Keyboard) != 2 {
			t.Fatalf("expected admin shortcut row, got %d rows", len(kb.Keyboard))
		}
	})
}

func TestHandleOrders(t *testing.T) {
	t.Run("silent for non-admin", func(t *testing.T) {
		f := newFixture(t)

		f.handler.HandleUpdate(context.Background(), messageFrom(1001, "/orders"))

		if n := f.callCount(); n != 0 {
			t.Fatalf("expected no api calls, got %d", n)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		f := newFixture(t)

		f.handler.HandleUpdate(context.Background(), messageFrom(adminID, "/orders"))

		sends := f.callsTo("sendMessage")
		if len(sends) != 1 {
			t.Fatalf("expected 1 message, got %d", len(sends))
		}
		if !strings.Contains(sends[0].Payload["text"].(string), "📭") {
			t.Fatalf("expected empty-list message, got: %s", sends[0].Payload["text"])
		}
	})

	t.Run("lists recent orders", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, 1001)

		f.handler.HandleUpdate(context.Background(), messageFrom(adminID, "📋 Заказы"))

		sends := f.callsTo("sendMessage")
		if len(sends) != 1 {
			t.Fatalf("expected 1 message, got %d", len(sends))
		}
		text := sends[0].Payload["text"].(string)
		if !strings.Contains(text, order.OrderNumber) {
			t.Fatalf("expected order number in listing: %s", text)
		}
		if !strings.Contains(text, "🆕") {
			t.Fatalf("expected status icon in listing: %s", text)
		}
	})
}

func TestHandleStats(t *testing.T) {
	f := newFixture(t)
	placeOrder(t, f, 1001)

	f.handler.HandleUpdate(context.Background(), messageFrom(adminID, "/stats"))

	sends := f.callsTo("sendMessage")
	if len(sends) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sends))
	}
	text := sends[0].Payload["text"].(string)
	if !strings.Contains(text, "Заказов: *1*") {
		t.Fatalf("expected order count in stats: %s", text)
	}
	if !strings.Contains(text, "500") {
		t.Fatalf("expected revenue in stats: %s", text)
	}
}

func TestHandleWebAppOrder(t *testing.T) {
	t.Run("places order", func(t *testing.T) {
		f := newFixture(t)

		payload := `{"items": [{"id": 1, "name": "Букет", "price": 100, "quantity": 2}], "total": 200}`
		upd := messageFrom(1001, "")
		upd.Message.WebAppData = &notify.WebAppData{Data: payload}

		f.handler.HandleUpdate(context.Background(), upd)

		orders, err := f.store.ListOrdersForUser(context.Background(), 1001, 10)
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		if orders[0].TotalAmount != 200 {
			t.Fatalf("expected total 200, got %v", orders[0].TotalAmount)
		}

		// buyer confirmation plus admin alert
		if sends := f.callsTo("sendMessage"); len(sends) != 2 {
			t.Fatalf("expected 2 notifications, got %d", len(sends))
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		f := newFixture(t)

		upd := messageFrom(1001, "")
		upd.Message.WebAppData = &notify.WebAppData{Data: `{broken`}

		f.handler.HandleUpdate(context.Background(), upd)

		orders, err := f.store.ListOrdersForUser(context.Background(), 1001, 10)
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(orders) != 0 {
			t.Fatalf("expected no orders, got %d", len(orders))
		}

		sends := f.callsTo("sendMessage")
		if len(sends) != 1 || !strings.Contains(sends[0].Payload["text"].(string), "❌") {
			t.Fatalf("expected error reply, got %v", sends)
		}
	})
}

func callbackFrom(userID int64, data string) notify.Update {
	return notify.Update{
		UpdateID: 2,
		CallbackQuery: &notify.CallbackQuery{
			ID:   "cb1",
			From: &notify.Sender{ID: userID, FirstName: "Admin"},
			Message: &notify.Message{
				MessageID: 20,
				Chat:      notify.Chat{ID: adminID},
			},
			Data: data,
		},
	}
}

func TestHandleCallback(t *testing.T) {
	t.Run("accept", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, 1001)

		f.handler.HandleUpdate(context.Background(), callbackFrom(adminID, "accept_"+strconv.FormatInt(order.ID, 10)))

		stored, err := f.store.GetOrder(context.Background(), order.ID)
		if err != nil {
			t.Fatalf("failed to load order: %v", err)
		}
		if stored.Status != domain.OrderStatusProcessing {
			t.Fatalf("expected status %s, got %s", domain.OrderStatusProcessing, stored.Status)
		}

		if clears := f.callsTo("editMessageReplyMarkup"); len(clears) != 1 {
			t.Fatalf("expected keyboard cleared once, got %d", len(clears))
		}

		answers := f.callsTo("answerCallbackQuery")
		if len(answers) != 1 || !strings.Contains(answers[0].Payload["text"].(string), "Принят") {
			t.Fatalf("expected accept answer, got %v", answers)
		}

		var sawOutcome bool
		for _, send := range f.callsTo("sendMessage") {
			if strings.Contains(send.Payload["text"].(string), order.OrderNumber) &&
				strings.Contains(send.Payload["text"].(string), "принят") {
				sawOutcome = true
			}
		}
		if !sawOutcome {
			t.Fatal("expected outcome message in admin chat")
		}
	})

	t.Run("reject", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, 1001)

		f.handler.HandleUpdate(context.Background(), callbackFrom(adminID, "reject_"+strconv.FormatInt(order.ID, 10)))

		stored, _ := f.store.GetOrder(context.Background(), order.ID)
		if stored.Status != domain.OrderStatusCancelled {
			t.Fatalf("expected status %s, got %s", domain.OrderStatusCancelled, stored.Status)
		}

		answers := f.callsTo("answerCallbackQuery")
		if len(answers) != 1 || !strings.Contains(answers[0].Payload["text"].(string), "Отклонён") {
			t.Fatalf("expected reject answer, got %v", answers)
		}
	})

	t.Run("non-admin denied", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, 1001)

		f.handler.HandleUpdate(context.Background(), callbackFrom(1001, "accept_"+strconv.FormatInt(order.ID, 10)))

		stored, _ := f.store.GetOrder(context.Background(), order.ID)
		if stored.Status != domain.OrderStatusNew {
			t.Fatalf("expected status unchanged, got %s", stored.Status)
		}

		answers := f.callsTo("answerCallbackQuery")
		if len(answers) != 1 || !strings.Contains(answers[0].Payload["text"].(string), "Доступ запрещён") {
			t.Fatalf("expected denial answer, got %v", answers)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t)

		f.handler.HandleUpdate(context.Background(), callbackFrom(adminID, "accept_9999"))

		answers := f.callsTo("answerCallbackQuery")
		if len(answers) != 1 || !strings.Contains(answers[0].Payload["text"].(string), "не найден") {
			t.Fatalf("expected not-found answer, got %v", answers)
		}
	})

	t.Run("repeat decision", func(t *testing.T) {
		f := newFixture(t)
		order := placeOrder(t, f, 1001)
		data := "accept_" + strconv.FormatInt(order.ID, 10)

		f.handler.HandleUpdate(context.Background(), callbackFrom(adminID, data))
		f.reset()
		f.handler.HandleUpdate(context.Background(), callbackFrom(adminID, data))

		answers := f.callsTo("answerCallbackQuery")
		if len(answers) != 1 || !strings.Contains(answers[0].Payload["text"].(string), "уже обработан") {
			t.Fatalf("expected already-decided answer, got %v", answers)
		}
	})

	t.Run("malformed callback data", func(t *testing.T) {
		f := newFixture(t)

		f.handler.HandleUpdate(context.Background(), callbackFrom(adminID, "accept_abc"))

		answers := f.callsTo("answerCallbackQuery")
		if len(answers) != 1 || !strings.Contains(answers[0].Payload["text"].(string), "не найден") {
			t.Fatalf("expected not-found answer, got %v", answers)
		}
	})

	t.Run("unrelated callback ignored", func(t *testing.T) {
		f := newFixture(t)

		f.handler.HandleUpdate(context.Background(), callbackFrom(adminID, "noop"))

		if n := f.callCount(); n != 0 {
			t.Fatalf("expected no api calls, got %d", n)
		}
	})
}

func TestStatusIcon(t *testing.T) {
	if got := statusIcon(domain.OrderStatusNew); got != "🆕" {
		t.Fatalf("unexpected icon for new: %s", got)
	}
	if got := statusIcon(domain.OrderStatus("weird")); got != "❓" {
		t.Fatalf("expected fallback icon, got %s", got)
	}
}
