package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram is a minimal Bot API client covering what the shop needs:
// outbound messages with optional keyboards, long-poll updates and
// callback acknowledgement.
type Telegram struct {
	apiBase    string
	token      string
	httpClient *http.Client
}

type TelegramOption func(*Telegram)

// WithAPIBase points the client at a different API host, used by tests.
func WithAPIBase(base string) TelegramOption {
	return func(t *Telegram) {
		t.apiBase = base
	}
}

func NewTelegram(token string, client *http.Client, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		apiBase:    defaultAPIBase,
		token:      token,
		httpClient: client,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update is one long-poll event: either a message or a callback query.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type Message struct {
	MessageID  int64       `json:"message_id"`
	From       *Sender     `json:"from,omitempty"`
	Chat       Chat        `json:"chat"`
	Text       string      `json:"text,omitempty"`
	WebAppData *WebAppData `json:"web_app_data,omitempty"`
}

type Sender struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// WebAppData carries the order submission payload from the web client.
type WebAppData struct {
	Data string `json:"data"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *Sender  `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string, markup ReplyMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	_, err := t.call(ctx, "sendMessage", payload)
	return err
}

// GetUpdates long-polls for updates after offset, blocking server-side up
// to timeoutSec.
func (t *Telegram) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	raw, err := t.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": timeoutSec,
	})
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

func (t *Telegram) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	_, err := t.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	})
	return err
}

// ClearInlineKeyboard removes the buttons from a previously sent message.
func (t *Telegram) ClearInlineKeyboard(ctx context.Context, chatID, messageID int64) error {
	_, err := t.call(ctx, "editMessageReplyMarkup", map[string]any{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": InlineKeyboard{InlineKeyboard: [][]InlineButton{}},
	})
	return err
}

func (t *Telegram) call(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}

	url := t.apiBase + "/bot" + t.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}

	if !body.OK {
		desc := body.Description
		if desc == "" {
			desc = "status " + strconv.Itoa(resp.StatusCode)
		}
		return nil, fmt.Errorf("%s: telegram api: %s", method, desc)
	}

	return body.Result, nil
}
