package notify

import "context"

// ReplyMarkup is an interactive control block attached to a message.
type ReplyMarkup interface {
	isReplyMarkup()
}

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// InlineKeyboard carries buttons attached to a single message.
type InlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

func (InlineKeyboard) isReplyMarkup() {}

type WebAppInfo struct {
	URL string `json:"url"`
}

type KeyboardButton struct {
	Text   string      `json:"text"`
	WebApp *WebAppInfo `json:"web_app,omitempty"`
}

// MenuKeyboard replaces the recipient's input keyboard.
type MenuKeyboard struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

func (MenuKeyboard) isReplyMarkup() {}

// Notifier delivers one formatted message to a numeric recipient id.
// Implementations must bound the send with their own timeout; a failed
// send is terminal, there is no retry or queueing.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup ReplyMarkup) error
}

// Result is the outcome of a single notification attempt. Failures are
// carried as values so the caller can log them without aborting the
// business operation that triggered the send.
type Result struct {
	Recipient int64
	Err       error
}

func (r Result) Ok() bool {
	return r.Err == nil
}
