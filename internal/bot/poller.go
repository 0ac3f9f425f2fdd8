package bot

import (
	"context"
	"log/slog"
	"time"

	"shopflow/internal/notify"
)

const (
	pollTimeoutSec = 30
	retryDelay     = 3 * time.Second
)

// Poller long-polls the bot channel and feeds updates to the handler.
// It is the chat-side ingress loop, running for the process lifetime.
type Poller struct {
	client  *notify.Telegram
	handler *Handler
	logger  *slog.Logger
}

func NewPoller(client *notify.Telegram, handler *Handler, logger *slog.Logger) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled. Poll failures are logged and retried
// after a short delay; update handling errors never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64

	for {
		updates, err := p.client.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("failed to fetch updates", "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			p.handler.HandleUpdate(ctx, upd)
		}
	}
}
