package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"shopflow/internal/domain"
	"shopflow/internal/messaging"
)

const orderEventsTopic = "order.events"

// events-worker tails the order event stream and writes one structured
// log line per event, giving operators an audit feed independent of the
// shop process.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	brokers := strings.Split(kafkaBrokers, ",")
	consumer := messaging.NewConsumer(brokers, orderEventsTopic, "order-events-audit")
	defer func() { _ = consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting order events worker", "brokers", brokers)

	handle := func(ctx context.Context, payload []byte) error {
		return logEvent(logger, payload)
	}

	if err := consumer.Consume(ctx, handle); err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}

// logEvent distinguishes placed from decided events by shape: decided
// events carry a status, placed events carry items.
func logEvent(logger *slog.Logger, payload []byte) error {
	var probe struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}

	if probe.Status != "" {
		var event domain.OrderDecidedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("decode decided event: %w", err)
		}
		logger.Info("order decided", "event_id", event.EventID,
			"order_number", event.OrderNumber, "status", event.Status)
		return nil
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode placed event: %w", err)
	}
	logger.Info("order placed", "event_id", event.EventID,
		"order_number", event.OrderNumber, "telegram_id", event.TelegramID,
		"total", event.Total, "items", len(event.Items))
	return nil
}
