package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"shopflow/internal/api"
	"shopflow/internal/bot"
	"shopflow/internal/catalog"
	"shopflow/internal/config"
	"shopflow/internal/imagegen"
	"shopflow/internal/messaging"
	"shopflow/internal/notify"
	"shopflow/internal/store"
	"shopflow/internal/telemetry"
	"shopflow/internal/workflow"
)

const orderEventsTopic = "order.events"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "shopflow", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("shopflow", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime metrics", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(ctx, "postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// one channel session for the process: the poller needs to outlive the
	// 30s long poll, individual sends are bounded by the dispatcher
	httpClient := &http.Client{
		Timeout:   40 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	tg := notify.NewTelegram(cfg.BotToken, httpClient)

	st := store.NewPostgresStore(db)
	dispatcher := notify.NewDispatcher(tg, cfg.AdminID)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	engineOpts := []workflow.EngineOption{workflow.WithMetrics(metrics)}
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, orderEventsTopic)
		defer func() { _ = producer.Close() }()
		engineOpts = append(engineOpts, workflow.WithPublisher(producer))
	}

	engine := workflow.NewEngine(st, dispatcher, cfg.AdminID, logger, engineOpts...)

	handler := api.NewHandler(engine, catalog.New(cfg.ProductsPath), imagegen.NewGenerator(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", telemetry.WithHTTPRoute(handler.HandleProducts))
	mux.HandleFunc("GET /api/orders/{telegramId}", telemetry.WithHTTPRoute(handler.HandleUserOrders))
	mux.HandleFunc("POST /api/promo/validate", telemetry.WithHTTPRoute(handler.HandlePromoValidate))
	mux.HandleFunc("POST /api/data", telemetry.WithHTTPRoute(handler.HandleCreateOrder))
	mux.HandleFunc("POST /api/generate-image", telemetry.WithHTTPRoute(handler.HandleGenerateImage))
	mux.Handle("GET /metrics", metricsHandler)
	mux.Handle("/", http.FileServer(http.Dir(cfg.PublicDir)))

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "shopflow",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	botHandler := bot.NewHandler(engine, tg, cfg.ResolvedWebAppURL(), logger)
	poller := bot.NewPoller(tg, botHandler, logger)

	go func() {
		logger.Info("starting bot poller", "admin_configured", cfg.AdminID != 0)
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("bot poller stopped", "error", err)
		}
	}()

	go func() {
		logger.Info("starting shop server", "port", cfg.Port, "web_app_url", cfg.ResolvedWebAppURL())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
