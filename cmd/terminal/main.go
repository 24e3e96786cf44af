package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wpranata/kasirpos/internal/catalog"
	"github.com/wpranata/kasirpos/internal/receipt"
	"github.com/wpranata/kasirpos/internal/sales"
	"github.com/wpranata/kasirpos/internal/terminal"
	"github.com/wpranata/kasirpos/pkg/affordance"
	"github.com/wpranata/kasirpos/pkg/config"
	"github.com/wpranata/kasirpos/pkg/logger"
	"github.com/wpranata/kasirpos/pkg/metrics"
)

// loginRedirector tells the operator to re-authenticate. A desktop shell
// would swap the screen; the headless terminal can only stop the session.
type loginRedirector struct {
	logg *logger.Logger
	stop context.CancelFunc
}

func (r *loginRedirector) RedirectToLogin(ctx context.Context) {
	r.logg.Warn(ctx, "session expired, sign in again to continue")
	r.stop()
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "terminal"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "terminal",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithTerminalID(ctx, cfg.App.TerminalID)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	engineMetrics := metrics.NewEngineMetrics(registry)

	catalogClient, err := catalog.NewClient(cfg.API, logg, engineMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create catalog client", err)
		os.Exit(1)
	}
	salesClient, err := sales.NewClient(cfg.API, logg, engineMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create sales client", err)
		os.Exit(1)
	}

	indicator := affordance.NewIndicator()
	indicator.Register(affordance.HandlerFuncs{
		OnShow: func() { logg.Debug(ctx, "busy") },
		OnHide: func() { logg.Debug(ctx, "idle") },
	})

	engine, err := terminal.NewEngine(terminal.EngineParams{
		Catalog:   catalogClient,
		Sales:     salesClient,
		Receipt:   receipt.NewLogPrinter(logg),
		Redirect:  &loginRedirector{logg: logg, stop: stop},
		Logger:    logg,
		Metrics:   engineMetrics,
		Indicator: indicator,
		Config:    cfg.Engine,
	})
	if err != nil {
		logg.Error(ctx, "failed to create engine", err)
		os.Exit(1)
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics, logg, registry)
	}

	go readCommands(ctx, engine, logg)

	logg.Info(logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"backend":  cfg.API.BaseURL,
		"debounce": cfg.Engine.SearchDebounce.String(),
	}), "starting terminal")

	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		logg.Error(ctx, "terminal stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "terminal stopped")
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, logg *logger.Logger, registry *prometheus.Registry) {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: cfg.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logg.Info(logg.WithField(ctx, "addr", cfg.Addr), "metrics listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

// readCommands translates stdin lines into engine events so the terminal
// can be driven without a graphical shell. One command per line:
//
//	scan <barcode>    search <text>    pay <amount>
//	f1 f2 f3 f4 enter del esc up down tab backtab
func readCommands(ctx context.Context, engine *terminal.Engine, logg *logger.Logger) {
	keys := map[string]terminal.KeyPressed{
		"f1":      {Key: terminal.KeyF1},
		"f2":      {Key: terminal.KeyF2},
		"f3":      {Key: terminal.KeyF3},
		"f4":      {Key: terminal.KeyF4},
		"enter":   {Key: terminal.KeyEnter},
		"del":     {Key: terminal.KeyDelete},
		"esc":     {Key: terminal.KeyEscape},
		"up":      {Key: terminal.KeyArrowUp},
		"down":    {Key: terminal.KeyArrowDown},
		"tab":     {Key: terminal.KeyTab},
		"backtab": {Key: terminal.KeyTab, Shift: true},
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		verb = strings.ToLower(verb)

		if key, ok := keys[verb]; ok {
			engine.Post(key)
			continue
		}
		switch verb {
		case "scan":
			engine.Post(terminal.BarcodeScanned{Code: strings.TrimSpace(rest)})
		case "search":
			engine.Post(terminal.SearchEdited{Query: rest})
		case "pay":
			amount, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				logg.Warn(logg.WithField(ctx, "input", rest), "payment amount must be a whole number")
				continue
			}
			engine.Post(terminal.PaymentEntered{Amount: amount})
		default:
			logg.Warn(logg.WithField(ctx, "command", verb), "unknown command")
		}
	}
}
