package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/abhiarc/Dream-interpreter/internal/adapters/counters"
	httpadapter "github.com/abhiarc/Dream-interpreter/internal/adapters/http"
	"github.com/abhiarc/Dream-interpreter/internal/adapters/library"
	"github.com/abhiarc/Dream-interpreter/internal/adapters/metrics"
	"github.com/abhiarc/Dream-interpreter/internal/app"
	"github.com/abhiarc/Dream-interpreter/internal/config"
	"github.com/abhiarc/Dream-interpreter/internal/ports"
	"github.com/abhiarc/Dream-interpreter/internal/version"
)

const (
	janitorInterval = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", "warning", w)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newCounterStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	interpretationMetrics := metrics.NewInterpretationMetrics(reg)

	ctrl := app.NewController(newInterpreter(cfg, logger), store,
		app.WithLogger(logger),
		app.WithRecorder(interpretationMetrics),
		app.WithSlowThreshold(cfg.SlowThreshold),
	)
	stopJanitor := ctrl.StartJanitor(janitorInterval, cfg.SessionMaxAge)
	defer stopJanitor()

	e := httpadapter.NewEcho(logger, httpMetrics.Middleware())
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(reg)))

	handler := httpadapter.NewHandler(ctrl, library.NewEmbeddedStore(),
		httpadapter.NewSessionStore(cfg.SessionSecret, cfg.SessionMaxAge, cfg.CookieSecure),
		httpadapter.Options{
			Warnings:    cfg.ClientWarnings(),
			SubmitRate:  cfg.SubmitRate,
			SubmitBurst: cfg.SubmitBurst,
		},
		logger,
	)
	handler.Register(e)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "version", version.Version, "model", cfg.LLMModel)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		logger.Warn("abandoned in-flight interpretations", "error", err)
	}
	return nil
}

// newCounterStore picks Redis when REDIS_URL is set and memory otherwise.
func newCounterStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.CounterStore, func(), error) {
	if cfg.RedisURL == "" {
		return counters.NewMemoryStore(), func() {}, nil
	}

	rdb, err := counters.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("using redis selection counters")
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
	return counters.NewRedisStore(rdb, cfg.SessionMaxAge), closeFn, nil
}
