package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskeval-network/taskeval/internal/api"
	"github.com/taskeval-network/taskeval/internal/app/evaluation"
	"github.com/taskeval-network/taskeval/internal/app/payment"
	"github.com/taskeval-network/taskeval/internal/domain"
	"github.com/taskeval-network/taskeval/internal/infra/evaluator"
	"github.com/taskeval-network/taskeval/internal/infra/sqlite"
	"github.com/taskeval-network/taskeval/internal/infra/stripeclient"
)

// Daemon is the core TaskEval runtime. It wires together all services.
type Daemon struct {
	Config     Config
	DB         *sqlite.DB
	Evaluation *evaluation.Service
	Payment    *payment.Service
	Server     *api.Server
	cancel     context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	setupLogging(cfg.Logging)

	// Open SQLite
	storeDir := cfg.Store.Dir
	if storeDir == "" {
		storeDir = taskevalHome()
	}
	db, err := sqlite.Open(storeDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Evaluation engine: deterministic mock or live client
	var engine domain.EvaluationEngine
	if cfg.Evaluator.Mock {
		mock := evaluator.NewMock()
		if cfg.Evaluator.MockDelayMS > 0 {
			mock.Delay = time.Duration(cfg.Evaluator.MockDelayMS) * time.Millisecond
		}
		engine = mock
		slog.Info("evaluator in mock mode")
	} else {
		engine = evaluator.New(evaluator.Config{
			BaseURL: cfg.Evaluator.BaseURL,
			APIKey:  cfg.Evaluator.APIKey,
			Model:   cfg.Evaluator.Model,
			Timeout: time.Duration(cfg.Evaluator.TimeoutSeconds) * time.Second,
		})
		slog.Info("evaluator configured", "base_url", cfg.Evaluator.BaseURL, "model", cfg.Evaluator.Model)
	}

	// Payment processor + webhook verifier
	processor := stripeclient.New(cfg.Payments.SecretKey,
		time.Duration(cfg.Payments.TimeoutSeconds)*time.Second)
	verifier := stripeclient.NewVerifier(cfg.Payments.WebhookSecret)

	evalSvc := evaluation.NewService(db, engine)
	paySvc := payment.NewService(db, processor, verifier, cfg.Payments.Currency)

	srv := api.NewServer(evalSvc, paySvc, api.TokenIdentity{})
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:     cfg,
		DB:         db,
		Evaluation: evalSvc,
		Payment:    paySvc,
		Server:     srv,
	}, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Evaluation calls can be slow
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("TaskEval serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop triggers a graceful shutdown.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

// setupLogging configures the default slog handler from config.
func setupLogging(cfg LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
