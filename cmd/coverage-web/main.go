// Package main implements the coverage grid web server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/WessleyAI/wessley-coverage/engine/coverage"
	"github.com/WessleyAI/wessley-coverage/engine/loader"
	"github.com/WessleyAI/wessley-coverage/pkg/fn"
	"github.com/WessleyAI/wessley-coverage/pkg/metrics"
	"github.com/WessleyAI/wessley-coverage/pkg/mid"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/time/rate"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	CoverageFile string
	Source       string // "file" or "neo4j"
	Strict       bool
	Neo4jURL     string
	Neo4jUser    string
	Neo4jPass    string
	Neo4jMake    string
	LoadAttempts int
	NATSURL      string
	CORSOrigin   string
	GridTTL      time.Duration
	ToggleRate   float64
	ToggleBurst  int
	ServiceName  string
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		CoverageFile: envOr("COVERAGE_FILE", ""),
		Source:       envOr("COVERAGE_SOURCE", "file"),
		Strict:       envBool("COVERAGE_STRICT", false),
		Neo4jURL:     envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:    envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:    envOr("NEO4J_PASS", "password"),
		Neo4jMake:    envOr("NEO4J_MAKE", ""),
		LoadAttempts: envInt("LOAD_ATTEMPTS", 5),
		NATSURL:      envOr("NATS_URL", ""),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		GridTTL:      envDuration("GRID_TTL", coverage.DefaultTTL),
		ToggleRate:   envFloat("TOGGLE_RATE", 10),
		ToggleBurst:  envInt("TOGGLE_BURST", 20),
		ServiceName:  envOr("OTEL_SERVICE_NAME", "coverage-web"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

// sweepInterval is how often idle grids are checked for eviction.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/2, time.Second)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Dataset ---
	var src loader.Source = loader.FileSource{Path: cfg.CoverageFile}
	if cfg.Source == "neo4j" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(context.Background())
		gs := loader.NewNeo4jSource(driver)
		gs.Make = cfg.Neo4jMake

		retry := fn.DefaultRetry
		retry.MaxAttempts = cfg.LoadAttempts
		retry.OnRetry = func(attempt int, err error, wait time.Duration) {
			logger.Warn("dataset load failed, retrying", "attempt", attempt, "wait", wait, "err", err)
		}
		src = loader.Retrying(gs, retry)
	}
	if cfg.Strict {
		src = loader.Strict(src)
	}
	dataset, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded",
		"source", cfg.Source,
		"models", len(dataset.VehicleModels),
		"years", len(dataset.Years),
	)

	// --- Toggle events ---
	var notifier coverage.Notifier = coverage.NopNotifier{}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		notifier = coverage.NewNATSNotifier(nc, logger)
	}

	reg := metrics.New()
	grids := coverage.NewRegistry(coverage.RegistryOpts{TTL: cfg.GridTTL, Notifier: notifier})
	var toggles *mid.Limiters
	if cfg.ToggleRate > 0 {
		toggles = mid.NewLimiters(rate.Limit(cfg.ToggleRate), cfg.ToggleBurst)
	}
	s := newServer(grids, dataset, reg, logger, toggles, cfg.GridTTL)

	go grids.Run(ctx, sweepInterval(cfg.GridTTL), s.afterSweep)

	// OTel replaces the request, so it must run before anything that reads
	// the route pattern the mux records on it.
	handler := mid.Chain(s.routes(),
		mid.OTel(cfg.ServiceName),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("coverage server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
