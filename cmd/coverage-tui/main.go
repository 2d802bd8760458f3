// Package main implements the terminal coverage grid.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/wessley-coverage/engine/coverage"
	"github.com/WessleyAI/wessley-coverage/engine/domain"
	"github.com/WessleyAI/wessley-coverage/engine/loader"
)

// Config holds all environment-based configuration.
type Config struct {
	CoverageFile string
	Strict       bool
	NATSURL      string
}

func loadConfig() Config {
	return Config{
		CoverageFile: envOr("COVERAGE_FILE", ""),
		Strict:       envBool("COVERAGE_STRICT", false),
		NATSURL:      envOr("NATS_URL", ""),
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

func main() {
	// stdout belongs to the terminal UI and the final coverage dump.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("coverage-tui failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	var src loader.Source = loader.FileSource{Path: cfg.CoverageFile}
	if cfg.Strict {
		src = loader.Strict(src)
	}
	dataset, err := src.Load(context.Background())
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	var notifier coverage.Notifier = coverage.NopNotifier{}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("coverage-tui"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		notifier = coverage.NewNATSNotifier(nc, logger)
	}

	grid := coverage.FromDataset(dataset)
	gridID := uuid.NewString()
	listener := func(model domain.VehicleModel, year domain.ModelYear, covered bool) {
		notifier.Notify(context.Background(), coverage.ToggleEvent{
			GridID:  gridID,
			Model:   model,
			Year:    year,
			Covered: covered,
			At:      time.Now().UTC(),
		})
	}

	p := tea.NewProgram(newModel(grid, listener), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}

	out, err := json.MarshalIndent(grid.Coverage(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode coverage: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
