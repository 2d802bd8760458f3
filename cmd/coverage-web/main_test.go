package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WessleyAI/wessley-coverage/engine/coverage"
)

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadConfig()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Source != "file" || cfg.CoverageFile != "" {
		t.Fatalf("expected embedded file source, got %q %q", cfg.Source, cfg.CoverageFile)
	}
	if cfg.Strict {
		t.Fatal("expected lenient loading by default")
	}
	if cfg.NATSURL != "" {
		t.Fatal("expected NATS disabled by default")
	}
	if cfg.GridTTL != coverage.DefaultTTL {
		t.Fatalf("expected default TTL, got %s", cfg.GridTTL)
	}
	if cfg.ToggleRate != 10 || cfg.ToggleBurst != 20 {
		t.Fatalf("unexpected rate defaults %v/%d", cfg.ToggleRate, cfg.ToggleBurst)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("COVERAGE_SOURCE", "neo4j")
	t.Setenv("COVERAGE_STRICT", "true")
	t.Setenv("GRID_TTL", "5m")
	t.Setenv("TOGGLE_RATE", "2.5")
	t.Setenv("TOGGLE_BURST", "7")

	cfg := loadConfig()
	if cfg.Port != "9090" || cfg.Source != "neo4j" || !cfg.Strict {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.GridTTL != 5*time.Minute {
		t.Fatalf("expected 5m, got %s", cfg.GridTTL)
	}
	if cfg.ToggleRate != 2.5 || cfg.ToggleBurst != 7 {
		t.Fatalf("unexpected rate %v/%d", cfg.ToggleRate, cfg.ToggleBurst)
	}
}

func TestEnvParsersFallBack(t *testing.T) {
	t.Setenv("TEST_BAD_INT", "x")
	t.Setenv("TEST_BAD_DURATION", "-3s")
	if envInt("TEST_BAD_INT", 4) != 4 {
		t.Fatal("expected int fallback")
	}
	if envDuration("TEST_BAD_DURATION", time.Second) != time.Second {
		t.Fatal("expected duration fallback for non-positive value")
	}
	if envBool("NONEXISTENT_VAR_ABC", true) != true {
		t.Fatal("expected bool fallback")
	}
	if envFloat("NONEXISTENT_VAR_ABC", 1.5) != 1.5 {
		t.Fatal("expected float fallback")
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("TEST_ENV_VAR_XYZ", "custom")
	if v := envOr("TEST_ENV_VAR_XYZ", "default"); v != "custom" {
		t.Fatalf("expected custom, got %s", v)
	}
	if v := envOr("NONEXISTENT_VAR_ABC", "fallback"); v != "fallback" {
		t.Fatalf("expected fallback, got %s", v)
	}
}

func TestSweepIntervalClamped(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		time.Nanosecond:     time.Second,
		time.Second:         time.Second,
		coverage.DefaultTTL: 15 * time.Minute,
	}
	for ttl, want := range cases {
		if got := sweepInterval(ttl); got != want {
			t.Errorf("sweepInterval(%s) = %s, want %s", ttl, got, want)
		}
	}
}

func TestLoadConfig_TinyTTLStillSweepable(t *testing.T) {
	t.Setenv("GRID_TTL", "1ns")
	cfg := loadConfig()
	if sweepInterval(cfg.GridTTL) <= 0 {
		t.Fatal("sweep interval must be positive for time.NewTicker")
	}
}
