package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.APIPort)
	}
	if cfg.ScanTotalBudget != 28*time.Second {
		t.Fatalf("expected 28s total budget, got %v", cfg.ScanTotalBudget)
	}
	if cfg.ScanReservedTail != 2*time.Second {
		t.Fatalf("expected 2s reserved tail, got %v", cfg.ScanReservedTail)
	}
	if cfg.PollBackoffInitial != time.Second || cfg.PollBackoffMax != 8*time.Second {
		t.Fatalf("unexpected poll backoff bounds: %v..%v", cfg.PollBackoffInitial, cfg.PollBackoffMax)
	}
	if cfg.PollBackoffMultiplier != 1.5 {
		t.Fatalf("expected multiplier 1.5, got %v", cfg.PollBackoffMultiplier)
	}
	if cfg.MaxImageBytes != 8<<20 {
		t.Fatalf("expected 8MiB image cap, got %d", cfg.MaxImageBytes)
	}
	if cfg.NATSSubject != "scans.completed" {
		t.Fatalf("unexpected default subject %s", cfg.NATSSubject)
	}
	if cfg.PostgresDSN != "" || cfg.NATSURL != "" {
		t.Fatalf("audit and events must be opt-in")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("SCAN_TOTAL_BUDGET_MS", "15000")
	t.Setenv("POLL_BACKOFF_MULTIPLIER", "1.6")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("NARRATIVE_MODEL", "local-mini")

	cfg := Load()
	if cfg.APIPort != "9999" {
		t.Fatalf("expected port override, got %s", cfg.APIPort)
	}
	if cfg.ScanTotalBudget != 15*time.Second {
		t.Fatalf("expected 15s budget, got %v", cfg.ScanTotalBudget)
	}
	if cfg.PollBackoffMultiplier != 1.6 {
		t.Fatalf("expected multiplier override, got %v", cfg.PollBackoffMultiplier)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.NarrativeModel != "local-mini" {
		t.Fatalf("expected model override, got %s", cfg.NarrativeModel)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SCAN_TOTAL_BUDGET_MS", "not-a-number")
	t.Setenv("POLL_BACKOFF_MULTIPLIER", "fast")

	cfg := Load()
	if cfg.ScanTotalBudget != 28*time.Second {
		t.Fatalf("expected fallback on malformed int, got %v", cfg.ScanTotalBudget)
	}
	if cfg.PollBackoffMultiplier != 1.5 {
		t.Fatalf("expected fallback on malformed float, got %v", cfg.PollBackoffMultiplier)
	}
}
