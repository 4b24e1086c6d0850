package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServiceName string
	APIPort     string
	LogLevel    string
	LogFormat   string

	VisionAPIURL      string
	VisionAPIKey      string
	VendorCallTimeout time.Duration

	ScanTotalBudget    time.Duration
	ScanReservedTail   time.Duration
	SubmitMinBudget    time.Duration
	PollMinBudget      time.Duration
	NarrativeMinBudget time.Duration
	NarrativeTimeout   time.Duration
	MaxImageBytes      int64

	PollBackoffInitial    time.Duration
	PollBackoffMultiplier float64
	PollBackoffMax        time.Duration

	NarrativeAPIKey  string
	NarrativeBaseURL string
	NarrativeModel   string

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxConcurrentScans int
	APIBackpressureWait   time.Duration
}

func Load() Config {
	return Config{
		ServiceName: mustEnv("SERVICE_NAME", "dermascan-api"),
		APIPort:     mustEnv("API_PORT", "8080"),
		LogLevel:    mustEnv("LOG_LEVEL", "info"),
		LogFormat:   mustEnv("LOG_FORMAT", "json"),

		VisionAPIURL:      mustEnv("VISION_API_URL", ""),
		VisionAPIKey:      mustEnv("VISION_API_KEY", ""),
		VendorCallTimeout: mustEnvDurationMS("VENDOR_CALL_TIMEOUT_MS", 5000),

		ScanTotalBudget:    mustEnvDurationMS("SCAN_TOTAL_BUDGET_MS", 28000),
		ScanReservedTail:   mustEnvDurationMS("SCAN_RESERVED_TAIL_MS", 2000),
		SubmitMinBudget:    mustEnvDurationMS("SCAN_SUBMIT_MIN_BUDGET_MS", 3000),
		PollMinBudget:      mustEnvDurationMS("SCAN_POLL_MIN_BUDGET_MS", 2000),
		NarrativeMinBudget: mustEnvDurationMS("SCAN_NARRATIVE_MIN_BUDGET_MS", 3000),
		NarrativeTimeout:   mustEnvDurationMS("SCAN_NARRATIVE_TIMEOUT_MS", 8000),
		MaxImageBytes:      int64(mustEnvInt("SCAN_MAX_IMAGE_BYTES", 8<<20)),

		PollBackoffInitial:    mustEnvDurationMS("POLL_BACKOFF_INITIAL_MS", 1000),
		PollBackoffMultiplier: mustEnvFloat("POLL_BACKOFF_MULTIPLIER", 1.5),
		PollBackoffMax:        mustEnvDurationMS("POLL_BACKOFF_MAX_MS", 8000),

		NarrativeAPIKey:  mustEnv("NARRATIVE_API_KEY", ""),
		NarrativeBaseURL: mustEnv("NARRATIVE_BASE_URL", ""),
		NarrativeModel:   mustEnv("NARRATIVE_MODEL", "gpt-4o-mini"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "scans.completed"),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxConcurrentScans: mustEnvInt("API_MAX_CONCURRENT_SCANS", 32),
		APIBackpressureWait:   mustEnvDurationMS("API_BACKPRESSURE_WAIT_MS", 100),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvDurationMS(key string, fallbackMS int) time.Duration {
	return time.Duration(mustEnvInt(key, fallbackMS)) * time.Millisecond
}
