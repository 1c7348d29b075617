package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	DataDir         string
	Workers         int
	ExtractTimeout  time.Duration
	QueueVisibility time.Duration
	DedupTTL        time.Duration
	GateTokenTTL    time.Duration
	PremiumCutoff   int
	PremiumPlans    string
	UserPlans       string
	YtDlpPath       string
	CookiesFile     string
}

func Load() (*Config, error) {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	workers, err := strconv.Atoi(getEnv("WORKERS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKERS: %w", err)
	}

	extractTimeout, err := durationEnv("EXTRACT_TIMEOUT_SECONDS", 45*time.Second, time.Second)
	if err != nil {
		return nil, err
	}

	queueVisibility, err := durationEnv("QUEUE_VISIBILITY_SECONDS", 2*time.Minute, time.Second)
	if err != nil {
		return nil, err
	}

	dedupTTL, err := durationEnv("DEDUP_TTL_MINUTES", 10*time.Minute, time.Minute)
	if err != nil {
		return nil, err
	}

	gateTokenTTL, err := durationEnv("GATE_TOKEN_TTL_MINUTES", 5*time.Minute, time.Minute)
	if err != nil {
		return nil, err
	}

	premiumCutoff, err := strconv.Atoi(getEnv("PREMIUM_HEIGHT_CUTOFF", "720"))
	if err != nil {
		return nil, fmt.Errorf("invalid PREMIUM_HEIGHT_CUTOFF: %w", err)
	}

	return &Config{
		Port:            port,
		DataDir:         getEnv("DATA_DIR", "/data"),
		Workers:         workers,
		ExtractTimeout:  extractTimeout,
		QueueVisibility: queueVisibility,
		DedupTTL:        dedupTTL,
		GateTokenTTL:    gateTokenTTL,
		PremiumCutoff:   premiumCutoff,
		PremiumPlans:    getEnv("PREMIUM_PLANS", "premium,enterprise"),
		UserPlans:       os.Getenv("USER_PLANS"),
		YtDlpPath:       getEnv("YTDLP_PATH", "yt-dlp"),
		CookiesFile:     os.Getenv("COOKIES_FILE"),
	}, nil
}

func durationEnv(key string, defaultValue, unit time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return time.Duration(n) * unit, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
