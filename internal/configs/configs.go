package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"comply-scheduler.com/comply-scheduler/internal/lifecycle"
)

type Config struct {
	AppURL                 string
	AppEnv                 string
	LogLevel               string
	DatabaseDriver         string
	DatabaseDSN            string
	RateLimit              int
	ShutdownTimeoutSeconds int

	Timezone         string
	Location         *time.Location
	SweepSchedule    string
	ReminderPolicy   lifecycle.ReminderPolicy
	ReminderDefaults []int

	RedisEnabled        bool
	RedisAddr           string
	RedisLockKey        string
	SweepLockTTLSeconds int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	SMTPFrom     string
	SMTPStartTLS bool

	NotifyMaxAttempts       int
	NotifyRetryBackoffMs    int
	NotifySendTimeoutSecond int
	NotifyConcurrency       int

	SyncIntervalSeconds int
	APIBaseURL          string
}

func Load() Config {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")
	redisHost := getEnv("REDIS_HOST", "127.0.0.1")
	redisPort := getEnv("REDIS_PORT", "6379")

	tz := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Fatalf("invalid TIMEZONE %q: %v", tz, err)
	}

	policy, err := lifecycle.ParseReminderPolicy(getEnv("REMINDER_POLICY", string(lifecycle.PolicyExact)))
	if err != nil {
		log.Fatalf("invalid REMINDER_POLICY: %v", err)
	}

	defaults, err := ParseReminderDefaults(getEnv("REMINDER_DEFAULTS", "7,1"))
	if err != nil {
		log.Fatalf("invalid REMINDER_DEFAULTS: %v", err)
	}

	cfg := Config{
		AppURL:                 fmt.Sprintf("%s:%s", appHost, appPort),
		AppEnv:                 getEnv("APP_ENV", "local"),
		LogLevel:               getEnv("LOG_LEVEL", ""),
		DatabaseDriver:         getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:            getEnv("DATABASE_DSN", "comply.db"),
		RateLimit:              getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeoutSeconds: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20),

		Timezone:         tz,
		Location:         loc,
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "0 9 * * *"),
		ReminderPolicy:   policy,
		ReminderDefaults: defaults,

		RedisEnabled:        getEnvAsBool("REDIS_ENABLED", false),
		RedisAddr:           fmt.Sprintf("%s:%s", redisHost, redisPort),
		RedisLockKey:        getEnv("REDIS_LOCK_KEY", "comply:sweep:lock"),
		SweepLockTTLSeconds: getEnvAsInt("SWEEP_LOCK_TTL_SECONDS", 900),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@comply.local"),
		SMTPStartTLS: getEnvAsBool("SMTP_STARTTLS", true),

		NotifyMaxAttempts:       getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
		NotifyRetryBackoffMs:    getEnvAsInt("NOTIFY_RETRY_BACKOFF_MS", 500),
		NotifySendTimeoutSecond: getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 15),
		NotifyConcurrency:       getEnvAsInt("NOTIFY_CONCURRENCY", 4),

		SyncIntervalSeconds: getEnvAsInt("SYNC_INTERVAL_SECONDS", 60),
		APIBaseURL:          getEnv("API_BASE_URL", fmt.Sprintf("http://%s:%s", appHost, appPort)),
	}

	validate(cfg)
	return cfg
}

func validate(cfg Config) {
	if cfg.AppURL == "" {
		log.Fatal("APP_URL must not be empty (e.g. 127.0.0.1:8080)")
	}
	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDriver != "postgres" {
		log.Fatal("DATABASE_DRIVER must be sqlite or postgres")
	}
	if cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN must not be empty")
	}
	if cfg.RateLimit <= 0 {
		log.Fatal("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if cfg.SweepSchedule == "" {
		log.Fatal("SWEEP_SCHEDULE must not be empty")
	}
	if cfg.SweepLockTTLSeconds <= 0 {
		log.Fatal("SWEEP_LOCK_TTL_SECONDS must be greater than 0")
	}
	if cfg.NotifyMaxAttempts <= 0 {
		log.Fatal("NOTIFY_MAX_ATTEMPTS must be greater than 0")
	}
	if cfg.NotifyRetryBackoffMs < 0 {
		log.Fatal("NOTIFY_RETRY_BACKOFF_MS must not be negative")
	}
	if cfg.NotifySendTimeoutSecond <= 0 {
		log.Fatal("NOTIFY_SEND_TIMEOUT_SECONDS must be greater than 0")
	}
	if cfg.NotifyConcurrency <= 0 {
		log.Fatal("NOTIFY_CONCURRENCY must be greater than 0")
	}
	if cfg.SyncIntervalSeconds <= 0 {
		log.Fatal("SYNC_INTERVAL_SECONDS must be greater than 0")
	}
}

// ParseReminderDefaults reads a comma separated list of day offsets such as "7,1".
func ParseReminderDefaults(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var out []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		if n < 1 {
			return nil, fmt.Errorf("reminder timing %d must be at least 1", n)
		}
		out = append(out, n)
	}
	return out, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s", key)
		}
		return i
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Fatalf("invalid boolean value for %s", key)
		}
		return b
	}
	return defaultVal
}
