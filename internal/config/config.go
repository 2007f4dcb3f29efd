package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at start-up from the environment, after an optional
// .env file.
type Config struct {
	UpstreamBaseURL  string
	ListenAddr       string
	DatabaseDSN      string
	RedisAddr        string
	RedisPassword    string
	TelegramBotToken string
	BotUpstreamToken string
	CORSOrigins      []string
	KeepUnusedFor    time.Duration
	SessionIdleTTL   time.Duration
	LocalesDir       string
}

// Load reads the configuration. A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	cfg := &Config{
		UpstreamBaseURL:  env("UPSTREAM_BASE_URL", "https://college-mate-backend-1.onrender.com/api/v1"),
		ListenAddr:       env("LISTEN_ADDR", ":8080"),
		DatabaseDSN:      env("DATABASE_DSN", "host=localhost user=user password=password dbname=collegemate port=5432 sslmode=disable"),
		RedisAddr:        env("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		BotUpstreamToken: os.Getenv("BOT_UPSTREAM_TOKEN"),
		CORSOrigins:      splitList(env("CORS_ORIGINS", "http://localhost:5173")),
		LocalesDir:       env("LOCALES_DIR", "locales"),
	}

	var err error
	if cfg.KeepUnusedFor, err = duration("CACHE_KEEP_UNUSED", DefaultKeepUnusedFor); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = duration("SESSION_IDLE_TTL", DefaultSessionIdleTTL); err != nil {
		return nil, err
	}
	return cfg, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
