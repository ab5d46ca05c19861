package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RateLimit allows Requests per Interval.
type RateLimit struct {
	Requests int
	Interval time.Duration
}

type Config struct {
	AppEnv          string
	LogLevel        string
	HTTPAddr        string
	MetricsAddr     string
	MySQLDSN        string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	CacheTTL        time.Duration
	DefaultTimeZone string
	GeocoderBase    string
	GeocoderRPS     int
	ReviewRateLimit RateLimit
	SeedWorkers     int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		LogLevel:        env("LOG_LEVEL", "info"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ""),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/vapefinder?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisPass:       env("REDIS_PASSWORD", ""),
		RedisDB:         atoi("REDIS_DB", 0),
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		DefaultTimeZone: env("DEFAULT_TIMEZONE", "America/Los_Angeles"),
		GeocoderBase:    env("GEOCODER_BASE_URL", ""),
		GeocoderRPS:     atoi("GEOCODER_RPS", 1),
		SeedWorkers:     atoi("SEED_WORKERS", 4),
	}

	rl, err := ParseRateLimit(env("REVIEW_RATE_LIMIT", "5/min"))
	if err != nil {
		log.Warn().Err(err).Msg("REVIEW_RATE_LIMIT invalid, using 5/min")
		rl = RateLimit{Requests: 5, Interval: time.Minute}
	}
	c.ReviewRateLimit = rl

	if c.GeocoderBase == "" {
		log.Warn().Msg("GEOCODER_BASE_URL is empty; stores without coordinates stay unplaced")
	}
	return c
}

// ParseRateLimit reads "<requests>/<unit>" such as "5/min" or "100/h".
func ParseRateLimit(value string) (RateLimit, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimit{}, fmt.Errorf("expected <requests>/<interval>, got %q", value)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || n <= 0 {
		return RateLimit{}, fmt.Errorf("invalid request count %q", parts[0])
	}
	var every time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[1])) {
	case "s", "sec", "second", "seconds":
		every = time.Second
	case "m", "min", "minute", "minutes":
		every = time.Minute
	case "h", "hr", "hour", "hours":
		every = time.Hour
	default:
		return RateLimit{}, fmt.Errorf("unsupported interval unit %q", parts[1])
	}
	return RateLimit{Requests: n, Interval: every}, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
