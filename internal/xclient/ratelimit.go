package xclient

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRPS   = 1.0
	defaultBurst = 5
)

// newDefaultLimiter builds the request limiter; X_API_RPS and X_API_BURST override it.
func newDefaultLimiter() *rate.Limiter {
	rps := defaultRPS
	if v := os.Getenv("X_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	return rate.NewLimiter(rate.Limit(rps), getEnvInt("X_API_BURST", defaultBurst))
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}

// retryAfter parses a Retry-After header as seconds or an HTTP date.
func retryAfter(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return fallback
}
