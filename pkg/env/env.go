package env

import (
	"os"
	"strconv"
	"time"

	"log/slog"
)

func Must(key string) string {
	res := os.Getenv(key)
	if len(res) == 0 {
		slog.Error("env var must be set", "key", key)
		os.Exit(1)
	}
	return res
}

func Get(key string, def string) string {
	if res, ok := os.LookupEnv(key); ok && len(res) > 0 {
		return res
	}
	return def
}

func Int(key string, def int) int {
	res, ok := os.LookupEnv(key)
	if !ok || len(res) == 0 {
		return def
	}
	i, err := strconv.Atoi(res)
	if err != nil {
		slog.Warn("invalid int env var, using default", "key", key, "value", res)
		return def
	}
	return i
}

func Duration(key string, def time.Duration) time.Duration {
	res, ok := os.LookupEnv(key)
	if !ok || len(res) == 0 {
		return def
	}
	d, err := time.ParseDuration(res)
	if err != nil {
		slog.Warn("invalid duration env var, using default", "key", key, "value", res)
		return def
	}
	return d
}
