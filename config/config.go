package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// App holds the settings the CLI starts with. Flags may override them.
type App struct {
	DBPath   string `env:"LMS_DB" default:"library.db"`
	LogLevel string `env:"LMS_LOG_LEVEL" default:"info"`
	Autosave bool   `env:"LMS_AUTOSAVE" default:"true"`
}

func Load() App {
	return App{
		DBPath:   getenv("LMS_DB", "library.db"),
		LogLevel: getenv("LMS_LOG_LEVEL", "info"),
		Autosave: getbool("LMS_AUTOSAVE", true),
	}
}

// Level maps LogLevel onto slog; unknown names fall back to info.
func (a App) Level() slog.Level {
	switch strings.ToLower(a.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean env, using default", "key", k, "value", v)
		return def
	}
	return b
}
