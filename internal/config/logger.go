package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level name to its slog.Level. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

// NewLogger builds the run logger from log.level and log.format, honouring
// their environment overrides. A nil cfg uses the schema defaults.
func NewLogger(cfg *Config, w io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	schema := DefaultSchema()

	level, err := ParseLevel(schema.GetString(cfg, "log.level"))
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format := strings.ToLower(schema.GetString(cfg, "log.format")); format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}
