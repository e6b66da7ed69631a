// Package config loads wallview settings from the environment. Command-line
// flags override these values in the cli package.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wallview/internal/gallery"
	"wallview/pkg/wallpaperapi"
)

type Config struct {
	// APIURL is the wallpaper API endpoint.
	APIURL string

	// PageSize is the number of records requested per page.
	PageSize int

	// Category is the category shown on startup.
	Category int

	// HTTPTimeout bounds each API request.
	HTTPTimeout time.Duration

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFile receives logs instead of stderr when set.
	LogFile string
}

func Load() Config {
	return Config{
		APIURL:      envOr("WALLVIEW_API_URL", wallpaperapi.DefaultBaseURL),
		PageSize:    envInt("WALLVIEW_PAGE_SIZE", wallpaperapi.DefaultPageSize),
		Category:    envInt("WALLVIEW_CATEGORY", gallery.DefaultCategory),
		HTTPTimeout: envDuration("WALLVIEW_HTTP_TIMEOUT", wallpaperapi.DefaultTimeout),
		LogLevel:    envOr("WALLVIEW_LOG_LEVEL", "info"),
		LogFile:     os.Getenv("WALLVIEW_LOG_FILE"),
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api url %q: scheme must be http or https", c.APIURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.HTTPTimeout)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// NewLogger builds the slog logger described by c. When LogFile is empty the
// logger writes to fallback. The returned close function releases the file.
func (c Config) NewLogger(fallback io.Writer) (*slog.Logger, func() error, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	w := fallback
	closeFn := func() error { return nil }
	if c.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
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
