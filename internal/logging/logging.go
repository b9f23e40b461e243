package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Option configures the logger built by New.
type Option func(*config) error

type config struct {
	writers   []io.Writer
	closers   []io.Closer
	level     slog.Level
	format    string
	component string
}

func defaultConfig() *config {
	return &config{level: slog.LevelInfo, format: "json"}
}

// WithWriter adds a destination. When no writer or file is configured the
// logger writes to stderr.
func WithWriter(w io.Writer) Option {
	return func(cfg *config) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		cfg.writers = append(cfg.writers, w)
		return nil
	}
}

// WithFile appends log records to path, creating it if needed.
func WithFile(path string) Option {
	return func(cfg *config) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("file path cannot be empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		cfg.writers = append(cfg.writers, f)
		cfg.closers = append(cfg.closers, f)
		return nil
	}
}

func WithLevel(level slog.Level) Option {
	return func(cfg *config) error {
		cfg.level = level
		return nil
	}
}

// WithFormat selects "json" or "text" output.
func WithFormat(format string) Option {
	return func(cfg *config) error {
		switch f := strings.ToLower(strings.TrimSpace(format)); f {
		case "json", "text":
			cfg.format = f
			return nil
		default:
			return fmt.Errorf("unknown log format %q", format)
		}
	}
}

// WithComponent tags every record with component=<name>.
func WithComponent(component string) Option {
	return func(cfg *config) error {
		cfg.component = component
		return nil
	}
}

// ParseLevel maps debug, info, warn/warning and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

type closerSet struct {
	mu      sync.Mutex
	closers []io.Closer
}

func (c *closerSet) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

// New builds a structured logger. The returned closer releases any files
// opened by WithFile and is safe to call more than once.
func New(opts ...Option) (*slog.Logger, io.Closer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			for _, closer := range cfg.closers {
				_ = closer.Close()
			}
			return nil, nil, err
		}
	}

	var w io.Writer = os.Stderr
	switch len(cfg.writers) {
	case 0:
	case 1:
		w = cfg.writers[0]
	default:
		w = io.MultiWriter(cfg.writers...)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}
	var handler slog.Handler
	if cfg.format == "text" {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	if cfg.component != "" {
		logger = logger.With("component", cfg.component)
	}
	return logger, &closerSet{closers: cfg.closers}, nil
}

// OrDefault returns logger, or slog.Default() when it is nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
