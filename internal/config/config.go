package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/ebh/internal/cipher"
	"github.com/RowanDark/ebh/internal/env"
)

// Config captures the ebh configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	Mask      uint32           `yaml:"mask"`
	Alignment cipher.Alignment `yaml:"alignment"`
	Log       LogConfig        `yaml:"log"`
	Server    ServerConfig     `yaml:"server"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ServerConfig controls ebhd.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	BatchLimit      int           `yaml:"batch_limit"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in ebh configuration.
func Default() Config {
	return Config{
		Mask:      cipher.DefaultMask,
		Alignment: cipher.AlignHead,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8085",
			BatchLimit:      8,
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are read in this order, later ones winning:
//  1. ~/.ebh/config.yml
//  2. ./ebh.yml
//
// Environment variables prefixed with EBH_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile resolves the configuration from defaults, the file at path, and
// environment overrides. Discovered files are not consulted.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(&cfg, data); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports settings no component can run with.
func (c Config) Validate() error {
	if c.Alignment != cipher.AlignHead && c.Alignment != cipher.AlignTail {
		return fmt.Errorf("unknown mask alignment %s", c.Alignment)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q (json|text)", c.Log.Format)
	}
	if c.Server.BatchLimit < 1 {
		return fmt.Errorf("server.batch_limit must be at least 1, got %d", c.Server.BatchLimit)
	}
	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}
	return loadOptional(cfg, filepath.Join(home, ".ebh", "config.yml"))
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadOptional(cfg, filepath.Join(wd, "ebh.yml"))
}

func loadOptional(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type fileConfig struct {
	Mask      *maskValue        `yaml:"mask"`
	Alignment *string           `yaml:"alignment"`
	Log       *fileLogConfig    `yaml:"log"`
	Server    *fileServerConfig `yaml:"server"`
}

type fileLogConfig struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
	File   *string `yaml:"file"`
}

type fileServerConfig struct {
	Addr            *string `yaml:"addr"`
	BatchLimit      *int    `yaml:"batch_limit"`
	MaxBodyBytes    *int64  `yaml:"max_body_bytes"`
	ShutdownTimeout *string `yaml:"shutdown_timeout"`
}

// maskValue accepts a YAML integer or a string such as "0x12345678".
type maskValue uint32

func (m *maskValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: mask must be a scalar", node.Line)
	}
	v, err := cipher.ParseMask(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = maskValue(v)
	return nil
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Mask != nil {
		cfg.Mask = uint32(*fc.Mask)
	}
	if fc.Alignment != nil {
		align, err := cipher.ParseAlignment(*fc.Alignment)
		if err != nil {
			return err
		}
		cfg.Alignment = align
	}
	if fc.Log != nil {
		if fc.Log.Level != nil {
			cfg.Log.Level = strings.TrimSpace(*fc.Log.Level)
		}
		if fc.Log.Format != nil {
			cfg.Log.Format = strings.TrimSpace(*fc.Log.Format)
		}
		if fc.Log.File != nil {
			cfg.Log.File = strings.TrimSpace(*fc.Log.File)
		}
	}
	if fc.Server != nil {
		if fc.Server.Addr != nil {
			cfg.Server.Addr = strings.TrimSpace(*fc.Server.Addr)
		}
		if fc.Server.BatchLimit != nil {
			cfg.Server.BatchLimit = *fc.Server.BatchLimit
		}
		if fc.Server.MaxBodyBytes != nil {
			cfg.Server.MaxBodyBytes = *fc.Server.MaxBodyBytes
		}
		if fc.Server.ShutdownTimeout != nil {
			d, err := time.ParseDuration(strings.TrimSpace(*fc.Server.ShutdownTimeout))
			if err != nil {
				return fmt.Errorf("server.shutdown_timeout: %w", err)
			}
			cfg.Server.ShutdownTimeout = d
		}
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := env.Lookup("EBH_MASK", "EBH_DUFFS_MASK"); ok {
		mask, err := cipher.ParseMask(val)
		if err != nil {
			return fmt.Errorf("EBH_MASK: %w", err)
		}
		cfg.Mask = mask
	}
	if val, ok := env.Lookup("EBH_MASK_ALIGNMENT"); ok {
		align, err := cipher.ParseAlignment(val)
		if err != nil {
			return fmt.Errorf("EBH_MASK_ALIGNMENT: %w", err)
		}
		cfg.Alignment = align
	}
	if val, ok := env.Lookup("EBH_LOG_LEVEL"); ok {
		cfg.Log.Level = val
	}
	if val, ok := env.Lookup("EBH_LOG_FORMAT"); ok {
		cfg.Log.Format = val
	}
	if val, ok := env.Lookup("EBH_LOG_FILE"); ok {
		cfg.Log.File = val
	}
	if val, ok := env.Lookup("EBH_ADDR", "EBH_SERVER"); ok {
		cfg.Server.Addr = val
	}
	if val, ok := env.Lookup("EBH_BATCH_LIMIT"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("EBH_BATCH_LIMIT: %w", err)
		}
		cfg.Server.BatchLimit = n
	}
	return nil
}
