// Package config loads kernel settings from INI or TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pagekernel/pkg/logging"
)

// Before-image codecs understood by the storage layer.
const (
	CodecSnappy = "snappy"
	CodecLZ4    = "lz4"
	CodecNone   = "none"
)

const (
	DefaultBufferPoolCapacity = 50
	DefaultJoinBlockMemory    = 131072 * 5
	DefaultLockTimeout        = 2 * time.Second
	DefaultLockRetryInterval  = 5 * time.Millisecond
)

type StorageConfig struct {
	BeforeImageCodec string
}

type BufferPoolConfig struct {
	// Capacity is the maximum number of cached pages.
	Capacity int
}

type JoinConfig struct {
	// BlockMemory is the byte budget of each join block.
	BlockMemory int
}

type LockConfig struct {
	Timeout       time.Duration
	RetryInterval time.Duration
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Config is the full kernel configuration.
type Config struct {
	DataDir    string
	Storage    StorageConfig
	BufferPool BufferPoolConfig
	Join       JoinConfig
	Lock       LockConfig
	Log        LogConfig
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:    "data",
		Storage:    StorageConfig{BeforeImageCodec: CodecSnappy},
		BufferPool: BufferPoolConfig{Capacity: DefaultBufferPoolCapacity},
		Join:       JoinConfig{BlockMemory: DefaultJoinBlockMemory},
		Lock: LockConfig{
			Timeout:       DefaultLockTimeout,
			RetryInterval: DefaultLockRetryInterval,
		},
		Log: LogConfig{Level: string(logging.LevelInfo), Format: "text"},
	}
}

// Load reads the file at path over the defaults. An empty path or a missing
// file yields the defaults. Files ending in .toml are parsed as TOML and
// everything else as INI.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Debug("config file not found, using defaults", "path", path)
		return cfg, nil
	}

	var err error
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = loadTOML(path, cfg)
	} else {
		err = loadINI(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.BufferPool.Capacity <= 0 {
		return fmt.Errorf("buffer_pool.capacity must be positive, got %d", c.BufferPool.Capacity)
	}
	if c.Join.BlockMemory <= 0 {
		return fmt.Errorf("join.block_memory must be positive, got %d", c.Join.BlockMemory)
	}
	if c.Lock.Timeout <= 0 || c.Lock.RetryInterval <= 0 {
		return fmt.Errorf("lock timeout and retry interval must be positive")
	}

	switch c.Storage.BeforeImageCodec {
	case CodecSnappy, CodecLZ4, CodecNone:
	default:
		return fmt.Errorf("unknown before-image codec %q", c.Storage.BeforeImageCodec)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Logging converts the [log] section into a logger configuration.
func (c *Config) Logging() logging.Config {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:      level,
		Format:     c.Log.Format,
		OutputPath: c.Log.OutputPath,
	}
}
