package config

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml"
)

func loadTOML(path string, cfg *Config) error {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return err
	}

	if err := tomlString(tree, "data_dir", &cfg.DataDir); err != nil {
		return err
	}
	if err := tomlString(tree, "storage.before_image_codec", &cfg.Storage.BeforeImageCodec); err != nil {
		return err
	}
	if err := tomlInt(tree, "buffer_pool.capacity", &cfg.BufferPool.Capacity); err != nil {
		return err
	}
	if err := tomlInt(tree, "join.block_memory", &cfg.Join.BlockMemory); err != nil {
		return err
	}
	if err := tomlDuration(tree, "lock.timeout", &cfg.Lock.Timeout); err != nil {
		return err
	}
	if err := tomlDuration(tree, "lock.retry_interval", &cfg.Lock.RetryInterval); err != nil {
		return err
	}
	if err := tomlString(tree, "log.level", &cfg.Log.Level); err != nil {
		return err
	}
	if err := tomlString(tree, "log.format", &cfg.Log.Format); err != nil {
		return err
	}
	return tomlString(tree, "log.output", &cfg.Log.OutputPath)
}

func tomlString(tree *toml.Tree, key string, dst *string) error {
	if !tree.Has(key) {
		return nil
	}
	s, ok := tree.Get(key).(string)
	if !ok {
		return fmt.Errorf("%s: expected string, got %T", key, tree.Get(key))
	}
	*dst = s
	return nil
}

func tomlInt(tree *toml.Tree, key string, dst *int) error {
	if !tree.Has(key) {
		return nil
	}
	n, ok := tree.Get(key).(int64)
	if !ok {
		return fmt.Errorf("%s: expected integer, got %T", key, tree.Get(key))
	}
	*dst = int(n)
	return nil
}

// tomlDuration accepts a Go duration string ("250ms") or integer milliseconds.
func tomlDuration(tree *toml.Tree, key string, dst *time.Duration) error {
	if !tree.Has(key) {
		return nil
	}
	switch v := tree.Get(key).(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	case int64:
		*dst = time.Duration(v) * time.Millisecond
	default:
		return fmt.Errorf("%s: expected duration, got %T", key, v)
	}
	return nil
}
