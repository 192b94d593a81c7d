package config

import (
	"gopkg.in/ini.v1"
)

func loadINI(path string, cfg *Config) error {
	file, err := ini.Load(path)
	if err != nil {
		return err
	}

	cfg.DataDir = file.Section("").Key("data_dir").MustString(cfg.DataDir)

	storage := file.Section("storage")
	cfg.Storage.BeforeImageCodec = storage.Key("before_image_codec").MustString(cfg.Storage.BeforeImageCodec)

	pool := file.Section("buffer_pool")
	cfg.BufferPool.Capacity = pool.Key("capacity").MustInt(cfg.BufferPool.Capacity)

	join := file.Section("join")
	cfg.Join.BlockMemory = join.Key("block_memory").MustInt(cfg.Join.BlockMemory)

	lock := file.Section("lock")
	cfg.Lock.Timeout = lock.Key("timeout").MustDuration(cfg.Lock.Timeout)
	cfg.Lock.RetryInterval = lock.Key("retry_interval").MustDuration(cfg.Lock.RetryInterval)

	log := file.Section("log")
	cfg.Log.Level = log.Key("level").MustString(cfg.Log.Level)
	cfg.Log.Format = log.Key("format").MustString(cfg.Log.Format)
	cfg.Log.OutputPath = log.Key("output").MustString(cfg.Log.OutputPath)
	return nil
}
