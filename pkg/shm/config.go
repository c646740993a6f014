package shm

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds segment and queue parameters. Values come from the
// environment so publisher and subscriber processes agree without a shared
// config file.
type Config struct {
	// SegmentName identifies the /dev/shm backing file.
	SegmentName string `env:"SHMBUS_SEGMENT_NAME" envDefault:"shmbus"`
	// SegmentSize is the mapped size in bytes when creating.
	SegmentSize int `env:"SHMBUS_SEGMENT_SIZE" envDefault:"4194304"`
	// QueueDepth bounds each subscriber's pending chunk references.
	QueueDepth int `env:"SHMBUS_QUEUE_DEPTH" envDefault:"1024"`
}

// ConfigFromEnv parses the SHMBUS_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse shmbus env config: %w", err)
	}
	if cfg.SegmentSize <= 0 {
		return Config{}, fmt.Errorf("invalid SHMBUS_SEGMENT_SIZE %d", cfg.SegmentSize)
	}
	if cfg.QueueDepth <= 0 {
		return Config{}, fmt.Errorf("invalid SHMBUS_QUEUE_DEPTH %d", cfg.QueueDepth)
	}
	return cfg, nil
}

// DefaultLayout is a general-purpose chunk class table: many small chunks,
// a few large ones. Roughly 1.5 MB of payload plus headers.
func DefaultLayout() []ChunkClass {
	return []ChunkClass{
		{Size: 64, Count: 256},
		{Size: 256, Count: 128},
		{Size: 1024, Count: 64},
		{Size: 4096, Count: 32},
		{Size: 16384, Count: 16},
	}
}
