// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"time"
)

// Options selects and configures a cache backend.
type Options struct {
	// RedisURL selects the Redis backend when non-empty.
	RedisURL string

	// Prefix namespaces Redis keys.
	Prefix string

	// DefaultTTL applies when callers pass a zero TTL.
	DefaultTTL time.Duration

	// MaxSize bounds the memory backend (0 = unlimited).
	MaxSize int
}

// New creates a cache from the options: Redis when a URL is configured,
// otherwise in-process memory.
func New(opts Options) (Cacher, error) {
	if opts.DefaultTTL == 0 {
		opts.DefaultTTL = time.Hour
	}

	if opts.RedisURL != "" {
		redisOpts := DefaultRedisCacheOptions()
		redisOpts.URL = opts.RedisURL
		if opts.Prefix != "" {
			redisOpts.Prefix = opts.Prefix
		}
		redisOpts.DefaultTTL = opts.DefaultTTL
		return NewRedisCache(redisOpts)
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      opts.DefaultTTL,
		MaxSize:         opts.MaxSize,
		CleanupInterval: time.Minute,
	}), nil
}
