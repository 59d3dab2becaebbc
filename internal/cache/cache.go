// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the caching layer for rendered post views and
// taxonomy listings, backed by either an in-process store or Redis.
package cache

import (
	"context"
	"time"
)

// Cacher is the interface all cache backends implement. Values are opaque
// byte slices so the same interface serves the in-memory and Redis
// backends. Implementations must be safe for concurrent use.
type Cacher interface {
	// Get returns the value for key, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this cache.
	Clear(ctx context.Context) error

	// Has reports whether key exists and has not expired.
	Has(ctx context.Context, key string) (bool, error)

	// Close releases backend resources.
	Close() error
}

// Stats holds counters exposed by backends that track them.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
	Size    int64   `json:"size_bytes,omitempty"`
}

// StatsProvider is implemented by backends that track statistics.
type StatsProvider interface {
	Stats() Stats
}

// Error is a sentinel error type for cache operations.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)
