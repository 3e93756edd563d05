// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tenant persists the last selected tenant so the active streaming
// context can be restored at bootstrap. Every backend stores a single key.
package tenant

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// Key is the one key every backend reads and writes.
const Key = "staysync.active_tenant"

// Store loads and saves the active tenant. Load returns "" and a nil error
// when nothing was saved; saving "" clears the key.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, tenantID string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Dir holds the file, badger and sqlite data.
	Dir   string
	Redis RedisConfig
}

// Open returns the configured store. An empty backend means "file".
func Open(ctx context.Context, cfg Config) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("tenant: %s backend needs a data dir", backend)
		}
		return NewFileStore(filepath.Join(cfg.Dir, "tenant.json")), nil
	case BackendBadger:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("tenant: %s backend needs a data dir", backend)
		}
		return OpenBadgerStore(filepath.Join(cfg.Dir, "badger"))
	case BackendSQLite:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("tenant: %s backend needs a data dir", backend)
		}
		return OpenSQLiteStore(ctx, filepath.Join(cfg.Dir, "staysync.sqlite"))
	case BackendRedis:
		return OpenRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("tenant: unknown store backend: %s (supported: file, redis, badger, sqlite, memory)", backend)
	}
}

// MemoryStore keeps the tenant in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	tenantID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenantID, nil
}

func (s *MemoryStore) Save(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantID = tenantID
	return nil
}

func (s *MemoryStore) Close() error { return nil }
