// Package kv provides the small synchronous key-value service preferences are
// persisted in. Backends: in-process memory, a JSON file on disk and Redis.
package kv

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Store is a string key-value service. Get reports absence with ok=false
// rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path,omitempty"`
	RedisURL string `yaml:"redis_url,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

const (
	KindMemory = "memory"
	KindFile   = "file"
	KindRedis  = "redis"
)

// Open constructs the backend named by cfg.Kind.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindMemory:
		return NewMemory(), nil
	case KindFile:
		f, err := NewFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindRedis:
		r, err := NewRedis(ctx, cfg.RedisURL, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}

// Memory keeps values for the lifetime of the process.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
