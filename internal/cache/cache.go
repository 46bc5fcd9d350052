// Package cache stores rendered documents keyed by a hash of everything
// that went into them. Keys are content addressed, so a change to the
// underlying records produces a new key and stale entries simply expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"predicacal/internal/apperr"
	"predicacal/internal/config"
)

// Cache is a byte-oriented key/value cache with per-entry TTL.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key hashes the JSON encoding of parts under prefix, e.g.
// "pdf:3b1f...". Parts must be JSON encodable.
func Key(prefix string, parts ...any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", apperr.Wrap(apperr.CodeInternal, err, "hash cache key")
		}
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// Open builds the cache selected by cfg.Driver.
func Open(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Driver) {
	case "none", "off":
		return Null{}, nil
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		r, err := NewRedis(ctx, RedisConfig{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, apperr.New(apperr.CodeInvalidArgument, "unknown cache driver %q", cfg.Driver)
	}
}

// Null never stores anything.
type Null struct{}

func (Null) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Null) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Null) Delete(context.Context, string) error { return nil }
func (Null) Close() error { return nil }

var _ Cache = Null{}
