// Package lookupcache caches content lookups in Redis.
package lookupcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/skillprobe/internal/logger"
	"github.com/abhisek/skillprobe/internal/recommend"
)

const (
	// DefaultTTL is how long a cached lookup stays valid.
	DefaultTTL = time.Hour

	keyPrefix = "skillprobe:lookup:"
)

// ErrMiss is returned by a Backend when the key is absent.
var ErrMiss = errors.New("cache miss")

// Backend is the key-value store behind the cache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Redis is a Backend over a go-redis client.
type Redis struct {
	rdb *goredis.Client
}

// Dial connects to the Redis server at addr and pings it.
func Dial(ctx context.Context, addr string) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(rdb), nil
}

// NewRedis wraps an existing client.
func NewRedis(rdb *goredis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Lookup is a read-through cache in front of a recommend.ContentLookup.
// Backend failures are logged and fall through to the inner lookup.
// Inner errors are never cached.
type Lookup struct {
	inner   recommend.ContentLookup
	backend Backend
	ttl     time.Duration
	log     *logger.Logger
}

var _ recommend.ContentLookup = (*Lookup)(nil)

// New wraps inner with a cache over backend. A non-positive ttl uses
// DefaultTTL.
func New(inner recommend.ContentLookup, backend Backend, ttl time.Duration, log *logger.Logger) *Lookup {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Lookup{inner: inner, backend: backend, ttl: ttl, log: log.With("component", "lookupcache")}
}

func (l *Lookup) Lookup(ctx context.Context, query string, profile recommend.LearnerProfile, strategy string, topK int) ([]recommend.ContentItem, error) {
	key := Key(query, profile, strategy, topK)

	raw, err := l.backend.Get(ctx, key)
	switch {
	case err == nil:
		var items []recommend.ContentItem
		if err := json.Unmarshal(raw, &items); err == nil {
			l.log.Debug("lookup cache hit", "key", key)
			return items, nil
		}
		l.log.Warn("discarding undecodable cache entry", "key", key)
	case errors.Is(err, ErrMiss):
	default:
		l.log.Warn("lookup cache read failed", "key", key, "error", err)
	}

	items, err := l.inner.Lookup(ctx, query, profile, strategy, topK)
	if err != nil {
		return nil, err
	}

	raw, err = json.Marshal(items)
	if err != nil {
		return items, nil
	}
	if err := l.backend.Set(ctx, key, raw, l.ttl); err != nil {
		l.log.Warn("lookup cache write failed", "key", key, "error", err)
	}
	return items, nil
}

// Key derives the cache key for a lookup. Interests are order-sensitive.
func Key(query string, profile recommend.LearnerProfile, strategy string, topK int) string {
	h := sha256.New()
	for _, part := range []string{
		strategy,
		strconv.Itoa(topK),
		profile.Context,
		strings.Join(profile.Interests, ","),
		query,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
