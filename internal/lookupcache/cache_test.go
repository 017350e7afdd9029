package lookupcache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/skillprobe/internal/gaps"
	"github.com/abhisek/skillprobe/internal/logger"
	"github.com/abhisek/skillprobe/internal/recommend"
)

type countingLookup struct {
	calls int
	items []recommend.ContentItem
	err   error
}

func (c *countingLookup) Lookup(context.Context, string, recommend.LearnerProfile, string, int) ([]recommend.ContentItem, error) {
	c.calls++
	return c.items, c.err
}

type memBackend struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func fractions() []recommend.ContentItem {
	return []recommend.ContentItem{
		{ID: "c1", Title: "Fractions", Difficulty: gaps.Beginner, Score: 2},
	}
}

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

func TestLookupReadThrough(t *testing.T) {
	inner := &countingLookup{items: fractions()}
	backend := newMemBackend()
	c := New(inner, backend, time.Minute, nil)
	ctx := context.Background()
	profile := recommend.LearnerProfile{LearnerID: "ada"}

	first, err := c.Lookup(ctx, "fractions tutorial", profile, "hybrid", 3)
	require.NoError(t, err)
	second, err := c.Lookup(ctx, "fractions tutorial", profile, "hybrid", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)

	key := Key("fractions tutorial", profile, "hybrid", 3)
	assert.Equal(t, time.Minute, backend.ttls[key])
}

func TestLookupDefaultTTL(t *testing.T) {
	backend := newMemBackend()
	c := New(&countingLookup{items: fractions()}, backend, 0, nil)

	_, err := c.Lookup(context.Background(), "q", recommend.LearnerProfile{}, "hybrid", 3)
	require.NoError(t, err)
	for _, ttl := range backend.ttls {
		assert.Equal(t, DefaultTTL, ttl)
	}
}

func TestLookupDistinctKeys(t *testing.T) {
	inner := &countingLookup{items: fractions()}
	c := New(inner, newMemBackend(), time.Minute, nil)
	ctx := context.Background()

	_, _ = c.Lookup(ctx, "q", recommend.LearnerProfile{}, "hybrid", 3)
	_, _ = c.Lookup(ctx, "q", recommend.LearnerProfile{}, "keyword", 3)
	_, _ = c.Lookup(ctx, "q", recommend.LearnerProfile{}, "hybrid", 5)
	_, _ = c.Lookup(ctx, "q", recommend.LearnerProfile{Context: "grade 8"}, "hybrid", 3)

	assert.Equal(t, 4, inner.calls)
}

func TestLookupBackendFailureFallsThrough(t *testing.T) {
	inner := &countingLookup{items: fractions()}
	backend := newMemBackend()
	backend.getErr = errors.New("connection reset")
	backend.setErr = errors.New("connection reset")
	log, logs := observedLogger()
	c := New(inner, backend, time.Minute, log)

	got, err := c.Lookup(context.Background(), "q", recommend.LearnerProfile{}, "hybrid", 3)
	require.NoError(t, err)
	assert.Equal(t, fractions(), got)
	assert.Equal(t, 1, logs.FilterMessage("lookup cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("lookup cache write failed").Len())
}

func TestLookupInnerErrorNotCached(t *testing.T) {
	boom := errors.New("catalog offline")
	inner := &countingLookup{err: boom}
	backend := newMemBackend()
	c := New(inner, backend, time.Minute, nil)

	_, err := c.Lookup(context.Background(), "q", recommend.LearnerProfile{}, "hybrid", 3)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, backend.data)
}

func TestLookupCorruptEntryRefetches(t *testing.T) {
	inner := &countingLookup{items: fractions()}
	backend := newMemBackend()
	key := Key("q", recommend.LearnerProfile{}, "hybrid", 3)
	backend.data[key] = []byte("{not json")
	c := New(inner, backend, time.Minute, nil)

	got, err := c.Lookup(context.Background(), "q", recommend.LearnerProfile{}, "hybrid", 3)
	require.NoError(t, err)
	assert.Equal(t, fractions(), got)
	assert.Equal(t, 1, inner.calls)
}

func TestKeyShape(t *testing.T) {
	k := Key("q", recommend.LearnerProfile{Interests: []string{"pizza"}}, "hybrid", 3)
	assert.True(t, strings.HasPrefix(k, keyPrefix))
	assert.Len(t, k, len(keyPrefix)+64)
	assert.NotEqual(t, k, Key("q", recommend.LearnerProfile{Interests: []string{"music"}}, "hybrid", 3))
}

func TestRedisUnreachableFallsThrough(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	inner := &countingLookup{items: fractions()}
	c := New(inner, NewRedis(rdb), time.Minute, nil)

	got, err := c.Lookup(context.Background(), "q", recommend.LearnerProfile{}, "hybrid", 3)
	require.NoError(t, err)
	assert.Equal(t, fractions(), got)
	assert.Equal(t, 1, inner.calls)
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, "127.0.0.1:1")
	require.Error(t, err)
}
