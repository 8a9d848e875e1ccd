// Package cache keeps search gateway outcomes in Redis so that repeated rows
// are answered without a round trip to the index.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/redis"
)

const keyPrefix = "match:"

// Store is the subset of *pkgredis.Client the cache needs. Get must return an
// error satisfying pkgredis.IsNilError for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// entry is the cached form of an outcome. A nil Hit records that the query
// matched nothing.
type entry struct {
	Hit *matcher.Hit `json:"hit"`
}

// Gateway is a caching matcher.SearchGateway. Cache failures are logged and
// fall through to the wrapped gateway; only search errors are returned.
type Gateway struct {
	next    matcher.SearchGateway
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(next matcher.SearchGateway, store Store, ttl time.Duration, m *metrics.Metrics) *Gateway {
	return &Gateway{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "match-cache"),
	}
}

// Search implements matcher.SearchGateway.
func (g *Gateway) Search(ctx context.Context, q query.Query) (*matcher.Hit, error) {
	key, err := Key(q)
	if err != nil {
		g.logger.Error("cache key failed", "error", err)
		return g.next.Search(ctx, q)
	}
	if e, ok := g.get(ctx, key); ok {
		return e.Hit, nil
	}
	// The shared search outlives any one caller; the wrapped gateway bounds
	// it with its own timeouts.
	ch := g.group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		if e, ok := g.lookup(shared, key); ok {
			return e.Hit, nil
		}
		hit, err := g.next.Search(shared, q)
		if err != nil {
			return nil, err
		}
		g.set(shared, key, entry{Hit: hit})
		return hit, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		hit, _ := res.Val.(*matcher.Hit)
		return hit, nil
	}
}

func (g *Gateway) get(ctx context.Context, key string) (entry, bool) {
	e, ok := g.lookup(ctx, key)
	if ok {
		g.hits.Add(1)
		if g.metrics != nil {
			g.metrics.CacheHitsTotal.Inc()
		}
		g.logger.Debug("cache hit", "key", key)
		return e, true
	}
	g.misses.Add(1)
	if g.metrics != nil {
		g.metrics.CacheMissesTotal.Inc()
	}
	return entry{}, false
}

func (g *Gateway) lookup(ctx context.Context, key string) (entry, bool) {
	data, err := g.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			g.logger.Error("cache get failed", "key", key, "error", err)
		}
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		g.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return entry{}, false
	}
	return e, true
}

func (g *Gateway) set(ctx context.Context, key string, e entry) {
	data, err := json.Marshal(e)
	if err != nil {
		g.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := g.store.Set(ctx, key, data, g.ttl); err != nil {
		g.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate deletes every cached outcome and returns the number of keys
// removed.
func (g *Gateway) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := g.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating match cache: %w", err)
	}
	g.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (g *Gateway) Stats() (hits, misses int64) {
	return g.hits.Load(), g.misses.Load()
}

// Key derives the cache key of q from its canonical DSL encoding.
func Key(q query.Query) (string, error) {
	canonical, err := query.Canonical(q)
	if err != nil {
		return "", fmt.Errorf("encoding query: %w", err)
	}
	hash := sha256.Sum256(canonical)
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16]), nil
}
