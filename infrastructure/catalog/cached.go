package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/sqlanalyst/domain/catalog"
)

// DefaultTTL is how long cached metadata stays fresh.
const DefaultTTL = 5 * time.Minute

// DefaultLoadTimeout bounds a shared catalog load.
const DefaultLoadTimeout = 30 * time.Second

type cachedTables struct {
	tables    []catalog.Table
	expiresAt time.Time
}

type cachedColumns struct {
	columns   []catalog.Column
	expiresAt time.Time
}

// Cached memoizes table and column lookups of another catalog for a TTL.
// Row estimates are always read through.
type Cached struct {
	inner       catalog.Catalog
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	tables  *cachedTables
	columns map[string]cachedColumns
	group   singleflight.Group
	hits    int64
	misses  int64
}

// CachedOption configures the cache.
type CachedOption func(*Cached)

// WithTTL sets the freshness window. Non-positive values keep the default.
func WithTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLoadTimeout bounds each shared load. Non-positive values keep the
// default.
func WithLoadTimeout(d time.Duration) CachedOption {
	return func(c *Cached) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) CachedOption {
	return func(c *Cached) {
		c.now = now
	}
}

// NewCached wraps inner.
func NewCached(inner catalog.Catalog, opts ...CachedOption) *Cached {
	c := &Cached{
		inner:       inner,
		ttl:         DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
		columns:     make(map[string]cachedColumns),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tables implements catalog.Catalog.
func (c *Cached) Tables(ctx context.Context) ([]catalog.Table, error) {
	c.mu.RLock()
	entry := c.tables
	c.mu.RUnlock()
	if entry != nil && c.now().Before(entry.expiresAt) {
		c.hit()
		return entry.tables, nil
	}
	c.miss()

	v, err := c.load(ctx, "tables", func(ctx context.Context) (any, error) {
		tables, err := c.inner.Tables(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables = &cachedTables{tables: tables, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return tables, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]catalog.Table), nil
}

// Columns implements catalog.Catalog.
func (c *Cached) Columns(ctx context.Context, table string) ([]catalog.Column, error) {
	c.mu.RLock()
	entry, ok := c.columns[table]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		c.hit()
		return entry.columns, nil
	}
	c.miss()

	v, err := c.load(ctx, "columns:"+table, func(ctx context.Context) (any, error) {
		cols, err := c.inner.Columns(ctx, table)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.columns[table] = cachedColumns{columns: cols, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return cols, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]catalog.Column), nil
}

// load runs fn once per key for all concurrent callers. fn gets a context
// detached from the caller that started it, so one caller giving up does not
// fail the others; each caller still stops waiting when its own ctx ends.
func (c *Cached) load(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		return fn(loadCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RowEstimates implements catalog.Catalog.
func (c *Cached) RowEstimates(ctx context.Context) ([]catalog.TableRows, error) {
	return c.inner.RowEstimates(ctx)
}

// Invalidate drops everything cached.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = nil
	c.columns = make(map[string]cachedColumns)
}

// Stats returns hit and miss counts.
func (c *Cached) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cached) hit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *Cached) miss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

var _ catalog.Catalog = (*Cached)(nil)
