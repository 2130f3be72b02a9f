package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/edulinkhq/schoolkit/pkg/logger"
)

// Registry defaults. Override with registry options.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultMaxEntries    = 100
	DefaultEvictInterval = 5 * time.Minute
)

// OpenFunc constructs a data-access handle scoped to one schema.
type OpenFunc func(ctx context.Context, schemaName string) (*pgxpool.Pool, error)

// PoolOpener returns an OpenFunc that builds pgx pools whose search_path
// is pinned to the requested schema, so every statement issued through
// the handle resolves unqualified names inside that tenant's schema.
func PoolOpener(connString string) OpenFunc {
	return func(ctx context.Context, schemaName string) (*pgxpool.Pool, error) {
		cfg, err := pgxpool.ParseConfig(connString)
		if err != nil {
			return nil, fmt.Errorf("schema registry: %w", err)
		}
		cfg.ConnConfig.RuntimeParams["search_path"] = schemaName
		// Tenant pools stay small; the system pool carries the bulk of
		// catalog traffic.
		cfg.MaxConns = 5
		cfg.MinConns = 0

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("schema registry: %w", err)
		}
		return pool, nil
	}
}

type registryEntry struct {
	pool     *pgxpool.Pool
	lastSeen int64 // UnixNano, atomic
}

// Registry lazily builds and caches one schema-scoped handle per schema
// name. Construction is single-flight, so concurrent first requests for
// a schema converge on one handle, and repeated Gets return the cached
// instance. Entries are evicted after idle TTL or under LRU pressure and
// their pools closed; the Get contract is unchanged by eviction, the
// next call simply rebuilds the handle.
type Registry struct {
	open OpenFunc
	sfg  singleflight.Group
	m    sync.Map // schemaName -> *registryEntry
	log  *slog.Logger

	idleTTL       time.Duration
	maxEntries    int
	evictInterval time.Duration

	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL sets how long an unused handle survives.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithMaxEntries bounds the number of cached handles. Zero disables the
// LRU pass.
func WithMaxEntries(n int) RegistryOption {
	return func(r *Registry) { r.maxEntries = n }
}

// WithEvictInterval sets the eviction scan cadence.
func WithEvictInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.evictInterval = d
		}
	}
}

// NewRegistry returns a registry using open for handle construction and
// starts the background evictor. Callers own the registry's lifecycle
// and must Close it on shutdown.
func NewRegistry(open OpenFunc, log *slog.Logger, opts ...RegistryOption) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		open:          open,
		log:           log,
		idleTTL:       DefaultIdleTTL,
		maxEntries:    DefaultMaxEntries,
		evictInterval: DefaultEvictInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.evictLoop()
	return r
}

// Get returns the handle for schemaName, building it on first use.
func (r *Registry) Get(ctx context.Context, schemaName string) (*pgxpool.Pool, error) {
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	if v, ok := r.m.Load(schemaName); ok {
		ent := v.(*registryEntry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.pool, nil
	}

	v, err, _ := r.sfg.Do(schemaName, func() (any, error) {
		// Double-check after the singleflight barrier.
		if v, ok := r.m.Load(schemaName); ok {
			ent := v.(*registryEntry)
			atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
			return ent.pool, nil
		}

		pool, err := r.open(ctx, schemaName)
		if err != nil {
			return nil, err
		}
		r.m.Store(schemaName, &registryEntry{
			pool:     pool,
			lastSeen: time.Now().UnixNano(),
		})
		r.log.DebugContext(ctx, "schema handle opened", logger.SchemaName(schemaName))
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pgxpool.Pool), nil
}

func (r *Registry) evictLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictIdle()
			r.evictLRU()
		}
	}
}

func (r *Registry) evictIdle() {
	now := time.Now().UnixNano()
	r.m.Range(func(key, value any) bool {
		ent := value.(*registryEntry)
		idle := time.Duration(now - atomic.LoadInt64(&ent.lastSeen))
		if idle > r.idleTTL {
			r.m.Delete(key)
			ent.pool.Close()
			r.log.Debug("schema handle evicted after idle",
				logger.SchemaName(key.(string)),
				logger.Duration(idle.Truncate(time.Second)))
		}
		return true
	})
}

func (r *Registry) evictLRU() {
	if r.maxEntries <= 0 {
		return
	}

	type kv struct {
		key string
		at  int64
	}
	var all []kv
	r.m.Range(func(key, value any) bool {
		all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&value.(*registryEntry).lastSeen)})
		return true
	})
	if len(all) <= r.maxEntries {
		return
	}

	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
	for _, victim := range all[:len(all)-r.maxEntries] {
		if v, ok := r.m.Load(victim.key); ok {
			r.m.Delete(victim.key)
			v.(*registryEntry).pool.Close()
			r.log.Debug("schema handle evicted under pressure", logger.SchemaName(victim.key))
		}
	}
}

// Len reports the number of cached handles.
func (r *Registry) Len() int {
	n := 0
	r.m.Range(func(any, any) bool { n++; return true })
	return n
}

// Close stops the evictor and closes every cached pool. Subsequent Gets
// return ErrRegistryClosed.
func (r *Registry) Close() {
	if r.closed.Swap(true) {
		return
	}
	close(r.stop)
	<-r.done
	r.m.Range(func(key, value any) bool {
		r.m.Delete(key)
		value.(*registryEntry).pool.Close()
		return true
	})
}
