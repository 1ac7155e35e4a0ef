package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/leonardcser/apod-cache/internal/logger"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Defaults applied by New to zero-valued Options fields.
const (
	DefaultMaxEntries    = 1000
	DefaultPruneFraction = 0.2
	DefaultSaveInterval  = 5 * time.Minute
	DefaultSweepInterval = time.Hour
)

// Options configure a Cache. Zero values select the defaults above; a
// negative interval disables that timer.
type Options struct {
	MaxEntries    int
	PruneFraction float64
	SaveInterval  time.Duration
	SweepInterval time.Duration
	Policy        Policy
	// Store receives snapshots. A nil Store keeps the cache memory-only.
	Store  Store
	Clock  Clock
	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.PruneFraction <= 0 || o.PruneFraction > 1 {
		o.PruneFraction = DefaultPruneFraction
	}
	if o.SaveInterval == 0 {
		o.SaveInterval = DefaultSaveInterval
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.Policy == nil {
		o.Policy = DefaultPolicy()
	}
	if o.Clock == nil {
		o.Clock = systemClock{}
	}
	if o.Logger == nil {
		l := logger.Get()
		o.Logger = &l
	}
	return o
}

// Cache is a TTL cache of T values with bounded size and snapshot
// persistence. It is safe for concurrent use by multiple goroutines.
//
// Cache owns a maintenance goroutine. Call Close to stop it and flush the
// final snapshot.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*record[T]
	stats   Stats
	seq     uint64

	// saveMu serializes snapshot writes so they land in the order taken.
	saveMu sync.Mutex

	opts  Options
	store Store
	clock Clock
	log   zerolog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New constructs a cache, adopts the snapshot found in opts.Store, drops
// whatever expired while the process was down, and starts the maintenance
// loop.
func New[T any](opts Options) *Cache[T] {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache[T]{
		entries: make(map[string]*record[T]),
		opts:    opts,
		store:   opts.Store,
		clock:   opts.Clock,
		log:     opts.Logger.With().Str("component", "cache").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.stats.CreatedAt = c.clock.Now().UTC()

	c.load()
	c.Sweep()

	if opts.SaveInterval > 0 || opts.SweepInterval > 0 {
		c.wg.Add(1)
		go c.maintenanceLoop(opts.SaveInterval, opts.SweepInterval)
	}
	return c
}

// Get returns the payload stored under key. Expired entries are removed and
// count as misses.
func (c *Cache[T]) Get(key string) (T, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	r, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	if r.Expired(now) {
		c.deleteLocked(key)
		c.stats.Misses++
		return zero, false
	}
	c.stats.Hits++
	return r.Data, true
}

// Set stores payload under key with the TTL of kind, replacing any existing
// entry. Exceeding MaxEntries prunes the oldest entries before Set returns.
func (c *Cache[T]) Set(key string, payload T, kind Kind) {
	if kind == "" {
		kind = KindDefault
	}
	now := c.clock.Now()
	ttl := c.opts.Policy.TTL(kind)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[key] = &record[T]{Entry: newEntry(payload, kind, now, ttl), key: key, seq: c.seq}
	if len(c.entries) > c.opts.MaxEntries {
		removed := c.pruneLocked()
		c.log.Debug().Int("removed", removed).Int("size", len(c.entries)).Msg("pruned oldest entries")
	}
	c.stats.Size = len(c.entries)
}

// Has reports whether key holds a live entry. It leaves the counters and the
// store untouched.
func (c *Cache[T]) Has(key string) bool {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return ok && !r.Expired(now)
}

// Delete removes key without counting a lookup.
func (c *Cache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.deleteLocked(key)
	return true
}

// Clear removes every entry whose key starts with prefix; an empty prefix
// clears the whole cache. The new state is persisted immediately. It returns
// the number of entries removed.
func (c *Cache[T]) Clear(prefix string) int {
	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Size = len(c.entries)
	c.mu.Unlock()

	c.log.Info().Str("prefix", prefix).Int("removed", removed).Msg("cache cleared")
	c.persist("clear")
	return removed
}

// Stats returns the current counters and hit rate.
func (c *Cache[T]) Stats() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return newReport(s)
}

// Keys returns the stored keys in lexical order, including expired entries
// the sweep has not reached yet.
func (c *Cache[T]) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Sweep removes every expired entry and persists the result if anything was
// removed. It returns the number of entries removed.
func (c *Cache[T]) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	removed := 0
	for key, r := range c.entries {
		if r.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Size = len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.log.Debug().Int("removed", removed).Msg("swept expired entries")
		c.persist("sweep")
	}
	return removed
}

func (c *Cache[T]) deleteLocked(key string) {
	delete(c.entries, key)
	c.stats.Size = len(c.entries)
}
