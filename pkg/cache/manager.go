package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/Sternrassler/moviemeta/pkg/movie"
)

// Defaults for the lookup cache.
const (
	// DefaultCapacity bounds the number of cached titles.
	DefaultCapacity = 10000

	// DefaultFailureTTL keeps fallback results long enough to absorb repeated
	// titles in one burst, short enough that transient errors heal.
	DefaultFailureTTL = 30 * time.Second
)

// Config holds the cache sizing and validity policy.
type Config struct {
	// Capacity is the maximum number of entries. 0 means unbounded.
	Capacity int

	// NoMatchTTL is how long a "no match" result stays valid.
	// 0 means forever; a negative value disables caching of such results.
	NoMatchTTL time.Duration

	// FailureTTL is how long a failed lookup stays cached.
	// 0 means forever; a negative value disables caching of failures.
	FailureTTL time.Duration
}

// DefaultConfig returns the default cache policy.
func DefaultConfig() Config {
	return Config{
		Capacity:   DefaultCapacity,
		NoMatchTTL: 0,
		FailureTTL: DefaultFailureTTL,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager is an in-memory LRU cache of title lookup results. It is safe for
// concurrent use.
type Manager struct {
	cfg Config
	now func() time.Time

	mu    sync.Mutex
	ll    *list.List
	items map[Key]*list.Element
}

type item struct {
	key   Key
	entry Entry
}

// NewManager creates a new cache manager.
func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.Capacity < 0 {
		cfg.Capacity = 0
	}
	m := &Manager{
		cfg:   cfg,
		now:   time.Now,
		ll:    list.New(),
		items: make(map[Key]*list.Element),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get retrieves a cached result by key and marks it as recently used.
// Expired entries are removed and reported as a miss.
func (m *Manager) Get(key Key) (movie.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		CacheMisses.Inc()
		return movie.Result{}, false
	}

	it := el.Value.(*item)
	if it.entry.ExpiredAt(m.now()) {
		m.removeElement(el)
		CacheEvictions.WithLabelValues("expired").Inc()
		CacheMisses.Inc()
		return movie.Result{}, false
	}

	m.ll.MoveToFront(el)
	CacheHits.Inc()

	result := it.entry.Result
	result.Record = result.Record.Clone()
	return result, true
}

// Set stores a copy of result with the validity its outcome calls for.
// Results whose outcome is configured with a negative TTL are not stored.
func (m *Manager) Set(key Key, result movie.Result) {
	ttl := m.ttlFor(result.Outcome)
	if ttl < 0 {
		return
	}

	result.Record = result.Record.Clone()
	now := m.now()
	entry := Entry{Result: result, CachedAt: now}
	if ttl > 0 {
		entry.Expires = now.Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		el.Value.(*item).entry = entry
		m.ll.MoveToFront(el)
		return
	}

	m.items[key] = m.ll.PushFront(&item{key: key, entry: entry})

	if m.cfg.Capacity > 0 {
		for m.ll.Len() > m.cfg.Capacity {
			m.removeElement(m.ll.Back())
			CacheEvictions.WithLabelValues("capacity").Inc()
		}
	}
	CacheEntries.Set(float64(m.ll.Len()))
}

// Len returns the number of entries, including ones that expired but were
// not looked up since.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

func (m *Manager) ttlFor(outcome movie.Outcome) time.Duration {
	switch outcome {
	case movie.OutcomeNoMatch:
		return m.cfg.NoMatchTTL
	case movie.OutcomeFailed:
		return m.cfg.FailureTTL
	default:
		return 0
	}
}

func (m *Manager) removeElement(el *list.Element) {
	m.ll.Remove(el)
	delete(m.items, el.Value.(*item).key)
	CacheEntries.Set(float64(m.ll.Len()))
}
