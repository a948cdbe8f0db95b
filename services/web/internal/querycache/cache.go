// Package querycache is the process-wide cache of remote reads. It deduplicates
// concurrent reads of one key, keeps the last good value while a key refetches,
// and tells subscribers when a key resolves, fails or goes stale.
package querycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"knowhow/pkg/logger"
)

var ErrClosed = errors.New("query cache closed")

type Status int

const (
	StatusAbsent Status = iota
	StatusPending
	StatusResolved
	StatusStale
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusStale:
		return "stale"
	case StatusError:
		return "error"
	default:
		return "absent"
	}
}

// Snapshot is the state of one key at a point in time. Value is the last good
// result and survives refetches and failures; HasValue says whether there is one.
type Snapshot struct {
	Key       Key
	Status    Status
	Value     interface{}
	HasValue  bool
	Err       error
	Fetching  bool
	UpdatedAt time.Time
}

// Get returns the snapshot value as T.
func Get[T any](s Snapshot) (T, bool) {
	v, ok := s.Value.(T)
	return v, ok && s.HasValue
}

type Fetcher func(ctx context.Context) (interface{}, error)

type Listener func(Snapshot)

type Options struct {
	// FetchTimeout bounds every fetch. Zero means no timeout.
	FetchTimeout time.Duration
	// IdleTTL evicts entries nobody subscribes to or read for this long. Zero disables eviction.
	IdleTTL time.Duration
	Logger  *logger.Logger
	Now     func() time.Time
}

type entry struct {
	key        Key
	status     Status
	value      interface{}
	hasValue   bool
	err        error
	updatedAt  time.Time
	lastAccess time.Time

	// token identifies the latest request; completions carrying any other are dropped.
	// Tokens come from one cache-wide counter so a recreated entry never reuses one.
	token    uint64
	inflight bool
	done     chan struct{}

	listeners map[uint64]Listener
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:       e.key,
		Status:    e.status,
		Value:     e.value,
		HasValue:  e.hasValue,
		Err:       e.err,
		Fetching:  e.inflight,
		UpdatedAt: e.updatedAt,
	}
}

func (e *entry) listenerList() []Listener {
	out := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		out = append(out, l)
	}
	return out
}

// supersede abandons the in-flight request, if any. Its waiters are released.
func (e *entry) supersede() {
	if !e.inflight {
		return
	}
	e.token = 0
	e.inflight = false
	close(e.done)
	e.done = nil
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextID  uint64
	tokens  uint64
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	fetchTimeout time.Duration
	idleTTL      time.Duration
	now          func() time.Time
	log          *logger.Logger
}

func New(opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries:      make(map[string]*entry),
		ctx:          ctx,
		cancel:       cancel,
		fetchTimeout: opts.FetchTimeout,
		idleTTL:      opts.IdleTTL,
		now:          opts.Now,
		log:          opts.Logger.With("component", "QueryCache"),
	}
	if c.idleTTL > 0 {
		c.wg.Add(1)
		go c.janitor()
	}
	return c
}

func (c *Cache) entryLocked(key Key) *entry {
	id := key.String()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key, listeners: make(map[uint64]Listener)}
		c.entries[id] = e
	}
	e.lastAccess = c.now()
	return e
}

// Resolve returns the current state of key without blocking. A resolved key is
// served from memory and a key with a fetch in flight is left alone. Anything else
// (absent, stale, failed) starts a fetch and comes back pending.
func (c *Cache) Resolve(key Key, fetch Fetcher) Snapshot {
	snap, _ := c.resolve(key, fetch, false)
	return snap
}

// Refetch starts a new fetch for key even if one is in flight; the older request's
// result will be dropped.
func (c *Cache) Refetch(key Key, fetch Fetcher) Snapshot {
	snap, _ := c.resolve(key, fetch, true)
	return snap
}

func (c *Cache) resolve(key Key, fetch Fetcher, force bool) (Snapshot, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{Key: key, Status: StatusError, Err: ErrClosed}, nil
	}

	e := c.entryLocked(key)
	switch {
	case e.inflight && !force:
		return e.snapshot(), e.done
	case e.status == StatusResolved && !force:
		return e.snapshot(), nil
	}

	e.supersede()
	c.startLocked(e, fetch)
	return e.snapshot(), e.done
}

func (c *Cache) startLocked(e *entry, fetch Fetcher) {
	c.tokens++
	token := c.tokens
	e.token = token
	e.inflight = true
	e.status = StatusPending
	e.done = make(chan struct{})

	c.wg.Add(1)
	go c.run(e, token, fetch)
}

func (c *Cache) run(e *entry, token uint64, fetch Fetcher) {
	defer c.wg.Done()
	key := e.key

	ctx, cancel := c.ctx, context.CancelFunc(func() {})
	if c.fetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.fetchTimeout)
	}
	value, err := fetch(ctx)
	cancel()

	c.mu.Lock()
	// the entry may have been forgotten or evicted and recreated meanwhile
	if c.closed || c.entries[key.String()] != e || e.token != token || !e.inflight {
		c.mu.Unlock()
		return
	}
	e.inflight = false
	close(e.done)
	e.done = nil
	if err != nil {
		e.status = StatusError
		e.err = err
		c.log.Debug("query failed", "key", key.String(), "error", err)
	} else {
		e.status = StatusResolved
		e.value = value
		e.hasValue = true
		e.err = nil
		e.updatedAt = c.now()
	}
	snap := e.snapshot()
	listeners := e.listenerList()
	c.mu.Unlock()

	notify(listeners, snap)
}

// Await resolves key and blocks until it settles, for request/response callers.
// A key invalidated while waiting is resolved again.
func (c *Cache) Await(ctx context.Context, key Key, fetch Fetcher) (Snapshot, error) {
	snap, done := c.resolve(key, fetch, false)
	for {
		switch {
		case snap.Status == StatusResolved:
			return snap, nil
		case snap.Status == StatusError && done == nil:
			return snap, snap.Err
		case done == nil:
			snap, done = c.resolve(key, fetch, false)
			continue
		}

		select {
		case <-done:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
		snap, done = c.peek(key)
	}
}

func (c *Cache) peek(key Key) (Snapshot, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{Key: key, Status: StatusError, Err: ErrClosed}, nil
	}
	e, ok := c.entries[key.String()]
	if !ok {
		return Snapshot{Key: key, Status: StatusAbsent}, nil
	}
	return e.snapshot(), e.done
}

// Peek returns the current state of key without fetching.
func (c *Cache) Peek(key Key) Snapshot {
	snap, _ := c.peek(key)
	return snap
}

// Invalidate marks every matching entry stale and drops fetches in flight for them.
// Nothing is fetched here; subscribers are told and re-resolve if they still care.
func (c *Cache) Invalidate(patterns ...Pattern) int {
	type note struct {
		listeners []Listener
		snap      Snapshot
	}
	var notes []note

	c.mu.Lock()
	for _, e := range c.entries {
		if !matchesAny(patterns, e.key) || e.status == StatusAbsent {
			continue
		}
		e.supersede()
		e.status = StatusStale
		notes = append(notes, note{listeners: e.listenerList(), snap: e.snapshot()})
	}
	c.mu.Unlock()

	for _, n := range notes {
		notify(n.listeners, n.snap)
	}
	if len(notes) > 0 {
		c.log.Debug("invalidated", "entries", len(notes), "patterns", len(patterns))
	}
	return len(notes)
}

// Forget drops every matching entry together with its subscribers.
func (c *Cache) Forget(patterns ...Pattern) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		if !matchesAny(patterns, e.key) {
			continue
		}
		e.supersede()
		delete(c.entries, id)
		n++
	}
	return n
}

// Subscribe registers listener for key. It is called, outside any lock, whenever
// the key resolves, fails or goes stale. The returned func unsubscribes.
func (c *Cache) Subscribe(key Key, listener Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	c.nextID++
	id := c.nextID
	c.entryLocked(key).listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e, ok := c.entries[key.String()]; ok {
				delete(e.listeners, id)
			}
		})
	}
}

// Watch subscribes to key and resolves it, and resolves it again each time it
// goes stale. This is what a mounted view does.
func (c *Cache) Watch(key Key, fetch Fetcher, listener Listener) (Snapshot, func()) {
	unsubscribe := c.Subscribe(key, func(s Snapshot) {
		if s.Status == StatusStale {
			s = c.Resolve(key, fetch)
		}
		listener(s)
	})
	return c.Resolve(key, fetch), unsubscribe
}

// Len reports how many entries the cache holds.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close cancels fetches in flight and waits for them and the janitor to stop.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.entries {
		e.supersede()
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Cache) janitor() {
	defer c.wg.Done()
	ticker := time.NewTicker(janitorInterval(c.idleTTL))
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if n := c.evictIdle(); n > 0 {
				c.log.Debug("evicted idle entries", "count", n)
			}
		}
	}
}

// minJanitorInterval keeps a tiny IdleTTL from spinning the janitor.
const minJanitorInterval = 10 * time.Millisecond

func janitorInterval(ttl time.Duration) time.Duration {
	if d := ttl / 2; d > minJanitorInterval {
		return d
	}
	return minJanitorInterval
}

func (c *Cache) evictIdle() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.idleTTL)
	n := 0
	for id, e := range c.entries {
		if e.inflight || len(e.listeners) > 0 || e.lastAccess.After(cutoff) {
			continue
		}
		delete(c.entries, id)
		n++
	}
	return n
}

func matchesAny(patterns []Pattern, k Key) bool {
	for _, p := range patterns {
		if p.Matches(k) {
			return true
		}
	}
	return false
}

func notify(listeners []Listener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}
