// Package querycache is a tag-invalidated query cache. Results are keyed by
// endpoint and serialized argument; writes invalidate tags and every
// subscribed result providing one of them is refetched.
package querycache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultKeepUnusedFor is how long a result with no subscribers stays cached.
const DefaultKeepUnusedFor = 60 * time.Second

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Fetcher performs the upstream read for one entry.
type Fetcher func(ctx context.Context) (any, error)

// QueryDef binds a read endpoint to the tags its results provide.
type QueryDef struct {
	Endpoint string
	Provides func(arg any) []Tag
}

// Snapshot is a copy of an entry's state.
type Snapshot struct {
	Key         Key
	Status      Status
	Data        any
	Err         error
	Stale       bool
	Subscribers int
	Tags        []Tag
	FetchedAt   time.Time
}

// MutationResult is reported to mutation observers after every write.
type MutationResult struct {
	Endpoint string
	Tags     []Tag
	Err      error
}

var ErrEvicted = errors.New("querycache: entry evicted")

type entry struct {
	key       Key
	tags      []Tag
	status    Status
	data      any
	err       error
	gen       uint64
	stale     bool
	subs      int
	fetch     Fetcher
	fetchedAt time.Time
	idleSince time.Time
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:         e.key,
		Status:      e.status,
		Data:        e.data,
		Err:         e.err,
		Stale:       e.stale,
		Subscribers: e.subs,
		Tags:        append([]Tag(nil), e.tags...),
		FetchedAt:   e.fetchedAt,
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	seq     uint64

	flight        singleflight.Group
	keepUnusedFor time.Duration
	now           func() time.Time
	logger        *zap.Logger
	background    sync.WaitGroup

	obsMu        sync.RWMutex
	onUpdate     []func(Snapshot)
	onInvalidate []func([]Tag)
	onMutation   []func(MutationResult)
}

type Option func(*Cache)

func WithKeepUnusedFor(d time.Duration) Option {
	return func(c *Cache) { c.keepUnusedFor = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[Key]*entry),
		keepUnusedFor: DefaultKeepUnusedFor,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUpdate registers an observer for entry state changes.
func (c *Cache) OnUpdate(fn func(Snapshot)) {
	c.obsMu.Lock()
	c.onUpdate = append(c.onUpdate, fn)
	c.obsMu.Unlock()
}

// OnInvalidate registers an observer for every Invalidate call that matched
// at least one tag request, matching entries or not.
func (c *Cache) OnInvalidate(fn func([]Tag)) {
	c.obsMu.Lock()
	c.onInvalidate = append(c.onInvalidate, fn)
	c.obsMu.Unlock()
}

// OnMutation registers an observer for mutation outcomes.
func (c *Cache) OnMutation(fn func(MutationResult)) {
	c.obsMu.Lock()
	c.onMutation = append(c.onMutation, fn)
	c.obsMu.Unlock()
}

// Query returns the cached result for (def.Endpoint, arg) when it is fresh and
// otherwise fetches it. Concurrent identical queries share one fetch. The
// fetch is detached from ctx: giving up on the result does not abort the
// upstream request.
func (c *Cache) Query(ctx context.Context, def QueryDef, arg any, fetch Fetcher) (any, error) {
	key, err := KeyOf(def.Endpoint, arg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sweepLocked()
	e := c.entryLocked(key, def, arg, fetch)
	if e.status == StatusSuccess && !e.stale {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	return c.run(ctx, key)
}

// Subscription keeps an entry alive and refetched on invalidation.
type Subscription struct {
	cache *Cache
	key   Key
	once  sync.Once
}

func (s *Subscription) Key() Key { return s.key }

// Snapshot returns the current state of the subscribed entry.
func (s *Subscription) Snapshot() (Snapshot, bool) {
	return s.cache.Snapshot(s.key)
}

// Unsubscribe releases the subscription. It is idempotent.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.cache.release(s.key) })
}

// Subscribe registers interest in (def.Endpoint, arg). A missing, failed or
// stale result is fetched in the background.
func (c *Cache) Subscribe(def QueryDef, arg any, fetch Fetcher) (*Subscription, error) {
	key, err := KeyOf(def.Endpoint, arg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sweepLocked()
	e := c.entryLocked(key, def, arg, fetch)
	e.subs++
	e.idleSince = time.Time{}
	needFetch := e.status == StatusIdle || e.status == StatusError || (e.stale && e.status != StatusLoading)
	c.mu.Unlock()

	if needFetch {
		c.refetch(key)
	}
	return &Subscription{cache: c, key: key}, nil
}

func (c *Cache) release(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.subs == 0 {
		return
	}
	e.subs--
	if e.subs == 0 {
		e.idleSince = c.now()
	}
}

// Mutate runs a write. On success the given tags are invalidated; on failure
// the cache is left untouched. Either way mutation observers are told once.
func (c *Cache) Mutate(ctx context.Context, endpoint string, invalidates []Tag, fn func(ctx context.Context) (any, error)) (any, error) {
	data, err := fn(ctx)
	if err == nil {
		c.Invalidate(invalidates...)
	} else {
		c.logger.Info("mutation failed", zap.String("endpoint", endpoint), zap.Error(err))
	}

	res := MutationResult{Endpoint: endpoint, Tags: append([]Tag(nil), invalidates...), Err: err}
	c.obsMu.RLock()
	observers := append([]func(MutationResult){}, c.onMutation...)
	c.obsMu.RUnlock()
	for _, fn := range observers {
		fn(res)
	}
	return data, err
}

// Invalidate marks every entry providing one of tags as stale. Subscribed
// entries are refetched in the background, in no particular order, and keep
// serving their previous data until the refetch lands; unsubscribed entries
// are dropped. It returns the keys being refetched.
func (c *Cache) Invalidate(tags ...Tag) []Key {
	if len(tags) == 0 {
		return nil
	}

	var refetch []Key
	c.mu.Lock()
	for key, e := range c.entries {
		if !matchesAny(tags, e.tags) {
			continue
		}
		if e.subs == 0 {
			delete(c.entries, key)
			continue
		}
		c.seq++
		e.gen = c.seq
		e.stale = true
		refetch = append(refetch, key)
	}
	c.mu.Unlock()

	c.logger.Debug("tags invalidated",
		zap.Strings("tags", TagStrings(tags)), zap.Int("refetching", len(refetch)))

	c.obsMu.RLock()
	observers := append([]func([]Tag){}, c.onInvalidate...)
	c.obsMu.RUnlock()
	for _, fn := range observers {
		fn(tags)
	}

	for _, key := range refetch {
		c.refetch(key)
	}
	return refetch
}

func matchesAny(invalidated, provided []Tag) bool {
	for _, inv := range invalidated {
		for _, p := range provided {
			if inv.Invalidates(p) {
				return true
			}
		}
	}
	return false
}

// Snapshot returns a copy of the entry for key.
func (c *Cache) Snapshot(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(), true
}

// Entries returns snapshots of every live entry.
func (c *Cache) Entries() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.snapshot())
	}
	return out
}

// Sweep evicts results that have had no subscribers for longer than the
// keep-unused period.
func (c *Cache) Sweep() {
	c.mu.Lock()
	c.sweepLocked()
	c.mu.Unlock()
}

// Wait blocks until background refetches started so far have finished.
func (c *Cache) Wait() {
	c.background.Wait()
}

func (c *Cache) sweepLocked() {
	now := c.now()
	for key, e := range c.entries {
		if e.subs == 0 && e.status != StatusLoading && !e.idleSince.IsZero() && now.Sub(e.idleSince) > c.keepUnusedFor {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) entryLocked(key Key, def QueryDef, arg any, fetch Fetcher) *entry {
	e, ok := c.entries[key]
	if !ok {
		c.seq++
		e = &entry{key: key, gen: c.seq, idleSince: c.now()}
		if def.Provides != nil {
			e.tags = def.Provides(arg)
		}
		c.entries[key] = e
	}
	if fetch != nil {
		e.fetch = fetch
	}
	return e
}

func (c *Cache) refetch(key Key) {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		if _, err := c.run(context.Background(), key); err != nil && !errors.Is(err, ErrEvicted) {
			c.logger.Debug("background refetch failed", zap.Stringer("key", key), zap.Error(err))
		}
	}()
}

// run fetches the current generation of key, joining an identical in-flight
// fetch when one exists.
func (c *Cache) run(ctx context.Context, key Key) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return nil, ErrEvicted
	}
	gen, fetch := e.gen, e.fetch
	changed := e.status != StatusLoading
	e.status = StatusLoading
	snap := e.snapshot()
	c.mu.Unlock()

	if changed {
		c.notify(snap)
	}

	flightKey := key.String() + "#" + strconv.FormatUint(gen, 10)
	ch := c.flight.DoChan(flightKey, func() (any, error) {
		data, err := fetch(context.WithoutCancel(ctx))
		c.store(key, gen, data, err)
		return data, err
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// store records a fetch result unless the entry was invalidated or replaced
// after the fetch started.
func (c *Cache) store(key Key, gen uint64, data any, err error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.gen != gen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.status = StatusSuccess
		e.data = data
		e.err = nil
	}
	e.stale = false
	e.fetchedAt = c.now()
	snap := e.snapshot()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Cache) notify(s Snapshot) {
	c.obsMu.RLock()
	observers := append([]func(Snapshot){}, c.onUpdate...)
	c.obsMu.RUnlock()
	for _, fn := range observers {
		fn(s)
	}
}
