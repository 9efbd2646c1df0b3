// Package querycache keeps every view of the journal (chat list, active
// thread, trades, internal dashboards) consistent over one in-memory store:
// stale-while-revalidate reads, coalesced fetches, optimistic mutations and
// cross-entity invalidation.
package querycache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Status is the lifecycle state of a cache entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusFresh   Status = "fresh"
	StatusStale   Status = "stale"
	StatusError   Status = "error"
)

// FetchFunc loads the authoritative value for a key from the gateway.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	data       any
	hasData    bool
	err        error
	status     Status
	fetchedAt  time.Time
	staleAfter time.Duration

	// gen guards against late-arriving fetch results: a flight only
	// applies if the generation it started under is still current.
	gen uint64

	fetching bool
	mounted  int
	disabled bool
	fetch    FetchFunc
}

func (e *entry) stale(now time.Time) bool {
	return now.Sub(e.fetchedAt) >= e.staleAfter
}

// Store is the process-wide cache. It is constructed once at application
// start and injected into every service; the only wholesale reset is Clear
// on sign-out.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	flight  singleflight.Group
	nextGen uint64

	latches map[string]struct{}

	subs   map[int]chan string
	nextID int

	log *slog.Logger
}

// New creates an empty store.
func New(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		entries: make(map[string]*entry),
		latches: make(map[string]struct{}),
		subs:    make(map[int]chan string),
		log:     log,
	}
}

// ensure returns the entry for key, creating an idle one if absent.
// Caller holds s.mu.
func (s *Store) ensure(key string, staleAfter time.Duration) *entry {
	e, ok := s.entries[key]
	if !ok {
		s.nextGen++
		e = &entry{status: StatusIdle, gen: s.nextGen, staleAfter: staleAfter}
		s.entries[key] = e
	}
	if staleAfter > 0 {
		e.staleAfter = staleAfter
	}
	return e
}

// Data returns the cached value for key, if any.
func (s *Store) Data(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// Status reports the lifecycle state of key, deriving fresh→stale from age.
func (s *Store) Status(key string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return StatusIdle
	}
	if e.status == StatusFresh && e.stale(time.Now()) {
		return StatusStale
	}
	return e.status
}

// SetData writes a value directly, as optimistic updates do. It supersedes
// any in-flight fetch for the key.
func (s *Store) SetData(key string, data any) {
	s.mu.Lock()
	e := s.ensure(key, 0)
	s.nextGen++
	e.gen = s.nextGen
	e.data = data
	e.hasData = true
	e.err = nil
	e.status = StatusFresh
	e.fetchedAt = time.Now()
	e.fetching = false
	s.flight.Forget(key)
	s.mu.Unlock()
	s.notify(key)
}

// Update applies a read-modify-write to the cached value under the store
// lock, so concurrent handlers cannot interleave between read and merge.
// The function receives the current value (nil if absent) and returns the
// replacement.
func (s *Store) Update(key string, fn func(cur any) any) {
	s.mu.Lock()
	e := s.ensure(key, 0)
	var cur any
	if e.hasData {
		cur = e.data
	}
	next := fn(cur)
	s.nextGen++
	e.gen = s.nextGen
	e.data = next
	e.hasData = true
	e.err = nil
	e.status = StatusFresh
	e.fetchedAt = time.Now()
	e.fetching = false
	s.flight.Forget(key)
	s.mu.Unlock()
	s.notify(key)
}

// Invalidate marks the given keys stale and kicks a background refetch for
// every mounted one. Cached data stays visible while the refresh runs.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok {
			s.mu.Unlock()
			continue
		}
		s.nextGen++
		e.gen = s.nextGen
		s.flight.Forget(key)
		// Any flight in the air was just superseded; release its latch so
		// the refetch below (or the next read) can start a fresh one.
		e.fetching = false
		if e.hasData {
			e.status = StatusStale
			e.fetchedAt = time.Time{}
		} else {
			e.status = StatusIdle
		}
		refetch := e.mounted > 0 && !e.disabled && e.fetch != nil
		fetch := e.fetch
		gen := e.gen
		s.mu.Unlock()
		s.notify(key)

		if refetch {
			s.startFetch(ctx, key, gen, fetch)
		}
	}
}

// Clear evicts every entry. Called on sign-out before the network sign-out
// so no stale authenticated data can survive a slow call.
func (s *Store) Clear() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
		s.flight.Forget(key)
	}
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	for _, key := range keys {
		s.notify(key)
	}
}

// Mount registers a live consumer of key so focus refreshes include it.
// The returned release function must be called when the view goes away.
func (s *Store) Mount(key string) (release func()) {
	s.mu.Lock()
	e := s.ensure(key, 0)
	e.mounted++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if e, ok := s.entries[key]; ok && e.mounted > 0 {
				e.mounted--
			}
			s.mu.Unlock()
		})
	}
}

// Refocus refreshes every mounted, enabled entry in the background without
// dropping what is already cached. The interactive loop calls this when it
// regains the prompt, mirroring refetch-on-focus.
func (s *Store) Refocus(ctx context.Context) {
	type job struct {
		key   string
		gen   uint64
		fetch FetchFunc
	}
	var jobs []job

	s.mu.Lock()
	for key, e := range s.entries {
		if e.mounted == 0 || e.disabled || e.fetch == nil || e.fetching {
			continue
		}
		e.fetching = true
		jobs = append(jobs, job{key: key, gen: e.gen, fetch: e.fetch})
	}
	s.mu.Unlock()

	for _, j := range jobs {
		s.launch(ctx, j.key, j.gen, j.fetch)
	}
}

// Subscribe returns a channel of changed keys for view re-rendering, and a
// cancel function. Slow consumers miss notifications rather than block the
// store.
func (s *Store) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(key string) {
	s.mu.Lock()
	chans := make([]chan string, 0, len(s.subs))
	for _, ch := range s.subs {
		chans = append(chans, ch)
	}
	s.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- key:
		default:
		}
	}
}

// startFetch marks the entry fetching and launches a coalesced flight.
func (s *Store) startFetch(ctx context.Context, key string, gen uint64, fetch FetchFunc) {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok && e.gen == gen {
		if e.fetching {
			s.mu.Unlock()
			return
		}
		e.fetching = true
	} else {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.launch(ctx, key, gen, fetch)
}

// launch runs the flight in the background; the result lands through apply,
// which drops it if the generation moved on.
func (s *Store) launch(ctx context.Context, key string, gen uint64, fetch FetchFunc) {
	// The flight outlives the triggering caller on purpose; relevance is
	// re-checked on arrival instead of cancelling mid-air.
	fctx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		return fetch(fctx)
	})
	go func() {
		res := <-ch
		s.apply(key, gen, res.Val, res.Err)
	}()
}

// fetchBlocking runs (or joins) the flight for key and applies its result.
func (s *Store) fetchBlocking(ctx context.Context, key string, gen uint64, fetch FetchFunc) (any, error) {
	fctx := context.WithoutCancel(ctx)
	data, err, _ := s.flight.Do(key, func() (any, error) {
		return fetch(fctx)
	})
	s.apply(key, gen, data, err)
	return data, err
}

// apply merges a fetch outcome into the entry, unless the entry was
// superseded while the flight was in the air.
func (s *Store) apply(key string, gen uint64, data any, err error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		s.log.Debug("dropping superseded fetch result", slog.String("key", key))
		return
	}
	e.fetching = false
	if err != nil {
		e.err = err
		e.status = StatusError
		s.mu.Unlock()
		s.notify(key)
		return
	}
	e.data = data
	e.hasData = true
	e.err = nil
	e.status = StatusFresh
	e.fetchedAt = time.Now()
	s.mu.Unlock()
	s.notify(key)
}
