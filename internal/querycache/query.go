package querycache

import (
	"context"
	"time"
)

// Spec describes one query: a cache key, the fetch that backs it, and how
// long a result stays fresh. The zero value of Disabled means enabled,
// matching how views normally consume queries.
type Spec[T any] struct {
	Key        string
	StaleAfter time.Duration
	// Disabled queries never fetch and never report an error; they simply
	// have no data. Used to hold internal-console queries back until the
	// role gate resolves.
	Disabled bool
	Fetch    func(ctx context.Context) (T, error)
}

// Result is what a view sees for a query.
type Result[T any] struct {
	Data    T
	HasData bool
	// IsLoading is true only while data is genuinely absent; a stale cache
	// hit being revalidated is IsFetching, never IsLoading.
	IsLoading  bool
	IsFetching bool
	IsError    bool
	Err        error
}

// Run resolves a query against the store:
//
//   - fresh entry: served from cache, no network;
//   - stale entry: served immediately, background revalidate;
//   - absent entry: one coalesced blocking fetch, shared by every
//     concurrent caller of the same key;
//   - disabled: nothing fetched, nothing reported.
func Run[T any](ctx context.Context, s *Store, spec Spec[T]) Result[T] {
	if spec.Disabled {
		s.mu.Lock()
		if e, ok := s.entries[spec.Key]; ok {
			e.disabled = true
		}
		s.mu.Unlock()
		return Result[T]{}
	}

	fetch := func(ctx context.Context) (any, error) {
		return spec.Fetch(ctx)
	}

	now := time.Now()
	s.mu.Lock()
	e := s.ensure(spec.Key, spec.StaleAfter)
	e.disabled = false
	e.fetch = fetch

	if e.hasData {
		data := e.data
		isStale := e.stale(now) || e.status == StatusStale || e.status == StatusError
		isErr := e.status == StatusError
		err := e.err
		gen := e.gen
		needRefresh := isStale && !e.fetching
		if needRefresh {
			e.fetching = true
		}
		fetching := e.fetching
		s.mu.Unlock()

		if needRefresh {
			s.launch(ctx, spec.Key, gen, fetch)
		}
		return Result[T]{
			Data:       data.(T),
			HasData:    true,
			IsFetching: fetching,
			IsError:    isErr,
			Err:        err,
		}
	}

	// No cached data: block on one shared flight.
	gen := e.gen
	e.status = StatusLoading
	e.fetching = true
	s.mu.Unlock()

	data, err := s.fetchBlocking(ctx, spec.Key, gen, fetch)
	if err != nil {
		return Result[T]{IsError: true, Err: err}
	}
	return Result[T]{Data: data.(T), HasData: true}
}

// Peek reports the current state of a key without triggering any fetch.
// Renderers use it between events.
func Peek[T any](s *Store, key string) Result[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Result[T]{}
	}
	res := Result[T]{
		IsFetching: e.fetching,
		IsLoading:  e.fetching && !e.hasData,
		IsError:    e.status == StatusError,
		Err:        e.err,
	}
	if e.hasData {
		res.Data = e.data.(T)
		res.HasData = true
	}
	return res
}

// DataAs returns the cached value for key typed as T, when present.
func DataAs[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.Data(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
