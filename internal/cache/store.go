// Package cache holds the client-side replica of backend state.
//
// Entries are keyed by string and labelled with tags. Every write carries a
// logical version drawn from a monotonic counter when the request is issued,
// and a write older than the entry's current version is discarded. Reads of a
// missing, stale or expired entry trigger a fetch; concurrent reads of the
// same entry share that fetch.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads the current backend value for one entry.
type Fetcher func(ctx context.Context) (any, error)

// Meta describes an entry without exposing its value.
type Meta struct {
	Version   uint64
	Stale     bool
	FetchedAt time.Time
	Tags      []string
}

type entry struct {
	value     any
	version   uint64
	invalidAt uint64
	gen       uint64
	stale     bool
	fetchedAt time.Time
	tags      map[string]struct{}
	fetch     Fetcher
}

func (e *entry) fresh(now time.Time, ttl time.Duration) bool {
	if e.stale {
		return false
	}
	return ttl <= 0 || now.Sub(e.fetchedAt) < ttl
}

func (e *entry) matches(key, target string) bool {
	if key == target {
		return true
	}
	_, ok := e.tags[target]
	return ok
}

type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   atomic.Uint64
	flights singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	log     *logrus.Entry
}

// New returns an empty store. A zero ttl disables age-based expiry.
func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		log:     logrus.WithField("component", "cache"),
	}
}

// Get returns the entry for key, fetching it when absent, stale or expired.
// tags are attached to the entry on its first successful write.
func (s *Store) Get(ctx context.Context, key string, tags []string, fetch Fetcher) (any, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && e.fresh(s.now(), s.ttl) {
		v := e.value
		s.mu.Unlock()
		return v, nil
	}
	var gen uint64
	if ok {
		gen = e.gen
		if fetch == nil {
			fetch = e.fetch
		}
	}
	s.mu.Unlock()

	if fetch == nil {
		return nil, fmt.Errorf("cache: no fetcher for %s", key)
	}

	// Readers that arrive after an invalidation must not join a flight issued
	// before it, so the generation is part of the flight key.
	flight := key + "#" + strconv.FormatUint(gen, 10)
	v, err, shared := s.flights.Do(flight, func() (any, error) {
		return s.load(context.WithoutCancel(ctx), key, tags, fetch)
	})
	if shared {
		s.log.WithField("key", key).Debug("joined in-flight fetch")
	}
	return v, err
}

func (s *Store) load(ctx context.Context, key string, tags []string, fetch Fetcher) (any, error) {
	version := s.clock.Add(1)
	val, err := fetch(ctx)
	if err != nil {
		s.log.WithFields(logrus.Fields{"key": key, "version": version}).Warnf("fetch failed: %v", err)
		return nil, err
	}
	return s.apply(key, tags, fetch, val, version), nil
}

// Put writes value under key with a freshly issued version.
func (s *Store) Put(key string, tags []string, value any) {
	s.apply(key, tags, nil, value, s.clock.Add(1))
}

// apply stores val unless a newer version already landed, and returns the
// value the entry holds afterwards.
func (s *Store) apply(key string, tags []string, fetch Fetcher, val any, version uint64) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{tags: make(map[string]struct{})}
		s.entries[key] = e
	}
	if ok && version < e.version {
		s.log.WithFields(logrus.Fields{
			"key":     key,
			"version": version,
			"current": e.version,
		}).Debug("discarded out-of-order write")
		return e.value
	}

	e.value = val
	e.version = version
	e.fetchedAt = s.now()
	// Data requested before the latest invalidation is kept as last-known
	// but cannot clear the staleness the invalidation caused.
	e.stale = version < e.invalidAt
	if fetch != nil {
		e.fetch = fetch
	}
	for _, t := range tags {
		e.tags[t] = struct{}{}
	}
	return val
}

// Invalidate marks every entry whose key or tag matches one of targets as
// stale. Unknown targets and already-stale entries are not errors. It returns
// the number of entries touched.
func (s *Store) Invalidate(targets ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, e := range s.entries {
		for _, t := range targets {
			if e.matches(key, t) {
				e.invalidAt = s.clock.Add(1)
				e.gen++
				e.stale = true
				n++
				break
			}
		}
	}
	if n > 0 {
		s.log.WithField("targets", targets).Debugf("invalidated %d entries", n)
	}
	return n
}

// Revalidate re-fetches every stale entry matching targets that knows how to
// fetch itself.
func (s *Store) Revalidate(ctx context.Context, targets ...string) error {
	type job struct {
		key   string
		fetch Fetcher
	}

	s.mu.Lock()
	var jobs []job
	for key, e := range s.entries {
		if !e.stale || e.fetch == nil {
			continue
		}
		for _, t := range targets {
			if e.matches(key, t) {
				jobs = append(jobs, job{key: key, fetch: e.fetch})
				break
			}
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, j := range jobs {
		if _, err := s.Get(ctx, j.key, nil, j.fetch); err != nil {
			errs = append(errs, fmt.Errorf("revalidate %s: %w", j.key, err))
		}
	}
	return errors.Join(errs...)
}

// Expire marks entries older than the TTL as stale.
func (s *Store) Expire() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, e := range s.entries {
		if !e.stale && now.Sub(e.fetchedAt) >= s.ttl {
			e.stale = true
			e.gen++
			n++
		}
	}
	return n
}

// Peek returns the cached value without fetching.
func (s *Store) Peek(key string) (any, Meta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, Meta{}, false
	}
	tags := make([]string, 0, len(e.tags))
	for t := range e.tags {
		tags = append(tags, t)
	}
	return e.value, Meta{
		Version:   e.version,
		Stale:     e.stale || (s.ttl > 0 && s.now().Sub(e.fetchedAt) >= s.ttl),
		FetchedAt: e.fetchedAt,
		Tags:      tags,
	}, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Load is a typed wrapper around Get.
func Load[T any](ctx context.Context, s *Store, key string, tags []string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.Get(ctx, key, tags, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: entry %s holds %T", key, v)
	}
	return t, nil
}
