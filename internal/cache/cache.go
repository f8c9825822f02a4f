// Package cache holds a time-boxed snapshot of the initiative listing and
// the fetch-and-coerce path in front of the remote table.
package cache

import (
	"context"
	"sync"
	"time"

	"iniciativas/internal/domain"
	"iniciativas/internal/nocodb"
)

// DefaultTTL is how long an unfiltered snapshot stays fresh.
const DefaultTTL = 5 * time.Minute

// Remote is the slice of the nocodb client the store consumes.
type Remote interface {
	ListRecords(ctx context.Context, opts nocodb.ListOptions) (nocodb.ListResult, error)
	InsertRecord(ctx context.Context, rec map[string]any) (map[string]any, error)
}

// Query narrows a listing. Any non-zero field bypasses the cache.
type Query struct {
	Limit    int
	Offset   int
	Statuses []string
}

func (q Query) filtered() bool {
	return q.Limit > 0 || q.Offset > 0 || len(q.Statuses) > 0
}

// Result is a coerced listing plus whether it was served from cache;
// Cached is also true for stale snapshots served after a remote failure.
type Result struct {
	Items  []domain.Initiative
	Total  int
	Cached bool
}

// DefaultPageSize is sent to the remote when the caller sets no limit.
const DefaultPageSize = 100

// Store is the process-wide snapshot of the unfiltered listing.
type Store struct {
	remote   Remote
	ttl      time.Duration
	pageSize int
	now      func() time.Time

	mu        sync.Mutex
	snap      []domain.Initiative
	total     int
	fetchedAt time.Time
}

// New creates a store over the remote with the given TTL (DefaultTTL when
// ttl <= 0).
func New(remote Remote, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{remote: remote, ttl: ttl, pageSize: DefaultPageSize, now: time.Now}
}

// SetPageSize overrides the limit used for unfiltered fetches.
func (s *Store) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// List returns initiatives. Filtered queries always hit the remote and do
// not touch the snapshot. Unfiltered queries serve the snapshot while fresh,
// refetch when expired, and fall back to a stale snapshot if the remote
// fails.
func (s *Store) List(ctx context.Context, q Query) (Result, error) {
	if q.filtered() {
		res, err := s.fetch(ctx, q)
		if err != nil {
			return Result{}, err
		}
		return res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snap) > 0 && s.now().Sub(s.fetchedAt) < s.ttl {
		return Result{Items: copySnap(s.snap), Total: s.total, Cached: true}, nil
	}

	res, err := s.fetch(ctx, q)
	if err != nil {
		if len(s.snap) > 0 {
			// Stale-served: better an old portfolio than an error mid-chat.
			return Result{Items: copySnap(s.snap), Total: s.total, Cached: true}, nil
		}
		return Result{}, err
	}
	s.snap = copySnap(res.Items)
	s.total = res.Total
	s.fetchedAt = s.now()
	return res, nil
}

// Insert validates nothing; callers pass an already validated payload. On
// success the snapshot is invalidated so the next listing is fresh.
func (s *Store) Insert(ctx context.Context, p domain.Payload) (domain.Initiative, error) {
	created, err := s.remote.InsertRecord(ctx, p.Record())
	if err != nil {
		return domain.Initiative{}, err
	}
	s.Invalidate()
	return domain.FromRecord(created), nil
}

// Invalidate expires the snapshot without dropping its data, keeping it
// available for stale fallback.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// Clear drops the snapshot entirely.
func (s *Store) Clear() {
	s.mu.Lock()
	s.snap = nil
	s.total = 0
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// Refresh forces a fresh unfiltered fetch, replacing the snapshot.
func (s *Store) Refresh(ctx context.Context) (Result, error) {
	s.Invalidate()
	return s.List(ctx, Query{})
}

// Age reports how old the current snapshot is; ok is false when empty.
func (s *Store) Age() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snap) == 0 || s.fetchedAt.IsZero() {
		return 0, false
	}
	return s.now().Sub(s.fetchedAt), true
}

func (s *Store) fetch(ctx context.Context, q Query) (Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.pageSize
	}
	res, err := s.remote.ListRecords(ctx, nocodb.ListOptions{
		Limit:    limit,
		Offset:   q.Offset,
		Statuses: q.Statuses,
	})
	if err != nil {
		return Result{}, err
	}
	items := make([]domain.Initiative, 0, len(res.List))
	for _, rec := range res.List {
		items = append(items, domain.FromRecord(rec))
	}
	return Result{Items: items, Total: res.Total}, nil
}

func copySnap(items []domain.Initiative) []domain.Initiative {
	out := make([]domain.Initiative, len(items))
	copy(out, items)
	return out
}
