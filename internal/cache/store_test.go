package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

func blockingFetcher(started chan<- struct{}, release <-chan struct{}, value any) Fetcher {
	return func(ctx context.Context) (any, error) {
		started <- struct{}{}
		<-release
		return value, nil
	}
}

func TestGetSharesInFlightFetch(t *testing.T) {
	s := New(0)
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "leads", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := s.Get(context.Background(), "leads-list?limit=100", []string{TagLeads}, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "leads", v)
	}
}

func TestGetReturnsFreshEntryWithoutFetching(t *testing.T) {
	s := New(time.Minute)
	s.Put("lead:1", []string{TagLeads}, "cached")

	v, err := s.Get(context.Background(), "lead:1", nil, func(ctx context.Context) (any, error) {
		t.Fatal("fresh entry must not be fetched")
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "cached", v)
}

func TestOutOfOrderResponsesKeepNewestVersion(t *testing.T) {
	s := New(0)
	s.Put("lead:7", nil, "v0")
	s.Invalidate("lead:7")

	started1, release1 := make(chan struct{}, 1), make(chan struct{})
	started2, release2 := make(chan struct{}, 1), make(chan struct{})

	var first any
	done1 := make(chan struct{})
	go func() {
		defer close(done1)
		first, _ = s.Get(context.Background(), "lead:7", nil, blockingFetcher(started1, release1, "v1"))
	}()
	<-started1

	// a mutation lands between the two requests
	s.Invalidate("lead:7")

	var second any
	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		second, _ = s.Get(context.Background(), "lead:7", nil, blockingFetcher(started2, release2, "v2"))
	}()
	<-started2

	close(release2)
	<-done2
	close(release1)
	<-done1

	v, meta, ok := s.Peek("lead:7")
	require.True(t, ok)
	assert.Equal(t, "v2", v)
	assert.False(t, meta.Stale)
	assert.Equal(t, "v2", second)
	assert.Equal(t, "v2", first, "the late response resolves to the newer cached value")
}

func TestWriteIssuedBeforeInvalidationStaysStale(t *testing.T) {
	s := New(0)
	s.Put("leads-list?limit=100", []string{TagLeadsList}, "old")
	s.Invalidate(TagLeadsList)

	started, release := make(chan struct{}, 1), make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Get(context.Background(), "leads-list?limit=100", nil, blockingFetcher(started, release, "pre-mutation"))
	}()
	<-started
	s.Invalidate(TagLeadsList)
	close(release)
	<-done

	v, meta, _ := s.Peek("leads-list?limit=100")
	assert.Equal(t, "pre-mutation", v)
	assert.True(t, meta.Stale)

	var calls atomic.Int32
	v, err := s.Get(context.Background(), "leads-list?limit=100", nil, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "post-mutation", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "post-mutation", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidateMatchesKeysAndTagsIdempotently(t *testing.T) {
	s := New(0)
	s.Put(LeadKey(1), []string{TagLeads}, "lead")
	s.Put(CampaignsKey(1), []string{TagLeads, LeadTag(1)}, "campaigns")
	s.Put(WebsitesKey(1), []string{TagLeads, LeadTag(1)}, "websites")
	s.Put(LeadKey(2), []string{TagLeads}, "other")

	assert.Equal(t, 3, s.Invalidate(LeadTag(1)))
	assert.Equal(t, 3, s.Invalidate(LeadTag(1)))
	assert.Equal(t, 0, s.Invalidate("lead:999"))

	_, meta, _ := s.Peek(LeadKey(2))
	assert.False(t, meta.Stale)
	_, meta, _ = s.Peek(WebsitesKey(1))
	assert.True(t, meta.Stale)
}

func TestRevalidateRefetchesOnlyStaleMatchingEntries(t *testing.T) {
	s := New(0)
	var leadCalls, otherCalls atomic.Int32
	ctx := context.Background()

	_, err := s.Get(ctx, LeadKey(1), []string{TagLeads}, func(ctx context.Context) (any, error) {
		return int(leadCalls.Add(1)), nil
	})
	require.NoError(t, err)
	_, err = s.Get(ctx, LeadKey(2), []string{TagLeads}, func(ctx context.Context) (any, error) {
		return int(otherCalls.Add(1)), nil
	})
	require.NoError(t, err)

	s.Invalidate(LeadTag(1))
	require.NoError(t, s.Revalidate(ctx, TagLeads))

	assert.Equal(t, int32(2), leadCalls.Load())
	assert.Equal(t, int32(1), otherCalls.Load())
	v, meta, _ := s.Peek(LeadKey(1))
	assert.Equal(t, 2, v)
	assert.False(t, meta.Stale)
}

func TestRevalidateReportsFetchErrors(t *testing.T) {
	s := New(0)
	fail := false
	_, err := s.Get(context.Background(), KeyDashboard, nil, func(ctx context.Context) (any, error) {
		if fail {
			return nil, errors.New("backend down")
		}
		return "stats", nil
	})
	require.NoError(t, err)

	fail = true
	s.Invalidate(KeyDashboard)
	err = s.Revalidate(context.Background(), KeyDashboard)

	require.Error(t, err)
	v, meta, _ := s.Peek(KeyDashboard)
	assert.Equal(t, "stats", v, "last-known value survives a failed fetch")
	assert.True(t, meta.Stale)
}

func TestExpireMarksOldEntries(t *testing.T) {
	s := New(time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Put("old", nil, 1)
	now = now.Add(2 * time.Minute)
	s.Put("new", nil, 2)

	assert.Equal(t, 1, s.Expire())
	_, meta, _ := s.Peek("old")
	assert.True(t, meta.Stale)
	_, meta, _ = s.Peek("new")
	assert.False(t, meta.Stale)
}

func TestLoadRejectsWrongType(t *testing.T) {
	s := New(0)
	s.Put("lead:1", nil, "not a number")

	_, err := Load(context.Background(), s, "lead:1", nil, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	assert.Error(t, err)
}

func TestListKeyEncodesFilters(t *testing.T) {
	assert.Equal(t,
		"leads-list?limit=100&location=Mumbai%2C+India&niche=dental+clinics",
		ListKey(entity.LeadFilter{Location: "Mumbai, India", Niche: "dental clinics", Limit: 100}),
	)
	assert.NotEqual(t,
		ListKey(entity.LeadFilter{Niche: "a", Limit: 100}),
		ListKey(entity.LeadFilter{Location: "a", Limit: 100}),
	)
}
