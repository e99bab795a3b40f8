package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/observability"
)

// --- mocks ---

type countingProvider struct {
	forwardCalls int
	reverseCalls int
	coords       domain.Coordinates
	area         string
	err          error
}

func (p *countingProvider) Forward(_ context.Context, _ string) (domain.Coordinates, error) {
	p.forwardCalls++
	if p.err != nil {
		return domain.Coordinates{}, p.err
	}
	return p.coords, nil
}

func (p *countingProvider) Reverse(_ context.Context, _, _ float64) (string, error) {
	p.reverseCalls++
	if p.err != nil {
		return "", p.err
	}
	return p.area, nil
}

type memoryAreaCache struct {
	names map[string]string
	fail  bool
}

func newMemoryAreaCache() *memoryAreaCache {
	return &memoryAreaCache{names: make(map[string]string)}
}

func (m *memoryAreaCache) AreaName(_ context.Context, key string) (string, bool, error) {
	if m.fail {
		return "", false, errors.New("cache down")
	}
	name, ok := m.names[key]
	return name, ok, nil
}

func (m *memoryAreaCache) PutAreaName(_ context.Context, key, name string) error {
	if m.fail {
		return errors.New("cache down")
	}
	if _, ok := m.names[key]; !ok {
		m.names[key] = name
	}
	return nil
}

func testResolver(p Provider, areas *memoryAreaCache, minInterval time.Duration) *Resolver {
	return NewResolver(p, areas, minInterval, 10,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- ResolveAreaName ---

func TestResolveAreaName_SecondCallServedFromCache(t *testing.T) {
	p := &countingProvider{area: "Center City, Philadelphia"}
	r := testResolver(p, newMemoryAreaCache(), time.Millisecond)

	first := r.ResolveAreaName(context.Background(), 39.9526, -75.1652)
	second := r.ResolveAreaName(context.Background(), 39.9526, -75.1652)

	assert.Equal(t, "Center City, Philadelphia", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.reverseCalls, "second call must be a cache hit")
}

func TestResolveAreaName_ProviderFailureDegrades(t *testing.T) {
	p := &countingProvider{err: domain.ErrProviderUnreachable}
	cache := newMemoryAreaCache()
	r := testResolver(p, cache, time.Millisecond)

	name := r.ResolveAreaName(context.Background(), 39.9526, -75.1652)
	assert.Equal(t, UnknownArea, name)
	assert.Empty(t, cache.names, "failures must not be cached")

	// A later call retries the provider rather than serving the sentinel.
	p.err = nil
	p.area = "Philadelphia"
	assert.Equal(t, "Philadelphia", r.ResolveAreaName(context.Background(), 39.9526, -75.1652))
}

func TestResolveAreaName_EmptyProviderResultDegrades(t *testing.T) {
	p := &countingProvider{area: ""}
	r := testResolver(p, newMemoryAreaCache(), time.Millisecond)
	assert.Equal(t, UnknownArea, r.ResolveAreaName(context.Background(), 1, 2))
}

func TestResolveAreaName_CacheFaultFallsThroughToProvider(t *testing.T) {
	p := &countingProvider{area: "Somewhere"}
	cache := newMemoryAreaCache()
	cache.fail = true
	r := testResolver(p, cache, time.Millisecond)

	name := r.ResolveAreaName(context.Background(), 1, 2)
	assert.Equal(t, "Somewhere", name)
	assert.Equal(t, 1, p.reverseCalls)
}

func TestLocationKey_Deterministic(t *testing.T) {
	assert.Equal(t, locationKey(40.0, -75.0), locationKey(40.0, -75.0))
	assert.Equal(t, "40.0000,-75.0000", locationKey(40.0, -75.0))
	// Queries that agree to 4dp share an entry.
	assert.Equal(t, locationKey(40.00001, -75.0), locationKey(40.0, -75.0))
	assert.NotEqual(t, locationKey(40.001, -75.0), locationKey(40.0, -75.0))
}

// --- ResolveCoordinates ---

func TestResolveCoordinates_FirstMatchCached(t *testing.T) {
	p := &countingProvider{coords: domain.Coordinates{Lat: 39.9526, Lon: -75.1652}}
	r := testResolver(p, newMemoryAreaCache(), time.Millisecond)

	c1, err := r.ResolveCoordinates(context.Background(), "Philadelphia")
	require.NoError(t, err)
	c2, err := r.ResolveCoordinates(context.Background(), "  philadelphia ")
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
	assert.Equal(t, 1, p.forwardCalls, "normalized queries share a cache entry")
}

func TestResolveCoordinates_NotFoundPassesThrough(t *testing.T) {
	p := &countingProvider{err: domain.ErrNotFound}
	r := testResolver(p, newMemoryAreaCache(), time.Millisecond)

	_, err := r.ResolveCoordinates(context.Background(), "nowhere")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Not-found results are not cached; a retry hits the provider again.
	_, _ = r.ResolveCoordinates(context.Background(), "nowhere")
	assert.Equal(t, 2, p.forwardCalls)
}

func TestResolveCoordinates_TimeoutPassesThrough(t *testing.T) {
	p := &countingProvider{err: domain.ErrProviderTimeout}
	r := testResolver(p, newMemoryAreaCache(), time.Millisecond)

	_, err := r.ResolveCoordinates(context.Background(), "Philadelphia")
	require.ErrorIs(t, err, domain.ErrProviderTimeout)
}

func TestResolveCoordinates_EmptyPlace(t *testing.T) {
	p := &countingProvider{}
	r := testResolver(p, newMemoryAreaCache(), time.Millisecond)

	_, err := r.ResolveCoordinates(context.Background(), "   ")
	var verr domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, p.forwardCalls)
}

// --- rate gate ---

func TestRateGate_EnforcesMinimumSpacing(t *testing.T) {
	p := &countingProvider{area: "A"}
	r := testResolver(p, newMemoryAreaCache(), 60*time.Millisecond)

	start := time.Now()
	r.ResolveAreaName(context.Background(), 1, 1)
	r.ResolveAreaName(context.Background(), 2, 2) // distinct key, must hit provider
	elapsed := time.Since(start)

	assert.Equal(t, 2, p.reverseCalls)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond,
		"second provider call must wait out the minimum spacing")
}

func TestRateGate_CacheHitsSkipTheGate(t *testing.T) {
	p := &countingProvider{area: "A"}
	r := testResolver(p, newMemoryAreaCache(), 200*time.Millisecond)

	r.ResolveAreaName(context.Background(), 1, 1)

	start := time.Now()
	r.ResolveAreaName(context.Background(), 1, 1)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "cache hit must not queue on the gate")
	assert.Equal(t, 1, p.reverseCalls)
}

func TestRateGate_AbandonedCallerDegrades(t *testing.T) {
	p := &countingProvider{area: "A"}
	r := testResolver(p, newMemoryAreaCache(), time.Hour)

	// Consume the initial token.
	r.ResolveAreaName(context.Background(), 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	name := r.ResolveAreaName(ctx, 2, 2)
	assert.Equal(t, UnknownArea, name)
	assert.Equal(t, 1, p.reverseCalls, "gated call abandoned before reaching the provider")
}

// --- LRU cache ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", domain.Coordinates{Lat: 1})
	c.put("b", domain.Coordinates{Lat: 2})

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v.Lat)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.Coordinates{Lat: 1})
	c.put("b", domain.Coordinates{Lat: 2})
	c.put("c", domain.Coordinates{Lat: 3}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")
	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.Coordinates{Lat: 1})
	c.put("b", domain.Coordinates{Lat: 2})

	c.get("a")
	c.put("c", domain.Coordinates{Lat: 3}) // evicts "b", not "a"

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")
	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.Coordinates{Lat: 1})
	c.put("a", domain.Coordinates{Lat: 9})

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 9.0, v.Lat)
}
