// Package geocode resolves place names to coordinates and back, caching
// results and pacing provider calls to honor third-party usage policy.
package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/observability"
	"github.com/elbaradei1993/vibe-check-webapp/internal/store"
)

// UnknownArea is returned when a reverse lookup cannot produce a display
// name. Area names are best-effort UI sugar, so failures degrade to this
// sentinel instead of an error path.
const UnknownArea = "Unknown area"

// Provider is the external geocoding service contract.
type Provider interface {
	// Forward converts a free-text place name to coordinates. An empty
	// result set yields domain.ErrNotFound.
	Forward(ctx context.Context, placeName string) (domain.Coordinates, error)

	// Reverse converts a coordinate pair to a display name.
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Resolver coordinates geocoding through two caches and a process-wide rate
// gate. Forward lookups use a size-bounded in-memory LRU; reverse lookups
// use the persistent area_names store, checked before every provider call.
type Resolver struct {
	provider Provider
	areas    store.AreaNameCache
	forward  *lruCache

	// limiter enforces minimum spacing between provider calls
	// process-wide; concurrent callers queue rather than fire together.
	limiter *rate.Limiter

	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewResolver creates a Resolver. minInterval is the minimum spacing between
// provider calls; cacheSize bounds the in-memory forward cache.
func NewResolver(provider Provider, areas store.AreaNameCache, minInterval time.Duration, cacheSize int, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		areas:    areas,
		forward:  newLRUCache(cacheSize),
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		metrics:  metrics,
		logger:   logger,
	}
}

// ResolveCoordinates turns a free-text place name into coordinates. The
// outcome is typed: domain.ErrNotFound when the provider has no match,
// domain.ErrProviderTimeout / domain.ErrProviderUnreachable on provider
// faults, so callers can present distinct messages.
func (r *Resolver) ResolveCoordinates(ctx context.Context, placeName string) (domain.Coordinates, error) {
	key := normalizePlace(placeName)
	if key == "" {
		return domain.Coordinates{}, domain.ValidationError{Field: "place", Reason: "must not be empty"}
	}

	if coords, ok := r.forward.get(key); ok {
		r.metrics.GeocodeCache.WithLabelValues("forward", "hit").Inc()
		return coords, nil
	}
	r.metrics.GeocodeCache.WithLabelValues("forward", "miss").Inc()

	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: waiting for rate gate: %v", domain.ErrProviderTimeout, err)
	}

	coords, err := r.provider.Forward(ctx, placeName)
	if err != nil {
		return domain.Coordinates{}, err
	}
	r.forward.put(key, coords)
	return coords, nil
}

// ResolveAreaName turns coordinates into a display name. It never fails:
// the persistent cache is consulted first, and any provider fault degrades
// to UnknownArea. Successful lookups are stored under the query's key so
// repeated identical queries hit the cache.
func (r *Resolver) ResolveAreaName(ctx context.Context, lat, lon float64) string {
	key := locationKey(lat, lon)

	name, ok, err := r.areas.AreaName(ctx, key)
	if err != nil {
		// A cache read fault is not a resolution fault; fall through to
		// the provider.
		r.logger.Warn("area name cache read failed", "key", key, "error", err)
	} else if ok {
		r.metrics.GeocodeCache.WithLabelValues("reverse", "hit").Inc()
		return name
	}
	r.metrics.GeocodeCache.WithLabelValues("reverse", "miss").Inc()

	if err := r.limiter.Wait(ctx); err != nil {
		return UnknownArea
	}

	name, err = r.provider.Reverse(ctx, lat, lon)
	if err != nil || name == "" {
		r.logger.Warn("reverse geocode failed", "lat", lat, "lon", lon, "error", err)
		return UnknownArea
	}

	if err := r.areas.PutAreaName(ctx, key, name); err != nil {
		r.logger.Warn("area name cache write failed", "key", key, "error", err)
	}
	return name
}

// locationKey derives the cache key deterministically from the query
// coordinates. Four decimal places (~11 m) is finer than any area name
// boundary, so nearby queries that agree to 4dp share an entry.
func locationKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

func normalizePlace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
