// Package hazard aggregates independent external hazard feeds into a single
// partial-failure-tolerant result.
package hazard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/observability"
)

// SourceFetcher fetches and normalizes one external hazard feed. Adding a
// provider means implementing this interface, nothing else.
type SourceFetcher interface {
	Kind() domain.SourceKind
	Fetch(ctx context.Context) ([]domain.HazardEvent, error)
}

// Aggregator fans out to every enabled source concurrently and joins the
// results. Hazard data is time-sensitive, so there is no caching at this
// layer: every FetchAll re-fetches from all enabled sources.
type Aggregator struct {
	fetchers map[domain.SourceKind]SourceFetcher
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates an Aggregator over the given fetchers. timeout bounds each
// individual source fetch, not the whole cycle.
func New(fetchers []SourceFetcher, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Aggregator {
	byKind := make(map[domain.SourceKind]SourceFetcher, len(fetchers))
	for _, f := range fetchers {
		byKind[f.Kind()] = f
	}
	return &Aggregator{
		fetchers: byKind,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// sourceOutcome is one fetch's result, produced by its own goroutine and
// joined by FetchAll.
type sourceOutcome struct {
	kind    domain.SourceKind
	events  []domain.HazardEvent
	failure *domain.SourceFailure
}

// FetchAll fetches every enabled source concurrently and returns the
// combined result once all fetches complete or time out. One source's
// failure never suppresses another's events; failures are attached to the
// result, not raised. Cancelling ctx abandons the cycle: remaining sources
// are marked failed and the partial result is returned to a caller who, by
// cancelling, has said they no longer want it.
func (a *Aggregator) FetchAll(ctx context.Context, enabled []domain.SourceKind) domain.AggregateResult {
	outcomes := make([]sourceOutcome, len(enabled))

	// The group context is deliberately unused for cancellation: every
	// goroutine returns nil so one source's failure cannot cancel siblings.
	g := new(errgroup.Group)
	for i, kind := range enabled {
		g.Go(func() error {
			outcomes[i] = a.fetchOne(ctx, kind)
			return nil
		})
	}
	_ = g.Wait()

	result := domain.AggregateResult{
		Events: make(map[domain.SourceKind][]domain.HazardEvent),
	}
	for _, out := range outcomes {
		if out.failure != nil {
			result.Failures = append(result.Failures, *out.failure)
			continue
		}
		result.Events[out.kind] = out.events
	}
	return result
}

func (a *Aggregator) fetchOne(ctx context.Context, kind domain.SourceKind) sourceOutcome {
	fetcher, ok := a.fetchers[kind]
	if !ok {
		a.logger.Warn("no fetcher configured for source", "source", kind)
		return sourceOutcome{kind: kind, failure: &domain.SourceFailure{
			Source: kind,
			Reason: domain.FailureUnreachable,
			Err:    errors.New("no fetcher configured"),
		}}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	events, err := fetcher.Fetch(fetchCtx)
	a.metrics.HazardFetchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := classifyFailure(err)
		a.metrics.HazardFetches.WithLabelValues(string(kind), string(reason)).Inc()
		a.logger.Warn("hazard source fetch failed",
			"source", kind,
			"reason", reason,
			"error", err,
			"duration", time.Since(start),
		)
		return sourceOutcome{kind: kind, failure: &domain.SourceFailure{Source: kind, Reason: reason, Err: err}}
	}

	a.metrics.HazardFetches.WithLabelValues(string(kind), "success").Inc()
	a.metrics.HazardEventsFetched.WithLabelValues(string(kind)).Add(float64(len(events)))
	a.logger.Debug("hazard source fetched", "source", kind, "events", len(events))
	return sourceOutcome{kind: kind, events: events}
}

func classifyFailure(err error) domain.FailureReason {
	var merr domain.MalformedPayloadError
	switch {
	case errors.As(err, &merr):
		return domain.FailureMalformedPayload
	case errors.Is(err, domain.ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.FailureTimeout
	default:
		return domain.FailureUnreachable
	}
}
