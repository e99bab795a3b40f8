// Package maplayer merges vibe reports and hazard events into
// renderer-agnostic layers for an external mapping widget.
package maplayer

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/observability"
)

// nearbyDegrees is the half-width of the box around a search marker inside
// which a report counts as "here".
const nearbyDegrees = 0.02

var categoryStyles = map[domain.Category]string{
	domain.CategoryCrowded:    "orange",
	domain.CategoryNoisy:      "red",
	domain.CategoryFestive:    "purple",
	domain.CategoryCalm:       "green",
	domain.CategorySuspicious: "black",
}

var sourceStyles = map[domain.SourceKind]string{
	domain.SourceEarthquake: "darkred",
	domain.SourceFlood:      "blue",
	domain.SourceWildfire:   "darkorange",
	domain.SourceHurricane:  "gray",
	domain.SourceVolcano:    "maroon",
}

// Composer builds LayerSets. It holds no state between calls.
type Composer struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewComposer(metrics *observability.Metrics, logger *slog.Logger) *Composer {
	return &Composer{metrics: metrics, logger: logger}
}

// Compose groups reports by category and hazard events by source into named
// layers, in a fixed display order. Failed hazard sources contribute no
// layer; each one becomes a note instead. A search marker, when given, is
// appended as its own one-point layer, with a note if no report lies near
// the searched location.
func (c *Composer) Compose(reports []domain.Report, hazards domain.AggregateResult, marker *domain.SearchMarker) domain.LayerSet {
	start := time.Now()
	defer func() {
		c.metrics.ComposeDuration.Observe(time.Since(start).Seconds())
	}()

	var set domain.LayerSet

	byCategory := make(map[domain.Category][]domain.Report)
	for _, r := range reports {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}
	for _, cat := range domain.Categories {
		group := byCategory[cat]
		if len(group) == 0 {
			continue
		}
		layer := domain.Layer{Name: string(cat), Points: make([]domain.Point, 0, len(group))}
		for _, r := range group {
			layer.Points = append(layer.Points, reportPoint(r))
		}
		set.Layers = append(set.Layers, layer)
	}

	for _, kind := range domain.SourceKinds {
		events := hazards.Events[kind]
		if len(events) == 0 {
			continue
		}
		layer := domain.Layer{Name: string(kind), Points: make([]domain.Point, 0, len(events))}
		for _, e := range events {
			layer.Points = append(layer.Points, hazardPoint(e))
		}
		set.Layers = append(set.Layers, layer)
	}
	for _, f := range hazards.Failures {
		set.Notes = append(set.Notes, fmt.Sprintf("%s data unavailable (%s)", f.Source, f.Reason))
	}

	if marker != nil {
		set.Layers = append(set.Layers, domain.Layer{
			Name: "search",
			Points: []domain.Point{{
				Lat:   marker.Lat,
				Lon:   marker.Lon,
				Style: "cadetblue",
				Popup: marker.Label,
			}},
		})
		if !anyReportNear(reports, marker.Lat, marker.Lon) {
			set.Notes = append(set.Notes, "no reports here yet")
		}
	}

	c.logger.Debug("composed map layers",
		"layers", len(set.Layers),
		"notes", len(set.Notes),
		"duration", time.Since(start),
	)
	return set
}

func reportPoint(r domain.Report) domain.Point {
	return domain.Point{
		Lat:   r.Lat,
		Lon:   r.Lon,
		Style: categoryStyles[r.Category],
		Popup: fmt.Sprintf("%s: %s (+%d/-%d)", r.Category, r.Context, r.Upvotes, r.Downvotes),
	}
}

func hazardPoint(e domain.HazardEvent) domain.Point {
	popup := e.Description
	if e.Severity != "" {
		popup = fmt.Sprintf("%s [%s]", popup, e.Severity)
	}
	return domain.Point{
		Lat:   e.Lat,
		Lon:   e.Lon,
		Style: sourceStyles[e.Source],
		Popup: popup,
	}
}

func anyReportNear(reports []domain.Report, lat, lon float64) bool {
	for _, r := range reports {
		if math.Abs(r.Lat-lat) <= nearbyDegrees && math.Abs(r.Lon-lon) <= nearbyDegrees {
			return true
		}
	}
	return false
}
