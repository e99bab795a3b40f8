package feeds

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// NWSFloodAlerts fetches active flood alerts from the National Weather
// Service API: a GeoJSON feature collection whose features carry the alert
// text in properties and the affected area as polygon geometry. Alerts
// without geometry (zone-only alerts) are skipped; a marker needs a point.
type NWSFloodAlerts struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewNWSFloodAlerts(feedURL string, client *http.Client, logger *slog.Logger) *NWSFloodAlerts {
	return &NWSFloodAlerts{url: feedURL, client: client, logger: logger}
}

func (f *NWSFloodAlerts) Kind() domain.SourceKind { return domain.SourceFlood }

type alertProperties struct {
	Event     string    `json:"event"`
	Severity  string    `json:"severity"` // Minor, Moderate, Severe, Extreme
	Headline  string    `json:"headline"`
	Effective time.Time `json:"effective"`
}

func (f *NWSFloodAlerts) Fetch(ctx context.Context) ([]domain.HazardEvent, error) {
	body, err := fetchBody(ctx, f.client, f.url)
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, domain.MalformedPayloadError{Source: string(f.Kind()), Err: err}
	}

	events := make([]domain.HazardEvent, 0, len(fc.Features))
	for i, feat := range fc.Features {
		lat, lon, err := feat.Geometry.point()
		if err != nil {
			f.logger.Warn("skipping flood alert without geometry", "index", i)
			continue
		}
		var props alertProperties
		if err := json.Unmarshal(feat.Properties, &props); err != nil {
			f.logger.Warn("skipping unparsable flood alert", "index", i, "error", err)
			continue
		}

		description := props.Headline
		if description == "" {
			description = props.Event
		}
		events = append(events, domain.HazardEvent{
			Source:      domain.SourceFlood,
			Lat:         lat,
			Lon:         lon,
			Severity:    props.Severity,
			Description: description,
			ObservedAt:  props.Effective.UTC(),
		})
	}
	return events, nil
}
