package feeds

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// USGSEarthquakes fetches the USGS summary feed: a GeoJSON feature
// collection where each feature's geometry is a point and properties carry
// magnitude, place, and an epoch-millisecond event time.
type USGSEarthquakes struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewUSGSEarthquakes(feedURL string, client *http.Client, logger *slog.Logger) *USGSEarthquakes {
	return &USGSEarthquakes{url: feedURL, client: client, logger: logger}
}

func (f *USGSEarthquakes) Kind() domain.SourceKind { return domain.SourceEarthquake }

type quakeProperties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time"` // epoch milliseconds
}

func (f *USGSEarthquakes) Fetch(ctx context.Context) ([]domain.HazardEvent, error) {
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
			f.logger.Warn("skipping earthquake record without point", "index", i)
			continue
		}
		var props quakeProperties
		if err := json.Unmarshal(feat.Properties, &props); err != nil {
			f.logger.Warn("skipping unparsable earthquake record", "index", i, "error", err)
			continue
		}

		severity := ""
		if props.Mag != nil {
			severity = strconv.FormatFloat(*props.Mag, 'f', -1, 64)
		}
		ev := domain.HazardEvent{
			Source:      domain.SourceEarthquake,
			Lat:         lat,
			Lon:         lon,
			Severity:    severity,
			Description: props.Place,
		}
		if props.Time > 0 {
			ev.ObservedAt = time.UnixMilli(props.Time).UTC()
		}
		events = append(events, ev)
	}
	return events, nil
}
