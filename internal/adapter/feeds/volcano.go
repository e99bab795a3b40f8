package feeds

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// VolcanoActivity fetches the volcanic activity feed: a GeoJSON feature
// collection of monitored volcanoes with their current alert level. Severity
// is the alert level string (Normal, Advisory, Watch, Warning).
type VolcanoActivity struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewVolcanoActivity(feedURL string, client *http.Client, logger *slog.Logger) *VolcanoActivity {
	return &VolcanoActivity{url: feedURL, client: client, logger: logger}
}

func (f *VolcanoActivity) Kind() domain.SourceKind { return domain.SourceVolcano }

type volcanoProperties struct {
	Name       string    `json:"volcano_name"`
	AlertLevel string    `json:"alert_level"`
	ColorCode  string    `json:"color_code"`
	Updated    time.Time `json:"updated"`
}

func (f *VolcanoActivity) Fetch(ctx context.Context) ([]domain.HazardEvent, error) {
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
			f.logger.Warn("skipping volcano record without point", "index", i)
			continue
		}
		var props volcanoProperties
		if err := json.Unmarshal(feat.Properties, &props); err != nil {
			f.logger.Warn("skipping unparsable volcano record", "index", i, "error", err)
			continue
		}

		description := props.Name
		if props.ColorCode != "" {
			description = props.Name + " (aviation color code " + props.ColorCode + ")"
		}
		events = append(events, domain.HazardEvent{
			Source:      domain.SourceVolcano,
			Lat:         lat,
			Lon:         lon,
			Severity:    props.AlertLevel,
			Description: description,
			ObservedAt:  props.Updated.UTC(),
		})
	}
	return events, nil
}
