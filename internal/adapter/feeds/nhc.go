package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// NHCStorms fetches the tropical cyclone feed: an XML document with one
// <storm> element per active system. Severity is the storm's classification
// (e.g. "Hurricane", "Tropical Storm"); intensity stays in the description,
// untouched by any cross-source scale.
type NHCStorms struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewNHCStorms(feedURL string, client *http.Client, logger *slog.Logger) *NHCStorms {
	return &NHCStorms{url: feedURL, client: client, logger: logger}
}

func (f *NHCStorms) Kind() domain.SourceKind { return domain.SourceHurricane }

type stormDocument struct {
	XMLName xml.Name     `xml:"currentStorms"`
	Storms  []stormEntry `xml:"storm"`
}

type stormEntry struct {
	Name           string  `xml:"name"`
	Classification string  `xml:"classification"`
	Intensity      string  `xml:"intensity"` // e.g. "85 kt"
	Latitude       float64 `xml:"center>latitude"`
	Longitude      float64 `xml:"center>longitude"`
	LastUpdate     string  `xml:"lastUpdate"` // RFC 3339
}

func (f *NHCStorms) Fetch(ctx context.Context) ([]domain.HazardEvent, error) {
	body, err := fetchBody(ctx, f.client, f.url)
	if err != nil {
		return nil, err
	}

	var doc stormDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, domain.MalformedPayloadError{Source: string(f.Kind()), Err: err}
	}

	events := make([]domain.HazardEvent, 0, len(doc.Storms))
	for i, storm := range doc.Storms {
		if storm.Latitude == 0 && storm.Longitude == 0 {
			f.logger.Warn("skipping storm without center fix", "index", i, "name", storm.Name)
			continue
		}

		description := storm.Name
		if storm.Intensity != "" {
			description = fmt.Sprintf("%s (%s)", storm.Name, storm.Intensity)
		}
		ev := domain.HazardEvent{
			Source:      domain.SourceHurricane,
			Lat:         storm.Latitude,
			Lon:         storm.Longitude,
			Severity:    storm.Classification,
			Description: description,
		}
		if ts := strings.TrimSpace(storm.LastUpdate); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				ev.ObservedAt = t.UTC()
			}
		}
		events = append(events, ev)
	}
	return events, nil
}
