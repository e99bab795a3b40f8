package feeds

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// FIRMSWildfires fetches the FIRMS active-fire hotspot export: delimited
// text with a header row and a fixed column order. The columns used are
//
//	0 latitude   1 longitude   2 brightness (K)
//	5 acq_date   6 acq_time (HHMM)   8 confidence
//
// Severity is the detection brightness in the source's native Kelvin scale.
type FIRMSWildfires struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewFIRMSWildfires(feedURL string, client *http.Client, logger *slog.Logger) *FIRMSWildfires {
	return &FIRMSWildfires{url: feedURL, client: client, logger: logger}
}

func (f *FIRMSWildfires) Kind() domain.SourceKind { return domain.SourceWildfire }

const (
	colLat        = 0
	colLon        = 1
	colBrightness = 2
	colAcqDate    = 5
	colAcqTime    = 6
	colConfidence = 8
	minColumns    = 9
)

func (f *FIRMSWildfires) Fetch(ctx context.Context) ([]domain.HazardEvent, error) {
	body, err := fetchBody(ctx, f.client, f.url)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1 // validated per record below
	records, err := reader.ReadAll()
	if err != nil {
		return nil, domain.MalformedPayloadError{Source: string(f.Kind()), Err: err}
	}
	if len(records) == 0 {
		return nil, domain.MalformedPayloadError{Source: string(f.Kind()), Err: fmt.Errorf("empty export")}
	}

	events := make([]domain.HazardEvent, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		ev, err := parseHotspot(rec)
		if err != nil {
			f.logger.Warn("skipping unparsable hotspot record", "line", i+2, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseHotspot(rec []string) (domain.HazardEvent, error) {
	if len(rec) < minColumns {
		return domain.HazardEvent{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(rec))
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(rec[colLat]), 64)
	if err != nil {
		return domain.HazardEvent{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rec[colLon]), 64)
	if err != nil {
		return domain.HazardEvent{}, fmt.Errorf("longitude: %w", err)
	}

	ev := domain.HazardEvent{
		Source:      domain.SourceWildfire,
		Lat:         lat,
		Lon:         lon,
		Severity:    strings.TrimSpace(rec[colBrightness]),
		Description: fmt.Sprintf("Active fire detection (%s confidence)", strings.TrimSpace(rec[colConfidence])),
		ObservedAt:  parseAcquisition(rec[colAcqDate], rec[colAcqTime]),
	}
	return ev, nil
}

// parseAcquisition combines the acq_date (YYYY-MM-DD) and acq_time (HHMM,
// sometimes three digits) columns. A zero time means the record's timestamp
// was unreadable; the observation is still usable.
func parseAcquisition(date, hhmm string) time.Time {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return time.Time{}
	}
	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) == 3 {
		hhmm = "0" + hhmm
	}
	if len(hhmm) != 4 {
		return day
	}
	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour > 23 || mins > 59 {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, mins, 0, 0, time.UTC)
}
