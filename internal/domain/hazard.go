package domain

import "time"

// SourceKind identifies an external hazard feed.
type SourceKind string

const (
	SourceEarthquake SourceKind = "earthquake"
	SourceFlood      SourceKind = "flood"
	SourceWildfire   SourceKind = "wildfire"
	SourceHurricane  SourceKind = "hurricane"
	SourceVolcano    SourceKind = "volcano"
)

// SourceKinds lists every known hazard source.
var SourceKinds = []SourceKind{
	SourceEarthquake,
	SourceFlood,
	SourceWildfire,
	SourceHurricane,
	SourceVolcano,
}

// ParseSourceKind validates a raw source name.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range SourceKinds {
		if s == string(k) {
			return k, nil
		}
	}
	return "", ValidationError{Field: "source", Reason: "unknown hazard source " + s}
}

// HazardEvent is one normalized data point from an external feed. Severity
// is the source's native measure rendered as a string (magnitude, alert
// severity, brightness, storm classification, alert level) and is never
// rescaled across sources. A zero ObservedAt means the source omitted it.
type HazardEvent struct {
	Source      SourceKind `json:"source"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	Severity    string     `json:"severity"`
	Description string     `json:"description"`
	ObservedAt  time.Time  `json:"observed_at,omitzero"`
}

// FailureReason classifies why a hazard source produced no events.
type FailureReason string

const (
	FailureUnreachable      FailureReason = "unreachable"
	FailureTimeout          FailureReason = "timeout"
	FailureMalformedPayload FailureReason = "malformed_payload"
)

// SourceFailure marks one source's fetch as failed within an otherwise
// successful aggregation cycle.
type SourceFailure struct {
	Source SourceKind    `json:"source"`
	Reason FailureReason `json:"reason"`
	Err    error         `json:"-"`
}

// AggregateResult is the combined outcome of one aggregation cycle. A source
// appears in Events or in Failures, never both; sources that were not
// requested appear in neither.
type AggregateResult struct {
	Events   map[SourceKind][]HazardEvent `json:"events"`
	Failures []SourceFailure              `json:"failures"`
}

// FailedSources returns the names of the sources that failed this cycle,
// for user-facing "unavailable this cycle" notes.
func (r AggregateResult) FailedSources() []SourceKind {
	kinds := make([]SourceKind, 0, len(r.Failures))
	for _, f := range r.Failures {
		kinds = append(kinds, f.Source)
	}
	return kinds
}

// TotalEvents counts events across all sources.
func (r AggregateResult) TotalEvents() int {
	n := 0
	for _, evs := range r.Events {
		n += len(evs)
	}
	return n
}
