// Package domain models crowd-sourced vibe reports and external hazard data.
//
// # Vibe Reports
//
// A report is a user's observation of a location's atmosphere, classified
// into one of five categories (Crowded, Noisy, Festive, Calm, Suspicious)
// with free-text context and a WGS-84 coordinate pair. Reports accumulate
// up/down votes after submission; vote counters only ever increase.
//
// # Hazard Events
//
// Hazard events are normalized records from independent external feeds:
//
//	Earthquake  USGS all-day feed        GeoJSON   severity = magnitude
//	Flood       NWS active alerts        GeoJSON   severity = alert severity
//	Wildfire    FIRMS hotspot export     CSV       severity = brightness (K)
//	Hurricane   NHC current storms       XML       severity = classification
//	Volcano     volcanic activity feed   GeoJSON   severity = alert level
//
// Severity stays in each source's native scale. An earthquake magnitude and
// a wildfire brightness are not comparable quantities, so cross-source
// normalization would only manufacture false precision; the rendering layer
// decides relative weighting.
//
// Events are transient: fetched fresh each aggregation cycle, never stored.
//
// # Error Taxonomy
//
// Expected outcomes are typed values, not raised control flow:
//
//	ValidationError        bad caller input, surfaced immediately
//	ErrNotFound            referenced entity absent
//	ErrProviderTimeout     external call exceeded its deadline
//	ErrProviderUnreachable external call failed at the transport level
//	MalformedPayloadError  external payload could not be decoded
//	StorageError           backing store unavailable; fatal to the operation
//
// Provider-side faults during hazard aggregation are captured per source and
// attached to the aggregate result instead of aborting the whole cycle.
package domain
