// Package store persists vibe reports, users, and cached area names.
//
// The backing schema follows the original deployment: reports(id, user_id,
// category, context, location, timestamp, upvotes, downvotes), users(user_id,
// reputation), and area_names(location_key, area_name) serving as the
// persistent reverse-geocode cache. The location column holds "lat,lon" as
// text; validation guarantees every persisted row parses back to a valid
// coordinate pair.
package store

import (
	"context"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// Store is the report/vote/reputation contract the presentation layer
// consumes. Implementations must be safe for concurrent use.
type Store interface {
	// SubmitReport validates and appends a new report with zero votes and
	// the current timestamp, returning the report as stored. Its ID is
	// unique and increasing.
	SubmitReport(ctx context.Context, userID int64, category domain.Category, contextText string, lat, lon float64) (domain.Report, error)

	// ListReports returns reports matching the filter, most recent first.
	// Each call runs a fresh query, so the sequence is finite and
	// restartable.
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error)

	// Vote atomically increments one report's vote counter. Returns
	// domain.ErrNotFound if the report does not exist.
	Vote(ctx context.Context, reportID int64, kind domain.VoteKind) error

	// ReputationOf computes the user's standing from their report and vote
	// record at query time. Recomputing with no intervening activity yields
	// the same value.
	ReputationOf(ctx context.Context, userID int64) (int64, error)
}

// AreaNameCache is the persistent key→value store consulted before any
// reverse-geocode provider call. It is write-once-per-key, read-many.
type AreaNameCache interface {
	// AreaName returns the cached display name for a location key, or
	// ok=false on a miss. A miss is not an error.
	AreaName(ctx context.Context, key string) (name string, ok bool, err error)

	// PutAreaName stores a resolved display name under the given key.
	PutAreaName(ctx context.Context, key, name string) error
}

// reportTimeLayout is how timestamps are stored in SQLite. The fractional
// part is fixed-width (RFC3339Nano would drop trailing zeros), so byte-wise
// text comparison in ORDER BY and WHERE matches chronological order. Times
// must be UTC before formatting; the trailing Z is literal.
const reportTimeLayout = "2006-01-02T15:04:05.000000000Z"
