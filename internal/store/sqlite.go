package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/observability"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	category   TEXT    NOT NULL,
	context    TEXT    NOT NULL,
	location   TEXT    NOT NULL,
	timestamp  TEXT    NOT NULL,
	upvotes    INTEGER NOT NULL DEFAULT 0,
	downvotes  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON reports(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id);

CREATE TABLE IF NOT EXISTS users (
	user_id    INTEGER PRIMARY KEY,
	reputation INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS area_names (
	location_key TEXT PRIMARY KEY,
	area_name    TEXT NOT NULL
);
`

// Open opens (or creates) the SQLite database at path with WAL journaling
// and a busy timeout, so short concurrent writers queue instead of failing.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// SQLiteStore implements Store and AreaNameCache on a SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

var (
	_ Store         = (*SQLiteStore)(nil)
	_ AreaNameCache = (*SQLiteStore)(nil)
)

// New creates a SQLiteStore on an open database handle.
func New(db *sql.DB, logger *slog.Logger, metrics *observability.Metrics) *SQLiteStore {
	return &SQLiteStore{db: db, logger: logger, metrics: metrics}
}

// Init applies the schema. Safe to call on every startup.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return domain.StorageError{Op: "init schema", Err: err}
	}
	return nil
}

// Ping reports whether the backing database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) SubmitReport(ctx context.Context, userID int64, category domain.Category, contextText string, lat, lon float64) (domain.Report, error) {
	if err := domain.ValidateReportInput(category, contextText, lat, lon); err != nil {
		return domain.Report{}, err
	}

	now := clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (user_id, category, context, location, timestamp, upvotes, downvotes)
		VALUES (?, ?, ?, ?, ?, 0, 0)
	`, userID, string(category), contextText, formatLocation(lat, lon), now.Format(reportTimeLayout))
	if err != nil {
		return domain.Report{}, domain.StorageError{Op: "insert report", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Report{}, domain.StorageError{Op: "insert report", Err: err}
	}

	// Users come into existence on their first report; the reputation column
	// is a derived snapshot refreshed by ReputationOf, so 0 is fine here.
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id) VALUES (?) ON CONFLICT(user_id) DO NOTHING
	`, userID); err != nil {
		return domain.Report{}, domain.StorageError{Op: "upsert user", Err: err}
	}

	s.metrics.ReportsSubmitted.Inc()
	s.logger.Info("report submitted", "report_id", id, "user_id", userID, "category", category)
	return domain.Report{
		ID:        id,
		UserID:    userID,
		Category:  category,
		Context:   contextText,
		Lat:       lat,
		Lon:       lon,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error) {
	query := `SELECT id, user_id, category, context, location, timestamp, upvotes, downvotes FROM reports`
	var conds []string
	var args []any
	if filter.Category != nil {
		conds = append(conds, "category = ?")
		args = append(args, string(*filter.Category))
	}
	if filter.Since != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(reportTimeLayout))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageError{Op: "list reports", Err: err}
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			s.logger.Warn("skipping unreadable report row", "error", err)
			continue
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError{Op: "list reports", Err: err}
	}
	return reports, nil
}

func (s *SQLiteStore) Vote(ctx context.Context, reportID int64, kind domain.VoteKind) error {
	column := "upvotes"
	if kind == domain.Downvote {
		column = "downvotes"
	}

	// Single atomic add; concurrent votes on the same report both land
	// because the increment happens inside the UPDATE, not in Go.
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET `+column+` = `+column+` + 1 WHERE id = ?`, reportID)
	if err != nil {
		return domain.StorageError{Op: "vote", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StorageError{Op: "vote", Err: err}
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	s.metrics.VotesCast.WithLabelValues(string(kind)).Inc()
	return nil
}

// ReputationOf computes reputation = 10 × report count + net votes across
// the user's reports, floored at zero. The users.reputation column is
// refreshed with the computed value as a read-optimized snapshot; the
// aggregate query remains the source of truth, so repeated calls with no
// intervening activity are idempotent.
func (s *SQLiteStore) ReputationOf(ctx context.Context, userID int64) (int64, error) {
	var count, net int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(upvotes - downvotes), 0)
		FROM reports WHERE user_id = ?
	`, userID).Scan(&count, &net)
	if err != nil {
		return 0, domain.StorageError{Op: "reputation", Err: err}
	}

	rep := 10*count + net
	if rep < 0 {
		rep = 0
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, reputation) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET reputation = excluded.reputation
	`, userID, rep); err != nil {
		return 0, domain.StorageError{Op: "refresh reputation", Err: err}
	}
	return rep, nil
}

func (s *SQLiteStore) AreaName(ctx context.Context, key string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT area_name FROM area_names WHERE location_key = ?`, key).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.StorageError{Op: "area name lookup", Err: err}
	}
	return name, true, nil
}

func (s *SQLiteStore) PutAreaName(ctx context.Context, key, name string) error {
	// Write-once-per-key: the first resolved name for a location wins.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO area_names (location_key, area_name) VALUES (?, ?)
		ON CONFLICT(location_key) DO NOTHING
	`, key, name)
	if err != nil {
		return domain.StorageError{Op: "area name store", Err: err}
	}
	return nil
}

// formatLocation renders a coordinate pair as the "lat,lon" text the
// location column holds. FormatFloat with -1 precision round-trips exactly.
func formatLocation(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

func parseLocation(s string) (lat, lon float64, err error) {
	head, tail, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("malformed location %q", s)
	}
	if lat, err = strconv.ParseFloat(head, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed location %q: %w", s, err)
	}
	if lon, err = strconv.ParseFloat(tail, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed location %q: %w", s, err)
	}
	return lat, lon, nil
}

func scanReport(rows *sql.Rows) (domain.Report, error) {
	var r domain.Report
	var category, location, timestamp string
	if err := rows.Scan(&r.ID, &r.UserID, &category, &r.Context, &location, &timestamp, &r.Upvotes, &r.Downvotes); err != nil {
		return domain.Report{}, err
	}
	r.Category = domain.Category(category)

	lat, lon, err := parseLocation(location)
	if err != nil {
		return domain.Report{}, err
	}
	r.Lat, r.Lon = lat, lon

	t, err := time.Parse(reportTimeLayout, timestamp)
	if err != nil {
		return domain.Report{}, fmt.Errorf("malformed timestamp %q: %w", timestamp, err)
	}
	r.CreatedAt = t
	return r, nil
}
