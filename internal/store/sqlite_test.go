package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/observability"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(db, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestSubmitReport_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, err := s.SubmitReport(ctx, 7, domain.CategoryNoisy, "construction", 40.0, -75.0)
	require.NoError(t, err)
	assert.Positive(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())

	reports, err := s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, stored.ID, r.ID)
	assert.Equal(t, int64(7), r.UserID)
	assert.Equal(t, domain.CategoryNoisy, r.Category)
	assert.Equal(t, "construction", r.Context)
	assert.Equal(t, 40.0, r.Lat)
	assert.Equal(t, -75.0, r.Lon)
	assert.Zero(t, r.Upvotes)
	assert.Zero(t, r.Downvotes)
	assert.True(t, stored.CreatedAt.Equal(r.CreatedAt), "returned report carries the persisted timestamp")
}

func TestSubmitReport_AssignsIncreasingIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.SubmitReport(ctx, 1, domain.CategoryCalm, "quiet park", 10, 10)
	require.NoError(t, err)
	second, err := s.SubmitReport(ctx, 1, domain.CategoryCalm, "still quiet", 10, 10)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestSubmitReport_Validation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		category domain.Category
		context  string
		lat, lon float64
		field    string
	}{
		{"unknown category", "Spooky", "ctx", 0, 0, "category"},
		{"empty context", domain.CategoryCalm, "   ", 0, 0, "context"},
		{"lat too high", domain.CategoryCalm, "ctx", 90.5, 0, "lat"},
		{"lat too low", domain.CategoryCalm, "ctx", -91, 0, "lat"},
		{"lon too high", domain.CategoryCalm, "ctx", 0, 181, "lon"},
		{"lon too low", domain.CategoryCalm, "ctx", 0, -180.1, "lon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SubmitReport(ctx, 1, tt.category, tt.context, tt.lat, tt.lon)
			var verr domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	// Nothing should have been persisted.
	reports, err := s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestListReports_OrderAndFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	_, err := s.SubmitReport(ctx, 1, domain.CategoryCalm, "morning calm", 40, -75)
	require.NoError(t, err)
	fake.Advance(time.Hour)
	_, err = s.SubmitReport(ctx, 2, domain.CategoryNoisy, "lunch rush", 41, -76)
	require.NoError(t, err)
	fake.Advance(time.Hour)
	_, err = s.SubmitReport(ctx, 1, domain.CategoryCalm, "afternoon calm", 42, -77)
	require.NoError(t, err)

	all, err := s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "afternoon calm", all[0].Context, "most recent first")
	assert.Equal(t, "lunch rush", all[1].Context)
	assert.Equal(t, "morning calm", all[2].Context)

	calm := domain.CategoryCalm
	onlyCalm, err := s.ListReports(ctx, domain.ReportFilter{Category: &calm})
	require.NoError(t, err)
	require.Len(t, onlyCalm, 2)
	for _, r := range onlyCalm {
		assert.Equal(t, domain.CategoryCalm, r.Category)
	}
	assert.True(t, onlyCalm[0].CreatedAt.After(onlyCalm[1].CreatedAt))

	since := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	recent, err := s.ListReports(ctx, domain.ReportFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "afternoon calm", recent[0].Context)
}

func TestListReports_SubsecondOrdering(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Mixing whole-second and fractional timestamps exercises the stored
	// text format: a variable-width fraction would make "12:00:00Z" sort
	// after "12:00:00.5Z" byte-wise.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := clockwork.NewFakeClockAt(base)
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	_, err := s.SubmitReport(ctx, 1, domain.CategoryCalm, "on the second", 40, -75)
	require.NoError(t, err)
	fake.Advance(500 * time.Millisecond)
	_, err = s.SubmitReport(ctx, 2, domain.CategoryNoisy, "half past the second", 41, -76)
	require.NoError(t, err)

	all, err := s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "half past the second", all[0].Context, "most recent first")
	assert.Equal(t, "on the second", all[1].Context)

	since := base.Add(250 * time.Millisecond)
	recent, err := s.ListReports(ctx, domain.ReportFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "half past the second", recent[0].Context)
}

func TestListReports_EmptyStore(t *testing.T) {
	s := testStore(t)
	reports, err := s.ListReports(context.Background(), domain.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestVote_IncrementsExactly(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, err := s.SubmitReport(ctx, 7, domain.CategoryNoisy, "construction", 40.0, -75.0)
	require.NoError(t, err)

	require.NoError(t, s.Vote(ctx, stored.ID, domain.Upvote))
	require.NoError(t, s.Vote(ctx, stored.ID, domain.Upvote))
	require.NoError(t, s.Vote(ctx, stored.ID, domain.Downvote))

	reports, err := s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(2), reports[0].Upvotes)
	assert.Equal(t, int64(1), reports[0].Downvotes)
}

func TestVote_UnknownID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, err := s.SubmitReport(ctx, 1, domain.CategoryCalm, "ctx", 0, 0)
	require.NoError(t, err)

	err = s.Vote(ctx, stored.ID+999, domain.Upvote)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// The miss must not have mutated the existing report.
	reports, err := s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Zero(t, reports[0].Upvotes)
}

func TestVote_ConcurrentNoLostUpdates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, err := s.SubmitReport(ctx, 1, domain.CategoryCrowded, "packed", 40, -75)
	require.NoError(t, err)

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Vote(ctx, stored.ID, domain.Upvote)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	reports, err := s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(voters), reports[0].Upvotes)
}

func TestReputationOf_Formula(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// No activity: zero.
	rep, err := s.ReputationOf(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, rep)

	fair, err := s.SubmitReport(ctx, 42, domain.CategoryFestive, "street fair", 40, -75)
	require.NoError(t, err)
	_, err = s.SubmitReport(ctx, 42, domain.CategoryCalm, "empty plaza", 41, -76)
	require.NoError(t, err)

	// 2 reports, no votes: 20.
	rep, err = s.ReputationOf(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(20), rep)

	require.NoError(t, s.Vote(ctx, fair.ID, domain.Upvote))
	require.NoError(t, s.Vote(ctx, fair.ID, domain.Upvote))
	require.NoError(t, s.Vote(ctx, fair.ID, domain.Downvote))

	// 2 reports + net +1 vote: 21.
	rep, err = s.ReputationOf(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(21), rep)
}

func TestReputationOf_Idempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.SubmitReport(ctx, 9, domain.CategorySuspicious, "lurking van", 40, -75)
	require.NoError(t, err)

	first, err := s.ReputationOf(ctx, 9)
	require.NoError(t, err)
	second, err := s.ReputationOf(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReputationOf_FlooredAtZero(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, err := s.SubmitReport(ctx, 5, domain.CategoryNoisy, "karaoke bar", 40, -75)
	require.NoError(t, err)
	for range 15 {
		require.NoError(t, s.Vote(ctx, stored.ID, domain.Downvote))
	}

	rep, err := s.ReputationOf(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, rep, "1 report (+10) with -15 net votes floors at 0")
}

func TestAreaNameCache_WriteOnce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, ok, err := s.AreaName(ctx, "40.0000,-75.0000")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutAreaName(ctx, "40.0000,-75.0000", "Philadelphia"))
	name, ok, err := s.AreaName(ctx, "40.0000,-75.0000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Philadelphia", name)

	// First write wins.
	require.NoError(t, s.PutAreaName(ctx, "40.0000,-75.0000", "Somewhere Else"))
	name, ok, err = s.AreaName(ctx, "40.0000,-75.0000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Philadelphia", name)
}

func TestLocationRoundTrip(t *testing.T) {
	for _, pair := range [][2]float64{{40.0, -75.0}, {-89.999999, 179.999999}, {0, 0}, {40.7128, -74.006}} {
		loc := formatLocation(pair[0], pair[1])
		lat, lon, err := parseLocation(loc)
		require.NoError(t, err, loc)
		assert.Equal(t, pair[0], lat)
		assert.Equal(t, pair[1], lon)
	}

	_, _, err := parseLocation("garbage")
	require.Error(t, err)
}

func TestScenario_SubmitListVote(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, err := s.SubmitReport(ctx, 7, domain.CategoryNoisy, "construction", 40.0, -75.0)
	require.NoError(t, err)

	reports, err := s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, reports)

	head := reports[0]
	assert.Equal(t, stored.ID, head.ID)
	assert.Equal(t, int64(7), head.UserID)
	assert.Zero(t, head.Upvotes)
	assert.Zero(t, head.Downvotes)

	require.NoError(t, s.Vote(ctx, stored.ID, domain.Downvote))
	reports, err = s.ListReports(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reports[0].Downvotes)
}
