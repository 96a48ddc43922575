package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"anpr-dashboard/internal/config"
	"anpr-dashboard/internal/domain/plates"
	"anpr-dashboard/internal/feed"
	"anpr-dashboard/internal/repository"
)

type loaderFunc func(ctx context.Context) ([]feed.RawRow, error)

func (f loaderFunc) Load(ctx context.Context) ([]feed.RawRow, error) {
	return f(ctx)
}

func staticLoader(rows []feed.RawRow) loaderFunc {
	return func(context.Context) ([]feed.RawRow, error) { return rows, nil }
}

// wellFormedRows returns n rows one minute apart, oldest first; even rows
// are offenders.
func wellFormedRows(n int) []feed.RawRow {
	base := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	rows := make([]feed.RawRow, 0, n)
	for i := 0; i < n; i++ {
		offender := "No"
		if i%2 == 0 {
			offender = "Yes"
		}
		ts := base.Add(time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05")
		rows = append(rows, raw(ts, fmt.Sprintf("KA%02dEF%04d", i, 1000+i), offender, "90.5"))
	}
	return rows
}

func newController(loader Loader) *ListController {
	return NewListController("test", loader, repository.NewPlateRepository(), time.UTC, zerolog.Nop())
}

func TestListController_InitialStateIsLoading(t *testing.T) {
	c := newController(staticLoader(nil))

	s := c.Snapshot(plates.NewViewState(10))
	require.Equal(t, plates.StateLoading, s.State)
	require.False(t, s.HasData)
}

func TestListController_RefreshReady(t *testing.T) {
	c := newController(staticLoader(wellFormedRows(12)))
	require.NoError(t, c.Refresh(context.Background()))

	s := c.Snapshot(plates.NewViewState(10))
	require.Equal(t, plates.StateReady, s.State)
	require.True(t, s.HasData)
	require.False(t, s.Refreshing)
	require.False(t, s.LastUpdated.IsZero())
	require.Equal(t, 12, s.Window.Total)
	require.Equal(t, 6, s.Window.Offenders)

	records := c.Records()
	for i := 1; i < len(records); i++ {
		require.False(t, records[i].CapturedAt.After(records[i-1].CapturedAt))
	}
}

func TestListController_TwelveRowsTwoPages(t *testing.T) {
	c := newController(staticLoader(wellFormedRows(12)))
	require.NoError(t, c.Refresh(context.Background()))
	all := c.Records()

	first := c.Snapshot(plates.NewViewState(10))
	require.Len(t, first.Window.Records, 10)
	require.Equal(t, all[:10], first.Window.Records)
	require.Equal(t, "KA11EF1011", first.Window.Records[0].RawPlate)

	second := c.Snapshot(plates.NewViewState(10).WithPage(1))
	require.Len(t, second.Window.Records, 2)
	require.Equal(t, all[10:], second.Window.Records)
	require.Equal(t, "KA00EF1000", second.Window.Records[1].RawPlate)
}

func TestListController_OffenderFilterResetsPage(t *testing.T) {
	loads := 0
	c := newController(loaderFunc(func(context.Context) ([]feed.RawRow, error) {
		loads++
		return wellFormedRows(30), nil
	}))
	require.NoError(t, c.Refresh(context.Background()))

	view := plates.NewViewState(10).WithPage(2)
	require.Len(t, c.Snapshot(view).Window.Records, 10)

	view = view.WithFilter(plates.FilterOffenders)
	s := c.Snapshot(view)
	require.Zero(t, s.Window.View.Page)
	require.Equal(t, 15, s.Window.Filtered)
	require.Len(t, s.Window.Records, 10)
	for _, rec := range s.Window.Records {
		require.True(t, rec.IsOffender)
	}
	require.Equal(t, 1, loads, "filter and page changes must not refetch")
}

func TestListController_EmptyState(t *testing.T) {
	rows := []feed.RawRow{raw("2024-05-15 09:00:00", "AA11", "No", "90")}
	c := newController(staticLoader(rows))
	require.NoError(t, c.Refresh(context.Background()))

	require.Equal(t, plates.StateReady, c.Snapshot(plates.NewViewState(10)).State)
	offenders := c.Snapshot(plates.NewViewState(10).WithFilter(plates.FilterOffenders))
	require.Equal(t, plates.StateEmpty, offenders.State)
	require.True(t, offenders.HasData)

	empty := newController(staticLoader(nil))
	require.NoError(t, empty.Refresh(context.Background()))
	require.Equal(t, plates.StateEmpty, empty.Snapshot(plates.NewViewState(10)).State)
}

func TestListController_FetchFailureThenRetry(t *testing.T) {
	var hits atomic.Int32
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("timestamp,license_plate,is_offender,confidence\n2024-05-15 09:23:45,AP31EY3382,No,91.25\n"))
	}))
	t.Cleanup(srv.Close)

	src := feed.NewCSVSource(config.FeedConfig{URL: srv.URL, Timeout: time.Second}, srv.Client(), zerolog.Nop())
	c := newController(src)

	err := c.Refresh(context.Background())
	require.Error(t, err)
	var fetchErr *feed.FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)

	s := c.Snapshot(plates.NewViewState(10))
	require.Equal(t, plates.StateError, s.State)
	require.Contains(t, s.Error, "status 500")
	require.Equal(t, int32(1), hits.Load())

	healthy.Store(true)
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, int32(2), hits.Load(), "retry must issue a new fetch")

	s = c.Snapshot(plates.NewViewState(10))
	require.Equal(t, plates.StateReady, s.State)
	require.Empty(t, s.Error)
	require.Len(t, s.Window.Records, 1)
}

func TestListController_ParseFailureClearsCollection(t *testing.T) {
	fail := false
	c := newController(loaderFunc(func(context.Context) ([]feed.RawRow, error) {
		if fail {
			return nil, &feed.ParseError{Line: 3, Err: errors.New("bare quote")}
		}
		return wellFormedRows(3), nil
	}))
	require.NoError(t, c.Refresh(context.Background()))

	fail = true
	err := c.Refresh(context.Background())
	var parseErr *feed.ParseError
	require.True(t, errors.As(err, &parseErr))

	s := c.Snapshot(plates.NewViewState(10))
	require.Equal(t, plates.StateError, s.State)
	require.False(t, s.HasData)
	require.True(t, strings.HasPrefix(s.Error, "Failed to load plate data"))
}

func TestListController_StaleRefreshIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	var calls atomic.Int32

	c := newController(loaderFunc(func(ctx context.Context) ([]feed.RawRow, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-ctx.Done()
			// a slow response that arrives anyway must not win
			return wellFormedRows(1), nil
		}
		return wellFormedRows(5), nil
	}))

	firstErr := make(chan error, 1)
	go func() { firstErr <- c.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, c.Refresh(context.Background()))
	require.ErrorIs(t, <-firstErr, ErrSuperseded)

	s := c.Snapshot(plates.NewViewState(10))
	require.Equal(t, plates.StateReady, s.State)
	require.Equal(t, 5, s.Window.Total)
}

func TestListController_CancelledRefreshKeepsState(t *testing.T) {
	var buf bytes.Buffer
	var cancelled atomic.Bool
	c := NewListController("test", loaderFunc(func(ctx context.Context) ([]feed.RawRow, error) {
		if cancelled.Load() {
			return nil, ctx.Err()
		}
		return wellFormedRows(3), nil
	}), repository.NewPlateRepository(), time.UTC, zerolog.New(&buf))

	require.NoError(t, c.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled.Store(true)
	err := c.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrSuperseded)

	s := c.Snapshot(plates.NewViewState(10))
	require.Equal(t, plates.StateReady, s.State)
	require.Empty(t, s.Error)
	require.Equal(t, 3, s.Window.Total)
	require.NotContains(t, buf.String(), `"level":"error"`)
}

func TestListController_SnapshotWithRecordsIsOneCycle(t *testing.T) {
	var failing atomic.Bool
	c := newController(loaderFunc(func(context.Context) ([]feed.RawRow, error) {
		if failing.Load() {
			return nil, errors.New("boom")
		}
		return wellFormedRows(12), nil
	}))

	require.NoError(t, c.Refresh(context.Background()))
	s, records := c.SnapshotWithRecords(plates.NewViewState(10))
	require.Len(t, s.Window.Records, 10)
	require.Len(t, records, 12)
	require.Equal(t, s.Window.Total, len(records))

	failing.Store(true)
	require.Error(t, c.Refresh(context.Background()))
	s, records = c.SnapshotWithRecords(plates.NewViewState(10))
	require.Equal(t, plates.StateError, s.State)
	require.Empty(t, records)
	require.Zero(t, s.Window.Total)
}

func TestListController_MountPollsUntilStopped(t *testing.T) {
	var loads atomic.Int32
	c := newController(loaderFunc(func(context.Context) ([]feed.RawRow, error) {
		loads.Add(1)
		return wellFormedRows(4), nil
	}))

	sub := c.Mount(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return loads.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	sub.Stop()
	sub.Stop()
	after := loads.Load()

	s := c.Snapshot(plates.NewViewState(10))
	require.False(t, s.HasData, "unmount discards the collection")
	require.Equal(t, plates.StateLoading, s.State)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, loads.Load(), "no refresh after unmount")
}

func TestListController_MountManualOnly(t *testing.T) {
	var loads atomic.Int32
	c := newController(loaderFunc(func(context.Context) ([]feed.RawRow, error) {
		loads.Add(1)
		return wellFormedRows(2), nil
	}))

	sub := c.Mount(context.Background(), 0)
	t.Cleanup(sub.Stop)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("initial load did not finish")
	}
	require.Equal(t, int32(1), loads.Load())
	require.Equal(t, plates.StateReady, c.Snapshot(plates.NewViewState(10)).State)

	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, int32(2), loads.Load())
}

func TestViews(t *testing.T) {
	dash := NewListController(ViewDashboard, staticLoader(nil), repository.NewPlateRepository(), time.UTC, zerolog.Nop())
	mine := NewListController(ViewMyData, staticLoader(nil), repository.NewPlateRepository(), time.UTC, zerolog.Nop())
	views := NewViews(dash, mine)

	got, err := views.Get(ViewMyData)
	require.NoError(t, err)
	require.Same(t, mine, got)

	_, err = views.Get("reports")
	require.ErrorIs(t, err, ErrUnknownView)
	require.Equal(t, []string{ViewDashboard, ViewMyData}, views.Names())
}
