package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"anpr-dashboard/internal/domain/plates"
	"anpr-dashboard/internal/feed"
	"anpr-dashboard/internal/repository"
)

var (
	ErrSuperseded   = errors.New("refresh superseded by a newer one")
	ErrUnknownView  = errors.New("unknown view")
	ErrInvalidInput = errors.New("invalid input")
)

// Loader produces the raw rows of one refresh cycle.
type Loader interface {
	Load(ctx context.Context) ([]feed.RawRow, error)
}

// ListController owns the collection behind one list page: it runs refresh
// cycles, tracks the loading/ready/error phase and hands out snapshots.
//
// Every cycle takes a token from a counter. Starting a cycle cancels the
// fetch of the previous one, and only the cycle holding the latest token
// may store its result, so the newest refresh always wins.
type ListController struct {
	name   string
	loader Loader
	repo   *repository.PlateRepository
	loc    *time.Location
	log    zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	phase       plates.State
	lastErr     string
	lastUpdated time.Time
	latest      uint64
	cancel      context.CancelFunc
}

func NewListController(
	name string,
	loader Loader,
	repo *repository.PlateRepository,
	loc *time.Location,
	log zerolog.Logger,
) *ListController {
	if loc == nil {
		loc = time.Local
	}
	return &ListController{
		name:   name,
		loader: loader,
		repo:   repo,
		loc:    loc,
		log:    log.With().Str("component", "list_controller").Str("view", name).Logger(),
		now:    time.Now,
		phase:  plates.StateLoading,
	}
}

func (c *ListController) Name() string {
	return c.name
}

func (c *ListController) Location() *time.Location {
	return c.loc
}

// Records returns the current collection, newest first.
func (c *ListController) Records() []plates.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repo.All()
}

// Refresh runs one fetch, parse, normalize and store cycle. It returns
// ErrSuperseded when a newer cycle started before this one finished; the
// stale result is then discarded.
func (c *ListController) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.latest++
	token := c.latest
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	prev := c.phase
	c.phase = plates.StateLoading
	c.mu.Unlock()

	started := c.now()
	rows, err := c.loader.Load(ctx)
	var records []plates.Record
	if err == nil {
		records = BuildCollection(rows, c.loc)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.latest {
		c.log.Debug().
			Uint64("token", token).
			Uint64("latest", c.latest).
			Msg("discarding stale refresh")
		return ErrSuperseded
	}
	c.cancel = nil

	// The caller's context ended, e.g. on shutdown. Keep the previous state
	// and collection.
	if ctx.Err() != nil {
		c.phase = prev
		c.log.Debug().
			Uint64("token", token).
			Msg("refresh cancelled")
		return fmt.Errorf("refresh %s: %w", c.name, ctx.Err())
	}

	if err != nil {
		c.phase = plates.StateError
		c.lastErr = fmt.Sprintf("Failed to load plate data: %v", err)
		c.repo.Clear()
		c.log.Error().
			Err(err).
			Uint64("token", token).
			Msg("failed to refresh plate collection")
		return fmt.Errorf("refresh %s: %w", c.name, err)
	}

	c.repo.Replace(records)
	c.phase = plates.StateReady
	c.lastErr = ""
	c.lastUpdated = c.now()

	c.log.Info().
		Uint64("token", token).
		Int("rows", len(rows)).
		Int("records", len(records)).
		Int("dropped", len(rows)-len(records)).
		Dur("took", c.lastUpdated.Sub(started)).
		Msg("refreshed plate collection")
	return nil
}

// Snapshot derives what a page shows for view. It holds the controller lock,
// so it never observes a half-stored cycle.
func (c *ListController) Snapshot(view plates.ViewState) plates.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(view)
}

// SnapshotWithRecords is Snapshot plus the whole collection the snapshot was
// taken from, for pages that also show aggregates.
func (c *ListController) SnapshotWithRecords(view plates.ViewState) (plates.Snapshot, []plates.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(view), c.repo.All()
}

func (c *ListController) snapshot(view plates.ViewState) plates.Snapshot {
	w := c.repo.Window(view)
	s := plates.Snapshot{
		View:        c.name,
		Window:      w,
		Error:       c.lastErr,
		HasData:     w.Total > 0,
		LastUpdated: c.lastUpdated,
	}

	switch c.phase {
	case plates.StateLoading:
		s.State = plates.StateLoading
		s.Refreshing = true
	case plates.StateError:
		s.State = plates.StateError
	default:
		if w.Filtered == 0 {
			s.State = plates.StateEmpty
		} else {
			s.State = plates.StateReady
		}
	}
	return s
}

// Mount starts the view lifecycle: an initial load, then a refresh every
// interval until the returned subscription is stopped. interval <= 0 means
// manual refresh only.
func (c *ListController) Mount(ctx context.Context, interval time.Duration) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ctrl:   c,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)

		c.refreshInBackground(ctx)
		if interval <= 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshInBackground(ctx)
			}
		}
	}()

	c.log.Info().Dur("interval", interval).Msg("view mounted")
	return sub
}

func (c *ListController) refreshInBackground(ctx context.Context) {
	// failures are logged by Refresh and kept for the snapshot
	_ = c.Refresh(ctx)
}

// unmount invalidates any cycle still in flight and discards the collection.
func (c *ListController) unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.repo.Clear()
	c.phase = plates.StateLoading
	c.lastErr = ""
	c.lastUpdated = time.Time{}

	c.log.Info().Msg("view unmounted")
}

// Subscription is the lifetime of a mounted view.
type Subscription struct {
	ctrl   *ListController
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop ends the refresh timer, waits for the loop to exit and discards the
// view's collection. It is safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.ctrl.unmount()
	})
}

// Done is closed once the refresh loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
