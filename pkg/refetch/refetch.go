// Package refetch re-resolves metadata for stored links with bounded retries
// and tracks which links are currently being refetched.
package refetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/resolver"
)

// ErrInFlight is returned when a refetch for the same link is already running.
var ErrInFlight = errors.New("refetch already in flight")

// Attempter runs the resolution pipeline once without fallback.
type Attempter interface {
	Attempt(ctx context.Context, rawURL string) (models.MetadataResult, models.Strategy, error)
}

// Store persists refetched metadata.
type Store interface {
	UpdateLinkMetadata(ctx context.Context, id, title, description, imageURL string) error
}

// Outcome is the terminal state of one refetch.
type Outcome int

const (
	// Updated means the store now holds the new metadata.
	Updated Outcome = iota
	// NothingToUpdate means resolution succeeded without a usable title.
	NothingToUpdate
	// GaveUp means every attempt failed; the stored link is unchanged.
	GaveUp
	// Skipped means another refetch of the link was already running.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case NothingToUpdate:
		return "nothing-to-update"
	case GaveUp:
		return "gave-up"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Options struct {
	MaxAttempts int
	Backoff     time.Duration
	// FaviconBase is used for the stored image when none was extracted.
	FaviconBase string
	Logger      *slog.Logger
}

type Controller struct {
	resolver Attempter
	store    Store
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(r Attempter, s Store, opts Options) *Controller {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		resolver: r,
		store:    s,
		opts:     opts,
		logger:   logger,
		inFlight: make(map[string]struct{}),
		sleep:    sleepContext,
	}
}

// FromConfig wires a Controller from the refetch and favicon config sections.
func FromConfig(r Attempter, s Store, cfg models.Config, logger *slog.Logger) *Controller {
	return New(r, s, Options{
		MaxAttempts: cfg.Refetch.MaxAttempts,
		Backoff:     cfg.Refetch.Backoff.Duration,
		FaviconBase: cfg.Favicon.PublicURL,
		Logger:      logger,
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// acquire marks linkID in flight. It reports false if it already was.
func (c *Controller) acquire(linkID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[linkID]; busy {
		return false
	}
	c.inFlight[linkID] = struct{}{}
	return true
}

func (c *Controller) release(linkID string) {
	c.mu.Lock()
	delete(c.inFlight, linkID)
	c.mu.Unlock()
}

// IsRefetching reports whether linkID is currently being refetched.
func (c *Controller) IsRefetching(linkID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inFlight[linkID]
	return busy
}

// InFlight returns the ids currently being refetched, sorted.
func (c *Controller) InFlight() []string {
	c.mu.Lock()
	ids := make([]string, 0, len(c.inFlight))
	for id := range c.inFlight {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// TryStart marks linkID in flight for a refetch that will be run later with
// RefetchStarted. It returns ErrInFlight if the link is busy.
func (c *Controller) TryStart(linkID string) error {
	if !c.acquire(linkID) {
		return ErrInFlight
	}
	return nil
}

// Refetch resolves rawURL again and writes the result for linkID.
//
// Failed attempts, including failed store writes, are retried up to
// MaxAttempts with Backoff between them. When every attempt fails the stored
// link is left as it was and GaveUp is returned with a nil error. The only
// errors are ErrInFlight and a cancelled context.
func (c *Controller) Refetch(ctx context.Context, linkID, rawURL string) (Outcome, error) {
	if !c.acquire(linkID) {
		return Skipped, ErrInFlight
	}
	return c.RefetchStarted(ctx, linkID, rawURL)
}

// RefetchStarted runs a refetch that was reserved with TryStart and releases
// the reservation when done.
func (c *Controller) RefetchStarted(ctx context.Context, linkID, rawURL string) (Outcome, error) {
	defer c.release(linkID)

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		outcome, err := c.attempt(ctx, linkID, rawURL)
		if err == nil {
			c.logger.Info("refetched", "link_id", linkID, "url", rawURL, "attempt", attempt, "outcome", outcome.String())
			return outcome, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return GaveUp, ctxErr
		}

		c.logger.Warn("refetch attempt failed", "link_id", linkID, "url", rawURL, "attempt", attempt, "error", err)
		if attempt < c.opts.MaxAttempts {
			if err := c.sleep(ctx, c.opts.Backoff); err != nil {
				return GaveUp, err
			}
		}
	}

	c.logger.Warn("refetch gave up", "link_id", linkID, "url", rawURL, "attempts", c.opts.MaxAttempts)
	return GaveUp, nil
}

func (c *Controller) attempt(ctx context.Context, linkID, rawURL string) (Outcome, error) {
	result, _, err := c.resolver.Attempt(ctx, rawURL)
	if err != nil {
		return GaveUp, err
	}
	if result.Title == "" {
		return NothingToUpdate, nil
	}

	image := resolver.DisplayImage(result, rawURL, c.opts.FaviconBase)
	if err := c.store.UpdateLinkMetadata(ctx, linkID, result.Title, result.Description, image); err != nil {
		return GaveUp, fmt.Errorf("failed to store metadata: %w", err)
	}
	return Updated, nil
}

// RefreshAll refetches links one at a time, in order. Each link is marked in
// flight only while it is processed. onDone, if set, is called after each
// link. A cancelled context stops the loop and is returned.
func (c *Controller) RefreshAll(ctx context.Context, links []models.Link, onDone func(link models.Link, outcome Outcome)) error {
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := c.Refetch(ctx, link.ID, link.URL)
		if err != nil && !errors.Is(err, ErrInFlight) {
			return err
		}
		if onDone != nil {
			onDone(link, outcome)
		}
	}
	return nil
}
