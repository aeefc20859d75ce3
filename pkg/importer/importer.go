// Package importer bulk-adds links from pasted text, resolving metadata
// through a bounded worker pool.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/resolver"
	"github.com/dtnitsch/linkmeta/pkg/urlutil"
)

const DefaultConcurrency = 6

// Resolver resolves one URL with fallback already applied.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (models.MetadataResult, error)
}

// Store writes the imported links in a single transaction.
type Store interface {
	InsertLinks(ctx context.Context, links []models.Link) ([]models.Link, error)
}

// Progress is called after each resolution with the number finished so far.
// Calls are serialized and done increases by one each time.
type Progress func(done, total int)

type Options struct {
	Concurrency int
	// FaviconBase is used for the stored image when none was extracted.
	FaviconBase string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Result describes a finished import.
type Result struct {
	Links   []models.Link
	Invalid []string
}

type Importer struct {
	resolver Resolver
	store    Store
	opts     Options
	logger   *slog.Logger
}

func New(r Resolver, s Store, opts Options) *Importer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{resolver: r, store: s, opts: opts, logger: logger}
}

// FromConfig wires an Importer from the import and favicon config sections.
func FromConfig(r Resolver, s Store, cfg models.Config, logger *slog.Logger) *Importer {
	return New(r, s, Options{
		Concurrency: cfg.Import.Concurrency,
		FaviconBase: cfg.Favicon.PublicURL,
		Logger:      logger,
	})
}

// ParseLines splits newline-separated text into sanitized http(s) URLs.
// Blank lines are dropped silently; anything else that does not validate is
// returned in invalid.
func ParseLines(text string) (urls, invalid []string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	candidates := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		candidates = append(candidates, line)
	}
	return urlutil.SanitizeAndValidateURLs(candidates)
}

// Import resolves every URL in text and stores them in folderID.
//
// Line i is stored with created_at = now - i seconds so the first line sorts
// newest. Nothing is written unless every resolution finished; a cancelled
// context returns ctx.Err() and stores nothing.
func (im *Importer) Import(ctx context.Context, folderID, text string, progress Progress) (Result, error) {
	urls, invalid := ParseLines(text)
	for _, bad := range invalid {
		im.logger.Warn("skipping invalid import line", "line", bad)
	}

	links, err := im.ResolveAll(ctx, folderID, urls, progress)
	if err != nil {
		return Result{Invalid: invalid}, err
	}
	if len(links) == 0 {
		return Result{Invalid: invalid}, nil
	}

	stored, err := im.store.InsertLinks(ctx, links)
	if err != nil {
		return Result{Invalid: invalid}, fmt.Errorf("failed to store imported links: %w", err)
	}

	im.logger.Info("import complete", "folder_id", folderID, "imported", len(stored), "invalid", len(invalid))
	return Result{Links: stored, Invalid: invalid}, nil
}

// ResolveAll resolves urls with at most Concurrency in flight and returns the
// unsaved links in input order.
func (im *Importer) ResolveAll(ctx context.Context, folderID string, urls []string, progress Progress) ([]models.Link, error) {
	now := im.opts.Now()
	links := make([]models.Link, len(urls))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Concurrency)

	for i, rawURL := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := im.resolver.Resolve(gctx, rawURL)
			if err != nil {
				return err
			}

			links[i] = models.Link{
				FolderID:    folderID,
				URL:         rawURL,
				Title:       resolver.TitleOrURL(result, rawURL),
				Description: result.Description,
				ImageURL:    resolver.DisplayImage(result, rawURL, im.opts.FaviconBase),
				CreatedAt:   now.Add(-time.Duration(i) * time.Second),
			}

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(urls))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return links, nil
}
