package links

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/resolver"
	"github.com/dtnitsch/linkmeta/pkg/urlutil"
)

type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (models.MetadataResult, error)
}

type Store interface {
	InsertLink(ctx context.Context, link models.Link) (models.Link, error)
}

// Add resolves rawURL once and stores it in folderID. A failed resolution
// still stores the link, titled with its URL.
func Add(ctx context.Context, r Resolver, s Store, folderID, rawURL, note, faviconBase string, logger *slog.Logger) (models.Link, error) {
	cleaned := urlutil.SanitizeURL(rawURL)
	if !urlutil.IsValidURL(cleaned) {
		return models.Link{}, fmt.Errorf("invalid URL: %q", rawURL)
	}

	result, err := r.Resolve(ctx, cleaned)
	if err != nil {
		return models.Link{}, err
	}

	link, err := s.InsertLink(ctx, models.Link{
		FolderID:    folderID,
		URL:         cleaned,
		Title:       resolver.TitleOrURL(result, cleaned),
		Description: result.Description,
		ImageURL:    resolver.DisplayImage(result, cleaned, faviconBase),
		Note:        note,
	})
	if err != nil {
		return models.Link{}, err
	}
	if logger != nil {
		logger.Info("link added", "link_id", link.ID, "url", link.URL, "folder_id", folderID)
	}
	return link, nil
}
