package extractors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/failure"
	"github.com/dtnitsch/linkmeta/pkg/fetcher"
)

// crossrefEnvelope is the part of a Crossref /works/<doi> response we read.
type crossrefEnvelope struct {
	Message struct {
		Title          []string `json:"title"`
		ContainerTitle []string `json:"container-title"`
		Author         []struct {
			Given  string `json:"given"`
			Family string `json:"family"`
			Name   string `json:"name"`
		} `json:"author"`
	} `json:"message"`
}

// DOIResolver looks DOIs up in the Crossref registry.
type DOIResolver struct {
	fetcher Fetcher
	baseURL string
}

// NewDOIResolver creates a resolver against baseURL, which must end where the
// DOI is appended (e.g. https://api.crossref.org/works/).
func NewDOIResolver(f Fetcher, baseURL string) *DOIResolver {
	if baseURL == "" {
		baseURL = models.DefaultCrossrefURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &DOIResolver{fetcher: f, baseURL: baseURL}
}

// Resolve fetches the registry record for doi. originalURL is used as the
// title when the record carries neither a title nor a container title.
// A 404 from the registry is reported as failure.NotFound.
func (r *DOIResolver) Resolve(ctx context.Context, doi, originalURL string) (models.MetadataResult, error) {
	endpoint := r.baseURL + doi
	resp, err := r.fetcher.Fetch(ctx, endpoint, fetcher.IntentAPI)
	if err != nil {
		if failure.StatusOf(err) == 404 {
			return models.MetadataResult{}, &failure.Error{Kind: failure.NotFound, URL: endpoint, Status: 404}
		}
		return models.MetadataResult{}, err
	}

	var envelope crossrefEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return models.MetadataResult{}, failure.New(failure.Parse, endpoint, fmt.Errorf("decode crossref response: %w", err))
	}

	item := envelope.Message
	title := originalURL
	if len(item.Title) > 0 && strings.TrimSpace(item.Title[0]) != "" {
		title = item.Title[0]
	} else if len(item.ContainerTitle) > 0 && strings.TrimSpace(item.ContainerTitle[0]) != "" {
		title = item.ContainerTitle[0]
	}

	authors := make([]string, 0, len(item.Author))
	for _, a := range item.Author {
		name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}

	description := ""
	if len(authors) > 0 {
		description = "By " + strings.Join(authors, ", ")
	}

	return models.MetadataResult{
		Title:       strings.TrimSpace(title),
		Description: description,
	}, nil
}
