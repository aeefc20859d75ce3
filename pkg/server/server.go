// Package server exposes the metadata and favicon endpoints plus the link
// refetch and import API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/db"
	"github.com/dtnitsch/linkmeta/pkg/favicon"
	"github.com/dtnitsch/linkmeta/pkg/importer"
	"github.com/dtnitsch/linkmeta/pkg/refetch"
)

// maxImportBytes caps the body of an import request.
const maxImportBytes = 1 << 20

type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (models.MetadataResult, error)
}

type Favicons interface {
	Get(ctx context.Context, target string) favicon.Icon
}

type LinkStore interface {
	GetLink(ctx context.Context, id string) (models.Link, error)
	GetFolder(ctx context.Context, id string) (models.Folder, error)
	ListLinks(ctx context.Context, folderID string) ([]models.Link, error)
}

type Refetcher interface {
	TryStart(linkID string) error
	RefetchStarted(ctx context.Context, linkID, rawURL string) (refetch.Outcome, error)
	InFlight() []string
}

type Importer interface {
	Import(ctx context.Context, folderID, text string, progress importer.Progress) (importer.Result, error)
}

// Deps are the components behind the handlers. Links, Refetch and Import may
// be nil, in which case only /health, /metadata and /favicon are served.
type Deps struct {
	Resolver Resolver
	Favicons Favicons
	Links    LinkStore
	Refetch  Refetcher
	Import   Importer
	Logger   *slog.Logger
}

// Server exposes the HTTP API.
type Server struct {
	deps   Deps
	logger *slog.Logger
	mux    *http.ServeMux

	// background refetches outlive their request; they stop when the
	// server's base context is cancelled.
	base     context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// New wires handlers onto an HTTP mux.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		deps:   deps,
		logger: logger,
		mux:    http.NewServeMux(),
		base:   base,
		cancel: cancel,
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withCORS(s.mux).ServeHTTP(w, r)
}

// Close cancels background refetches and waits for them to return.
func (s *Server) Close() {
	s.cancel()
	s.inflight.Wait()
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metadata", s.handleMetadata)
	s.mux.HandleFunc("GET /favicon", s.handleFavicon)
	if s.deps.Links != nil && s.deps.Refetch != nil {
		s.mux.HandleFunc("POST /api/links/{id}/refetch", s.handleRefetch)
		s.mux.HandleFunc("GET /api/links/refetching", s.handleRefetching)
	}
	if s.deps.Links != nil {
		s.mux.HandleFunc("GET /api/folders/{id}/links", s.handleListLinks)
	}
	if s.deps.Links != nil && s.deps.Import != nil {
		s.mux.HandleFunc("POST /api/folders/{id}/import", s.handleImport)
	}
}

// withCORS allows any origin and answers preflight requests directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL is required"})
		return
	}

	result, err := s.deps.Resolver.Resolve(r.Context(), target)
	if err != nil {
		// Only a cancelled request gets here; the client is gone.
		s.logger.Debug("metadata request abandoned", "url", target, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "Missing url", http.StatusBadRequest)
		return
	}

	icon := s.deps.Favicons.Get(r.Context(), target)
	h := w.Header()
	h.Set("Content-Type", icon.ContentType)
	h.Set("Cache-Control", icon.CacheControl)
	h.Set("Content-Length", strconv.Itoa(len(icon.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(icon.Body)
}

func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	link, err := s.deps.Links.GetLink(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	if err := s.deps.Refetch.TryStart(link.ID); err != nil {
		if errors.Is(err, refetch.ErrInFlight) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		outcome, err := s.deps.Refetch.RefetchStarted(s.base, link.ID, link.URL)
		if err != nil {
			s.logger.Warn("background refetch stopped", "link_id", link.ID, "error", err)
			return
		}
		s.logger.Debug("background refetch finished", "link_id", link.ID, "outcome", outcome.String())
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"id": link.ID, "status": "refetching"})
}

func (s *Server) handleRefetching(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"ids": s.deps.Refetch.InFlight()})
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	folderID := r.PathValue("id")
	if _, err := s.deps.Links.GetFolder(r.Context(), folderID); err != nil {
		s.storeError(w, err)
		return
	}
	links, err := s.deps.Links.ListLinks(r.Context(), folderID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if links == nil {
		links = []models.Link{}
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	folderID := r.PathValue("id")
	if _, err := s.deps.Links.GetFolder(r.Context(), folderID); err != nil {
		s.storeError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	if len(body) > maxImportBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "import body too large"})
		return
	}

	result, err := s.deps.Import.Import(r.Context(), folderID, string(body), nil)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Error("import failed", "folder_id", folderID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "import failed"})
		return
	}

	invalid := result.Invalid
	if invalid == nil {
		invalid = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": len(result.Links),
		"invalid":  invalid,
	})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("store error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
