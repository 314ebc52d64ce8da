package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/docoutline/internal/output"
	"github.com/dgallion1/docoutline/internal/pathstore"
	"github.com/dgallion1/docoutline/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists stored outlines, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			jsonError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	docs, err := s.docs.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleGetDocument returns a stored document. With ?format=record only the
// outline record is written, in the same form as the batch output files.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	doc, err := s.docs.Get(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "record" {
		w.Header().Set("Content-Type", "application/json")
		output.Encode(w, doc.Record)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handlePublished reads back a stored document's outline node from the
// publisher.
func (s *Server) handlePublished(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()

	if _, err := s.docs.Get(ctx, docID); errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	} else if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	enabled, found, err := s.orchestrator.Published(ctx, docID)
	if err != nil {
		s.log.Warn("publish lookup failed", "doc_id", docID, "error", err)
		jsonError(w, "publish lookup failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":     docID,
		"publishing": enabled,
		"published":  found,
		"key":        pathstore.OutlineKey(docID),
	})
}

// handleDeleteDocument removes a stored outline and its published copy.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()

	err := s.docs.Delete(ctx, docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	unpublished := true
	if err := s.orchestrator.Unpublish(ctx, docID); err != nil {
		s.log.Warn("unpublish failed", "doc_id", docID, "error", err)
		unpublished = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":      docID,
		"deleted":     true,
		"unpublished": unpublished,
	})
}
