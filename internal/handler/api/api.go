// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST handlers for the content service.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/infinite-realms/chronicle/internal/service"
	"github.com/infinite-realms/chronicle/internal/version"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	posts    *service.PostService
	query    *service.QueryService
	taxonomy *service.TaxonomyService
	media    *service.MediaService
}

// NewHandler creates an API handler over the service layer. media may be
// nil when no object store is configured; the media routes then answer 404.
func NewHandler(posts *service.PostService, query *service.QueryService, taxonomy *service.TaxonomyService, media *service.MediaService) *Handler {
	return &Handler{
		posts:    posts,
		query:    query,
		taxonomy: taxonomy,
		media:    media,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 OK response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteConflict writes a 409 Conflict response.
func WriteConflict(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusConflict, "conflict", message, details)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// writeServiceError maps service-layer errors onto the HTTP error taxonomy.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		WriteBadRequest(w, "Validation failed", validationErr.Fields)
		return
	}

	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		WriteConflict(w, conflictErr.Error(), map[string]string{conflictErr.Field: conflictErr.Value})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, "Resource not found")
	case errors.Is(err, service.ErrPermission):
		WriteForbidden(w, "You do not have permission to perform this action")
	default:
		slog.Error("request failed", "error", err)
		WriteInternalError(w, "Internal server error")
	}
}

// parseIDParam reads the {id} URL parameter.
func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parseIntQuery reads an integer query parameter, returning def when absent
// or malformed.
func parseIntQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// pageCount computes the number of pages in a paginated listing.
func pageCount(total int64, perPage int) int {
	if perPage < 1 {
		return 0
	}
	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	return pages
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:  "ok",
		Version: version.Version,
	}, nil)
}

// EventResponse is the wire shape of an audit event.
type EventResponse struct {
	ID        int64  `json:"id"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	TokenID   *int64 `json:"token_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListEvents handles GET /api/v1/admin/events. Admin only, enforced by the
// router.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	events, err := h.query.RecentEvents(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		resp := EventResponse{
			ID:        e.ID,
			Level:     e.Level,
			Category:  e.Category,
			Message:   e.Message,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.TokenID.Valid {
			tokenID := e.TokenID.Int64
			resp.TokenID = &tokenID
		}
		out = append(out, resp)
	}
	WriteSuccess(w, out, nil)
}
