// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"

	"github.com/infinite-realms/chronicle/internal/middleware"
)

// SignUploadRequest is the request body for a signed upload.
type SignUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// ConfirmUploadRequest records an upload that completed against a signed URL.
type ConfirmUploadRequest struct {
	Key         string `json:"key"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// SignUpload handles POST /api/v1/admin/media/sign-upload.
func (h *Handler) SignUpload(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		WriteNotFound(w, "Media storage is not configured")
		return
	}
	identity := middleware.GetIdentity(r)

	var req SignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	signed, err := h.media.SignUpload(r.Context(), *identity, req.Filename, req.ContentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, signed, nil)
}

// ConfirmUpload handles POST /api/v1/admin/media/confirm.
func (h *Handler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		WriteNotFound(w, "Media storage is not configured")
		return
	}
	identity := middleware.GetIdentity(r)

	var req ConfirmUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	asset, err := h.media.Confirm(r.Context(), *identity, req.Key, req.Name, req.ContentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteCreated(w, asset)
}

// ListMedia handles GET /api/v1/admin/media.
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		WriteNotFound(w, "Media storage is not configured")
		return
	}
	identity := middleware.GetIdentity(r)

	prefix := r.URL.Query().Get("prefix")
	limit := int64(parseIntQuery(r, "per_page", 50))
	page := parseIntQuery(r, "page", 1)
	if page < 1 {
		page = 1
	}
	offset := int64(page-1) * limit

	assets, total, err := h.media.List(r.Context(), *identity, prefix, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteSuccess(w, assets, &Meta{
		Total:   total,
		Page:    page,
		PerPage: int(limit),
		Pages:   pageCount(total, int(limit)),
	})
}

// DeleteMedia handles DELETE /api/v1/admin/media/{id}.
func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		WriteNotFound(w, "Media storage is not configured")
		return
	}
	identity := middleware.GetIdentity(r)

	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid media ID", nil)
		return
	}

	if err := h.media.Delete(r.Context(), *identity, id); err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, map[string]bool{"deleted": true}, nil)
}
