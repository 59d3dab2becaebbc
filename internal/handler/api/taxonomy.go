// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"

	"github.com/infinite-realms/chronicle/internal/middleware"
	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/service"
)

// CategoryResponse represents a category in API responses. PostCount is
// populated on detail reads only.
type CategoryResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	PostCount   *int64 `json:"post_count,omitempty"`
}

// TagResponse represents a tag in API responses. PostCount is populated on
// detail reads only.
type TagResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	PostCount   *int64 `json:"post_count,omitempty"`
}

// CategoryRequest is the request body for creating or updating a category.
type CategoryRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

// TagRequest is the request body for creating or updating a tag.
type TagRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

func categoryToResponse(c model.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:    c.ID,
		Title: c.Title,
		Slug:  c.Slug,
	}
	if c.Description.Valid {
		resp.Description = c.Description.String
	}
	return resp
}

func tagToResponse(t model.Tag) TagResponse {
	resp := TagResponse{
		ID:   t.ID,
		Name: t.Name,
		Slug: t.Slug,
	}
	if t.Description.Valid {
		resp.Description = t.Description.String
	}
	return resp
}

// ListCategories handles GET /api/v1/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.taxonomy.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		responses = append(responses, categoryToResponse(c))
	}
	WriteSuccess(w, responses, &Meta{Total: int64(len(responses))})
}

// GetCategory handles GET /api/v1/categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid category ID", nil)
		return
	}

	category, err := h.taxonomy.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	count, err := h.taxonomy.CategoryUsage(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := categoryToResponse(category)
	resp.PostCount = &count
	WriteSuccess(w, resp, nil)
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	category, err := h.taxonomy.CreateCategory(r.Context(), *identity, service.CategoryInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteCreated(w, categoryToResponse(category))
}

// UpdateCategory handles PATCH /api/v1/admin/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid category ID", nil)
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	category, err := h.taxonomy.UpdateCategory(r.Context(), *identity, id, service.CategoryInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, categoryToResponse(category), nil)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{id}. Posts that
// carried the category lose the association but are otherwise untouched.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid category ID", nil)
		return
	}

	if err := h.taxonomy.DeleteCategory(r.Context(), *identity, id); err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, map[string]bool{"deleted": true}, nil)
}

// ListTags handles GET /api/v1/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.taxonomy.ListTags(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		responses = append(responses, tagToResponse(t))
	}
	WriteSuccess(w, responses, &Meta{Total: int64(len(responses))})
}

// GetTag handles GET /api/v1/tags/{id}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid tag ID", nil)
		return
	}

	tag, err := h.taxonomy.GetTag(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	count, err := h.taxonomy.TagUsage(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := tagToResponse(tag)
	resp.PostCount = &count
	WriteSuccess(w, resp, nil)
}

// CreateTag handles POST /api/v1/admin/tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)

	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	tag, err := h.taxonomy.CreateTag(r.Context(), *identity, service.TagInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteCreated(w, tagToResponse(tag))
}

// UpdateTag handles PATCH /api/v1/admin/tags/{id}.
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid tag ID", nil)
		return
	}

	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	tag, err := h.taxonomy.UpdateTag(r.Context(), *identity, id, service.TagInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, tagToResponse(tag), nil)
}

// DeleteTag handles DELETE /api/v1/admin/tags/{id}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid tag ID", nil)
		return
	}

	if err := h.taxonomy.DeleteTag(r.Context(), *identity, id); err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, map[string]bool{"deleted": true}, nil)
}
