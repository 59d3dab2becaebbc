// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/infinite-realms/chronicle/internal/middleware"
	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/render"
	"github.com/infinite-realms/chronicle/internal/service"
)

// PostResponse represents a post in API responses.
type PostResponse struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	Slug             string         `json:"slug"`
	Summary          string         `json:"summary,omitempty"`
	Content          string         `json:"content"`
	Status           string         `json:"status"`
	AuthorID         int64          `json:"author_id"`
	FeaturedImageURL string         `json:"featured_image_url,omitempty"`
	HeroImageAlt     string         `json:"hero_image_alt,omitempty"`
	SEOTitle         string         `json:"seo_title,omitempty"`
	SEODescription   string         `json:"seo_description,omitempty"`
	SEOKeywords      []string       `json:"seo_keywords,omitempty"`
	CanonicalURL     string         `json:"canonical_url,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	PublishedAt      *time.Time     `json:"published_at,omitempty"`
	ScheduledFor     *time.Time     `json:"scheduled_for,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// PostViewResponse is a published post with its rendered fields.
type PostViewResponse struct {
	PostResponse
	HTML               string           `json:"html"`
	Excerpt            string           `json:"excerpt"`
	ReadingTimeMinutes int              `json:"reading_time_minutes"`
	Categories         []model.Category `json:"categories"`
	Tags               []model.Tag      `json:"tags"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Title            string         `json:"title"`
	Slug             string         `json:"slug,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	Content          string         `json:"content"`
	AuthorID         int64          `json:"author_id,omitempty"`
	FeaturedImageURL string         `json:"featured_image_url,omitempty"`
	HeroImageAlt     string         `json:"hero_image_alt,omitempty"`
	SEOTitle         string         `json:"seo_title,omitempty"`
	SEODescription   string         `json:"seo_description,omitempty"`
	SEOKeywords      []string       `json:"seo_keywords,omitempty"`
	CanonicalURL     string         `json:"canonical_url,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CategoryIDs      []int64        `json:"category_ids,omitempty"`
	TagIDs           []int64        `json:"tag_ids,omitempty"`
}

// UpdatePostRequest is the request body for a partial post update.
type UpdatePostRequest struct {
	Title            *string         `json:"title,omitempty"`
	Slug             *string         `json:"slug,omitempty"`
	Summary          *string         `json:"summary,omitempty"`
	Content          *string         `json:"content,omitempty"`
	Status           *string         `json:"status,omitempty"`
	FeaturedImageURL *string         `json:"featured_image_url,omitempty"`
	HeroImageAlt     *string         `json:"hero_image_alt,omitempty"`
	SEOTitle         *string         `json:"seo_title,omitempty"`
	SEODescription   *string         `json:"seo_description,omitempty"`
	SEOKeywords      *[]string       `json:"seo_keywords,omitempty"`
	CanonicalURL     *string         `json:"canonical_url,omitempty"`
	Metadata         *map[string]any `json:"metadata,omitempty"`
	CategoryIDs      *[]int64        `json:"category_ids,omitempty"`
	TagIDs           *[]int64        `json:"tag_ids,omitempty"`
}

// postToResponse converts a model.Post to its API shape.
func postToResponse(p model.Post) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Content:   p.Content,
		Status:    p.Status,
		AuthorID:  p.AuthorID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}

	if p.Summary.Valid {
		resp.Summary = p.Summary.String
	}
	if p.FeaturedImageURL.Valid {
		resp.FeaturedImageURL = p.FeaturedImageURL.String
	}
	if p.HeroImageAlt.Valid {
		resp.HeroImageAlt = p.HeroImageAlt.String
	}
	if p.SEOTitle.Valid {
		resp.SEOTitle = p.SEOTitle.String
	}
	if p.SEODescription.Valid {
		resp.SEODescription = p.SEODescription.String
	}
	if p.CanonicalURL.Valid {
		resp.CanonicalURL = p.CanonicalURL.String
	}
	if p.PublishedAt.Valid {
		resp.PublishedAt = &p.PublishedAt.Time
	}
	if p.ScheduledFor.Valid {
		resp.ScheduledFor = &p.ScheduledFor.Time
	}

	if p.SEOKeywords != "" && p.SEOKeywords != "[]" {
		_ = json.Unmarshal([]byte(p.SEOKeywords), &resp.SEOKeywords)
	}
	if p.Metadata != "" && p.Metadata != "{}" {
		_ = json.Unmarshal([]byte(p.Metadata), &resp.Metadata)
	}

	return resp
}

func viewToResponse(v service.PostView) PostViewResponse {
	return PostViewResponse{
		PostResponse:       postToResponse(v.Post),
		HTML:               v.HTML,
		Excerpt:            v.Excerpt,
		ReadingTimeMinutes: v.ReadingTimeMinutes,
		Categories:         v.Categories,
		Tags:               v.Tags,
	}
}

func postListResponse(result service.ListResult) ([]PostResponse, *Meta) {
	responses := make([]PostResponse, 0, len(result.Posts))
	for _, p := range result.Posts {
		responses = append(responses, postToResponse(p))
	}
	return responses, &Meta{
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PageSize,
		Pages:   pageCount(result.Total, result.PageSize),
	}
}

// ListPublishedPosts handles GET /api/v1/posts. Only published posts are
// visible here, regardless of authentication.
func (h *Handler) ListPublishedPosts(w http.ResponseWriter, r *http.Request) {
	result, err := h.query.ListPublic(r.Context(), publicListParams(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses, meta := postListResponse(result)
	WriteSuccess(w, responses, meta)
}

// GetPublishedPost handles GET /api/v1/posts/{slug}: the rendered view of a
// published post.
func (h *Handler) GetPublishedPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	view, err := h.query.GetPublishedView(r.Context(), slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, viewToResponse(view), nil)
}

// ListAdminPosts handles GET /api/v1/admin/posts. Authors see their own
// posts; admins see everything.
func (h *Handler) ListAdminPosts(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	q := r.URL.Query()
	params := service.AdminListParams{
		PublicListParams: publicListParams(r),
		Status:           q.Get("status"),
		ScheduledOnly:    q.Get("scheduled_only") == "true",
		SortBy:           q.Get("sort_by"),
		SortDirection:    q.Get("sort_direction"),
	}

	result, err := h.query.ListAdmin(r.Context(), *identity, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses, meta := postListResponse(result)
	WriteSuccess(w, responses, meta)
}

// GetAdminPost handles GET /api/v1/admin/posts/{id}.
func (h *Handler) GetAdminPost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	post, err := h.posts.Get(r.Context(), *identity, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, postToResponse(post), nil)
}

// CreatePost handles POST /api/v1/admin/posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	post, err := h.posts.Create(r.Context(), *identity, service.CreatePostInput{
		Title:            req.Title,
		Slug:             req.Slug,
		Summary:          req.Summary,
		Content:          req.Content,
		AuthorID:         req.AuthorID,
		FeaturedImageURL: req.FeaturedImageURL,
		HeroImageAlt:     req.HeroImageAlt,
		SEOTitle:         req.SEOTitle,
		SEODescription:   req.SEODescription,
		SEOKeywords:      req.SEOKeywords,
		CanonicalURL:     req.CanonicalURL,
		Metadata:         req.Metadata,
		CategoryIDs:      req.CategoryIDs,
		TagIDs:           req.TagIDs,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteCreated(w, postToResponse(post))
}

// UpdatePost handles PATCH /api/v1/admin/posts/{id}.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	post, err := h.posts.Update(r.Context(), *identity, id, service.UpdatePostInput{
		Title:            req.Title,
		Slug:             req.Slug,
		Summary:          req.Summary,
		Content:          req.Content,
		Status:           req.Status,
		FeaturedImageURL: req.FeaturedImageURL,
		HeroImageAlt:     req.HeroImageAlt,
		SEOTitle:         req.SEOTitle,
		SEODescription:   req.SEODescription,
		SEOKeywords:      req.SEOKeywords,
		CanonicalURL:     req.CanonicalURL,
		Metadata:         req.Metadata,
		CategoryIDs:      req.CategoryIDs,
		TagIDs:           req.TagIDs,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, postToResponse(post), nil)
}

// DeletePost handles DELETE /api/v1/admin/posts/{id}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	if err := h.posts.Delete(r.Context(), *identity, id); err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, map[string]bool{"deleted": true}, nil)
}

// PublishPost handles POST /api/v1/admin/posts/{id}/publish. An optional
// published_at backdates the publication.
func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	var req struct {
		PublishedAt *time.Time `json:"published_at,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteBadRequest(w, "Invalid JSON body", nil)
			return
		}
	}

	post, err := h.posts.Publish(r.Context(), *identity, id, req.PublishedAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, postToResponse(post), nil)
}

// SchedulePost handles POST /api/v1/admin/posts/{id}/schedule.
func (h *Handler) SchedulePost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	var req struct {
		ScheduledFor *time.Time `json:"scheduled_for"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	post, err := h.posts.Schedule(r.Context(), *identity, id, req.ScheduledFor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, postToResponse(post), nil)
}

// RequestReview handles POST /api/v1/admin/posts/{id}/request-review.
func (h *Handler) RequestReview(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	post, err := h.posts.RequestReview(r.Context(), *identity, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, postToResponse(post), nil)
}

// ArchivePost handles POST /api/v1/admin/posts/{id}/archive.
func (h *Handler) ArchivePost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	post, err := h.posts.Archive(r.Context(), *identity, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, postToResponse(post), nil)
}

// PreviewStoredPost handles GET /api/v1/admin/posts/{id}/preview: the
// rendered view of a post in any status, for its author or an admin.
func (h *Handler) PreviewStoredPost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	post, err := h.posts.Get(r.Context(), *identity, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	view, err := h.query.View(r.Context(), post)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, viewToResponse(view), nil)
}

// PreviewPost handles POST /api/v1/admin/posts/preview: renders submitted
// markdown without persisting anything.
func (h *Handler) PreviewPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	html, err := render.Markdown(req.Content)
	if err != nil {
		WriteInternalError(w, "Failed to render content")
		return
	}

	WriteSuccess(w, map[string]any{
		"html":                 html,
		"excerpt":              render.Excerpt(req.Content, 40),
		"reading_time_minutes": render.ReadingTimeMinutes(req.Content),
	}, nil)
}

// CheckSlug handles GET /api/v1/admin/posts/slug/check?slug=...&exclude_id=...
func (h *Handler) CheckSlug(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		WriteBadRequest(w, "Missing slug parameter", nil)
		return
	}
	excludeID := int64(parseIntQuery(r, "exclude_id", 0))

	available, err := h.posts.CheckSlugAvailable(r.Context(), slug, excludeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteSuccess(w, map[string]any{"slug": slug, "available": available}, nil)
}

func publicListParams(r *http.Request) service.PublicListParams {
	q := r.URL.Query()
	return service.PublicListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "per_page", 0),
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
	}
}
