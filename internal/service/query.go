// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/infinite-realms/chronicle/internal/cache"
	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/render"
	"github.com/infinite-realms/chronicle/internal/store"
)

const (
	// DefaultPageSize is used when the caller does not specify one.
	DefaultPageSize = 10
	// MaxPageSize caps caller-supplied page sizes.
	MaxPageSize = 100

	// StatusFilterAll is the admin-surface sentinel meaning "no status
	// filter". It is resolved here at the query boundary and never enters
	// the status enum.
	StatusFilterAll = "all"

	// maxEventLimit caps a single audit-event page.
	maxEventLimit = 200
)

// SortFields lists the admin-surface sort keys.
var SortFields = []string{"updated_at", "created_at", "title", "status", "published_at"}

// PublicListParams describes a public listing request.
type PublicListParams struct {
	Page     int
	PageSize int
	Search   string
	Category string // slug or numeric id
	Tag      string // slug or numeric id
}

// AdminListParams describes an admin listing request.
type AdminListParams struct {
	PublicListParams
	Status        string // a post status, StatusFilterAll, or empty (= all)
	ScheduledOnly bool
	SortBy        string // one of SortFields; default updated_at
	SortDirection string // "asc" or "desc"; default desc
}

// ListResult is a paginated page of posts.
type ListResult struct {
	Posts    []model.Post
	Total    int64
	Page     int
	PageSize int
}

// PostView is a post with its derived presentation fields and associations.
type PostView struct {
	Post               model.Post       `json:"post"`
	HTML               string           `json:"html"`
	Excerpt            string           `json:"excerpt"`
	ReadingTimeMinutes int              `json:"reading_time_minutes"`
	Categories         []model.Category `json:"categories"`
	Tags               []model.Tag      `json:"tags"`
}

// QueryService serves the read side: paginated, filtered, sorted listings
// for the public and admin surfaces, and rendered single-post views. Reads
// never mutate shared state and are safe for unlimited concurrency.
type QueryService struct {
	queries   *store.Queries
	viewCache *cache.TypedCache[PostView]
}

// NewQueryService creates a QueryService. The cache may be nil to disable
// rendered-view caching.
func NewQueryService(db *sql.DB, c cache.Cacher) *QueryService {
	var viewCache *cache.TypedCache[PostView]
	if c != nil {
		viewCache = cache.NewTypedCache[PostView](c, 5*time.Minute)
	}
	return &QueryService{
		queries:   store.New(db),
		viewCache: viewCache,
	}
}

// ListPublic returns published posts matching the public filter set.
func (s *QueryService) ListPublic(ctx context.Context, params PublicListParams) (ListResult, error) {
	filter := store.PostFilter{
		Status:   model.PostStatusPublished,
		Search:   params.Search,
		SortBy:   "published_at",
		SortDesc: true,
	}

	empty, err := s.resolveTaxonomyFilters(ctx, params, &filter)
	if err != nil {
		return ListResult{}, err
	}
	page, pageSize := normalizePagination(params.Page, params.PageSize)
	if empty {
		return ListResult{Page: page, PageSize: pageSize}, nil
	}

	return s.list(ctx, filter, page, pageSize)
}

// ListAdmin returns posts for the admin surface. Non-admin actors are
// server-scoped to their own posts regardless of the filters supplied.
func (s *QueryService) ListAdmin(ctx context.Context, actor model.Identity, params AdminListParams) (ListResult, error) {
	filter := store.PostFilter{
		Search:        params.Search,
		ScheduledOnly: params.ScheduledOnly,
		SortBy:        "updated_at",
		SortDesc:      true,
	}

	if !actor.IsAdmin() {
		if actor.Role != model.RoleAuthor || actor.AuthorID == 0 {
			return ListResult{}, ErrPermission
		}
		filter.AuthorID = actor.AuthorID
	}

	if params.Status != "" && params.Status != StatusFilterAll {
		if !model.IsValidPostStatus(params.Status) {
			return ListResult{}, NewValidationError("status", "Unknown status filter")
		}
		filter.Status = params.Status
	}

	if params.SortBy != "" {
		valid := false
		for _, f := range SortFields {
			if f == params.SortBy {
				valid = true
				break
			}
		}
		if !valid {
			return ListResult{}, NewValidationError("sort_by", "Unknown sort field")
		}
		filter.SortBy = params.SortBy
	}
	switch params.SortDirection {
	case "", "desc":
		filter.SortDesc = true
	case "asc":
		filter.SortDesc = false
	default:
		return ListResult{}, NewValidationError("sort_direction", "Sort direction must be 'asc' or 'desc'")
	}

	empty, err := s.resolveTaxonomyFilters(ctx, params.PublicListParams, &filter)
	if err != nil {
		return ListResult{}, err
	}
	page, pageSize := normalizePagination(params.Page, params.PageSize)
	if empty {
		return ListResult{Page: page, PageSize: pageSize}, nil
	}

	return s.list(ctx, filter, page, pageSize)
}

// GetPublishedView returns the rendered view of a published post by slug.
// Views are cached until the post changes.
func (s *QueryService) GetPublishedView(ctx context.Context, slug string) (PostView, error) {
	if s.viewCache != nil {
		if view, ok := s.viewCache.Get(ctx, viewCacheKey(slug)); ok {
			return *view, nil
		}
	}

	post, err := s.queries.GetPublishedPostBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PostView{}, ErrNotFound
		}
		return PostView{}, fmt.Errorf("fetching post: %w", err)
	}

	view, err := s.View(ctx, post)
	if err != nil {
		return PostView{}, err
	}

	if s.viewCache != nil {
		if err := s.viewCache.Set(ctx, viewCacheKey(slug), &view); err != nil {
			slog.Debug("failed to cache post view", "slug", slug, "error", err)
		}
	}
	return view, nil
}

// View builds the rendered view of a post: sanitized HTML, excerpt, reading
// time, and taxonomy associations.
func (s *QueryService) View(ctx context.Context, post model.Post) (PostView, error) {
	html, err := render.Markdown(post.Content)
	if err != nil {
		return PostView{}, fmt.Errorf("rendering post %d: %w", post.ID, err)
	}

	categories, err := s.queries.GetCategoriesForPost(ctx, post.ID)
	if err != nil {
		return PostView{}, fmt.Errorf("fetching categories: %w", err)
	}
	tags, err := s.queries.GetTagsForPost(ctx, post.ID)
	if err != nil {
		return PostView{}, fmt.Errorf("fetching tags: %w", err)
	}

	return PostView{
		Post:               post,
		HTML:               html,
		Excerpt:            render.Excerpt(post.Content, summaryWords),
		ReadingTimeMinutes: render.ReadingTimeMinutes(post.Content),
		Categories:         categories,
		Tags:               tags,
	}, nil
}

// PostChanged implements Notifier: any mutation drops the cached view for
// the post's slug.
func (s *QueryService) PostChanged(ctx context.Context, _ string, post model.Post) {
	if s.viewCache == nil {
		return
	}
	if err := s.viewCache.Delete(ctx, viewCacheKey(post.Slug)); err != nil {
		slog.Debug("failed to invalidate post view", "slug", post.Slug, "error", err)
	}
}

// PostSlugVacated implements SlugNotifier: a renamed post's old slug must
// stop serving the cached view.
func (s *QueryService) PostSlugVacated(ctx context.Context, oldSlug string) {
	if s.viewCache == nil {
		return
	}
	if err := s.viewCache.Delete(ctx, viewCacheKey(oldSlug)); err != nil {
		slog.Debug("failed to invalidate vacated post view", "slug", oldSlug, "error", err)
	}
}

// RecentEvents returns the newest audit events, capped at maxEventLimit.
func (s *QueryService) RecentEvents(ctx context.Context, limit int64) ([]model.Event, error) {
	if limit < 1 || limit > maxEventLimit {
		limit = 50
	}
	events, err := s.queries.ListRecentEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// list executes the filter with pagination and returns the envelope.
func (s *QueryService) list(ctx context.Context, filter store.PostFilter, page, pageSize int) (ListResult, error) {
	filter.Limit = int64(pageSize)
	filter.Offset = int64((page - 1) * pageSize)

	posts, err := s.queries.ListPosts(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("listing posts: %w", err)
	}
	total, err := s.queries.CountPosts(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("counting posts: %w", err)
	}

	return ListResult{Posts: posts, Total: total, Page: page, PageSize: pageSize}, nil
}

// resolveTaxonomyFilters translates slug-or-id category/tag filters into ids.
// An unknown slug is not an error: it yields an empty result set, signalled
// by the boolean return.
func (s *QueryService) resolveTaxonomyFilters(ctx context.Context, params PublicListParams, filter *store.PostFilter) (empty bool, err error) {
	if params.Category != "" {
		id, found, err := s.resolveCategoryRef(ctx, params.Category)
		if err != nil {
			return false, err
		}
		if !found {
			return true, nil
		}
		filter.CategoryID = id
	}
	if params.Tag != "" {
		id, found, err := s.resolveTagRef(ctx, params.Tag)
		if err != nil {
			return false, err
		}
		if !found {
			return true, nil
		}
		filter.TagID = id
	}
	return false, nil
}

func (s *QueryService) resolveCategoryRef(ctx context.Context, ref string) (int64, bool, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, true, nil
	}
	category, err := s.queries.GetCategoryBySlug(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolving category: %w", err)
	}
	return category.ID, true, nil
}

func (s *QueryService) resolveTagRef(ctx context.Context, ref string) (int64, bool, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, true, nil
	}
	tag, err := s.queries.GetTagBySlug(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolving tag: %w", err)
	}
	return tag.ID, true, nil
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func viewCacheKey(slug string) string {
	return "post_view:" + slug
}
