// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/render"
	"github.com/infinite-realms/chronicle/internal/store"
	"github.com/infinite-realms/chronicle/internal/util"
)

// summaryWords caps the number of words in an auto-derived summary.
const summaryWords = 40

// Notifier receives post change notifications after a mutation commits.
// Implementations must not block; delivery is best-effort.
type Notifier interface {
	PostChanged(ctx context.Context, action string, post model.Post)
}

// SlugNotifier is an optional extension for notifiers that key derived
// state by slug. PostSlugVacated fires when an update moves a post to a new
// slug, with the slug the post left behind.
type SlugNotifier interface {
	PostSlugVacated(ctx context.Context, oldSlug string)
}

// Post change actions passed to Notifiers.
const (
	ActionCreated   = "post.created"
	ActionUpdated   = "post.updated"
	ActionPublished = "post.published"
	ActionScheduled = "post.scheduled"
	ActionReview    = "post.review_requested"
	ActionArchived  = "post.archived"
	ActionDeleted   = "post.deleted"
)

// PostService owns the post lifecycle: creation, partial updates, the named
// status transitions, and deletion. Status is never written except through
// these methods, which keeps the timestamp invariants in one place.
type PostService struct {
	db        *sql.DB
	queries   *store.Queries
	notifiers []Notifier
}

// NewPostService creates a PostService.
func NewPostService(db *sql.DB, notifiers ...Notifier) *PostService {
	return &PostService{
		db:        db,
		queries:   store.New(db),
		notifiers: notifiers,
	}
}

// CreatePostInput holds the fields accepted when creating a post.
type CreatePostInput struct {
	Title            string
	Slug             string // derived from Title when empty
	Summary          string // derived from Content when empty
	Content          string
	AuthorID         int64 // defaults to the actor's linked author profile
	FeaturedImageURL string
	HeroImageAlt     string
	SEOTitle         string
	SEODescription   string
	SEOKeywords      []string
	CanonicalURL     string
	Metadata         map[string]any
	CategoryIDs      []int64
	TagIDs           []int64
}

// UpdatePostInput holds the fields accepted for a partial update. Nil fields
// are left unchanged.
type UpdatePostInput struct {
	Title            *string
	Slug             *string
	Summary          *string
	Content          *string
	Status           *string // only draft and review may be set directly
	FeaturedImageURL *string
	HeroImageAlt     *string
	SEOTitle         *string
	SEODescription   *string
	SEOKeywords      *[]string
	CanonicalURL     *string
	Metadata         *map[string]any
	CategoryIDs      *[]int64
	TagIDs           *[]int64
}

// Create validates input and stores a new post in draft status.
func (s *PostService) Create(ctx context.Context, actor model.Identity, input CreatePostInput) (model.Post, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleAuthor {
		return model.Post{}, ErrPermission
	}

	fieldErrors := make(map[string]string)
	if input.Title == "" {
		fieldErrors["title"] = "Title is required"
	}

	// Resolve the author: authors may only write as themselves, admins must
	// name an author explicitly or have a linked profile.
	authorID := input.AuthorID
	if authorID == 0 {
		authorID = actor.AuthorID
	}
	if authorID == 0 {
		fieldErrors["author_id"] = "Author is required"
	} else if !actor.CanActOn(authorID) {
		return model.Post{}, ErrPermission
	}
	if len(fieldErrors) > 0 {
		return model.Post{}, &ValidationError{Fields: fieldErrors}
	}

	exists, err := s.queries.AuthorExists(ctx, authorID)
	if err != nil {
		return model.Post{}, fmt.Errorf("checking author: %w", err)
	}
	if !exists {
		return model.Post{}, NewValidationError("author_id", "Author profile does not exist")
	}

	slug, err := s.resolveSlug(ctx, input.Slug, input.Title, 0)
	if err != nil {
		return model.Post{}, err
	}

	summary := input.Summary
	if summary == "" && input.Content != "" {
		summary = render.Excerpt(input.Content, summaryWords)
	}

	keywords, metadata, err := encodeJSONFields(input.SEOKeywords, input.Metadata)
	if err != nil {
		return model.Post{}, err
	}

	now := time.Now()
	params := store.CreatePostParams{
		Title:            input.Title,
		Slug:             slug,
		Summary:          util.NullStringFromValue(summary),
		Content:          input.Content,
		Status:           model.PostStatusDraft,
		AuthorID:         authorID,
		FeaturedImageURL: util.NullStringFromValue(input.FeaturedImageURL),
		HeroImageAlt:     util.NullStringFromValue(input.HeroImageAlt),
		SEOTitle:         util.NullStringFromValue(input.SEOTitle),
		SEODescription:   util.NullStringFromValue(input.SEODescription),
		SEOKeywords:      keywords,
		CanonicalURL:     util.NullStringFromValue(input.CanonicalURL),
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Post{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)
	post, err := qtx.CreatePost(ctx, params)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Post{}, &ConflictError{Field: "slug", Value: slug}
		}
		return model.Post{}, fmt.Errorf("creating post: %w", err)
	}

	if len(input.CategoryIDs) > 0 {
		if err := qtx.SetPostCategories(ctx, post.ID, input.CategoryIDs); err != nil {
			return model.Post{}, taxonomyAssociationError(err, "category_ids")
		}
	}
	if len(input.TagIDs) > 0 {
		if err := qtx.SetPostTags(ctx, post.ID, input.TagIDs); err != nil {
			return model.Post{}, taxonomyAssociationError(err, "tag_ids")
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Post{}, fmt.Errorf("committing post: %w", err)
	}

	s.logEvent(ctx, actor, "post created: "+post.Title, post)
	s.notify(ctx, ActionCreated, post)
	return post, nil
}

// Update applies a partial update to a post. Slug changes are re-checked for
// uniqueness excluding the post itself. Status may only be set to draft or
// review here; the other statuses have dedicated transitions.
func (s *PostService) Update(ctx context.Context, actor model.Identity, id int64, input UpdatePostInput) (model.Post, error) {
	existing, err := s.requireOwnedPost(ctx, actor, id)
	if err != nil {
		return model.Post{}, err
	}

	params := store.UpdatePostParams{
		ID:               existing.ID,
		Title:            existing.Title,
		Slug:             existing.Slug,
		Summary:          existing.Summary,
		Content:          existing.Content,
		Status:           existing.Status,
		FeaturedImageURL: existing.FeaturedImageURL,
		HeroImageAlt:     existing.HeroImageAlt,
		SEOTitle:         existing.SEOTitle,
		SEODescription:   existing.SEODescription,
		SEOKeywords:      existing.SEOKeywords,
		CanonicalURL:     existing.CanonicalURL,
		Metadata:         existing.Metadata,
		PublishedAt:      existing.PublishedAt,
		ScheduledFor:     existing.ScheduledFor,
		UpdatedAt:        time.Now(),
	}

	if input.Title != nil {
		if *input.Title == "" {
			return model.Post{}, NewValidationError("title", "Title is required")
		}
		params.Title = *input.Title
	}
	if input.Slug != nil {
		slug, err := s.resolveSlug(ctx, *input.Slug, params.Title, existing.ID)
		if err != nil {
			return model.Post{}, err
		}
		params.Slug = slug
	}
	if input.Summary != nil {
		params.Summary = util.NullStringFromValue(*input.Summary)
	}
	if input.Content != nil {
		params.Content = *input.Content
		if !params.Summary.Valid && *input.Content != "" {
			params.Summary = util.NullStringFromValue(render.Excerpt(*input.Content, summaryWords))
		}
	}
	if input.Status != nil {
		switch *input.Status {
		case model.PostStatusDraft:
			// Reopening to draft (including unarchive) resets the publish state.
			params.Status = model.PostStatusDraft
			params.PublishedAt = sql.NullTime{}
			params.ScheduledFor = sql.NullTime{}
		case model.PostStatusReview:
			params.Status = model.PostStatusReview
		default:
			return model.Post{}, NewValidationError("status",
				"Status may only be set to 'draft' or 'review'; use the publish, schedule, or archive operations")
		}
	}
	if input.FeaturedImageURL != nil {
		params.FeaturedImageURL = util.NullStringFromValue(*input.FeaturedImageURL)
	}
	if input.HeroImageAlt != nil {
		params.HeroImageAlt = util.NullStringFromValue(*input.HeroImageAlt)
	}
	if input.SEOTitle != nil {
		params.SEOTitle = util.NullStringFromValue(*input.SEOTitle)
	}
	if input.SEODescription != nil {
		params.SEODescription = util.NullStringFromValue(*input.SEODescription)
	}
	if input.SEOKeywords != nil {
		keywords, _, err := encodeJSONFields(*input.SEOKeywords, nil)
		if err != nil {
			return model.Post{}, err
		}
		params.SEOKeywords = keywords
	}
	if input.CanonicalURL != nil {
		params.CanonicalURL = util.NullStringFromValue(*input.CanonicalURL)
	}
	if input.Metadata != nil {
		_, metadata, err := encodeJSONFields(nil, *input.Metadata)
		if err != nil {
			return model.Post{}, err
		}
		params.Metadata = metadata
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Post{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)
	post, err := qtx.UpdatePost(ctx, params)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Post{}, &ConflictError{Field: "slug", Value: params.Slug}
		}
		return model.Post{}, fmt.Errorf("updating post: %w", err)
	}

	if input.CategoryIDs != nil {
		if err := qtx.SetPostCategories(ctx, post.ID, *input.CategoryIDs); err != nil {
			return model.Post{}, taxonomyAssociationError(err, "category_ids")
		}
	}
	if input.TagIDs != nil {
		if err := qtx.SetPostTags(ctx, post.ID, *input.TagIDs); err != nil {
			return model.Post{}, taxonomyAssociationError(err, "tag_ids")
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Post{}, fmt.Errorf("committing post update: %w", err)
	}

	if existing.Slug != post.Slug {
		s.notifySlugVacated(ctx, existing.Slug)
	}
	s.notify(ctx, ActionUpdated, post)
	return post, nil
}

// Publish moves a post to published. It sets published_at to the supplied
// time (or now) and clears scheduled_for. Publishing an already-published
// post just refreshes published_at.
func (s *PostService) Publish(ctx context.Context, actor model.Identity, id int64, publishedAt *time.Time) (model.Post, error) {
	existing, err := s.requireOwnedPost(ctx, actor, id)
	if err != nil {
		return model.Post{}, err
	}

	when := time.Now()
	if publishedAt != nil {
		when = *publishedAt
	}

	post, err := s.applyTransition(ctx, existing, model.PostStatusPublished,
		sql.NullTime{Time: when, Valid: true}, sql.NullTime{})
	if err != nil {
		return model.Post{}, err
	}

	s.logEvent(ctx, actor, "post published: "+post.Title, post)
	s.notify(ctx, ActionPublished, post)
	return post, nil
}

// Schedule moves a post to scheduled for a future-or-present time.
// published_at is left untouched so a previously published post keeps its
// publish history.
func (s *PostService) Schedule(ctx context.Context, actor model.Identity, id int64, scheduledFor *time.Time) (model.Post, error) {
	if scheduledFor == nil {
		return model.Post{}, NewValidationError("scheduled_for", "A scheduled time is required")
	}
	if scheduledFor.Before(time.Now().Add(-time.Minute)) {
		return model.Post{}, NewValidationError("scheduled_for", "Scheduled time must not be in the past")
	}

	existing, err := s.requireOwnedPost(ctx, actor, id)
	if err != nil {
		return model.Post{}, err
	}

	post, err := s.applyTransition(ctx, existing, model.PostStatusScheduled,
		existing.PublishedAt, sql.NullTime{Time: *scheduledFor, Valid: true})
	if err != nil {
		return model.Post{}, err
	}

	s.logEvent(ctx, actor, "post scheduled: "+post.Title, post)
	s.notify(ctx, ActionScheduled, post)
	return post, nil
}

// RequestReview flags a post for editorial review. Any state may move to
// review; this is a workflow signal, not an enforced ordering.
func (s *PostService) RequestReview(ctx context.Context, actor model.Identity, id int64) (model.Post, error) {
	existing, err := s.requireOwnedPost(ctx, actor, id)
	if err != nil {
		return model.Post{}, err
	}

	post, err := s.applyTransition(ctx, existing, model.PostStatusReview,
		existing.PublishedAt, existing.ScheduledFor)
	if err != nil {
		return model.Post{}, err
	}

	s.notify(ctx, ActionReview, post)
	return post, nil
}

// Archive moves a post to archived. published_at is preserved so publish
// history survives; scheduled_for is cleared.
func (s *PostService) Archive(ctx context.Context, actor model.Identity, id int64) (model.Post, error) {
	existing, err := s.requireOwnedPost(ctx, actor, id)
	if err != nil {
		return model.Post{}, err
	}

	post, err := s.applyTransition(ctx, existing, model.PostStatusArchived,
		existing.PublishedAt, sql.NullTime{})
	if err != nil {
		return model.Post{}, err
	}

	s.logEvent(ctx, actor, "post archived: "+post.Title, post)
	s.notify(ctx, ActionArchived, post)
	return post, nil
}

// Delete hard-removes a post. Taxonomy associations are removed by the join
// tables' cascade constraints in the same statement.
func (s *PostService) Delete(ctx context.Context, actor model.Identity, id int64) error {
	existing, err := s.requireOwnedPost(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.queries.DeletePost(ctx, existing.ID); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}

	s.logEvent(ctx, actor, "post deleted: "+existing.Title, existing)
	s.notify(ctx, ActionDeleted, existing)
	return nil
}

// Get returns a post for an authorized caller regardless of status.
func (s *PostService) Get(ctx context.Context, actor model.Identity, id int64) (model.Post, error) {
	return s.requireOwnedPost(ctx, actor, id)
}

// CheckSlugAvailable reports whether a slug is free. excludeID lets editors
// check a new slug for an existing post without colliding with itself.
func (s *PostService) CheckSlugAvailable(ctx context.Context, slug string, excludeID int64) (bool, error) {
	if !util.IsValidSlug(slug) {
		return false, nil
	}
	var (
		exists bool
		err    error
	)
	if excludeID != 0 {
		exists, err = s.queries.PostSlugExistsExcluding(ctx, slug, excludeID)
	} else {
		exists, err = s.queries.PostSlugExists(ctx, slug)
	}
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return !exists, nil
}

// applyTransition writes a status change with the given timestamp fields,
// leaving all content columns untouched.
func (s *PostService) applyTransition(ctx context.Context, existing model.Post, status string, publishedAt, scheduledFor sql.NullTime) (model.Post, error) {
	post, err := s.queries.UpdatePost(ctx, store.UpdatePostParams{
		ID:               existing.ID,
		Title:            existing.Title,
		Slug:             existing.Slug,
		Summary:          existing.Summary,
		Content:          existing.Content,
		Status:           status,
		FeaturedImageURL: existing.FeaturedImageURL,
		HeroImageAlt:     existing.HeroImageAlt,
		SEOTitle:         existing.SEOTitle,
		SEODescription:   existing.SEODescription,
		SEOKeywords:      existing.SEOKeywords,
		CanonicalURL:     existing.CanonicalURL,
		Metadata:         existing.Metadata,
		PublishedAt:      publishedAt,
		ScheduledFor:     scheduledFor,
		UpdatedAt:        time.Now(),
	})
	if err != nil {
		return model.Post{}, fmt.Errorf("applying %s transition: %w", status, err)
	}
	return post, nil
}

// requireOwnedPost fetches a post and enforces the mutation permission
// policy: admins may act on any post, authors only on their own.
func (s *PostService) requireOwnedPost(ctx context.Context, actor model.Identity, id int64) (model.Post, error) {
	post, err := s.queries.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, ErrNotFound
		}
		return model.Post{}, fmt.Errorf("fetching post: %w", err)
	}
	if !actor.CanActOn(post.AuthorID) {
		return model.Post{}, ErrPermission
	}
	return post, nil
}

// resolveSlug derives and validates a post slug, fast-failing on collisions.
// The unique index on posts.slug remains the source of truth under
// concurrent writes.
func (s *PostService) resolveSlug(ctx context.Context, slug, title string, excludeID int64) (string, error) {
	if slug == "" {
		slug = util.Slugify(title)
	} else {
		slug = util.Slugify(slug)
	}
	if slug == "" {
		return "", NewValidationError("slug", "A slug could not be derived; supply one explicitly")
	}

	var (
		exists bool
		err    error
	)
	if excludeID != 0 {
		exists, err = s.queries.PostSlugExistsExcluding(ctx, slug, excludeID)
	} else {
		exists, err = s.queries.PostSlugExists(ctx, slug)
	}
	if err != nil {
		return "", fmt.Errorf("checking slug: %w", err)
	}
	if exists {
		return "", &ConflictError{Field: "slug", Value: slug}
	}
	return slug, nil
}

// encodeJSONFields marshals the keyword list and metadata map for storage.
func encodeJSONFields(keywords []string, metadata map[string]any) (string, string, error) {
	keywordsJSON := "[]"
	if len(keywords) > 0 {
		b, err := json.Marshal(keywords)
		if err != nil {
			return "", "", NewValidationError("seo_keywords", "Keywords could not be encoded")
		}
		keywordsJSON = string(b)
	}

	metadataJSON := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return "", "", NewValidationError("metadata", "Metadata could not be encoded")
		}
		metadataJSON = string(b)
	}

	return keywordsJSON, metadataJSON, nil
}

// taxonomyAssociationError maps foreign-key failures on the join tables to a
// caller-correctable validation error.
func taxonomyAssociationError(err error, field string) error {
	if err == nil {
		return nil
	}
	return NewValidationError(field, "One or more referenced ids do not exist")
}

// notify delivers a change notification to all registered notifiers.
func (s *PostService) notify(ctx context.Context, action string, post model.Post) {
	for _, n := range s.notifiers {
		n.PostChanged(ctx, action, post)
	}
}

func (s *PostService) notifySlugVacated(ctx context.Context, oldSlug string) {
	for _, n := range s.notifiers {
		if sn, ok := n.(SlugNotifier); ok {
			sn.PostSlugVacated(ctx, oldSlug)
		}
	}
}

// logEvent writes an audit event for a lifecycle change.
func (s *PostService) logEvent(ctx context.Context, actor model.Identity, message string, post model.Post) {
	metadata, _ := json.Marshal(map[string]any{
		"post_id":   post.ID,
		"post_slug": post.Slug,
		"status":    post.Status,
	})

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     model.EventLevelInfo,
		Category:  model.EventCategoryPost,
		Message:   message,
		TokenID:   sql.NullInt64{Int64: actor.TokenID, Valid: actor.TokenID != 0},
		Metadata:  string(metadata),
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Warn("failed to log post event", "error", err, "post_id", post.ID)
	}
}
