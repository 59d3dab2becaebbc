// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/store"
	"github.com/infinite-realms/chronicle/internal/util"
)

// TaxonomyService owns categories and tags. All mutations are admin-only;
// deletes strip post associations in the same transaction so no dangling
// references survive.
type TaxonomyService struct {
	db      *sql.DB
	queries *store.Queries
}

// NewTaxonomyService creates a TaxonomyService.
func NewTaxonomyService(db *sql.DB) *TaxonomyService {
	return &TaxonomyService{
		db:      db,
		queries: store.New(db),
	}
}

// CategoryInput holds the fields accepted when creating or updating a category.
type CategoryInput struct {
	Title       string
	Slug        string // derived from Title when empty
	Description string
}

// TagInput holds the fields accepted when creating or updating a tag.
type TagInput struct {
	Name        string
	Slug        string // derived from Name when empty
	Description string
}

// CreateCategory stores a new category.
func (s *TaxonomyService) CreateCategory(ctx context.Context, actor model.Identity, input CategoryInput) (model.Category, error) {
	if !actor.IsAdmin() {
		return model.Category{}, ErrPermission
	}
	if input.Title == "" {
		return model.Category{}, NewValidationError("title", "Title is required")
	}

	slug, err := s.resolveCategorySlug(ctx, input.Slug, input.Title, 0)
	if err != nil {
		return model.Category{}, err
	}

	now := time.Now()
	category, err := s.queries.CreateCategory(ctx, store.CreateCategoryParams{
		Title:       input.Title,
		Slug:        slug,
		Description: util.NullStringFromValue(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Category{}, &ConflictError{Field: "slug", Value: slug}
		}
		return model.Category{}, fmt.Errorf("creating category: %w", err)
	}
	return category, nil
}

// UpdateCategory rewrites a category's fields.
func (s *TaxonomyService) UpdateCategory(ctx context.Context, actor model.Identity, id int64, input CategoryInput) (model.Category, error) {
	if !actor.IsAdmin() {
		return model.Category{}, ErrPermission
	}

	existing, err := s.queries.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Category{}, ErrNotFound
		}
		return model.Category{}, fmt.Errorf("fetching category: %w", err)
	}

	title := input.Title
	if title == "" {
		title = existing.Title
	}
	// Renaming a category does not silently move its slug.
	slug := input.Slug
	if slug == "" {
		slug = existing.Slug
	}
	slug, err = s.resolveCategorySlug(ctx, slug, title, id)
	if err != nil {
		return model.Category{}, err
	}

	description := existing.Description
	if input.Description != "" {
		description = util.NullStringFromValue(input.Description)
	}

	category, err := s.queries.UpdateCategory(ctx, store.UpdateCategoryParams{
		ID:          id,
		Title:       title,
		Slug:        slug,
		Description: description,
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Category{}, &ConflictError{Field: "slug", Value: slug}
		}
		return model.Category{}, fmt.Errorf("updating category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a category and strips it from every post that
// carried it, in one transaction.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, actor model.Identity, id int64) error {
	if !actor.IsAdmin() {
		return ErrPermission
	}

	if _, err := s.queries.GetCategoryByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("fetching category: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.queries.WithTx(tx).DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return tx.Commit()
}

// GetCategory returns a category by id.
func (s *TaxonomyService) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	category, err := s.queries.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Category{}, ErrNotFound
		}
		return model.Category{}, fmt.Errorf("fetching category: %w", err)
	}
	return category, nil
}

// ListCategories returns all categories ordered by title.
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.queries.ListCategories(ctx)
}

// CategoryUsage returns how many posts carry the category.
func (s *TaxonomyService) CategoryUsage(ctx context.Context, id int64) (int64, error) {
	n, err := s.queries.CountPostsWithCategory(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("counting category usage: %w", err)
	}
	return n, nil
}

// CreateTag stores a new tag.
func (s *TaxonomyService) CreateTag(ctx context.Context, actor model.Identity, input TagInput) (model.Tag, error) {
	if !actor.IsAdmin() {
		return model.Tag{}, ErrPermission
	}
	if input.Name == "" {
		return model.Tag{}, NewValidationError("name", "Name is required")
	}

	slug, err := s.resolveTagSlug(ctx, input.Slug, input.Name, 0)
	if err != nil {
		return model.Tag{}, err
	}

	now := time.Now()
	tag, err := s.queries.CreateTag(ctx, store.CreateTagParams{
		Name:        input.Name,
		Slug:        slug,
		Description: util.NullStringFromValue(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Tag{}, &ConflictError{Field: "slug", Value: slug}
		}
		return model.Tag{}, fmt.Errorf("creating tag: %w", err)
	}
	return tag, nil
}

// UpdateTag rewrites a tag's fields.
func (s *TaxonomyService) UpdateTag(ctx context.Context, actor model.Identity, id int64, input TagInput) (model.Tag, error) {
	if !actor.IsAdmin() {
		return model.Tag{}, ErrPermission
	}

	existing, err := s.queries.GetTagByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tag{}, ErrNotFound
		}
		return model.Tag{}, fmt.Errorf("fetching tag: %w", err)
	}

	name := input.Name
	if name == "" {
		name = existing.Name
	}
	slug := input.Slug
	if slug == "" {
		slug = existing.Slug
	}
	slug, err = s.resolveTagSlug(ctx, slug, name, id)
	if err != nil {
		return model.Tag{}, err
	}

	description := existing.Description
	if input.Description != "" {
		description = util.NullStringFromValue(input.Description)
	}

	tag, err := s.queries.UpdateTag(ctx, store.UpdateTagParams{
		ID:          id,
		Name:        name,
		Slug:        slug,
		Description: description,
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Tag{}, &ConflictError{Field: "slug", Value: slug}
		}
		return model.Tag{}, fmt.Errorf("updating tag: %w", err)
	}
	return tag, nil
}

// DeleteTag removes a tag and its post associations in one transaction.
func (s *TaxonomyService) DeleteTag(ctx context.Context, actor model.Identity, id int64) error {
	if !actor.IsAdmin() {
		return ErrPermission
	}

	if _, err := s.queries.GetTagByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("fetching tag: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.queries.WithTx(tx).DeleteTag(ctx, id); err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	return tx.Commit()
}

// GetTag returns a tag by id.
func (s *TaxonomyService) GetTag(ctx context.Context, id int64) (model.Tag, error) {
	tag, err := s.queries.GetTagByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tag{}, ErrNotFound
		}
		return model.Tag{}, fmt.Errorf("fetching tag: %w", err)
	}
	return tag, nil
}

// ListTags returns all tags ordered by name.
func (s *TaxonomyService) ListTags(ctx context.Context) ([]model.Tag, error) {
	return s.queries.ListTags(ctx)
}

// TagUsage returns how many posts carry the tag.
func (s *TaxonomyService) TagUsage(ctx context.Context, id int64) (int64, error) {
	n, err := s.queries.CountPostsWithTag(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("counting tag usage: %w", err)
	}
	return n, nil
}

func (s *TaxonomyService) resolveCategorySlug(ctx context.Context, slug, title string, excludeID int64) (string, error) {
	if slug == "" {
		slug = util.Slugify(title)
	} else {
		slug = util.Slugify(slug)
	}
	if slug == "" {
		return "", NewValidationError("slug", "Slug cannot be derived from the title")
	}

	exists, err := s.queries.CategorySlugExistsExcluding(ctx, slug, excludeID)
	if err != nil {
		return "", fmt.Errorf("checking category slug: %w", err)
	}
	if exists {
		return "", &ConflictError{Field: "slug", Value: slug}
	}
	return slug, nil
}

func (s *TaxonomyService) resolveTagSlug(ctx context.Context, slug, name string, excludeID int64) (string, error) {
	if slug == "" {
		slug = util.Slugify(name)
	} else {
		slug = util.Slugify(slug)
	}
	if slug == "" {
		return "", NewValidationError("slug", "Slug cannot be derived from the name")
	}

	exists, err := s.queries.TagSlugExistsExcluding(ctx, slug, excludeID)
	if err != nil {
		return "", fmt.Errorf("checking tag slug: %w", err)
	}
	if exists {
		return "", &ConflictError{Field: "slug", Value: slug}
	}
	return slug, nil
}
