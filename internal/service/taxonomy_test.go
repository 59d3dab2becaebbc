// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateCategoryDerivesSlug(t *testing.T) {
	db := testDB(t)
	svc := NewTaxonomyService(db)

	category, err := svc.CreateCategory(context.Background(), adminActor(), CategoryInput{
		Title: "Science & Nature",
	})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if category.Slug != "science-nature" {
		t.Errorf("Slug = %q, want science-nature", category.Slug)
	}
	if category.Title != "Science & Nature" {
		t.Errorf("Title = %q", category.Title)
	}
}

func TestCreateCategoryValidation(t *testing.T) {
	db := testDB(t)
	svc := NewTaxonomyService(db)
	ctx := context.Background()

	if _, err := svc.CreateCategory(ctx, adminActor(), CategoryInput{}); !IsValidation(err) {
		t.Errorf("CreateCategory(empty) = %v, want ValidationError", err)
	}

	if _, err := svc.CreateCategory(ctx, adminActor(), CategoryInput{Title: "News"}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := svc.CreateCategory(ctx, adminActor(), CategoryInput{Title: "Other", Slug: "news"}); !IsConflict(err) {
		t.Errorf("CreateCategory(duplicate slug) = %v, want ConflictError", err)
	}
}

func TestTaxonomyRecordsTimestamps(t *testing.T) {
	db := testDB(t)
	svc := NewTaxonomyService(db)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	category, err := svc.CreateCategory(ctx, adminActor(), CategoryInput{Title: "Guides"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if category.CreatedAt.Before(before) {
		t.Errorf("category CreatedAt = %v, want a current timestamp", category.CreatedAt)
	}
	if category.UpdatedAt.Before(before) {
		t.Errorf("category UpdatedAt = %v, want a current timestamp", category.UpdatedAt)
	}

	tag, err := svc.CreateTag(ctx, adminActor(), TagInput{Name: "howto"})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if tag.CreatedAt.Before(before) || tag.UpdatedAt.Before(before) {
		t.Errorf("tag timestamps = %v / %v, want current timestamps", tag.CreatedAt, tag.UpdatedAt)
	}

	updated, err := svc.UpdateCategory(ctx, adminActor(), category.ID, CategoryInput{Title: "Field Guides"})
	if err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	if updated.UpdatedAt.Before(category.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want >= %v after update", updated.UpdatedAt, category.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(category.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v -> %v", category.CreatedAt, updated.CreatedAt)
	}
}

func TestTaxonomyMutationsAreAdminOnly(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	svc := NewTaxonomyService(db)
	ctx := context.Background()
	author := authorActor(authorID)

	if _, err := svc.CreateCategory(ctx, author, CategoryInput{Title: "Nope"}); !errors.Is(err, ErrPermission) {
		t.Errorf("CreateCategory(author) = %v, want ErrPermission", err)
	}
	if _, err := svc.CreateTag(ctx, author, TagInput{Name: "nope"}); !errors.Is(err, ErrPermission) {
		t.Errorf("CreateTag(author) = %v, want ErrPermission", err)
	}

	category, err := svc.CreateCategory(ctx, adminActor(), CategoryInput{Title: "Held"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := svc.UpdateCategory(ctx, author, category.ID, CategoryInput{Title: "Hijacked"}); !errors.Is(err, ErrPermission) {
		t.Errorf("UpdateCategory(author) = %v, want ErrPermission", err)
	}
	if err := svc.DeleteCategory(ctx, author, category.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("DeleteCategory(author) = %v, want ErrPermission", err)
	}
}

func TestUpdateCategoryKeepsSlugUnlessAsked(t *testing.T) {
	db := testDB(t)
	svc := NewTaxonomyService(db)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, adminActor(), CategoryInput{Title: "Original"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	renamed, err := svc.UpdateCategory(ctx, adminActor(), category.ID, CategoryInput{Title: "Renamed"})
	if err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	if renamed.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", renamed.Title)
	}
	if renamed.Slug != "original" {
		t.Errorf("Slug = %q, want original to survive a rename", renamed.Slug)
	}

	moved, err := svc.UpdateCategory(ctx, adminActor(), category.ID, CategoryInput{Title: "Renamed", Slug: "fresh"})
	if err != nil {
		t.Fatalf("UpdateCategory(slug) error = %v", err)
	}
	if moved.Slug != "fresh" {
		t.Errorf("Slug = %q, want fresh", moved.Slug)
	}
}

func TestDeleteCategoryStripsAssociations(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	taxonomy := NewTaxonomyService(db)
	posts := NewPostService(db)
	ctx := context.Background()

	category, err := taxonomy.CreateCategory(ctx, adminActor(), CategoryInput{Title: "Doomed"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	post, err := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Survivor", Content: "a", AuthorID: authorID,
		CategoryIDs: []int64{category.ID},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := taxonomy.DeleteCategory(ctx, adminActor(), category.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}

	// The post survives, its association does not.
	if _, err := posts.Get(ctx, adminActor(), post.ID); err != nil {
		t.Errorf("Get() after category delete = %v, want post to remain", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM post_categories WHERE category_id = ?`, category.ID).Scan(&count); err != nil {
		t.Fatalf("counting join rows: %v", err)
	}
	if count != 0 {
		t.Errorf("join rows after delete = %d, want 0", count)
	}

	if err := taxonomy.DeleteCategory(ctx, adminActor(), category.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteCategory(again) = %v, want ErrNotFound", err)
	}
}

func TestTagLifecycle(t *testing.T) {
	db := testDB(t)
	svc := NewTaxonomyService(db)
	ctx := context.Background()

	tag, err := svc.CreateTag(ctx, adminActor(), TagInput{Name: "Go Modules"})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if tag.Slug != "go-modules" {
		t.Errorf("Slug = %q, want go-modules", tag.Slug)
	}

	if _, err := svc.CreateTag(ctx, adminActor(), TagInput{Name: "go modules"}); !IsConflict(err) {
		t.Errorf("CreateTag(duplicate) = %v, want ConflictError", err)
	}

	updated, err := svc.UpdateTag(ctx, adminActor(), tag.ID, TagInput{Name: "Modules", Slug: "modules"})
	if err != nil {
		t.Fatalf("UpdateTag() error = %v", err)
	}
	if updated.Name != "Modules" || updated.Slug != "modules" {
		t.Errorf("updated tag = %+v", updated)
	}

	tags, err := svc.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 1 {
		t.Errorf("ListTags() length = %d, want 1", len(tags))
	}

	if err := svc.DeleteTag(ctx, adminActor(), tag.ID); err != nil {
		t.Fatalf("DeleteTag() error = %v", err)
	}
	if _, err := svc.GetTag(ctx, tag.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTag(deleted) = %v, want ErrNotFound", err)
	}
}
