// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/infinite-realms/chronicle/internal/cache"
	"github.com/infinite-realms/chronicle/internal/model"
)

func TestListPublicOnlyPublished(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	draft, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Still Drafting", Content: "a", AuthorID: authorID,
	})
	_ = draft

	live, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Live Post", Content: "a", AuthorID: authorID,
	})
	if _, err := posts.Publish(ctx, adminActor(), live.ID, nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	archived, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Gone Post", Content: "a", AuthorID: authorID,
	})
	if _, err := posts.Publish(ctx, adminActor(), archived.ID, nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := posts.Archive(ctx, adminActor(), archived.ID); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	result, err := query.ListPublic(ctx, PublicListParams{})
	if err != nil {
		t.Fatalf("ListPublic() error = %v", err)
	}
	if len(result.Posts) != 1 {
		t.Fatalf("public list length = %d, want 1", len(result.Posts))
	}
	if result.Posts[0].Slug != "live-post" {
		t.Errorf("public list returned %q, want live-post", result.Posts[0].Slug)
	}
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}
}

func TestListPublicOrderedByPublishedAtDesc(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		post, err := posts.Create(ctx, adminActor(), CreatePostInput{
			Title: fmt.Sprintf("Entry %d", i), Content: "a", AuthorID: authorID,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		when := base.Add(time.Duration(i) * time.Hour)
		if _, err := posts.Publish(ctx, adminActor(), post.ID, &when); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	result, err := query.ListPublic(ctx, PublicListParams{})
	if err != nil {
		t.Fatalf("ListPublic() error = %v", err)
	}
	if len(result.Posts) != 3 {
		t.Fatalf("list length = %d, want 3", len(result.Posts))
	}
	for i := 1; i < len(result.Posts); i++ {
		prev := result.Posts[i-1].PublishedAt.Time
		cur := result.Posts[i].PublishedAt.Time
		if cur.After(prev) {
			t.Errorf("posts not in published_at desc order: %v before %v", prev, cur)
		}
	}
}

func TestListPublicPagination(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		post, _ := posts.Create(ctx, adminActor(), CreatePostInput{
			Title: fmt.Sprintf("Paged %d", i), Content: "a", AuthorID: authorID,
		})
		when := base.Add(time.Duration(i) * time.Minute)
		if _, err := posts.Publish(ctx, adminActor(), post.ID, &when); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	first, err := query.ListPublic(ctx, PublicListParams{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("ListPublic(page 1) error = %v", err)
	}
	second, err := query.ListPublic(ctx, PublicListParams{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("ListPublic(page 2) error = %v", err)
	}

	if first.Total != 5 || second.Total != 5 {
		t.Errorf("Total = %d/%d, want 5", first.Total, second.Total)
	}
	if len(first.Posts) != 2 || len(second.Posts) != 2 {
		t.Fatalf("page sizes = %d/%d, want 2/2", len(first.Posts), len(second.Posts))
	}
	seen := map[int64]bool{}
	for _, p := range append(first.Posts, second.Posts...) {
		if seen[p.ID] {
			t.Errorf("post %d appeared on both pages", p.ID)
		}
		seen[p.ID] = true
	}

	// Out-of-range values fall back to defaults rather than erroring.
	fallback, err := query.ListPublic(ctx, PublicListParams{Page: -3, PageSize: 100000})
	if err != nil {
		t.Fatalf("ListPublic(out of range) error = %v", err)
	}
	if fallback.Page != 1 {
		t.Errorf("Page = %d, want 1", fallback.Page)
	}
	if fallback.PageSize != MaxPageSize {
		t.Errorf("PageSize = %d, want %d", fallback.PageSize, MaxPageSize)
	}
}

func TestListPublicTaxonomyFilter(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	taxonomy := NewTaxonomyService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	category, err := taxonomy.CreateCategory(ctx, adminActor(), CategoryInput{Title: "Reviews"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	inside, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Inside", Content: "a", AuthorID: authorID,
		CategoryIDs: []int64{category.ID},
	})
	outside, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Outside", Content: "a", AuthorID: authorID,
	})
	for _, p := range []model.Post{inside, outside} {
		if _, err := posts.Publish(ctx, adminActor(), p.ID, nil); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	// Filter by slug.
	result, err := query.ListPublic(ctx, PublicListParams{Category: "reviews"})
	if err != nil {
		t.Fatalf("ListPublic(category slug) error = %v", err)
	}
	if len(result.Posts) != 1 || result.Posts[0].ID != inside.ID {
		t.Errorf("slug filter returned %d posts, want the categorized one", len(result.Posts))
	}

	// Filter by numeric id.
	result, err = query.ListPublic(ctx, PublicListParams{Category: strconv.FormatInt(category.ID, 10)})
	if err != nil {
		t.Fatalf("ListPublic(category id) error = %v", err)
	}
	if len(result.Posts) != 1 || result.Posts[0].ID != inside.ID {
		t.Errorf("id filter returned %d posts, want the categorized one", len(result.Posts))
	}

	// Unknown slug yields an empty page, not an error.
	result, err = query.ListPublic(ctx, PublicListParams{Category: "no-such-category"})
	if err != nil {
		t.Fatalf("ListPublic(unknown category) error = %v", err)
	}
	if len(result.Posts) != 0 || result.Total != 0 {
		t.Errorf("unknown slug returned %d posts, want empty result", len(result.Posts))
	}
}

func TestListAdminScoping(t *testing.T) {
	db := testDB(t)
	aliceID := createTestAuthor(t, db, "Alice", "alice@example.com")
	bobID := createTestAuthor(t, db, "Bob", "bob@example.com")
	posts := NewPostService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	if _, err := posts.Create(ctx, authorActor(aliceID), CreatePostInput{Title: "Alice One", Content: "a"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := posts.Create(ctx, authorActor(bobID), CreatePostInput{Title: "Bob One", Content: "a"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	all, err := query.ListAdmin(ctx, adminActor(), AdminListParams{})
	if err != nil {
		t.Fatalf("ListAdmin(admin) error = %v", err)
	}
	if len(all.Posts) != 2 {
		t.Errorf("admin sees %d posts, want 2", len(all.Posts))
	}

	mine, err := query.ListAdmin(ctx, authorActor(aliceID), AdminListParams{})
	if err != nil {
		t.Fatalf("ListAdmin(author) error = %v", err)
	}
	if len(mine.Posts) != 1 || mine.Posts[0].AuthorID != aliceID {
		t.Errorf("author listing not scoped to own posts: %+v", mine.Posts)
	}

	// An author token without a linked profile has nothing to list.
	orphan := model.Identity{TokenID: 9, Role: model.RoleAuthor}
	if _, err := query.ListAdmin(ctx, orphan, AdminListParams{}); !errors.Is(err, ErrPermission) {
		t.Errorf("ListAdmin(unlinked author) = %v, want ErrPermission", err)
	}
}

func TestListAdminStatusFilter(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	draft, _ := posts.Create(ctx, adminActor(), CreatePostInput{Title: "Draft", Content: "a", AuthorID: authorID})
	live, _ := posts.Create(ctx, adminActor(), CreatePostInput{Title: "Live", Content: "a", AuthorID: authorID})
	if _, err := posts.Publish(ctx, adminActor(), live.ID, nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	drafts, err := query.ListAdmin(ctx, adminActor(), AdminListParams{Status: model.PostStatusDraft})
	if err != nil {
		t.Fatalf("ListAdmin(status=draft) error = %v", err)
	}
	if len(drafts.Posts) != 1 || drafts.Posts[0].ID != draft.ID {
		t.Errorf("draft filter returned %d posts", len(drafts.Posts))
	}

	// The "all" sentinel and an empty status behave the same.
	for _, status := range []string{"", StatusFilterAll} {
		result, err := query.ListAdmin(ctx, adminActor(), AdminListParams{Status: status})
		if err != nil {
			t.Fatalf("ListAdmin(status=%q) error = %v", status, err)
		}
		if len(result.Posts) != 2 {
			t.Errorf("status %q returned %d posts, want 2", status, len(result.Posts))
		}
	}

	if _, err := query.ListAdmin(ctx, adminActor(), AdminListParams{Status: "bogus"}); !IsValidation(err) {
		t.Errorf("ListAdmin(status=bogus) = %v, want ValidationError", err)
	}
}

func TestListAdminScheduledOnly(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	if _, err := posts.Create(ctx, adminActor(), CreatePostInput{Title: "Plain", Content: "a", AuthorID: authorID}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	pending, _ := posts.Create(ctx, adminActor(), CreatePostInput{Title: "Queued", Content: "a", AuthorID: authorID})
	future := time.Now().Add(time.Hour)
	if _, err := posts.Schedule(ctx, adminActor(), pending.ID, &future); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	result, err := query.ListAdmin(ctx, adminActor(), AdminListParams{ScheduledOnly: true})
	if err != nil {
		t.Fatalf("ListAdmin(scheduled_only) error = %v", err)
	}
	if len(result.Posts) != 1 || result.Posts[0].ID != pending.ID {
		t.Errorf("scheduled_only returned %d posts", len(result.Posts))
	}
}

func TestListAdminSortValidation(t *testing.T) {
	db := testDB(t)
	createTestAuthor(t, db, "Alice", "alice@example.com")
	query := NewQueryService(db, nil)
	ctx := context.Background()

	if _, err := query.ListAdmin(ctx, adminActor(), AdminListParams{SortBy: "password"}); !IsValidation(err) {
		t.Errorf("ListAdmin(sort_by=password) = %v, want ValidationError", err)
	}
	if _, err := query.ListAdmin(ctx, adminActor(), AdminListParams{SortDirection: "sideways"}); !IsValidation(err) {
		t.Errorf("ListAdmin(sort_direction=sideways) = %v, want ValidationError", err)
	}
	for _, field := range SortFields {
		if _, err := query.ListAdmin(ctx, adminActor(), AdminListParams{SortBy: field, SortDirection: "asc"}); err != nil {
			t.Errorf("ListAdmin(sort_by=%s) error = %v", field, err)
		}
	}
}

func TestListAdminTitleSort(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	for _, title := range []string{"Bravo", "Alpha", "Charlie"} {
		if _, err := posts.Create(ctx, adminActor(), CreatePostInput{Title: title, Content: "a", AuthorID: authorID}); err != nil {
			t.Fatalf("Create(%s) error = %v", title, err)
		}
	}

	result, err := query.ListAdmin(ctx, adminActor(), AdminListParams{SortBy: "title", SortDirection: "asc"})
	if err != nil {
		t.Fatalf("ListAdmin(sort title asc) error = %v", err)
	}
	want := []string{"Alpha", "Bravo", "Charlie"}
	for i, title := range want {
		if result.Posts[i].Title != title {
			t.Errorf("Posts[%d].Title = %q, want %q", i, result.Posts[i].Title, title)
		}
	}
}

func TestSearchMatchesTitleAndSummary(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	byTitle, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Gravity Explained", Content: "plain body", AuthorID: authorID,
	})
	// The derived summary carries the search term for this one.
	bySummary, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Another Topic", Content: "a deep dive into gravity wells", AuthorID: authorID,
	})
	if _, err := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Unrelated", Content: "nothing to see", AuthorID: authorID,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := query.ListAdmin(ctx, adminActor(), AdminListParams{
		PublicListParams: PublicListParams{Search: "gravity"},
	})
	if err != nil {
		t.Fatalf("ListAdmin(search) error = %v", err)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("search returned %d posts, want 2", len(result.Posts))
	}
	found := map[int64]bool{}
	for _, p := range result.Posts {
		found[p.ID] = true
	}
	if !found[byTitle.ID] || !found[bySummary.ID] {
		t.Errorf("search missed a match: got ids %v", found)
	}
}

func TestGetPublishedView(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	posts := NewPostService(db)
	taxonomy := NewTaxonomyService(db)
	query := NewQueryService(db, nil)
	ctx := context.Background()

	tag, err := taxonomy.CreateTag(ctx, adminActor(), TagInput{Name: "physics"})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}

	post, err := posts.Create(ctx, adminActor(), CreatePostInput{
		Title:    "Rendered",
		Content:  "# Heading\n\nSome **bold** body text.",
		AuthorID: authorID,
		TagIDs:   []int64{tag.ID},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Drafts are invisible on the public surface.
	if _, err := query.GetPublishedView(ctx, post.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPublishedView(draft) = %v, want ErrNotFound", err)
	}

	if _, err := posts.Publish(ctx, adminActor(), post.ID, nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	view, err := query.GetPublishedView(ctx, post.Slug)
	if err != nil {
		t.Fatalf("GetPublishedView() error = %v", err)
	}
	if !strings.Contains(view.HTML, "<strong>bold</strong>") {
		t.Errorf("HTML = %q, want rendered markdown", view.HTML)
	}
	if view.Excerpt == "" {
		t.Error("Excerpt should not be empty")
	}
	if view.ReadingTimeMinutes < 1 {
		t.Errorf("ReadingTimeMinutes = %d, want at least 1", view.ReadingTimeMinutes)
	}
	if len(view.Tags) != 1 || view.Tags[0].Slug != "physics" {
		t.Errorf("Tags = %+v, want the physics tag", view.Tags)
	}
}

func TestViewCacheDropsRenamedSlug(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	c := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	query := NewQueryService(db, c)
	posts := NewPostService(db, query)
	ctx := context.Background()

	post, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Original", Content: "body", AuthorID: authorID,
	})
	if _, err := posts.Publish(ctx, adminActor(), post.ID, nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// Warm the cache under the original slug.
	if _, err := query.GetPublishedView(ctx, "original"); err != nil {
		t.Fatalf("GetPublishedView() error = %v", err)
	}

	newSlug := "renamed"
	if _, err := posts.Update(ctx, adminActor(), post.ID, UpdatePostInput{Slug: &newSlug}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, err := query.GetPublishedView(ctx, "original"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPublishedView(old slug) = %v, want ErrNotFound", err)
	}
	view, err := query.GetPublishedView(ctx, "renamed")
	if err != nil {
		t.Fatalf("GetPublishedView(new slug) error = %v", err)
	}
	if view.Post.Slug != "renamed" {
		t.Errorf("Slug = %q, want renamed", view.Post.Slug)
	}
}

func TestViewCacheInvalidation(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	c := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	query := NewQueryService(db, c)
	posts := NewPostService(db, query)
	ctx := context.Background()

	post, _ := posts.Create(ctx, adminActor(), CreatePostInput{
		Title: "Cached", Content: "first revision", AuthorID: authorID,
	})
	if _, err := posts.Publish(ctx, adminActor(), post.ID, nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	view, err := query.GetPublishedView(ctx, post.Slug)
	if err != nil {
		t.Fatalf("GetPublishedView() error = %v", err)
	}
	if !strings.Contains(view.HTML, "first revision") {
		t.Fatalf("HTML = %q, want first revision", view.HTML)
	}

	content := "second revision"
	if _, err := posts.Update(ctx, adminActor(), post.ID, UpdatePostInput{Content: &content}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	view, err = query.GetPublishedView(ctx, post.Slug)
	if err != nil {
		t.Fatalf("GetPublishedView() after update error = %v", err)
	}
	if !strings.Contains(view.HTML, "second revision") {
		t.Errorf("HTML = %q, want the updated content after invalidation", view.HTML)
	}
}
