// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
)

const postColumns = `id, title, slug, summary, content, status, author_id,
	featured_image_url, hero_image_alt, seo_title, seo_description, seo_keywords,
	canonical_url, metadata, published_at, scheduled_for, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Summary, &p.Content, &p.Status, &p.AuthorID,
		&p.FeaturedImageURL, &p.HeroImageAlt, &p.SEOTitle, &p.SEODescription, &p.SEOKeywords,
		&p.CanonicalURL, &p.Metadata, &p.PublishedAt, &p.ScheduledFor, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// CreatePostParams holds the columns written when inserting a post.
type CreatePostParams struct {
	Title            string
	Slug             string
	Summary          sql.NullString
	Content          string
	Status           string
	AuthorID         int64
	FeaturedImageURL sql.NullString
	HeroImageAlt     sql.NullString
	SEOTitle         sql.NullString
	SEODescription   sql.NullString
	SEOKeywords      string
	CanonicalURL     sql.NullString
	Metadata         string
	ScheduledFor     sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreatePost inserts a post and returns the stored row.
func (q *Queries) CreatePost(ctx context.Context, p CreatePostParams) (model.Post, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO posts (
			title, slug, summary, content, status, author_id,
			featured_image_url, hero_image_alt, seo_title, seo_description, seo_keywords,
			canonical_url, metadata, scheduled_for, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.Summary, p.Content, p.Status, p.AuthorID,
		p.FeaturedImageURL, p.HeroImageAlt, p.SEOTitle, p.SEODescription, p.SEOKeywords,
		p.CanonicalURL, p.Metadata, p.ScheduledFor, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return model.Post{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Post{}, err
	}
	return q.GetPostByID(ctx, id)
}

// UpdatePostParams holds the full set of mutable post columns. Callers start
// from the existing row and overwrite the fields they change, so a partial
// update never clobbers unrelated columns.
type UpdatePostParams struct {
	ID               int64
	Title            string
	Slug             string
	Summary          sql.NullString
	Content          string
	Status           string
	FeaturedImageURL sql.NullString
	HeroImageAlt     sql.NullString
	SEOTitle         sql.NullString
	SEODescription   sql.NullString
	SEOKeywords      string
	CanonicalURL     sql.NullString
	Metadata         string
	PublishedAt      sql.NullTime
	ScheduledFor     sql.NullTime
	UpdatedAt        time.Time
}

// UpdatePost rewrites a post row and returns the stored result.
func (q *Queries) UpdatePost(ctx context.Context, p UpdatePostParams) (model.Post, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE posts SET
			title = ?, slug = ?, summary = ?, content = ?, status = ?,
			featured_image_url = ?, hero_image_alt = ?, seo_title = ?,
			seo_description = ?, seo_keywords = ?, canonical_url = ?, metadata = ?,
			published_at = ?, scheduled_for = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Slug, p.Summary, p.Content, p.Status,
		p.FeaturedImageURL, p.HeroImageAlt, p.SEOTitle,
		p.SEODescription, p.SEOKeywords, p.CanonicalURL, p.Metadata,
		p.PublishedAt, p.ScheduledFor, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return model.Post{}, err
	}
	return q.GetPostByID(ctx, p.ID)
}

// GetPostByID returns a post by id.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (model.Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// GetPublishedPostBySlug returns a published post by slug.
func (q *Queries) GetPublishedPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = ? AND status = ?`,
		slug, model.PostStatusPublished)
	return scanPost(row)
}

// DeletePost removes a post row. Association rows are removed by the
// ON DELETE CASCADE constraints on the join tables.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}

// PostSlugExists reports whether any post uses the slug (case-insensitive).
func (q *Queries) PostSlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE slug = ?`, slug).Scan(&n)
	return n > 0, err
}

// PostSlugExistsExcluding reports whether any post other than excludeID uses the slug.
func (q *Queries) PostSlugExistsExcluding(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&n)
	return n > 0, err
}

// Sortable post columns, keyed by API sort name. Anything outside this map
// falls back to updated_at.
var postSortColumns = map[string]string{
	"updated_at":   "p.updated_at",
	"created_at":   "p.created_at",
	"title":        "p.title",
	"status":       "p.status",
	"published_at": "p.published_at",
}

// PostFilter describes a post listing query. Zero values mean "no filter".
type PostFilter struct {
	Status        string // exact status; empty = all statuses
	AuthorID      int64  // scope to a single author
	CategoryID    int64
	TagID         int64
	Search        string // free text over title + summary
	ScheduledOnly bool
	SortBy        string // one of postSortColumns keys
	SortDesc      bool
	Limit         int64
	Offset        int64
}

// buildPostFilter returns the FROM/JOIN/WHERE fragment and args for a filter.
func buildPostFilter(f PostFilter) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString(" FROM posts p")
	if f.CategoryID != 0 {
		sb.WriteString(" JOIN post_categories pc ON pc.post_id = p.id AND pc.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.TagID != 0 {
		sb.WriteString(" JOIN post_tags pt ON pt.post_id = p.id AND pt.tag_id = ?")
		args = append(args, f.TagID)
	}

	var where []string
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.AuthorID != 0 {
		where = append(where, "p.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if f.Search != "" {
		where = append(where, "(p.title LIKE ? OR p.summary LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.ScheduledOnly {
		where = append(where, "p.scheduled_for IS NOT NULL")
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	return sb.String(), args
}

// ListPosts returns posts matching the filter with pagination applied.
// The ordering always tie-breaks on created_at DESC then id DESC so that
// paginated reads of an unchanged dataset are deterministic.
func (q *Queries) ListPosts(ctx context.Context, f PostFilter) ([]model.Post, error) {
	fromWhere, args := buildPostFilter(f)

	column, ok := postSortColumns[f.SortBy]
	if !ok {
		column = "p.updated_at"
		f.SortDesc = true
	}
	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(
		"SELECT %s%s ORDER BY %s %s, p.created_at DESC, p.id DESC LIMIT ? OFFSET ?",
		qualifyPostColumns(), fromWhere, column, direction,
	)
	args = append(args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountPosts returns the number of posts matching the filter.
func (q *Queries) CountPosts(ctx context.Context, f PostFilter) (int64, error) {
	fromWhere, args := buildPostFilter(f)
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*)"+fromWhere, args...).Scan(&n)
	return n, err
}

// ListScheduledPostsDue returns scheduled posts whose publish time has passed.
func (q *Queries) ListScheduledPostsDue(ctx context.Context, now time.Time) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?
		 ORDER BY scheduled_for ASC`,
		model.PostStatusScheduled, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// qualifyPostColumns prefixes the shared column list with the "p" alias used
// by the filtered listing queries.
func qualifyPostColumns() string {
	cols := strings.Split(postColumns, ",")
	for i, c := range cols {
		cols[i] = "p." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
