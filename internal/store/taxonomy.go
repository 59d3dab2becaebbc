// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
)

// --- Categories ---

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCategoryParams holds the columns written when inserting a category.
type CreateCategoryParams struct {
	Title       string
	Slug        string
	Description sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateCategory inserts a category and returns the stored row.
func (q *Queries) CreateCategory(ctx context.Context, p CreateCategoryParams) (model.Category, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (title, slug, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return model.Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Category{}, err
	}
	return q.GetCategoryByID(ctx, id)
}

// UpdateCategoryParams holds the mutable category columns.
type UpdateCategoryParams struct {
	ID          int64
	Title       string
	Slug        string
	Description sql.NullString
	UpdatedAt   time.Time
}

// UpdateCategory rewrites a category row and returns the stored result.
func (q *Queries) UpdateCategory(ctx context.Context, p UpdateCategoryParams) (model.Category, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE categories SET title = ?, slug = ?, description = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.Description, p.UpdatedAt, p.ID)
	if err != nil {
		return model.Category{}, err
	}
	return q.GetCategoryByID(ctx, p.ID)
}

// GetCategoryByID returns a category by id.
func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (model.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, title, slug, description, created_at, updated_at FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

// GetCategoryBySlug returns a category by slug.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, title, slug, description, created_at, updated_at FROM categories WHERE slug = ?`, slug)
	return scanCategory(row)
}

// ListCategories returns all categories ordered by title.
func (q *Queries) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, title, slug, description, created_at, updated_at FROM categories ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category and strips its id from every post's
// associations within the same statement batch. Callers must run this inside
// a transaction (via WithTx) so no post is ever left referencing a deleted
// category.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM post_categories WHERE category_id = ?`, id); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}

// CategorySlugExistsExcluding reports whether another category uses the slug.
// Pass excludeID 0 to check all categories.
func (q *Queries) CategorySlugExistsExcluding(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&n)
	return n > 0, err
}

// --- Tags ---

func scanTag(row interface{ Scan(...any) error }) (model.Tag, error) {
	var t model.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTagParams holds the columns written when inserting a tag.
type CreateTagParams struct {
	Name        string
	Slug        string
	Description sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateTag inserts a tag and returns the stored row.
func (q *Queries) CreateTag(ctx context.Context, p CreateTagParams) (model.Tag, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO tags (name, slug, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Slug, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return model.Tag{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Tag{}, err
	}
	return q.GetTagByID(ctx, id)
}

// UpdateTagParams holds the mutable tag columns.
type UpdateTagParams struct {
	ID          int64
	Name        string
	Slug        string
	Description sql.NullString
	UpdatedAt   time.Time
}

// UpdateTag rewrites a tag row and returns the stored result.
func (q *Queries) UpdateTag(ctx context.Context, p UpdateTagParams) (model.Tag, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE tags SET name = ?, slug = ?, description = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Slug, p.Description, p.UpdatedAt, p.ID)
	if err != nil {
		return model.Tag{}, err
	}
	return q.GetTagByID(ctx, p.ID)
}

// GetTagByID returns a tag by id.
func (q *Queries) GetTagByID(ctx context.Context, id int64) (model.Tag, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, created_at, updated_at FROM tags WHERE id = ?`, id)
	return scanTag(row)
}

// GetTagBySlug returns a tag by slug.
func (q *Queries) GetTagBySlug(ctx context.Context, slug string) (model.Tag, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, created_at, updated_at FROM tags WHERE slug = ?`, slug)
	return scanTag(row)
}

// ListTags returns all tags ordered by name.
func (q *Queries) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, slug, description, created_at, updated_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeleteTag removes a tag and strips its id from every post's associations.
// Callers must run this inside a transaction (via WithTx).
func (q *Queries) DeleteTag(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM post_tags WHERE tag_id = ?`, id); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	return err
}

// TagSlugExistsExcluding reports whether another tag uses the slug.
// Pass excludeID 0 to check all tags.
func (q *Queries) TagSlugExistsExcluding(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&n)
	return n > 0, err
}

// --- Post associations ---

// SetPostCategories replaces a post's category associations.
func (q *Queries) SetPostCategories(ctx context.Context, postID int64, categoryIDs []int64) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM post_categories WHERE post_id = ?`, postID); err != nil {
		return err
	}
	for _, categoryID := range categoryIDs {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO post_categories (post_id, category_id) VALUES (?, ?)`,
			postID, categoryID); err != nil {
			return err
		}
	}
	return nil
}

// SetPostTags replaces a post's tag associations.
func (q *Queries) SetPostTags(ctx context.Context, postID int64, tagIDs []int64) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)`,
			postID, tagID); err != nil {
			return err
		}
	}
	return nil
}

// GetCategoriesForPost returns the categories associated with a post.
func (q *Queries) GetCategoriesForPost(ctx context.Context, postID int64) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.id, c.title, c.slug, c.description, c.created_at, c.updated_at
		 FROM categories c
		 JOIN post_categories pc ON pc.category_id = c.id
		 WHERE pc.post_id = ?
		 ORDER BY c.title`, postID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetTagsForPost returns the tags associated with a post.
func (q *Queries) GetTagsForPost(ctx context.Context, postID int64) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.slug, t.description, t.created_at, t.updated_at
		 FROM tags t
		 JOIN post_tags pt ON pt.tag_id = t.id
		 WHERE pt.post_id = ?
		 ORDER BY t.name`, postID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CountPostsWithCategory returns how many posts reference a category.
func (q *Queries) CountPostsWithCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_categories WHERE category_id = ?`, categoryID).Scan(&n)
	return n, err
}

// CountPostsWithTag returns how many posts reference a tag.
func (q *Queries) CountPostsWithTag(ctx context.Context, tagID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_tags WHERE tag_id = ?`, tagID).Scan(&n)
	return n, err
}
