// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/store"
)

// testDB creates an in-memory SQLite database with the full schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// One connection so every statement sees the same in-memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// createTestAuthor inserts an author profile and returns its id.
func createTestAuthor(t *testing.T, db *sql.DB, name, email string) int64 {
	t.Helper()

	result, err := db.Exec(
		`INSERT INTO authors (name, email) VALUES (?, ?)`, name, email)
	if err != nil {
		t.Fatalf("failed to create test author: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func adminActor() model.Identity {
	return model.Identity{TokenID: 1, Role: model.RoleAdmin}
}

func authorActor(authorID int64) model.Identity {
	return model.Identity{TokenID: 2, Role: model.RoleAuthor, AuthorID: authorID}
}

// recordingNotifier captures change notifications for assertions.
type recordingNotifier struct {
	actions []string
	posts   []model.Post
}

func (n *recordingNotifier) PostChanged(_ context.Context, action string, post model.Post) {
	n.actions = append(n.actions, action)
	n.posts = append(n.posts, post)
}
