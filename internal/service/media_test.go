// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeObjectStore is an in-memory ObjectStore for tests.
type fakeObjectStore struct {
	objects map[string]int64
	signed  []string
	deleted []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string]int64)}
}

func (f *fakeObjectStore) PresignUpload(key, contentType string, ttl time.Duration) (string, error) {
	f.signed = append(f.signed, key)
	return "https://objects.test/" + key + "?signature=abc", nil
}

func (f *fakeObjectStore) ObjectExists(key string) (bool, int64, error) {
	size, ok := f.objects[key]
	return ok, size, nil
}

func (f *fakeObjectStore) Delete(key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func TestSignUpload(t *testing.T) {
	db := testDB(t)
	objects := newFakeObjectStore()
	svc := NewMediaService(db, objects, time.Hour)

	signed, err := svc.SignUpload(context.Background(), adminActor(), "cover photo.PNG", "image/png")
	if err != nil {
		t.Fatalf("SignUpload() error = %v", err)
	}

	now := time.Now().UTC()
	wantPrefix := fmt.Sprintf("uploads/%04d/%02d/", now.Year(), now.Month())
	if !strings.HasPrefix(signed.Key, wantPrefix) {
		t.Errorf("Key = %q, want prefix %q", signed.Key, wantPrefix)
	}
	if !strings.HasSuffix(signed.Key, ".png") {
		t.Errorf("Key = %q, want lowercase .png extension", signed.Key)
	}
	if signed.UploadURL == "" || signed.PublicURL != "https://cdn.test/"+signed.Key {
		t.Errorf("unexpected URLs: %+v", signed)
	}
	if remaining := time.Until(signed.ExpiresAt); remaining < 55*time.Minute || remaining > time.Hour {
		t.Errorf("ExpiresAt = %v, want about an hour out", signed.ExpiresAt)
	}
}

func TestSignUploadRejectsBadInput(t *testing.T) {
	db := testDB(t)
	svc := NewMediaService(db, newFakeObjectStore(), 0)
	ctx := context.Background()

	if _, err := svc.SignUpload(ctx, adminActor(), "", "image/png"); !IsValidation(err) {
		t.Errorf("SignUpload(no filename) = %v, want ValidationError", err)
	}
	if _, err := svc.SignUpload(ctx, adminActor(), "payload.exe", "application/x-msdownload"); !IsValidation(err) {
		t.Errorf("SignUpload(executable) = %v, want ValidationError", err)
	}
}

func TestConfirmRecordsAsset(t *testing.T) {
	db := testDB(t)
	objects := newFakeObjectStore()
	svc := NewMediaService(db, objects, 0)
	ctx := context.Background()

	objects.objects["uploads/2026/01/abc.png"] = 2048

	asset, err := svc.Confirm(ctx, adminActor(), "uploads/2026/01/abc.png", "Cover", "image/png")
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if asset.Path != "uploads/2026/01/abc.png" {
		t.Errorf("Path = %q", asset.Path)
	}
	if asset.Size != 2048 {
		t.Errorf("Size = %d, want 2048", asset.Size)
	}
	if asset.PublicURL != "https://cdn.test/uploads/2026/01/abc.png" {
		t.Errorf("PublicURL = %q", asset.PublicURL)
	}

	// The same key cannot be confirmed twice.
	if _, err := svc.Confirm(ctx, adminActor(), "uploads/2026/01/abc.png", "Cover", "image/png"); !IsConflict(err) {
		t.Errorf("Confirm(again) = %v, want ConflictError", err)
	}
}

func TestConfirmRequiresUploadedObject(t *testing.T) {
	db := testDB(t)
	svc := NewMediaService(db, newFakeObjectStore(), 0)

	_, err := svc.Confirm(context.Background(), adminActor(), "uploads/2026/01/ghost.png", "", "image/png")
	if !IsValidation(err) {
		t.Fatalf("Confirm(missing object) = %v, want ValidationError", err)
	}
}

func TestConfirmDefaultsNameFromKey(t *testing.T) {
	db := testDB(t)
	objects := newFakeObjectStore()
	svc := NewMediaService(db, objects, 0)

	objects.objects["uploads/2026/01/xyz.jpg"] = 10

	asset, err := svc.Confirm(context.Background(), adminActor(), "uploads/2026/01/xyz.jpg", "", "image/jpeg")
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if asset.Name != "xyz.jpg" {
		t.Errorf("Name = %q, want key basename", asset.Name)
	}
}

func TestListMediaByPrefix(t *testing.T) {
	db := testDB(t)
	objects := newFakeObjectStore()
	svc := NewMediaService(db, objects, 0)
	ctx := context.Background()

	for _, key := range []string{"uploads/2026/01/a.png", "uploads/2026/01/b.png", "uploads/2025/12/c.png"} {
		objects.objects[key] = 1
		if _, err := svc.Confirm(ctx, adminActor(), key, "", "image/png"); err != nil {
			t.Fatalf("Confirm(%s) error = %v", key, err)
		}
	}

	assets, total, err := svc.List(ctx, adminActor(), "uploads/2026/", 50, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(assets) != 2 {
		t.Errorf("List(prefix) = %d assets, total %d, want 2/2", len(assets), total)
	}

	_, total, err = svc.List(ctx, adminActor(), "", 50, 0)
	if err != nil {
		t.Fatalf("List(all) error = %v", err)
	}
	if total != 3 {
		t.Errorf("List(all) total = %d, want 3", total)
	}
}

func TestMediaUploadsAdminOnly(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	objects := newFakeObjectStore()
	svc := NewMediaService(db, objects, 0)
	ctx := context.Background()
	author := authorActor(authorID)

	if _, err := svc.SignUpload(ctx, author, "cover.png", "image/png"); !errors.Is(err, ErrPermission) {
		t.Errorf("SignUpload(author) = %v, want ErrPermission", err)
	}
	if len(objects.signed) != 0 {
		t.Errorf("signed keys = %v, want none for a denied caller", objects.signed)
	}

	objects.objects["uploads/2026/01/abc.png"] = 1
	if _, err := svc.Confirm(ctx, author, "uploads/2026/01/abc.png", "", "image/png"); !errors.Is(err, ErrPermission) {
		t.Errorf("Confirm(author) = %v, want ErrPermission", err)
	}
}

func TestDeleteMediaAdminOnly(t *testing.T) {
	db := testDB(t)
	authorID := createTestAuthor(t, db, "Alice", "alice@example.com")
	objects := newFakeObjectStore()
	svc := NewMediaService(db, objects, 0)
	ctx := context.Background()

	objects.objects["uploads/2026/01/doomed.png"] = 1
	asset, err := svc.Confirm(ctx, adminActor(), "uploads/2026/01/doomed.png", "", "image/png")
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	if err := svc.Delete(ctx, authorActor(authorID), asset.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("Delete(author) = %v, want ErrPermission", err)
	}

	if err := svc.Delete(ctx, adminActor(), asset.ID); err != nil {
		t.Fatalf("Delete(admin) error = %v", err)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != asset.Path {
		t.Errorf("object store deletions = %v, want the asset path", objects.deleted)
	}
	if err := svc.Delete(ctx, adminActor(), asset.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(again) = %v, want ErrNotFound", err)
	}
}
