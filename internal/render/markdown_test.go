// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	html, err := Markdown("# Title\n\nSome **bold** text.")
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(html, "<h1") {
		t.Errorf("Markdown() missing heading: %q", html)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("Markdown() missing bold: %q", html)
	}
}

func TestMarkdownRendersGFM(t *testing.T) {
	html, err := Markdown("~~gone~~\n\n| a | b |\n|---|---|\n| 1 | 2 |")
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(html, "<del>gone</del>") {
		t.Errorf("Markdown() missing strikethrough: %q", html)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("Markdown() missing table: %q", html)
	}
}

func TestMarkdownSanitizesScripts(t *testing.T) {
	html, err := Markdown("Hello <script>alert('xss')</script> world")
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if strings.Contains(html, "<script") {
		t.Errorf("Markdown() did not strip script tag: %q", html)
	}
	if !strings.Contains(html, "Hello") || !strings.Contains(html, "world") {
		t.Errorf("Markdown() lost surrounding text: %q", html)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "headings and emphasis stripped",
			source: "# Title\n\nSome **bold** and _italic_ text",
			want:   "Title Some bold and italic text",
		},
		{
			name:   "links keep label",
			source: "See [the docs](https://example.com) for more",
			want:   "See the docs for more",
		},
		{
			name:   "empty",
			source: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.source); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	source := "one two three four five six"

	if got := Excerpt(source, 10); got != source {
		t.Errorf("Excerpt() short content = %q, want unchanged", got)
	}
	got := Excerpt(source, 3)
	if got != "one two three…" {
		t.Errorf("Excerpt() = %q, want %q", got, "one two three…")
	}
}

func TestReadingTimeMinutes(t *testing.T) {
	if got := ReadingTimeMinutes(""); got != 0 {
		t.Errorf("ReadingTimeMinutes(\"\") = %d, want 0", got)
	}
	if got := ReadingTimeMinutes("a few words"); got != 1 {
		t.Errorf("ReadingTimeMinutes(short) = %d, want 1", got)
	}

	// 450 words reads as 3 minutes at 200 wpm.
	long := strings.Repeat("word ", 450)
	if got := ReadingTimeMinutes(long); got != 3 {
		t.Errorf("ReadingTimeMinutes(450 words) = %d, want 3", got)
	}
}
