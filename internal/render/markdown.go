// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render converts post markdown into sanitized HTML and derives
// presentation fields (excerpt, reading time) from content.
package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// htmlSanitizer strips potentially dangerous elements (<script>, event
// handlers, etc.) while keeping safe tags for user-generated content.
var htmlSanitizer = bluemonday.UGCPolicy()

// renderer is safe to share; parsing creates per-call state.
var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// markdownTokens matches markdown syntax characters stripped when deriving
// plain text for excerpts and word counts.
var (
	markdownLinks  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownTokens = regexp.MustCompile("[#*_`>~]")
)

// wordsPerMinute is the assumed reading speed for reading-time estimates.
const wordsPerMinute = 200

// Markdown renders markdown source to sanitized HTML.
func Markdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return htmlSanitizer.Sanitize(buf.String()), nil
}

// PlainText strips markdown syntax from source, leaving readable text.
func PlainText(source string) string {
	text := markdownLinks.ReplaceAllString(source, "$1")
	text = markdownTokens.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt derives a short plain-text excerpt of at most maxWords words.
func Excerpt(source string, maxWords int) string {
	words := strings.Fields(PlainText(source))
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "…"
}

// ReadingTimeMinutes estimates reading time from word count. Non-empty
// content always reads as at least one minute.
func ReadingTimeMinutes(source string) int {
	words := len(strings.Fields(PlainText(source)))
	if words == 0 {
		return 0
	}
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return minutes
}
