// Package util provides small text helpers shared across packages.
package util

import (
	"regexp"
	"strings"
)

var (
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Letters in any script survive, so Cyrillic tags keep their meaning.
	nonWordRe      = regexp.MustCompile(`[^\p{L}\p{N}-]`)
	multipleDashRe = regexp.MustCompile(`-+`)
)

// NormalizeTagSlug converts a tag name to its canonical slug. Two names with
// the same slug are the same tag.
//
//	"Go Lang"       → "go-lang"
//	"go_lang"       → "go-lang"
//	"Чтение Позже"  → "чтение-позже"
//	"🔖 Read later!" → "read-later"
func NormalizeTagSlug(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonWordRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeTagName trims a tag name and collapses inner whitespace.
func NormalizeTagName(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
