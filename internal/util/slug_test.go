package util

import (
	"strings"
	"testing"
)

func TestNormalizeTagSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "GOLANG", "golang"},
		{"spaces to dashes", "read later", "read-later"},
		{"underscores to dashes", "read_later", "read-later"},
		{"already normalized", "read-later", "read-later"},
		{"trim whitespace", "  golang  ", "golang"},
		{"tabs and spaces", "read\t later", "read-later"},
		{"emoji removal", "🔖 Read later!", "read-later"},
		{"slashes", "dev/ops", "dev-ops"},
		{"apostrophe removal", "don't", "dont"},
		{"collapse dashes", "--read--later--", "read-later"},
		{"cyrillic kept", "Чтение Позже", "чтение-позже"},
		{"spanish accents kept", "Cocina Fácil", "cocina-fácil"},
		{"numbers allowed", "Top 10", "top-10"},
		{"empty string", "", ""},
		{"only special chars", "!@#$%", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTagSlug(tt.input); got != tt.expected {
				t.Errorf("NormalizeTagSlug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeTagName(t *testing.T) {
	if got := NormalizeTagName("  Read \t  later "); got != "Read later" {
		t.Errorf("got %q", got)
	}
}

func TestEstimateReadingTime(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 0},
		{1, 1},
		{200, 1},
		{201, 2},
		{1000, 5},
	}
	for _, tt := range tests {
		text := strings.TrimSpace(strings.Repeat("word ", tt.words))
		if got := EstimateReadingTime(text); got != tt.want {
			t.Errorf("EstimateReadingTime(%d words) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("короткий", 20); got != "короткий" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("длинный заголовок", 8); got != "длинный…" {
		t.Errorf("got %q", got)
	}
}
