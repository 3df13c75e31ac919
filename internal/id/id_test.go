package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixLink)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	prefixes := []string{
		PrefixUser, PrefixSession, PrefixLink, PrefixTag, PrefixLinkTag,
		PrefixCollection, PrefixLinkColl, PrefixNote, PrefixSearch, PrefixActivity,
	}

	for _, prefix := range prefixes {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+21)

			for _, char := range strings.TrimPrefix(id, prefix+"-") {
				assert.True(t,
					(char >= 'A' && char <= 'Z') ||
						(char >= 'a' && char <= 'z') ||
						(char >= '0' && char <= '9') ||
						char == '_' || char == '-',
					"Character %c should be URL-safe", char)
			}
		})
	}
}

func TestMustGenerate_Format(t *testing.T) {
	id := MustGenerate(PrefixNote)

	assert.True(t, strings.HasPrefix(id, "note-"))
	assert.Equal(t, len("note")+1+21, len(id))
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix(MustGenerate(PrefixTag), PrefixTag))
	assert.False(t, HasPrefix(MustGenerate(PrefixTag), PrefixLink))
	assert.False(t, HasPrefix("tag-", PrefixTag))
	assert.False(t, HasPrefix("tagged", PrefixTag))
}

func BenchmarkGenerate(b *testing.B) {
	for b.Loop() {
		_, _ = Generate("bench")
	}
}
