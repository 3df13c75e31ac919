// Package id generates the prefixed identifiers used for every Pabliki entity.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes. An id reads as prefix-nanoid, e.g. "lnk-V1StGXR8_Z5jdHi6B-myT".
const (
	PrefixUser       = "usr"
	PrefixSession    = "sess"
	PrefixLink       = "lnk"
	PrefixTag        = "tag"
	PrefixLinkTag    = "lt"
	PrefixCollection = "col"
	PrefixLinkColl   = "lc"
	PrefixNote       = "note"
	PrefixSearch     = "srch"
	PrefixActivity   = "act"
)

// Generate creates a prefixed NanoID (21 URL-safe characters after the prefix).
// It fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// HasPrefix reports whether id was generated with prefix.
func HasPrefix(id, prefix string) bool {
	return len(id) > len(prefix)+1 && id[:len(prefix)] == prefix && id[len(prefix)] == '-'
}
