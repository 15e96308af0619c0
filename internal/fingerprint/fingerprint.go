// Package fingerprint normalizes and hashes an item's semantic content for
// duplicate detection.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// separator joins normalized fields before hashing. A control character keeps
// field boundaries unambiguous against any printable content.
const separator = "\x1f"

// Normalize Unicode-normalizes (NFKC), lowercases, collapses internal
// whitespace runs to one space, and trims. Idempotent:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Fingerprint returns the hex SHA-256 over the normalized subject, stem, and
// options in given order. Order-sensitive: reordering options yields a
// different fingerprint.
func Fingerprint(subject, stem string, options []string) string {
	parts := make([]string, 0, len(options)+2)
	parts = append(parts, Normalize(subject), Normalize(stem))
	for _, opt := range options {
		parts = append(parts, Normalize(opt))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, separator)))
	return hex.EncodeToString(sum[:])
}
