// Package normalize canonicalizes user-supplied strings before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email lowercases and trims an email address. Emails are the join key
// between users and profiles, so every path that stores or looks one up
// goes through here.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Type lowercases and trims an account type.
func Type(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Text trims free text (descriptions, bios) without altering inner layout.
func Text(s string) string {
	return strings.TrimSpace(s)
}

// Fold returns the case- and diacritic-insensitive form used for search keys.
func Fold(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// Strings trims every element and drops empties.
func Strings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
