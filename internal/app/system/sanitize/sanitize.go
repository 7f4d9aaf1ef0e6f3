// Package sanitize strips markup from user-supplied text.
//
// Chat messages and event text are plain text: every tag is removed with
// bluemonday's strict policy and entities are decoded again so that a typed
// "&" or "<3" survives the round trip unchanged.
package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes all HTML elements from s and trims the result.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Length returns the length of s in characters (runes).
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
