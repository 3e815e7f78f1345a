// Package sanitize strips unwanted markup from user-supplied text
// before it reaches storage.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy    = bluemonday.StrictPolicy()
	contentPolicy = bluemonday.UGCPolicy()
)

// Text removes all HTML from short fields such as usernames, bios,
// titles, comments and messages.
func Text(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// Content allows the user-generated-content subset of HTML used in
// post bodies while stripping scripts and event handlers.
func Content(s string) string {
	return strings.TrimSpace(contentPolicy.Sanitize(s))
}
