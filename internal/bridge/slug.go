package bridge

import (
	"regexp"
	"strings"
)

const defaultSlug = "snapshot"

var slugStrip = regexp.MustCompile(`[^a-zA-Z0-9 ]+`)

// slugify turns a page title into a directory-safe name: alphanumerics
// and spaces survive, spaces become underscores, the result is lowered.
// An empty title falls back to "snapshot".
func slugify(title string) string {
	s := slugStrip.ReplaceAllString(title, "")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ToLower(s)
	if s == "" {
		return defaultSlug
	}
	return s
}
