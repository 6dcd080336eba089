// Package sanitize cleans admin-authored markup before it is stored.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// HTML keeps formatting markup and links and strips scripts, handlers and
// other active content.
func HTML(s string) string {
	return ugc.Sanitize(s)
}

// Text strips every tag and collapses whitespace.
func Text(s string) string {
	return strings.Join(strings.Fields(strict.Sanitize(s)), " ")
}
