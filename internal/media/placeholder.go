package media

import (
	"net/url"
	"strings"
)

const placeholderBase = "https://ui-avatars.com/api/"

// PlaceholderStyle is the fixed look of generated avatars.
type PlaceholderStyle struct {
	Background string
	Color      string
	Size       string
}

var DefaultPlaceholderStyle = PlaceholderStyle{
	Background: "1e1e1e",
	Color:      "e63946",
	Size:       "200",
}

// componentEscaper turns url.QueryEscape output into what the admin UI's
// encodeURIComponent produces, so generated URLs equal the stored ones.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func escapeComponent(s string) string {
	return componentEscaper.Replace(url.QueryEscape(s))
}

func (s PlaceholderStyle) query() string {
	return "&background=" + escapeComponent(s.Background) +
		"&color=" + escapeComponent(s.Color) +
		"&size=" + escapeComponent(s.Size)
}

// PlaceholderURL is a pure function of name and style.
func PlaceholderURL(name string, style PlaceholderStyle) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "User"
	}
	return placeholderBase + "?name=" + escapeComponent(name) + style.query()
}

// IsPlaceholderURL reports whether u was produced by PlaceholderURL with
// style, for any name.
func IsPlaceholderURL(u string, style PlaceholderStyle) bool {
	return strings.HasPrefix(u, placeholderBase+"?name=") && strings.HasSuffix(u, style.query())
}
