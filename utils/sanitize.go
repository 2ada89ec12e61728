package utils

import (
	"html"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
)

var richText = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// links are accepted as written; rel attributes added here would make stored text differ
	p.RequireNoFollowOnLinks(false)
	return p
}()

// SanitizeHTML keeps user-generated markup (links, emphasis, lists) and drops scripts,
// event handlers and other active content.
func SanitizeHTML(input string) string {
	return richText.Sanitize(input)
}

// SafeMarkup reports whether input passes the rich-text policy without losing anything.
// Plain text such as "a < b && c > d" is safe; escaping alone never counts as a change.
// Callers store input verbatim when it is safe and refuse it otherwise.
func SafeMarkup(input string) bool {
	return html.UnescapeString(SanitizeHTML(input)) == html.UnescapeString(canonicalHTML(input))
}

// canonicalHTML re-serialises input token by token, the same way the sanitizer writes
// the tokens it keeps, so quoting and tag case do not register as differences.
func canonicalHTML(input string) string {
	var b strings.Builder
	z := nethtml.NewTokenizer(strings.NewReader(input))
	for {
		if z.Next() == nethtml.ErrorToken {
			if z.Err() != io.EOF {
				return input
			}
			return b.String()
		}
		b.WriteString(z.Token().String())
	}
}
