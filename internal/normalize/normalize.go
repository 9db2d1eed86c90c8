// Package normalize cleans up text coming from the external catalog before it
// is stored: Unicode normalization, whitespace, HTML descriptions and loosely
// typed numeric fields.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var whitespace = regexp.MustCompile(`\s+`)

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// Text NFC-normalizes s, collapses runs of whitespace and trims it.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Authors joins author names with ", ", skipping blanks.
func Authors(names []string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = Text(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, ", ")
}

// Int parses a catalog integer. Missing or malformed values become 0.
func Int(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Float parses a catalog decimal. Missing or malformed values become 0.
func Float(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// Description converts an HTML description to Markdown. Plain text is only
// normalized. If conversion fails the tags are stripped instead.
func Description(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return ""
	}
	if !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return Text(html.UnescapeString(s))
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return StripHTML(s)
	}
	return strings.TrimSpace(markdown)
}

// StripHTML removes markup and returns collapsed plain text.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return Text(html.UnescapeString(s))
	}

	var buf strings.Builder
	extractText(doc, &buf)
	return Text(buf.String())
}

func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	if n.Type == html.ElementNode && n.Data == "br" {
		buf.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
			buf.WriteString(" ")
		}
	}
}

// formats maps lowercased catalog format labels to a canonical spelling.
//
//nolint:gochecknoglobals // Static lookup table for format normalization
var formats = map[string]string{
	"paperback":             "Paperback",
	"mass market paperback": "Mass Market Paperback",
	"trade paperback":       "Paperback",
	"hardcover":             "Hardcover",
	"hardback":              "Hardcover",
	"ebook":                 "Ebook",
	"e-book":                "Ebook",
	"kindle edition":        "Ebook",
	"nook":                  "Ebook",
	"audiobook":             "Audiobook",
	"audio cd":              "Audiobook",
	"audible audio":         "Audiobook",
}

// Format canonicalizes a binding label. Unknown labels are kept as written.
func Format(raw string) string {
	raw = Text(raw)
	if canonical, ok := formats[strings.ToLower(raw)]; ok {
		return canonical
	}
	return raw
}

var externalIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ExternalID trims a catalog id and reports whether it is safe to use as a
// dedupe key and URL parameter.
func ExternalID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !externalIDPattern.MatchString(raw) {
		return "", false
	}
	return raw, true
}
