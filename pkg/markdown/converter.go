package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// ToNotesHTML converts markdown to HTML suitable for embedding in the
// study-notes panel.
func ToNotesHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	return sanitizeNotesHTML(html)
}

// allowedTags is the whitelist of tags kept in rendered notes. Anything
// else, including all attributes, is stripped.
var allowedTags = map[string]bool{
	"p": true, "br": true, "b": true, "i": true, "u": true, "s": true,
	"strong": true, "em": true, "code": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true,
	"ul": true, "ol": true, "li": true, "blockquote": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
}

var (
	tagPattern     = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)(?:\s[^>]*)?/?>`)
	tagNamePattern = regexp.MustCompile(`^</?([a-zA-Z][a-zA-Z0-9]*)`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
)

// sanitizeNotesHTML drops unsupported tags and every attribute
func sanitizeNotesHTML(html string) string {
	html = tagPattern.ReplaceAllStringFunc(html, func(match string) string {
		nameMatch := tagNamePattern.FindStringSubmatch(match)
		if len(nameMatch) < 2 {
			return ""
		}
		name := strings.ToLower(nameMatch[1])
		if !allowedTags[name] {
			return ""
		}
		if strings.HasPrefix(match, "</") {
			return "</" + name + ">"
		}
		if name == "br" {
			return "<br>"
		}
		return "<" + name + ">"
	})

	html = blankRuns.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
