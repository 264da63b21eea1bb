package llm

import (
	"strings"

	"golang.org/x/net/html"
)

// Tags whose contents add token cost without describing visible structure.
var strippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
}

// CompactHTML strips scripts, styles, and comments from a document and caps
// the result at maxBytes so page evidence fits in a model prompt. The cut
// happens at a token boundary, never mid-tag.
func CompactHTML(raw string, maxBytes int) string {
	if raw == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(raw))
	var b strings.Builder
	skip := ""

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		token := string(z.Raw())
		tagName, _ := z.TagName()
		tag := strings.ToLower(string(tagName))

		switch tt {
		case html.CommentToken:
			continue
		case html.StartTagToken:
			if skip == "" && strippedTags[tag] {
				skip = tag
				continue
			}
		case html.EndTagToken:
			if skip != "" {
				if tag == skip {
					skip = ""
				}
				continue
			}
		case html.TextToken:
			if strings.TrimSpace(token) == "" {
				continue
			}
		}
		if skip != "" {
			continue
		}

		if maxBytes > 0 && b.Len()+len(token) > maxBytes {
			b.WriteString("<!-- truncated -->")
			break
		}
		b.WriteString(token)
	}
	return b.String()
}
