package pipeline

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-contentrender/internal/doctree"
)

// WordsPerMinute is the reading speed behind ReadTime.
const WordsPerMinute = 200

// blockElements end a line of stripped text.
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "blockquote": true, "pre": true,
	"tr": true, "td": true, "th": true, "table": true, "ul": true, "ol": true,
	"hr": true, "section": true, "article": true,
}

// StripTags returns the text content of an HTML fragment. Entities are
// decoded, block boundaries and <br> become newlines, and heading elements
// are skipped because their text is carried by the heading list.
func StripTags(fragment string) string {
	root, err := parseFragment(fragment)
	if err != nil {
		return ""
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				buf.WriteString(c.Data)
			case html.ElementNode:
				if _, isHeading := headingLevels[c.Data]; isHeading {
					continue
				}
				// The TeX annotation duplicates the rendered text.
				if c.Data == "annotation" {
					continue
				}
				if c.Data == "br" {
					buf.WriteString("\n")
					continue
				}
				walk(c)
				if blockElements[c.Data] {
					buf.WriteString("\n")
				}
			}
		}
	}
	walk(root)

	return doctree.NormalizeText(buf.String())
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ReadTime returns the estimated reading time in minutes, never below one.
func ReadTime(wordCount int) int {
	if wordCount <= 0 {
		return 1
	}
	return (wordCount + WordsPerMinute - 1) / WordsPerMinute
}
