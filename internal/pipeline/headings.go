package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// DefaultSlug is used when a heading's text produces an empty slug.
const DefaultSlug = "section"

// Heading is one entry of the table of contents.
type Heading struct {
	Level int    `json:"level"` // 1-6
	Text  string `json:"text"`
	ID    string `json:"id"`
}

var (
	// validIDPattern accepts author-supplied ids worth keeping.
	validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9가-힣_.-]+$`)

	slugStripPattern      = regexp.MustCompile(`[^a-z0-9가-힣\s-]`)
	slugWhitespacePattern = regexp.MustCompile(`\s+`)
	slugHyphenPattern     = regexp.MustCompile(`-+`)
)

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// InjectHeadingIDs assigns a unique anchor id to every non-empty heading of
// the fragment and returns the re-serialized fragment with the ordered
// heading list. The result depends only on the input, so re-rendering
// unchanged content yields the same anchors.
func InjectHeadingIDs(fragment string) (string, []Heading, error) {
	root, err := parseFragment(fragment)
	if err != nil {
		return "", nil, fmt.Errorf("parsing HTML: %w", err)
	}

	used := make(map[string]bool)
	headings := []Heading{}

	walkElements(root, func(n *html.Node) {
		level, ok := headingLevels[n.Data]
		if !ok || n.Namespace != "" || insideDroppedContent(n) {
			return
		}

		text := collapseSpace(nodeText(n))
		if text == "" {
			return
		}

		id := assignID(n, text, used)
		setAttr(n, "id", id)
		headings = append(headings, Heading{Level: level, Text: text, ID: id})
	})

	out, err := renderFragment(root)
	if err != nil {
		return "", nil, fmt.Errorf("rendering HTML: %w", err)
	}
	return out, headings, nil
}

// insideDroppedContent reports whether the sanitizer will discard n together
// with one of its ancestors, in which case n gets no anchor.
func insideDroppedContent(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && dropContentTags[p.Data] {
			return true
		}
	}
	return false
}

// assignID keeps a valid unused author id, otherwise derives a slug from the
// heading text and suffixes it until unused. The chosen id is marked used.
func assignID(n *html.Node, text string, used map[string]bool) string {
	if existing, ok := getAttr(n, "id"); ok {
		if validIDPattern.MatchString(existing) && !used[existing] {
			used[existing] = true
			return existing
		}
	}

	base := Slugify(text)
	id := base
	for i := 2; used[id]; i++ {
		id = base + "-" + strconv.Itoa(i)
	}
	used[id] = true
	return id
}

// Slugify derives an anchor id from heading text: lowercase, strip
// everything but ASCII letters, digits, Hangul, whitespace and hyphens, then
// join words with single hyphens. Returns DefaultSlug when nothing remains.
func Slugify(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = slugStripPattern.ReplaceAllString(s, "")
	s = slugWhitespacePattern.ReplaceAllString(s, "-")
	s = slugHyphenPattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return DefaultSlug
	}
	return s
}

// collapseSpace trims s and reduces internal whitespace runs to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
