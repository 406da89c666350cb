package pipeline

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// AttrAction is the outcome of an attribute filter.
type AttrAction int

const (
	AttrKeep AttrAction = iota
	AttrDrop
	AttrRewrite
)

// AttrVerdict tells the sanitizer what to do with one attribute.
// Value is used only with AttrRewrite.
type AttrVerdict struct {
	Action AttrAction
	Value  string
}

// Keep keeps the attribute unchanged.
func Keep() AttrVerdict { return AttrVerdict{Action: AttrKeep} }

// Drop removes the attribute.
func Drop() AttrVerdict { return AttrVerdict{Action: AttrDrop} }

// Rewrite replaces the attribute value.
func Rewrite(v string) AttrVerdict { return AttrVerdict{Action: AttrRewrite, Value: v} }

// AttributeFilter decides the fate of an allowlisted attribute. tagName and
// attrName are lowercase. It must be a pure function of its arguments.
type AttributeFilter func(tagName, attrName, attrValue string) AttrVerdict

// AllowedTags is the element allowlist. Nothing else ever reaches the output.
var AllowedTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "br",
	"strong", "b", "em", "i", "u", "s", "strike", "del",
	"a", "img", "iframe",
	"ul", "ol", "li",
	"blockquote", "code", "pre",
	"table", "thead", "tbody", "tfoot", "tr", "th", "td",
	"div", "span", "hr", "mark",
	"input", "label",
	// MathML
	"math", "semantics", "annotation", "mrow", "mi", "mo", "mn", "ms",
	"mtext", "mspace", "msup", "msub", "msubsup", "mfrac", "msqrt", "mroot",
	"mover", "munder", "munderover", "mtable", "mtr", "mtd", "mstyle",
	"mpadded", "mphantom",
}

// AllowedAttrs is the attribute allowlist, applied on every allowed element.
var AllowedAttrs = []string{
	"href", "src", "alt", "title", "class", "target", "rel", "loading", "id",
	"style", "colspan", "rowspan", "type", "checked", "disabled", "width",
	"height", "frameborder", "allowfullscreen", "allow", "encoding", "xmlns",
}

// dropContentTags are removed together with everything inside them.
var dropContentTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"object": true, "embed": true, "head": true, "title": true,
	"textarea": true, "select": true, "svg": true,
}

// safeImageSrcPrefixes lists the only acceptable img[src] prefixes.
var safeImageSrcPrefixes = []string{"http://", "https://", "/", "./", "../", "data:image/"}

// iframeHosts lists the embed origins allowed in iframe[src].
var iframeHosts = []string{
	"https://www.youtube-nocookie.com/embed/",
	"https://www.youtube.com/embed/",
	"https://player.vimeo.com/video/",
}

// ColorValuePattern matches the colour values accepted in style="color: …".
var ColorValuePattern = regexp.MustCompile(`(?i)^(?:` +
	`#(?:[0-9a-f]{3,4}|[0-9a-f]{6}|[0-9a-f]{8})` +
	`|rgba?\(\s*\d{1,3}%?\s*,\s*\d{1,3}%?\s*,\s*\d{1,3}%?\s*(?:,\s*(?:0|1|0?\.\d+|\d{1,3}%)\s*)?\)` +
	`|hsla?\(\s*\d{1,3}(?:deg)?\s*,\s*\d{1,3}%\s*,\s*\d{1,3}%\s*(?:,\s*(?:0|1|0?\.\d+|\d{1,3}%)\s*)?\)` +
	`)$`)

// urlControlChars are removed before scheme checks so "java\tscript:" and
// similar obfuscations are caught.
var urlControlChars = regexp.MustCompile(`[\x00-\x20\x7f]+`)

// DefaultAttributeFilter enforces URL scheme and style rules on top of the
// attribute allowlist.
func DefaultAttributeFilter(tagName, attrName, attrValue string) AttrVerdict {
	switch attrName {
	case "srcset":
		return Drop()
	case "href":
		scheme := normalizedURL(attrValue)
		if strings.HasPrefix(scheme, "javascript:") || strings.HasPrefix(scheme, "data:") ||
			strings.HasPrefix(scheme, "vbscript:") {
			return Drop()
		}
	case "src":
		scheme := normalizedURL(attrValue)
		if strings.HasPrefix(scheme, "javascript:") || strings.HasPrefix(scheme, "vbscript:") {
			return Drop()
		}
		switch tagName {
		case "img":
			if !hasAnyPrefix(strings.TrimSpace(attrValue), safeImageSrcPrefixes) {
				return Drop()
			}
		case "iframe":
			if !hasAnyPrefix(strings.TrimSpace(attrValue), iframeHosts) {
				return Drop()
			}
		}
	case "style":
		if color, ok := extractColor(attrValue); ok {
			return Rewrite("color: " + color)
		}
		return Drop()
	}
	return Keep()
}

// normalizedURL lowercases a URL and strips whitespace and control
// characters for scheme comparison.
func normalizedURL(v string) string {
	return strings.ToLower(urlControlChars.ReplaceAllString(html.UnescapeString(v), ""))
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// extractColor returns the first color declaration of a style attribute
// whose value is a hex, rgb(a) or hsl(a) colour.
func extractColor(style string) (string, bool) {
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok || strings.ToLower(strings.TrimSpace(prop)) != "color" {
			continue
		}
		if val = strings.TrimSpace(val); ColorValuePattern.MatchString(val) {
			return val, true
		}
	}
	return "", false
}

// Sanitizer reduces HTML to the allowlisted surface.
// A Sanitizer is immutable and safe for concurrent use.
type Sanitizer struct {
	allowedTags  map[string]bool
	allowedAttrs map[string]bool
	policy       *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer for AllowedTags and AllowedAttrs.
func NewSanitizer() *Sanitizer {
	s := &Sanitizer{
		allowedTags:  make(map[string]bool, len(AllowedTags)),
		allowedAttrs: make(map[string]bool, len(AllowedAttrs)),
		policy:       newPolicy(),
	}
	for _, t := range AllowedTags {
		s.allowedTags[t] = true
	}
	for _, a := range AllowedAttrs {
		s.allowedAttrs[a] = true
	}
	return s
}

// newPolicy builds the bluemonday policy mirroring the allowlist. It is the
// final closure check after the attribute filter has run.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(AllowedTags...)

	var plain []string
	for _, a := range AllowedAttrs {
		if a != "style" {
			plain = append(plain, a)
		}
	}
	p.AllowAttrs(plain...).Globally()
	p.AllowStyles("color").Matching(ColorValuePattern).Globally()

	p.AllowURLSchemes("http", "https", "mailto", "tel")
	p.AllowRelativeURLs(true)
	p.AllowDataURIImages()

	// Elements whose meaning does not depend on attributes keep their tag
	// even when every attribute was removed.
	var noAttrs []string
	for _, t := range AllowedTags {
		switch t {
		case "a", "img", "iframe", "input":
		default:
			noAttrs = append(noAttrs, t)
		}
	}
	p.AllowNoAttrs().OnElements(noAttrs...)
	return p
}

// Sanitize applies the allowlist and the attribute filter to fragment.
// A nil filter means DefaultAttributeFilter. Disallowed elements are
// unwrapped so their text survives, except for dropContentTags.
func (s *Sanitizer) Sanitize(fragment string, filter AttributeFilter) string {
	if filter == nil {
		filter = DefaultAttributeFilter
	}

	root, err := parseFragment(fragment)
	if err != nil {
		// The tree pass is best effort; the policy below still enforces
		// the allowlist.
		return s.policy.Sanitize(fragment)
	}
	s.sanitizeChildren(root, filter)

	out, err := renderFragment(root)
	if err != nil {
		return s.policy.Sanitize(fragment)
	}
	return s.policy.Sanitize(out)
}

func (s *Sanitizer) sanitizeChildren(parent *html.Node, filter AttributeFilter) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling

		switch c.Type {
		case html.ElementNode:
			name := strings.ToLower(c.Data)
			switch {
			case dropContentTags[name]:
				parent.RemoveChild(c)
			case !s.allowedTags[name]:
				s.sanitizeChildren(c, filter)
				unwrap(parent, c)
			default:
				c.Attr = s.filterAttrs(name, c.Attr, filter)
				if name == "iframe" {
					if _, ok := getAttr(c, "src"); !ok {
						parent.RemoveChild(c)
						break
					}
				}
				s.sanitizeChildren(c, filter)
			}
		case html.CommentNode, html.DoctypeNode:
			parent.RemoveChild(c)
		}

		c = next
	}
}

func (s *Sanitizer) filterAttrs(tag string, attrs []html.Attribute, filter AttributeFilter) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if a.Namespace != "" || !s.allowedAttrs[key] {
			continue
		}
		verdict := filter(tag, key, a.Val)
		switch verdict.Action {
		case AttrKeep:
			kept = append(kept, html.Attribute{Key: key, Val: a.Val})
		case AttrRewrite:
			kept = append(kept, html.Attribute{Key: key, Val: verdict.Value})
		}
	}
	return kept
}

// unwrap replaces n with its children.
func unwrap(parent, n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}
