package doctree

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// MaxHeadingLevel caps structured headings; deeper levels collapse to it.
const MaxHeadingLevel = 3

// videoIframeAllow is the feature policy granted to embedded players.
const videoIframeAllow = "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"

var (
	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)
	vimeoIDPattern   = regexp.MustCompile(`^[0-9]{1,15}$`)
)

// alignClasses maps textAlign values to the classes emitted on blocks.
// "left" is the default and emits nothing.
var alignClasses = map[string]string{
	"center":  "text-align-center",
	"right":   "text-align-right",
	"justify": "text-align-justify",
}

// Renderer converts a structured document tree to raw HTML.
// A Renderer is immutable and safe for concurrent use.
type Renderer struct {
	highlighter *Highlighter
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHighlighter enables syntax highlighting of code blocks.
func WithHighlighter(h *Highlighter) Option {
	return func(r *Renderer) {
		r.highlighter = h
	}
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render validates the tree and emits HTML for it.
// Returns an error wrapping ErrInvalidTree for inconsistent trees; no partial
// output is returned in that case.
func (r *Renderer) Render(root *Node) (string, error) {
	if err := root.Validate(); err != nil {
		return "", err
	}
	var buf strings.Builder
	r.renderNode(&buf, root)
	return buf.String(), nil
}

func (r *Renderer) renderChildren(buf *strings.Builder, n *Node) {
	for _, c := range n.Content {
		r.renderNode(buf, c)
	}
}

func (r *Renderer) renderNode(buf *strings.Builder, n *Node) {
	if n == nil {
		return
	}

	switch n.Type {
	case KindDoc:
		r.renderChildren(buf, n)
	case KindParagraph:
		r.renderBlock(buf, "p", n)
	case KindHeading:
		r.renderHeading(buf, n)
	case KindBulletList:
		r.renderBlock(buf, "ul", n)
	case KindOrderedList:
		r.renderBlock(buf, "ol", n)
	case KindListItem:
		r.renderBlock(buf, "li", n)
	case KindTaskList:
		buf.WriteString(`<ul class="task-list">`)
		r.renderChildren(buf, n)
		buf.WriteString(`</ul>`)
	case KindTaskItem:
		r.renderTaskItem(buf, n)
	case KindBlockquote:
		r.renderBlock(buf, "blockquote", n)
	case KindCodeBlock:
		r.renderCodeBlock(buf, n)
	case KindTable:
		buf.WriteString(`<table><tbody>`)
		r.renderChildren(buf, n)
		buf.WriteString(`</tbody></table>`)
	case KindTableRow:
		r.renderBlock(buf, "tr", n)
	case KindTableCell:
		r.renderCell(buf, "td", n)
	case KindTableHeader:
		r.renderCell(buf, "th", n)
	case KindImage:
		renderImage(buf, n)
	case KindLink:
		writeLinkOpen(buf, n.AttrString("href"))
		r.renderChildren(buf, n)
		buf.WriteString(`</a>`)
	case KindHardBreak:
		buf.WriteString(`<br>`)
	case KindHorizontalRule:
		buf.WriteString(`<hr>`)
	case KindMath, KindMathInline:
		writeMath(buf, mathSource(n))
	case KindMathBlock:
		buf.WriteString(`<div class="math-block">`)
		writeMath(buf, mathSource(n))
		buf.WriteString(`</div>`)
	case KindYoutube, KindVideo:
		renderVideo(buf, n)
	case KindText:
		renderText(buf, n)
	default:
		// Unknown kinds come from newer editor versions; skip them.
	}
}

// renderBlock writes <tag> with an optional alignment class around children.
func (r *Renderer) renderBlock(buf *strings.Builder, tag string, n *Node) {
	buf.WriteString("<" + tag)
	writeAlignClass(buf, n)
	buf.WriteString(">")
	r.renderChildren(buf, n)
	buf.WriteString("</" + tag + ">")
}

func (r *Renderer) renderHeading(buf *strings.Builder, n *Node) {
	level, ok := n.AttrInt("level")
	if !ok || level < 1 {
		level = 1
	}
	if level > MaxHeadingLevel {
		level = MaxHeadingLevel
	}
	tag := "h" + strconv.Itoa(level)

	buf.WriteString("<" + tag)
	if id := n.AttrString("id"); id != "" {
		buf.WriteString(` id="` + html.EscapeString(id) + `"`)
	}
	writeAlignClass(buf, n)
	buf.WriteString(">")
	r.renderChildren(buf, n)
	buf.WriteString("</" + tag + ">")
}

func (r *Renderer) renderTaskItem(buf *strings.Builder, n *Node) {
	buf.WriteString(`<li class="task-list-item"><label><input type="checkbox" disabled`)
	if n.AttrBool("checked") {
		buf.WriteString(` checked`)
	}
	buf.WriteString(`></label><div>`)
	r.renderChildren(buf, n)
	buf.WriteString(`</div></li>`)
}

func (r *Renderer) renderCell(buf *strings.Builder, tag string, n *Node) {
	buf.WriteString("<" + tag)
	if span, ok := n.AttrInt("colspan"); ok && span > 1 {
		buf.WriteString(` colspan="` + strconv.Itoa(span) + `"`)
	}
	if span, ok := n.AttrInt("rowspan"); ok && span > 1 {
		buf.WriteString(` rowspan="` + strconv.Itoa(span) + `"`)
	}
	writeAlignClass(buf, n)
	buf.WriteString(">")
	r.renderChildren(buf, n)
	buf.WriteString("</" + tag + ">")
}

func (r *Renderer) renderCodeBlock(buf *strings.Builder, n *Node) {
	lang := sanitizeLanguage(n.AttrString("language"))
	code := textContent(n)

	buf.WriteString(`<pre><code`)
	if lang != "" {
		buf.WriteString(` class="language-` + lang + `"`)
	}
	buf.WriteString(`>`)
	if highlighted, ok := r.highlighter.Highlight(lang, code); ok {
		buf.WriteString(highlighted)
	} else {
		buf.WriteString(html.EscapeString(code))
	}
	buf.WriteString(`</code></pre>`)
}

func renderImage(buf *strings.Builder, n *Node) {
	src := n.AttrString("src")
	if src == "" {
		return
	}
	buf.WriteString(`<img src="` + html.EscapeString(src) + `"`)
	if alt := n.AttrString("alt"); alt != "" {
		buf.WriteString(` alt="` + html.EscapeString(alt) + `"`)
	}
	if title := n.AttrString("title"); title != "" {
		buf.WriteString(` title="` + html.EscapeString(title) + `"`)
	}
	if w, ok := n.AttrInt("width"); ok && w > 0 {
		buf.WriteString(` width="` + strconv.Itoa(w) + `"`)
	}
	if h, ok := n.AttrInt("height"); ok && h > 0 {
		buf.WriteString(` height="` + strconv.Itoa(h) + `"`)
	}
	buf.WriteString(` loading="lazy">`)
}

func renderVideo(buf *strings.Builder, n *Node) {
	embed, ok := VideoEmbedURL(n.AttrString("src"))
	if !ok {
		return
	}
	width, ok := n.AttrInt("width")
	if !ok || width <= 0 {
		width = 640
	}
	height, ok := n.AttrInt("height")
	if !ok || height <= 0 {
		height = 360
	}
	fmt.Fprintf(buf,
		`<div class="video-embed"><iframe src="%s" width="%d" height="%d" frameborder="0" allow="%s" allowfullscreen loading="lazy" title="Embedded video"></iframe></div>`,
		html.EscapeString(embed), width, height, videoIframeAllow)
}

// VideoEmbedURL converts a YouTube or Vimeo page URL into its embeddable
// player URL. Other hosts are rejected.
func VideoEmbedURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")

	var id string
	switch host {
	case "youtube.com", "m.youtube.com", "youtube-nocookie.com":
		switch {
		case path == "watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(path, "embed/"):
			id = strings.TrimPrefix(path, "embed/")
		case strings.HasPrefix(path, "shorts/"):
			id = strings.TrimPrefix(path, "shorts/")
		}
		if youtubeIDPattern.MatchString(id) {
			return "https://www.youtube-nocookie.com/embed/" + id, true
		}
	case "youtu.be":
		if youtubeIDPattern.MatchString(path) {
			return "https://www.youtube-nocookie.com/embed/" + path, true
		}
	case "vimeo.com":
		if vimeoIDPattern.MatchString(path) {
			return "https://player.vimeo.com/video/" + path, true
		}
	case "player.vimeo.com":
		id = strings.TrimPrefix(path, "video/")
		if vimeoIDPattern.MatchString(id) {
			return "https://player.vimeo.com/video/" + id, true
		}
	}
	return "", false
}

// renderText writes an escaped text run wrapped in its marks.
// Marks nest in a fixed order regardless of their order in the document.
func renderText(buf *strings.Builder, n *Node) {
	if n.Text == "" {
		return
	}

	var open, closing []string
	wrap := func(start, end string) {
		open = append(open, start)
		closing = append([]string{end}, closing...)
	}

	if m, ok := n.HasMark(MarkLink); ok {
		var link strings.Builder
		writeLinkOpen(&link, m.AttrString("href"))
		wrap(link.String(), "</a>")
	}
	if m, ok := n.HasMark(MarkTextStyle); ok {
		if color := m.AttrString("color"); color != "" {
			wrap(`<span style="color: `+html.EscapeString(color)+`">`, "</span>")
		}
	}
	if _, ok := n.HasMark(MarkHighlight); ok {
		wrap("<mark>", "</mark>")
	}
	if _, ok := n.HasMark(MarkBold); ok {
		wrap("<strong>", "</strong>")
	}
	if _, ok := n.HasMark(MarkItalic); ok {
		wrap("<em>", "</em>")
	}
	if _, ok := n.HasMark(MarkUnderline); ok {
		wrap("<u>", "</u>")
	}
	if _, ok := n.HasMark(MarkStrike); ok {
		wrap("<s>", "</s>")
	}
	if _, ok := n.HasMark(MarkCode); ok {
		wrap("<code>", "</code>")
	}

	for _, s := range open {
		buf.WriteString(s)
	}
	buf.WriteString(html.EscapeString(n.Text))
	for _, s := range closing {
		buf.WriteString(s)
	}
}

func writeLinkOpen(buf *strings.Builder, href string) {
	buf.WriteString(`<a href="` + html.EscapeString(strings.TrimSpace(href)) + `" target="_blank" rel="noopener noreferrer">`)
}

func writeAlignClass(buf *strings.Builder, n *Node) {
	align := n.AttrString("textAlign")
	if m, ok := n.HasMark(MarkTextAlign); ok {
		align = m.AttrString("align")
	}
	if class, ok := alignClasses[strings.ToLower(align)]; ok {
		buf.WriteString(` class="` + class + `"`)
	}
}

// writeMath emits MathML carrying the TeX source as a text run and as an
// annotation, so consumers can typeset it client-side.
func writeMath(buf *strings.Builder, latex string) {
	if latex == "" {
		return
	}
	escaped := html.EscapeString(latex)
	buf.WriteString(`<math xmlns="http://www.w3.org/1998/Math/MathML"><semantics><mrow><mtext>`)
	buf.WriteString(escaped)
	buf.WriteString(`</mtext></mrow><annotation encoding="application/x-tex">`)
	buf.WriteString(escaped)
	buf.WriteString(`</annotation></semantics></math>`)
}

func mathSource(n *Node) string {
	if latex := n.AttrString("latex"); latex != "" {
		return latex
	}
	return n.Text
}

// sanitizeLanguage keeps code-block language names to a safe class token.
func sanitizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	var b strings.Builder
	for _, r := range lang {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '+' || r == '#' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// textContent concatenates all text runs below n without separators.
func textContent(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Type == KindText {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Content {
		if c != nil && c.Type == KindHardBreak {
			b.WriteString("\n")
			continue
		}
		b.WriteString(textContent(c))
	}
	return b.String()
}
