package pipeline

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
)

// pageTemplate wraps a rendered fragment in a complete HTML5 document.
const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body>
%s<article class="content">
%s
</article>
</body>
</html>`

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

// InjectCSS inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	if ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		closeIdx := strings.Index(htmlContent[idx:], ">")
		if closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// TOCOptions selects the headings shown in a table of contents.
type TOCOptions struct {
	Title    string
	MinDepth int // Minimum heading level (default: 1)
	MaxDepth int // Maximum heading level (default: 6)
}

// numberingState tracks hierarchical numbering for TOC entries.
// Supports normalization (first heading becomes level 1) and gap skipping.
type numberingState struct {
	counters     [6]int // counters[0] = level 1 count, etc.
	minLevelSeen int    // for normalization (0 = not set)
	lastLevel    int    // for tracking parent relationships
}

// next returns the next number string and effective depth for the given heading level.
func (n *numberingState) next(level int) (numStr string, effectiveDepth int) {
	if n.minLevelSeen == 0 {
		n.minLevelSeen = level
	}

	effectiveDepth = level - n.minLevelSeen + 1
	if effectiveDepth < 1 {
		effectiveDepth = 1
	}

	// Jumping levels (H1 -> H3) nests one step only.
	if n.lastLevel > 0 && effectiveDepth > n.lastLevel+1 {
		effectiveDepth = n.lastLevel + 1
	}

	for i := effectiveDepth; i < 6; i++ {
		n.counters[i] = 0
	}

	n.counters[effectiveDepth-1]++
	n.lastLevel = effectiveDepth

	parts := make([]string, 0, effectiveDepth)
	for i := 0; i < effectiveDepth; i++ {
		parts = append(parts, strconv.Itoa(n.counters[i]))
	}
	return strings.Join(parts, ".") + ".", effectiveDepth
}

// RenderTOC creates a numbered table of contents linking to heading anchors.
// Returns "" when no heading falls within the requested depth.
func RenderTOC(headings []Heading, opts TOCOptions) string {
	minDepth, maxDepth := opts.MinDepth, opts.MaxDepth
	if minDepth < 1 {
		minDepth = 1
	}
	if maxDepth < 1 || maxDepth > 6 {
		maxDepth = 6
	}

	var selected []Heading
	for _, h := range headings {
		if h.Level >= minDepth && h.Level <= maxDepth {
			selected = append(selected, h)
		}
	}
	if len(selected) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString(`<nav class="toc">`)

	if opts.Title != "" {
		buf.WriteString(`<h2 class="toc-title">`)
		buf.WriteString(html.EscapeString(opts.Title))
		buf.WriteString(`</h2>`)
	}

	buf.WriteString(`<div class="toc-list">`)

	numbering := &numberingState{}
	for _, h := range selected {
		num, depth := numbering.next(h.Level)

		buf.WriteString(`<div class="toc-item toc-depth-`)
		buf.WriteString(strconv.Itoa(depth))
		buf.WriteString(`"><a href="#`)
		buf.WriteString(html.EscapeString(h.ID))
		buf.WriteString(`">`)
		buf.WriteString(num)
		buf.WriteString(` `)
		buf.WriteString(html.EscapeString(h.Text))
		buf.WriteString(`</a></div>`)
	}

	buf.WriteString(`</div></nav>`)
	return buf.String()
}

// PreviewPage wraps an already sanitized fragment into a standalone page with
// an optional table of contents and stylesheet.
func PreviewPage(ctx context.Context, title, fragment string, headings []Heading, toc *TOCOptions, css string) string {
	if title == "" {
		title = "Document"
	}

	var nav string
	if toc != nil {
		nav = RenderTOC(headings, *toc)
		if nav != "" {
			nav += "\n"
		}
	}

	page := fmt.Sprintf(pageTemplate, html.EscapeString(title), nav, fragment)
	injector := &CSSInjection{}
	return injector.InjectCSS(ctx, page, css)
}
