package doctree

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter colours code-block contents with chroma, emitting CSS classes
// rather than inline styles so the output survives sanitization.
type Highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewHighlighter creates a Highlighter. An unknown style name falls back to
// chroma's default style.
func NewHighlighter(styleName string) *Highlighter {
	return &Highlighter{
		style: styles.Get(styleName),
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
	}
}

// Highlight returns highlighted HTML for code in the given language.
// Returns false when highlighting is disabled, the language is unknown, or
// tokenising fails; the caller then escapes the code itself.
func (h *Highlighter) Highlight(lang, code string) (string, bool) {
	if h == nil || lang == "" {
		return "", false
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", false
	}
	return buf.String(), true
}
