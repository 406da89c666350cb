package pipeline

import (
	"bytes"
	"context"
	"html"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// DefaultHighlightStyle is the chroma style used when none is configured.
const DefaultHighlightStyle = "github"

// HTMLConverter abstracts markup to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// MarkupOptions configures the goldmark converter.
type MarkupOptions struct {
	HighlightStyle string // chroma style name (default: github)
	SoftBreaks     bool   // keep single newlines as spaces instead of <br>
}

// GoldmarkConverter converts markup text to an HTML fragment using goldmark (pure Go).
type GoldmarkConverter struct {
	md           goldmark.Markdown
	preprocessor MarkdownPreprocessor
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions and syntax highlighting.
func NewGoldmarkConverter(opts MarkupOptions) *GoldmarkConverter {
	style := opts.HighlightStyle
	if style == "" {
		style = DefaultHighlightStyle
	}

	rendererOpts := []renderer.Option{
		// Raw HTML passes through: the sanitizer always runs on the output.
		goldmarkhtml.WithUnsafe(),
	}
	if !opts.SoftBreaks {
		rendererOpts = append(rendererOpts, goldmarkhtml.WithHardWraps()) // Single newline becomes <br>
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // classes survive sanitization, inline styles do not
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(), // "# Title {#custom-id}" sets author ids
		),
		goldmark.WithRendererOptions(rendererOpts...),
	)

	return &GoldmarkConverter{md: md, preprocessor: &CommonMarkPreprocessor{}}
}

// ToHTML converts markup content to an HTML fragment.
// Never fails on arbitrary text: if goldmark reports an error the text is
// returned as a single escaped paragraph. Only context cancellation is
// reported as an error.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content = c.preprocessor.PreprocessMarkdown(ctx, content)

	var buf bytes.Buffer
	if err := c.md.Convert([]byte(content), &buf); err != nil {
		return "<p>" + html.EscapeString(content) + "</p>", nil
	}
	return ConvertMarkPlaceholders(buf.String()), nil
}
