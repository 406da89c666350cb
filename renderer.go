package contentrender

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-contentrender/internal/assets"
	"github.com/alnah/go-contentrender/internal/doctree"
	"github.com/alnah/go-contentrender/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.CommonMarkPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.CSSInjector          = (*pipeline.CSSInjection)(nil)
	_ Source                        = StructuredSource{}
	_ Source                        = MarkupSource{}
)

type rendererConfig struct {
	highlightStyle string
	softBreaks     bool
	filter         AttributeFilter
}

// Renderer turns a Source into RenderedContent.
// Create with NewRenderer. A Renderer is immutable and safe for concurrent use.
type Renderer struct {
	cfg        rendererConfig
	logger     *zap.Logger
	structured *doctree.Renderer
	markup     pipeline.HTMLConverter
	sanitizer  *pipeline.Sanitizer
}

// NewRenderer creates a Renderer with default configuration.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		cfg: rendererConfig{
			highlightStyle: pipeline.DefaultHighlightStyle,
			filter:         pipeline.DefaultAttributeFilter,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.filter == nil {
		r.cfg.filter = pipeline.DefaultAttributeFilter
	}

	r.structured = doctree.NewRenderer(
		doctree.WithHighlighter(doctree.NewHighlighter(r.cfg.highlightStyle)),
	)
	// Tests may inject a converter.
	if r.markup == nil {
		r.markup = pipeline.NewGoldmarkConverter(pipeline.MarkupOptions{
			HighlightStyle: r.cfg.highlightStyle,
			SoftBreaks:     r.cfg.softBreaks,
		})
	}
	r.sanitizer = pipeline.NewSanitizer()
	return r
}

// RenderRequest validates a wire request and renders it.
func (r *Renderer) RenderRequest(ctx context.Context, req Request) (*RenderedContent, error) {
	src, err := req.Source()
	if err != nil {
		return nil, err
	}
	return r.Render(ctx, src)
}

// Render runs the pipeline for one source.
// Returns an error wrapping ErrContentValidation for a missing source and
// ErrContentRender for an inconsistent document tree. Internal panics are
// recovered into ErrContentRender.
func (r *Renderer) Render(ctx context.Context, src Source) (result *RenderedContent, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("%w: internal error: %v", ErrContentRender, rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	switch s := src.(type) {
	case StructuredSource:
		result, err = r.renderStructured(ctx, s.Tree)
	case *StructuredSource:
		if s == nil {
			return nil, fmt.Errorf("%w: structuredTree required", ErrContentValidation)
		}
		result, err = r.renderStructured(ctx, s.Tree)
	case MarkupSource:
		result, err = r.renderMarkup(ctx, s.Text)
	case *MarkupSource:
		if s == nil {
			return nil, fmt.Errorf("%w: markupText required", ErrContentValidation)
		}
		result, err = r.renderMarkup(ctx, s.Text)
	case nil:
		return nil, fmt.Errorf("%w: content source required", ErrContentValidation)
	default:
		return nil, fmt.Errorf("%w: unsupported content source %T", ErrContentValidation, src)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug("content rendered",
		zap.String("contentType", string(src.ContentType())),
		zap.Int("headings", len(result.Headings)),
		zap.Int("wordCount", result.WordCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (r *Renderer) renderStructured(ctx context.Context, tree *Node) (*RenderedContent, error) {
	if tree.IsEmpty() {
		return nil, fmt.Errorf("%w: structuredTree required", ErrContentValidation)
	}

	fragment, err := r.structured.Render(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentRender, err)
	}

	// The tree carries text boundaries more faithfully than the HTML.
	return r.finish(ctx, fragment, doctree.PlainText(tree), false)
}

func (r *Renderer) renderMarkup(ctx context.Context, text string) (*RenderedContent, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: markupText required", ErrContentValidation)
	}

	fragment, err := r.markup.ToHTML(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("converting markup: %w", err)
	}
	return r.finish(ctx, fragment, "", true)
}

// finish runs the stages shared by both formats: anchors, sanitization and
// metrics. Plain text is derived from the sanitized HTML when stripTags is set.
func (r *Renderer) finish(ctx context.Context, fragment, plain string, stripTags bool) (*RenderedContent, error) {
	withIDs, headings, err := pipeline.InjectHeadingIDs(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentRender, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := r.sanitizer.Sanitize(withIDs, r.cfg.filter)
	if stripTags {
		plain = pipeline.StripTags(clean)
	}

	words := pipeline.CountWords(plain)
	return &RenderedContent{
		HTML:      clean,
		Headings:  headings,
		PlainText: plain,
		WordCount: words,
		ReadTime:  pipeline.ReadTime(words),
	}, nil
}

// Sanitize applies the renderer's allowlist and attribute filter to
// arbitrary HTML.
func (r *Renderer) Sanitize(fragment string) string {
	return r.sanitizer.Sanitize(fragment, r.cfg.filter)
}

// DefaultStylesheet styles preview pages, including chroma classes.
var DefaultStylesheet = assets.MustLoadStyle(assets.DefaultStyleName)

// RenderTOC returns a numbered table of contents linking to the heading
// anchors, or "" when no heading is selected.
func RenderTOC(headings []Heading, opts TOCOptions) string {
	return pipeline.RenderTOC(headings, opts)
}

// PreviewPage wraps rendered content in a standalone HTML page. A nil toc
// omits the table of contents; an empty css omits the stylesheet.
func PreviewPage(ctx context.Context, title string, content *RenderedContent, toc *TOCOptions, css string) string {
	if content == nil {
		content = &RenderedContent{}
	}
	return pipeline.PreviewPage(ctx, title, content.HTML, content.Headings, toc, css)
}
