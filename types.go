package contentrender

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-contentrender/internal/doctree"
	"github.com/alnah/go-contentrender/internal/pipeline"
)

// ContentType discriminates the two source formats.
type ContentType string

// Content type constants.
const (
	ContentTypeStructured ContentType = "structured"
	ContentTypeMarkup     ContentType = "markup"
)

// Node is one node of a structured document tree.
type Node = doctree.Node

// Mark is an inline annotation on a text node.
type Mark = doctree.Mark

// Heading is one table of contents entry with its anchor id.
type Heading = pipeline.Heading

// TOCOptions selects the headings shown by RenderTOC.
type TOCOptions = pipeline.TOCOptions

// Attribute filtering, re-exported so callers can supply their own rules.
type (
	AttributeFilter = pipeline.AttributeFilter
	AttrVerdict     = pipeline.AttrVerdict
)

// Keep, Drop and Rewrite build attribute filter verdicts.
var (
	Keep    = pipeline.Keep
	Drop    = pipeline.Drop
	Rewrite = pipeline.Rewrite
)

// DefaultAttributeFilter is the filter used when none is configured.
var DefaultAttributeFilter AttributeFilter = pipeline.DefaultAttributeFilter

// Source is the document to render: either a StructuredSource or a
// MarkupSource. The set is closed.
type Source interface {
	ContentType() ContentType
	isSource()
}

// StructuredSource is an editor node tree.
type StructuredSource struct {
	Tree *Node
}

// ContentType implements Source.
func (StructuredSource) ContentType() ContentType { return ContentTypeStructured }
func (StructuredSource) isSource()                {}

// MarkupSource is lightweight markup text.
type MarkupSource struct {
	Text string
}

// ContentType implements Source.
func (MarkupSource) ContentType() ContentType { return ContentTypeMarkup }
func (MarkupSource) isSource()                {}

// Request is the wire shape of a render request. Exactly the payload field
// matching ContentType must be present.
type Request struct {
	ContentType    ContentType     `json:"contentType"`
	StructuredTree json.RawMessage `json:"structuredTree,omitempty"`
	MarkupText     *string         `json:"markupText,omitempty"`
}

// Source validates the request and returns the matching Source.
// Every failure wraps ErrContentValidation.
func (r Request) Source() (Source, error) {
	switch r.ContentType {
	case ContentTypeStructured:
		raw := bytes.TrimSpace(r.StructuredTree)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return nil, fmt.Errorf("%w: structuredTree required", ErrContentValidation)
		}
		tree, err := doctree.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: structuredTree is not a valid document: %v", ErrContentValidation, err)
		}
		if tree.IsEmpty() {
			return nil, fmt.Errorf("%w: structuredTree required", ErrContentValidation)
		}
		return StructuredSource{Tree: tree}, nil

	case ContentTypeMarkup:
		if r.MarkupText == nil || strings.TrimSpace(*r.MarkupText) == "" {
			return nil, fmt.Errorf("%w: markupText required", ErrContentValidation)
		}
		return MarkupSource{Text: *r.MarkupText}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrContentValidation, r.ContentType)
	}
}

// NewMarkupRequest builds a markup request.
func NewMarkupRequest(text string) Request {
	return Request{ContentType: ContentTypeMarkup, MarkupText: &text}
}

// NewStructuredRequest builds a structured request from an encoded tree.
func NewStructuredRequest(tree json.RawMessage) Request {
	return Request{ContentType: ContentTypeStructured, StructuredTree: tree}
}

// RenderedContent is the derived, cacheable projection of a source.
type RenderedContent struct {
	HTML      string    `json:"html"`
	Headings  []Heading `json:"headings"`
	PlainText string    `json:"plainText"`
	WordCount int       `json:"wordCount"` // >= 0
	ReadTime  int       `json:"readTime"`  // minutes, >= 1
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHighlightStyle sets the chroma style used for code blocks.
func WithHighlightStyle(style string) Option {
	return func(r *Renderer) {
		r.cfg.highlightStyle = style
	}
}

// WithSoftBreaks keeps single newlines in markup as spaces instead of <br>.
func WithSoftBreaks(soft bool) Option {
	return func(r *Renderer) {
		r.cfg.softBreaks = soft
	}
}

// WithAttributeFilter replaces DefaultAttributeFilter. The filter can only
// narrow what the allowlist admits.
func WithAttributeFilter(f AttributeFilter) Option {
	return func(r *Renderer) {
		r.cfg.filter = f
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}
