package contentrender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultFallbackHTML replaces the content of a document that cannot be
// rendered on a read path.
const DefaultFallbackHTML = `<p class="content-unavailable">콘텐츠를 표시할 수 없습니다.</p>`

// StoredDocument is a source together with its cached projection.
// A nil derived field means the projection is absent and must be rebuilt.
type StoredDocument struct {
	ID        string    `json:"id"`
	Request   Request   `json:"request"`
	HTML      *string   `json:"html,omitempty"`
	Headings  []Heading `json:"headings"` // nil = absent, empty = no headings
	PlainText *string   `json:"plainText,omitempty"`
	WordCount *int      `json:"wordCount,omitempty"`
	ReadTime  *int      `json:"readTime,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists documents. Get returns an error wrapping ErrNotFound for an
// unknown id. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (*StoredDocument, error)
	Put(ctx context.Context, doc *StoredDocument) error
}

// Stale reports whether any cached projection field is absent.
func (d *StoredDocument) Stale() bool {
	return d.HTML == nil || d.PlainText == nil || d.Headings == nil ||
		d.WordCount == nil || d.ReadTime == nil
}

// Content returns the cached projection. Absent fields read as zero values,
// except ReadTime which never drops below one minute.
func (d *StoredDocument) Content() RenderedContent {
	c := RenderedContent{Headings: d.Headings, ReadTime: 1}
	if c.Headings == nil {
		c.Headings = []Heading{}
	}
	if d.HTML != nil {
		c.HTML = *d.HTML
	}
	if d.PlainText != nil {
		c.PlainText = *d.PlainText
	}
	if d.WordCount != nil {
		c.WordCount = *d.WordCount
	}
	if d.ReadTime != nil && *d.ReadTime > 0 {
		c.ReadTime = *d.ReadTime
	}
	return c
}

func (d *StoredDocument) apply(c *RenderedContent) {
	html, plain, words, readTime := c.HTML, c.PlainText, c.WordCount, c.ReadTime
	d.HTML = &html
	d.PlainText = &plain
	d.WordCount = &words
	d.ReadTime = &readTime
	d.Headings = c.Headings
	if d.Headings == nil {
		d.Headings = []Heading{}
	}
}

// BackfillOption configures a Backfiller.
type BackfillOption func(*Backfiller)

// WithFallbackHTML sets the fragment shown for unrenderable documents.
// It is sanitized like rendered content.
func WithFallbackHTML(fragment string) BackfillOption {
	return func(b *Backfiller) {
		b.fallbackHTML = fragment
	}
}

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) BackfillOption {
	return func(b *Backfiller) {
		if now != nil {
			b.now = now
		}
	}
}

// Backfiller keeps stored projections in step with their sources. Reads
// rebuild absent projections lazily; writes render before persisting.
// Concurrent rebuilds of one document write identical results, so no
// locking is done.
type Backfiller struct {
	store        Store
	renderer     *Renderer
	logger       *zap.Logger
	fallbackHTML string
	now          func() time.Time
}

// NewBackfiller creates a Backfiller. A nil renderer means NewRenderer().
func NewBackfiller(store Store, renderer *Renderer, opts ...BackfillOption) *Backfiller {
	if renderer == nil {
		renderer = NewRenderer()
	}
	b := &Backfiller{
		store:        store,
		renderer:     renderer,
		logger:       renderer.logger,
		fallbackHTML: DefaultFallbackHTML,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.fallbackHTML = renderer.Sanitize(b.fallbackHTML)
	return b
}

// Load returns the document with a complete projection.
// Store read errors are returned. Render failures are not: the document is
// returned with fallback content, and nothing is written back. Write-back
// failures after a successful render are logged and ignored.
func (b *Backfiller) Load(ctx context.Context, id string) (*StoredDocument, error) {
	doc, err := b.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Stale() {
		return doc, nil
	}

	content, err := b.renderer.RenderRequest(ctx, doc.Request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.logger.Warn("rendering stored document failed, serving fallback",
			zap.String("id", id),
			zap.String("contentType", string(doc.Request.ContentType)),
			zap.Error(err),
		)
		b.applyFallback(doc)
		return doc, nil
	}

	doc.apply(content)
	doc.UpdatedAt = b.now()
	if err := b.store.Put(ctx, doc); err != nil {
		b.logger.Warn("writing back rendered projection failed",
			zap.String("id", id),
			zap.Error(err),
		)
	} else {
		b.logger.Debug("projection backfilled", zap.String("id", id))
	}
	return doc, nil
}

// applyFallback substitutes fallback content. ReadTime keeps its prior value.
func (b *Backfiller) applyFallback(doc *StoredDocument) {
	html, plain, words := b.fallbackHTML, "", 0
	doc.HTML = &html
	doc.PlainText = &plain
	doc.WordCount = &words
	doc.Headings = []Heading{}
}

// Save renders req and persists it under id together with its projection.
// Validation and render errors are returned and nothing is written.
func (b *Backfiller) Save(ctx context.Context, id string, req Request) (*StoredDocument, error) {
	if id == "" {
		return nil, errors.New("document id cannot be empty")
	}

	content, err := b.renderer.RenderRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	doc := &StoredDocument{ID: id, Request: req, UpdatedAt: b.now()}
	doc.apply(content)
	if err := b.store.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("storing document %q: %w", id, err)
	}

	b.logger.Info("document saved",
		zap.String("id", id),
		zap.String("contentType", string(req.ContentType)),
		zap.Int("wordCount", content.WordCount),
	)
	return doc, nil
}
