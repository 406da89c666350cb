package contentrender

// Notes:
// - Structured trees are written as JSON, the way the editor sends them
// - mockHTMLConverter replaces goldmark to exercise error and panic paths
// - End-to-end tests render small documents through the whole pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/alnah/go-contentrender/internal/doctree"
	"github.com/alnah/go-contentrender/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

type mockHTMLConverter struct {
	output  string
	err     error
	panics  bool
	called  bool
	content string
}

func (m *mockHTMLConverter) ToHTML(ctx context.Context, content string) (string, error) {
	m.called = true
	m.content = content
	if m.panics {
		panic("converter exploded")
	}
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

func withMarkupConverter(c pipeline.HTMLConverter) Option {
	return func(r *Renderer) {
		r.markup = c
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mustTree(t *testing.T, doc string) *Node {
	t.Helper()
	tree, err := doctree.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parsing tree: %v", err)
	}
	return tree
}

func paragraphOfWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return fmt.Sprintf(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":%q}]}]}`,
		strings.Join(words, " "))
}

// ---------------------------------------------------------------------------
// End-to-end rendering
// ---------------------------------------------------------------------------

func TestRender_MarkupTitleAndParagraph(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	got, err := r.Render(context.Background(), MarkupSource{Text: "# Title\n\nHello *world*"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	wantHeadings := []Heading{{Level: 1, Text: "Title", ID: "title"}}
	if !reflect.DeepEqual(got.Headings, wantHeadings) {
		t.Errorf("Headings = %+v, want %+v", got.Headings, wantHeadings)
	}
	if !strings.Contains(got.PlainText, "Hello world") {
		t.Errorf("PlainText = %q, should contain %q", got.PlainText, "Hello world")
	}
	if got.WordCount != 2 {
		t.Errorf("WordCount = %d, want 2", got.WordCount)
	}
	if got.ReadTime != 1 {
		t.Errorf("ReadTime = %d, want 1", got.ReadTime)
	}
	if !strings.Contains(got.HTML, `<h1 id="title">Title</h1>`) {
		t.Errorf("HTML = %q, missing anchored heading", got.HTML)
	}
}

func TestRender_DuplicateHeadingTitles(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Intro"}]},
		{"type":"paragraph","content":[{"type":"text","text":"a"}]},
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Intro"}]}
	]}`)

	got, err := NewRenderer().Render(context.Background(), StructuredSource{Tree: tree})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := []Heading{
		{Level: 2, Text: "Intro", ID: "intro"},
		{Level: 2, Text: "Intro", ID: "intro-2"},
	}
	if !reflect.DeepEqual(got.Headings, want) {
		t.Errorf("Headings = %+v, want %+v", got.Headings, want)
	}
	if !strings.Contains(got.HTML, `<h2 id="intro-2">Intro</h2>`) {
		t.Errorf("HTML = %q, missing suffixed anchor", got.HTML)
	}
}

func TestRender_JavascriptImageSourceDropped(t *testing.T) {
	t.Parallel()

	got, err := NewRenderer().Render(context.Background(),
		MarkupSource{Text: `<p><img src="javascript:alert(1)" alt="x"></p>`})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(got.HTML, "src=") || strings.Contains(got.HTML, "javascript") {
		t.Errorf("HTML = %q, src should be removed entirely", got.HTML)
	}
}

func TestRender_StructuredWordCountAndReadTime(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, paragraphOfWords(201))
	got, err := NewRenderer().Render(context.Background(), StructuredSource{Tree: tree})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got.WordCount != 201 {
		t.Errorf("WordCount = %d, want 201", got.WordCount)
	}
	if got.ReadTime != 2 {
		t.Errorf("ReadTime = %d, want 2", got.ReadTime)
	}
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	sources := []Source{
		MarkupSource{Text: "# A\n\n## A\n\ntext with `code` and [link](https://example.com)\n\n```go\nfunc f() {}\n```"},
		StructuredSource{Tree: mustTree(t, `{"type":"doc","content":[
			{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"설치 방법"}]},
			{"type":"codeBlock","attrs":{"language":"go"},"content":[{"type":"text","text":"package main"}]},
			{"type":"paragraph","content":[{"type":"text","text":"red","marks":[{"type":"textStyle","attrs":{"color":"#ff0000"}}]}]}
		]}`)},
	}

	for _, src := range sources {
		first, err := r.Render(context.Background(), src)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		for i := 0; i < 3; i++ {
			again, err := r.Render(context.Background(), src)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !reflect.DeepEqual(first, again) {
				t.Fatalf("render %d differs:\n%+v\n%+v", i, first, again)
			}
		}
	}
}

func TestRender_StructuredHeadingLevelCapped(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":5},"content":[{"type":"text","text":"Deep"}]}
	]}`)
	got, err := NewRenderer().Render(context.Background(), StructuredSource{Tree: tree})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(got.Headings) != 1 || got.Headings[0].Level != 3 {
		t.Errorf("Headings = %+v, want one level-3 heading", got.Headings)
	}
}

func TestRender_MarkupHeadingLevelsUpToSix(t *testing.T) {
	t.Parallel()

	got, err := NewRenderer().Render(context.Background(), MarkupSource{Text: "###### Six"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(got.Headings) != 1 || got.Headings[0].Level != 6 {
		t.Errorf("Headings = %+v, want one level-6 heading", got.Headings)
	}
}

func TestRender_HeadingTextExcludedFromPlainText(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Title"}]},
		{"type":"paragraph","content":[{"type":"text","text":"Hello world"}]}
	]}`)
	structured, err := NewRenderer().Render(context.Background(), StructuredSource{Tree: tree})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	markup, err := NewRenderer().Render(context.Background(), MarkupSource{Text: "# Title\n\nHello world"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if structured.PlainText != "Hello world" || markup.PlainText != "Hello world" {
		t.Errorf("PlainText structured=%q markup=%q, want both %q", structured.PlainText, markup.PlainText, "Hello world")
	}
	if structured.WordCount != markup.WordCount {
		t.Errorf("WordCount structured=%d markup=%d, want equal", structured.WordCount, markup.WordCount)
	}
}

func TestRender_StructuredOutputIsSanitized(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, `{"type":"doc","content":[
		{"type":"paragraph","content":[
			{"type":"text","text":"x","marks":[{"type":"link","attrs":{"href":"javascript:alert(1)"}}]},
			{"type":"text","text":"y","marks":[{"type":"textStyle","attrs":{"color":"red; background: url(x)"}}]}
		]},
		{"type":"image","attrs":{"src":"javascript:alert(1)","alt":"a"}}
	]}`)
	got, err := NewRenderer().Render(context.Background(), StructuredSource{Tree: tree})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, unwanted := range []string{"javascript", "background", "url("} {
		if strings.Contains(got.HTML, unwanted) {
			t.Errorf("HTML = %q, should not contain %q", got.HTML, unwanted)
		}
	}
}

func TestRender_CustomAttributeFilter(t *testing.T) {
	t.Parallel()

	noClasses := func(tag, attr, val string) AttrVerdict {
		if attr == "class" {
			return Drop()
		}
		return DefaultAttributeFilter(tag, attr, val)
	}
	r := NewRenderer(WithAttributeFilter(noClasses))

	got, err := r.Render(context.Background(), MarkupSource{Text: `<div class="note">x</div>`})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(got.HTML, "class=") {
		t.Errorf("HTML = %q, classes should be dropped", got.HTML)
	}
}

func TestRender_SoftBreaks(t *testing.T) {
	t.Parallel()

	hard, err := NewRenderer().Render(context.Background(), MarkupSource{Text: "a\nb"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	soft, err := NewRenderer(WithSoftBreaks(true)).Render(context.Background(), MarkupSource{Text: "a\nb"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(hard.HTML, "<br") {
		t.Errorf("default HTML = %q, want <br>", hard.HTML)
	}
	if strings.Contains(soft.HTML, "<br") {
		t.Errorf("soft-break HTML = %q, want no <br>", soft.HTML)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestRender_ValidationErrors(t *testing.T) {
	t.Parallel()

	var nilStructured *StructuredSource
	tests := []struct {
		name string
		src  Source
	}{
		{"nil source", nil},
		{"nil structured pointer", nilStructured},
		{"nil tree", StructuredSource{}},
		{"empty markup", MarkupSource{}},
		{"whitespace markup", MarkupSource{Text: " \n\t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRenderer().Render(context.Background(), tt.src)
			if !errors.Is(err, ErrContentValidation) {
				t.Errorf("Render() error = %v, want ErrContentValidation", err)
			}
		})
	}
}

func TestRender_InvalidTree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"text with children", `{"type":"doc","content":[{"type":"text","text":"a","content":[{"type":"text","text":"b"}]}]}`},
		{"image with children", `{"type":"doc","content":[{"type":"image","content":[{"type":"paragraph"}]}]}`},
		{"missing type", `{"type":"doc","content":[{"content":[]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRenderer().Render(context.Background(), StructuredSource{Tree: mustTree(t, tt.doc)})
			if !errors.Is(err, ErrContentRender) {
				t.Errorf("Render() error = %v, want ErrContentRender", err)
			}
			if !errors.Is(err, doctree.ErrInvalidTree) {
				t.Errorf("Render() error = %v, should wrap doctree.ErrInvalidTree", err)
			}
		})
	}
}

func TestRender_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	r := NewRenderer(withMarkupConverter(&mockHTMLConverter{panics: true}))
	got, err := r.Render(context.Background(), MarkupSource{Text: "x"})
	if got != nil {
		t.Errorf("Render() result = %+v, want nil", got)
	}
	if !errors.Is(err, ErrContentRender) {
		t.Errorf("Render() error = %v, want ErrContentRender", err)
	}
}

func TestRender_ConverterError(t *testing.T) {
	t.Parallel()

	convErr := errors.New("boom")
	r := NewRenderer(withMarkupConverter(&mockHTMLConverter{err: convErr}))
	if _, err := r.Render(context.Background(), MarkupSource{Text: "x"}); !errors.Is(err, convErr) {
		t.Errorf("Render() error = %v, want %v", err, convErr)
	}
}

func TestRender_UsesInjectedConverter(t *testing.T) {
	t.Parallel()

	mock := &mockHTMLConverter{output: "<h2>From Mock</h2><p>one two three</p>"}
	got, err := NewRenderer(withMarkupConverter(mock)).Render(context.Background(), MarkupSource{Text: "ignored"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !mock.called || mock.content != "ignored" {
		t.Errorf("converter called=%v content=%q", mock.called, mock.content)
	}
	if got.WordCount != 3 || len(got.Headings) != 1 || got.Headings[0].ID != "from-mock" {
		t.Errorf("got %+v", got)
	}
}

func TestRender_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &mockHTMLConverter{output: "<p>x</p>"}
	_, err := NewRenderer(withMarkupConverter(mock)).Render(ctx, MarkupSource{Text: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
	if mock.called {
		t.Error("converter should not run for a cancelled context")
	}
}

// ---------------------------------------------------------------------------
// Request dispatch
// ---------------------------------------------------------------------------

func TestRequest_Source(t *testing.T) {
	t.Parallel()

	text := "# Hi"
	blank := "   "
	tests := []struct {
		name     string
		req      Request
		wantType ContentType
		wantErr  string
	}{
		{
			name:     "markup",
			req:      Request{ContentType: ContentTypeMarkup, MarkupText: &text},
			wantType: ContentTypeMarkup,
		},
		{
			name:     "structured",
			req:      Request{ContentType: ContentTypeStructured, StructuredTree: json.RawMessage(`{"type":"doc"}`)},
			wantType: ContentTypeStructured,
		},
		{
			name:    "markup missing",
			req:     Request{ContentType: ContentTypeMarkup},
			wantErr: "markupText required",
		},
		{
			name:    "markup blank",
			req:     Request{ContentType: ContentTypeMarkup, MarkupText: &blank},
			wantErr: "markupText required",
		},
		{
			name:    "markup request carrying only a tree",
			req:     Request{ContentType: ContentTypeMarkup, StructuredTree: json.RawMessage(`{"type":"doc"}`)},
			wantErr: "markupText required",
		},
		{
			name:    "structured missing",
			req:     Request{ContentType: ContentTypeStructured},
			wantErr: "structuredTree required",
		},
		{
			name:    "structured null",
			req:     Request{ContentType: ContentTypeStructured, StructuredTree: json.RawMessage(`null`)},
			wantErr: "structuredTree required",
		},
		{
			name:    "structured empty object",
			req:     Request{ContentType: ContentTypeStructured, StructuredTree: json.RawMessage(`{}`)},
			wantErr: "structuredTree required",
		},
		{
			name:    "structured request carrying only text",
			req:     Request{ContentType: ContentTypeStructured, MarkupText: &text},
			wantErr: "structuredTree required",
		},
		{
			name:    "structured not a document",
			req:     Request{ContentType: ContentTypeStructured, StructuredTree: json.RawMessage(`[1,2]`)},
			wantErr: "structuredTree is not a valid document",
		},
		{
			name:    "unknown type",
			req:     Request{ContentType: "rtf", MarkupText: &text},
			wantErr: `unsupported content type "rtf"`,
		},
		{
			name:    "missing type",
			req:     Request{MarkupText: &text},
			wantErr: "unsupported content type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, err := tt.req.Source()
			if tt.wantErr != "" {
				if !errors.Is(err, ErrContentValidation) {
					t.Fatalf("Source() error = %v, want ErrContentValidation", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Source() error = %q, should contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Source() error = %v", err)
			}
			if src.ContentType() != tt.wantType {
				t.Errorf("ContentType() = %q, want %q", src.ContentType(), tt.wantType)
			}
		})
	}
}

func TestRequest_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	body := `{"contentType":"structured","structuredTree":{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi there"}]}]}}`
	var req Request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	got, err := NewRenderer().RenderRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("RenderRequest() error = %v", err)
	}
	if got.HTML != "<p>hi there</p>" || got.WordCount != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestRenderRequest_ValidationBeforeRendering(t *testing.T) {
	t.Parallel()

	mock := &mockHTMLConverter{output: "<p>x</p>"}
	_, err := NewRenderer(withMarkupConverter(mock)).RenderRequest(context.Background(), Request{ContentType: ContentTypeMarkup})
	if !errors.Is(err, ErrContentValidation) {
		t.Fatalf("RenderRequest() error = %v, want ErrContentValidation", err)
	}
	if mock.called {
		t.Error("converter should not run when validation fails")
	}
}

func TestRenderedContent_JSONShape(t *testing.T) {
	t.Parallel()

	got, err := NewRenderer().RenderRequest(context.Background(), NewMarkupRequest("# T\n\nbody"))
	if err != nil {
		t.Fatalf("RenderRequest() error = %v", err)
	}
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{`"html"`, `"headings":[{"level":1,"text":"T","id":"t"}]`, `"plainText":"body"`, `"wordCount":1`, `"readTime":1`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON %s missing %s", data, key)
		}
	}
}

func TestPreviewPage(t *testing.T) {
	t.Parallel()

	content, err := NewRenderer().Render(context.Background(), MarkupSource{Text: "# One\n\n## Two\n\ntext"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	page := PreviewPage(context.Background(), "Doc", content, &TOCOptions{Title: "Contents"}, DefaultStylesheet)
	for _, want := range []string{`<a href="#one">1. One</a>`, `<a href="#two">1.1. Two</a>`, `<h2 id="two">Two</h2>`, "<style>"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}

	if toc := RenderTOC(content.Headings, TOCOptions{MinDepth: 2}); !strings.Contains(toc, `<a href="#two">1. Two</a>`) {
		t.Errorf("RenderTOC() = %q", toc)
	}
}
