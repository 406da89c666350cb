package doctree

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, doc string) *Node {
	t.Helper()
	n, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return n
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		doc      string
		expected string
	}{
		{
			name:     "paragraph",
			doc:      `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Hello"}]}]}`,
			expected: `<p>Hello</p>`,
		},
		{
			name:     "heading level 2",
			doc:      `{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Intro"}]}`,
			expected: `<h2>Intro</h2>`,
		},
		{
			name:     "heading level 5 collapses to 3",
			doc:      `{"type":"heading","attrs":{"level":5},"content":[{"type":"text","text":"Deep"}]}`,
			expected: `<h3>Deep</h3>`,
		},
		{
			name:     "heading without level is h1",
			doc:      `{"type":"heading","content":[{"type":"text","text":"Top"}]}`,
			expected: `<h1>Top</h1>`,
		},
		{
			name:     "heading keeps author id",
			doc:      `{"type":"heading","attrs":{"level":1,"id":"custom"},"content":[{"type":"text","text":"Top"}]}`,
			expected: `<h1 id="custom">Top</h1>`,
		},
		{
			name:     "bullet list",
			doc:      `{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"a"}]}]}]}`,
			expected: `<ul><li><p>a</p></li></ul>`,
		},
		{
			name:     "ordered list",
			doc:      `{"type":"orderedList","content":[{"type":"listItem","content":[{"type":"text","text":"a"}]}]}`,
			expected: `<ol><li>a</li></ol>`,
		},
		{
			name:     "task item checked",
			doc:      `{"type":"taskList","content":[{"type":"taskItem","attrs":{"checked":true},"content":[{"type":"text","text":"done"}]}]}`,
			expected: `<ul class="task-list"><li class="task-list-item"><label><input type="checkbox" disabled checked></label><div>done</div></li></ul>`,
		},
		{
			name:     "task item unchecked",
			doc:      `{"type":"taskItem","attrs":{"checked":false},"content":[{"type":"text","text":"todo"}]}`,
			expected: `<li class="task-list-item"><label><input type="checkbox" disabled></label><div>todo</div></li>`,
		},
		{
			name:     "blockquote",
			doc:      `{"type":"blockquote","content":[{"type":"paragraph","content":[{"type":"text","text":"q"}]}]}`,
			expected: `<blockquote><p>q</p></blockquote>`,
		},
		{
			name:     "code block without language is escaped",
			doc:      `{"type":"codeBlock","content":[{"type":"text","text":"a < b"}]}`,
			expected: `<pre><code>a &lt; b</code></pre>`,
		},
		{
			name:     "table with spans",
			doc:      `{"type":"table","content":[{"type":"tableRow","content":[{"type":"tableHeader","attrs":{"colspan":2},"content":[{"type":"text","text":"h"}]}]},{"type":"tableRow","content":[{"type":"tableCell","attrs":{"rowspan":1},"content":[{"type":"text","text":"c"}]}]}]}`,
			expected: `<table><tbody><tr><th colspan="2">h</th></tr><tr><td>c</td></tr></tbody></table>`,
		},
		{
			name:     "image with dimensions",
			doc:      `{"type":"image","attrs":{"src":"https://x.test/a.png","alt":"A","width":320,"height":"200"}}`,
			expected: `<img src="https://x.test/a.png" alt="A" width="320" height="200" loading="lazy">`,
		},
		{
			name:     "image without src is skipped",
			doc:      `{"type":"image","attrs":{"alt":"A"}}`,
			expected: ``,
		},
		{
			name:     "link node",
			doc:      `{"type":"link","attrs":{"href":"https://x.test"},"content":[{"type":"text","text":"x"}]}`,
			expected: `<a href="https://x.test" target="_blank" rel="noopener noreferrer">x</a>`,
		},
		{
			name:     "hard break and rule",
			doc:      `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a"},{"type":"hardBreak"},{"type":"text","text":"b"}]},{"type":"horizontalRule"}]}`,
			expected: `<p>a<br>b</p><hr>`,
		},
		{
			name:     "text is escaped",
			doc:      `{"type":"paragraph","content":[{"type":"text","text":"<script>alert(1)</script>"}]}`,
			expected: `<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>`,
		},
		{
			name:     "marks nest in fixed order",
			doc:      `{"type":"text","text":"x","marks":[{"type":"italic"},{"type":"bold"}]}`,
			expected: `<strong><em>x</em></strong>`,
		},
		{
			name:     "all simple marks",
			doc:      `{"type":"text","text":"x","marks":[{"type":"code"},{"type":"strike"},{"type":"underline"},{"type":"highlight"}]}`,
			expected: `<mark><u><s><code>x</code></s></u></mark>`,
		},
		{
			name:     "text color mark",
			doc:      `{"type":"text","text":"red","marks":[{"type":"textStyle","attrs":{"color":"#ff0000"}}]}`,
			expected: `<span style="color: #ff0000">red</span>`,
		},
		{
			name:     "link mark wraps outermost",
			doc:      `{"type":"text","text":"go","marks":[{"type":"bold"},{"type":"link","attrs":{"href":"/docs"}}]}`,
			expected: `<a href="/docs" target="_blank" rel="noopener noreferrer"><strong>go</strong></a>`,
		},
		{
			name:     "unknown mark ignored",
			doc:      `{"type":"text","text":"x","marks":[{"type":"sparkle"}]}`,
			expected: `x`,
		},
		{
			name:     "text align attribute",
			doc:      `{"type":"paragraph","attrs":{"textAlign":"center"},"content":[{"type":"text","text":"c"}]}`,
			expected: `<p class="text-align-center">c</p>`,
		},
		{
			name:     "text align mark",
			doc:      `{"type":"paragraph","marks":[{"type":"textAlign","attrs":{"align":"right"}}],"content":[{"type":"text","text":"r"}]}`,
			expected: `<p class="text-align-right">r</p>`,
		},
		{
			name:     "left alignment emits nothing",
			doc:      `{"type":"paragraph","attrs":{"textAlign":"left"},"content":[{"type":"text","text":"l"}]}`,
			expected: `<p>l</p>`,
		},
		{
			name:     "inline math",
			doc:      `{"type":"mathInline","attrs":{"latex":"x^2"}}`,
			expected: `<math xmlns="http://www.w3.org/1998/Math/MathML"><semantics><mrow><mtext>x^2</mtext></mrow><annotation encoding="application/x-tex">x^2</annotation></semantics></math>`,
		},
		{
			name:     "block math",
			doc:      `{"type":"mathBlock","attrs":{"latex":"a<b"}}`,
			expected: `<div class="math-block"><math xmlns="http://www.w3.org/1998/Math/MathML"><semantics><mrow><mtext>a&lt;b</mtext></mrow><annotation encoding="application/x-tex">a&lt;b</annotation></semantics></math></div>`,
		},
		{
			name:     "youtube embed",
			doc:      `{"type":"youtube","attrs":{"src":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}}`,
			expected: `<div class="video-embed"><iframe src="https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ" width="640" height="360" frameborder="0" allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" allowfullscreen loading="lazy" title="Embedded video"></iframe></div>`,
		},
		{
			name:     "video from unknown host is skipped",
			doc:      `{"type":"youtube","attrs":{"src":"https://evil.test/watch?v=dQw4w9WgXcQ"}}`,
			expected: ``,
		},
		{
			name:     "unknown kind skipped with children",
			doc:      `{"type":"doc","content":[{"type":"sparkle","content":[{"type":"text","text":"hidden"}]},{"type":"paragraph","content":[{"type":"text","text":"shown"}]}]}`,
			expected: `<p>shown</p>`,
		},
	}

	r := NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Render(mustParse(t, tt.doc))
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Render() =\n%s\nwant\n%s", got, tt.expected)
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
		{
			name: "text with children",
			doc:  `{"type":"paragraph","content":[{"type":"text","text":"a","content":[{"type":"text","text":"b"}]}]}`,
		},
		{
			name: "image with children",
			doc:  `{"type":"image","attrs":{"src":"/a.png"},"content":[{"type":"text","text":"b"}]}`,
		},
		{
			name: "horizontal rule with children",
			doc:  `{"type":"doc","content":[{"type":"horizontalRule","content":[{"type":"paragraph"}]}]}`,
		},
		{
			name: "node without type",
			doc:  `{"type":"doc","content":[{"content":[{"type":"text","text":"a"}]}]}`,
		},
	}

	r := NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Render(mustParse(t, tt.doc))
			if !errors.Is(err, ErrInvalidTree) {
				t.Fatalf("Render() error = %v, want ErrInvalidTree", err)
			}
			if got != "" {
				t.Errorf("Render() returned partial output %q", got)
			}
		})
	}
}

func TestRender_DepthLimit(t *testing.T) {
	t.Parallel()

	root := &Node{Type: KindDoc}
	cur := root
	for i := 0; i < MaxDepth+5; i++ {
		child := &Node{Type: KindBlockquote}
		cur.Content = []*Node{child}
		cur = child
	}

	_, err := NewRenderer().Render(root)
	if !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("Render() error = %v, want ErrInvalidTree", err)
	}
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	doc := `{"type":"doc","content":[{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"T"}]},{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"bold"},{"type":"italic"},{"type":"textStyle","attrs":{"color":"red"}}]}]}]}`
	r := NewRenderer()

	first, err := r.Render(mustParse(t, doc))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Render(mustParse(t, doc))
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if again != first {
			t.Fatalf("render %d differs:\n%s\nvs\n%s", i, again, first)
		}
	}
}

func TestRender_CodeBlockHighlighting(t *testing.T) {
	t.Parallel()

	doc := `{"type":"codeBlock","attrs":{"language":"go"},"content":[{"type":"text","text":"package main"}]}`
	r := NewRenderer(WithHighlighter(NewHighlighter("github")))

	got, err := r.Render(mustParse(t, doc))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(got, `<pre><code class="language-go">`) {
		t.Errorf("missing language class: %s", got)
	}
	if !strings.Contains(got, `class="`) || !strings.Contains(got, "package") {
		t.Errorf("expected highlighted spans, got %s", got)
	}
	if strings.Contains(got, "style=") {
		t.Errorf("highlighter must emit classes, not inline styles: %s", got)
	}
}

func TestRender_UnknownLanguageFallsBackToEscaping(t *testing.T) {
	t.Parallel()

	doc := `{"type":"codeBlock","attrs":{"language":"no-such-lang"},"content":[{"type":"text","text":"<b>"}]}`
	r := NewRenderer(WithHighlighter(NewHighlighter("github")))

	got, err := r.Render(mustParse(t, doc))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<pre><code class="language-no-such-lang">&lt;b&gt;</code></pre>`
	if got != want {
		t.Errorf("Render() = %s, want %s", got, want)
	}
}

func TestVideoEmbedURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", true},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", true},
		{"youtube embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", true},
		{"vimeo", "https://vimeo.com/123456", "https://player.vimeo.com/video/123456", true},
		{"vimeo player", "https://player.vimeo.com/video/123456", "https://player.vimeo.com/video/123456", true},
		{"javascript scheme", "javascript:alert(1)", "", false},
		{"bad youtube id", "https://youtu.be/\"><script>", "", false},
		{"other host", "https://example.com/video/1", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := VideoEmbedURL(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("VideoEmbedURL(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNode_IsEmpty(t *testing.T) {
	t.Parallel()

	var nilNode *Node
	if !nilNode.IsEmpty() {
		t.Error("nil node should be empty")
	}
	if !(&Node{}).IsEmpty() {
		t.Error("zero node should be empty")
	}
	if (&Node{Type: KindDoc}).IsEmpty() {
		t.Error("typed node should not be empty")
	}
}
