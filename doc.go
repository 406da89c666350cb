// Package contentrender turns authored documents into sanitized HTML, an
// anchored heading list, plain text and reading metrics.
//
// # Quick Start
//
// Create a renderer once and reuse it; it is safe for concurrent use:
//
//	r := contentrender.NewRenderer()
//
//	out, err := r.Render(ctx, contentrender.MarkupSource{
//	    Text: "# Hello\n\nWorld",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.HTML, out.Headings, out.WordCount, out.ReadTime)
//
// Wire requests carry a content type and exactly one payload:
//
//	var req contentrender.Request
//	json.Unmarshal(body, &req) // {"contentType":"structured","structuredTree":{...}}
//	out, err := r.RenderRequest(ctx, req)
//
// # Rendering Pipeline
//
// Every render runs the same stages:
//
//  1. Dispatch on the source type (validation errors wrap ErrContentValidation)
//  2. Structured trees render node by node; markup goes through goldmark
//  3. Headings get unique, deterministic anchor ids
//  4. The HTML is reduced to a fixed tag and attribute allowlist
//  5. Plain text, word count and read time are derived
//
// # Configuration
//
// Use functional options to customize the renderer:
//
//	r := contentrender.NewRenderer(
//	    contentrender.WithHighlightStyle("monokai"),
//	    contentrender.WithSoftBreaks(true),
//	    contentrender.WithAttributeFilter(myFilter),
//	    contentrender.WithLogger(logger),
//	)
//
// # Cached Projections
//
// Backfiller stores the rendered projection next to its source and rebuilds
// it lazily on read when any field is missing. A document that cannot be
// rendered is served with fallback HTML instead of an error; the write path
// (Save) rejects it instead.
package contentrender
