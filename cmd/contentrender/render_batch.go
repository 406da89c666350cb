package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	contentrender "github.com/alnah/go-contentrender"
	"github.com/alnah/go-contentrender/internal/fileutil"
	"github.com/alnah/go-contentrender/internal/hints"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Sentinel errors for batch operations.
var (
	ErrNoInput     = errors.New("no input specified")
	ErrReadInput   = errors.New("failed to read input file")
	ErrWriteOutput = errors.New("failed to write output file")
)

// ContentRenderer is the part of *contentrender.Renderer the CLI uses.
type ContentRenderer interface {
	Render(ctx context.Context, src contentrender.Source) (*contentrender.RenderedContent, error)
}

// Compile-time interface implementation check.
var _ ContentRenderer = (*contentrender.Renderer)(nil)

// RenderResult holds the outcome of a single file.
type RenderResult struct {
	InputPath  string
	OutputPath string
	Words      int
	Err        error
	Duration   time.Duration
}

// renderParams holds settings shared by every file of a batch.
type renderParams struct {
	format  outputFormat
	toc     *contentrender.TOCOptions // nil = no TOC in previews
	css     string
	workers int
}

// renderBatch renders files concurrently. Results keep the input order.
func renderBatch(ctx context.Context, r ContentRenderer, files []FileToRender, params *renderParams) []RenderResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := resolvePoolSize(params.workers)
	if concurrency > len(files) {
		concurrency = len(files)
	}

	results := make([]RenderResult, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = RenderResult{InputPath: files[idx].InputPath, Err: ctx.Err()}
					continue
				}
				results[idx] = renderFile(ctx, r, files[idx], params)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// renderFile renders a single file and writes its output.
func renderFile(ctx context.Context, r ContentRenderer, f FileToRender, params *renderParams) RenderResult {
	start := time.Now()
	result := RenderResult{InputPath: f.InputPath, OutputPath: f.OutputPath}
	finish := func(err error) RenderResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	raw, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		return finish(fmt.Errorf("%w: %v", ErrReadInput, err))
	}

	out, content, err := renderBytes(ctx, r, raw, f.Type, titleFromPath(f.InputPath), params)
	if err != nil {
		return finish(err)
	}
	result.Words = content.WordCount

	if err := fileutil.WriteFileAtomic(f.OutputPath, out, dirPermissions, filePermissions); err != nil {
		return finish(fmt.Errorf("%w: %v%s", ErrWriteOutput, err, hints.ForOutputDirectory()))
	}
	return finish(nil)
}

// renderBytes turns raw input of the given type into formatted output.
func renderBytes(ctx context.Context, r ContentRenderer, raw []byte, ct contentrender.ContentType,
	fallbackTitle string, params *renderParams) ([]byte, *contentrender.RenderedContent, error) {
	var req contentrender.Request
	switch ct {
	case contentrender.ContentTypeStructured:
		req = contentrender.NewStructuredRequest(raw)
	default:
		req = contentrender.NewMarkupRequest(string(raw))
	}

	src, err := req.Source()
	if err != nil {
		return nil, nil, err
	}
	content, err := r.Render(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	out, err := formatOutput(ctx, content, fallbackTitle, params)
	if err != nil {
		return nil, nil, err
	}
	return out, content, nil
}

// formatOutput serializes content in the requested format.
func formatOutput(ctx context.Context, content *contentrender.RenderedContent, fallbackTitle string, params *renderParams) ([]byte, error) {
	switch params.format {
	case formatHTML:
		return []byte(content.HTML + "\n"), nil
	case formatPreview:
		title := fallbackTitle
		if len(content.Headings) > 0 {
			title = content.Headings[0].Text
		}
		return []byte(contentrender.PreviewPage(ctx, title, content, params.toc, params.css)), nil
	default:
		out, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding result: %w", err)
		}
		return append(out, '\n'), nil
	}
}

func titleFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ResultSummary holds the count of succeeded and failed files.
type ResultSummary struct {
	Succeeded int
	Failed    int
	Words     int
}

// countResults tallies succeeded and failed files.
func countResults(results []RenderResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.Words += r.Words
	}
	return summary
}

// printResults reports each file and returns the number of failures.
func printResults(results []RenderResult, flags commonFlags, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}

		if flags.quiet {
			continue
		}

		if flags.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d words, %v)\n", r.InputPath, r.OutputPath, r.Words, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Rendered %s\n", r.OutputPath)
		}
	}

	if !flags.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}

// batchError reports a batch with failures. The exit code follows the
// first failure.
type batchError struct {
	failed int
	total  int
	first  error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%d of %d files failed", e.failed, e.total)
}

func (e *batchError) Unwrap() error {
	return e.first
}

func (e *batchError) code() int {
	return exitCodeFor(e.first)
}

func batchErr(results []RenderResult) error {
	var failed int
	var first error
	for _, r := range results {
		if r.Err != nil {
			if first == nil {
				first = r.Err
			}
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return &batchError{failed: failed, total: len(results), first: first}
}
