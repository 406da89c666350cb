package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	contentrender "github.com/alnah/go-contentrender"
	"github.com/alnah/go-contentrender/internal/config"
	"github.com/alnah/go-contentrender/internal/fileutil"
)

// outputFormat selects what render writes.
type outputFormat string

const (
	formatJSON    outputFormat = "json"
	formatHTML    outputFormat = "html"
	formatPreview outputFormat = "preview"
)

const renderedJSONSuffix = ".rendered.json"

func (f outputFormat) extension() string {
	if f == formatJSON {
		return renderedJSONSuffix
	}
	return ".html"
}

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(s); f {
	case formatJSON, formatHTML, formatPreview:
		return f, nil
	default:
		return "", fmt.Errorf("%w: --format %q (must be json, html or preview)", ErrUsage, s)
	}
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common      commonFlags
	output      string
	format      string
	contentType string
	workers     int
	noTOC       bool
	css         string
}

func parseRenderFlags(args []string, env *Environment) (*renderFlags, []string, error) {
	f := &renderFlags{}
	fs := newFlagSet("render", printRenderUsage, env)
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.format, "format", "f", string(formatJSON), "output format: json, html, preview")
	fs.StringVarP(&f.contentType, "type", "t", "", "content type for stdin: markup, structured")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.BoolVar(&f.noTOC, "no-toc", false, "omit the table of contents from previews")
	fs.StringVar(&f.css, "css", "", "preview style name or CSS file path")

	if err := parseFlagSet(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// runRenderCmd renders files, a directory, or stdin ("-").
func runRenderCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseRenderFlags(args, env)
	if errors.Is(err, flag.ErrHelp) {
		printRenderUsage(env.Stdout)
		return nil
	}
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		return ErrNoInput
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: render takes one input, got %d", ErrUsage, len(positional))
	}
	format, err := parseOutputFormat(flags.format)
	if err != nil {
		return err
	}

	cfg, envCfg, err := resolveConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	workers := flags.workers
	if workers == 0 {
		workers = envCfg.Workers
	}
	if err := validateWorkers(workers); err != nil {
		return err
	}

	log, err := newLogger(cfg.Log, flags.common)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidValue, err)
	}
	defer log.Sync()

	params, err := buildRenderParams(cfg, flags, format, workers)
	if err != nil {
		return err
	}
	renderer := newRenderer(cfg.Render, log)

	if positional[0] == "-" {
		return renderStdin(ctx, renderer, flags, params, env)
	}

	files, err := discoverFiles(positional[0], flags.output, format)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no .md, .markdown or .json files in %s", ErrNoInput, positional[0])
	}

	// A single file without --output goes to stdout.
	if len(files) == 1 && flags.output == "" {
		return renderToWriter(ctx, renderer, files[0], params, env.Stdout)
	}

	log.Debug("rendering batch", "files", len(files), "workers", resolvePoolSize(workers), "format", string(format))
	results := renderBatch(ctx, renderer, files, params)
	printResults(results, flags.common, env)
	if err := batchErr(results); err != nil {
		return err
	}
	return nil
}

func buildRenderParams(cfg *config.Config, flags *renderFlags, format outputFormat, workers int) (*renderParams, error) {
	params := &renderParams{format: format, workers: workers}
	if format != formatPreview {
		return params, nil
	}

	if !flags.noTOC {
		params.toc = &contentrender.TOCOptions{
			Title:    cfg.Preview.TOCTitle,
			MinDepth: cfg.Preview.TOCMinDepth,
			MaxDepth: cfg.Preview.TOCMaxDepth,
		}
	}

	ref := flags.css
	if ref == "" {
		ref = cfg.Preview.Stylesheet
	}
	css, err := loadStylesheet(ref, cfg.Preview.AssetPath)
	if err != nil {
		return nil, err
	}
	params.css = css
	return params, nil
}

func renderToWriter(ctx context.Context, r ContentRenderer, f FileToRender, params *renderParams, w io.Writer) error {
	raw, err := os.ReadFile(f.InputPath) // #nosec G304 -- user-provided input
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	out, _, err := renderBytes(ctx, r, raw, f.Type, titleFromPath(f.InputPath), params)
	if err != nil {
		return fmt.Errorf("%s: %w", f.InputPath, err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

func renderStdin(ctx context.Context, r ContentRenderer, flags *renderFlags, params *renderParams, env *Environment) error {
	ct := contentrender.ContentTypeMarkup
	switch flags.contentType {
	case "", string(contentrender.ContentTypeMarkup):
	case string(contentrender.ContentTypeStructured):
		ct = contentrender.ContentTypeStructured
	default:
		return fmt.Errorf("%w: --type %q (must be markup or structured)", ErrUsage, flags.contentType)
	}

	raw, err := io.ReadAll(env.Stdin)
	if err != nil {
		return fmt.Errorf("%w: stdin: %v", ErrReadInput, err)
	}
	out, _, err := renderBytes(ctx, r, raw, ct, "Document", params)
	if err != nil {
		return err
	}

	w := env.Stdout
	if flags.output != "" {
		if err := fileutil.WriteFileAtomic(flags.output, out, dirPermissions, filePermissions); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		return nil
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
