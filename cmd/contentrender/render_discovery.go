package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	contentrender "github.com/alnah/go-contentrender"
	"github.com/alnah/go-contentrender/internal/fileutil"
)

// Sentinel errors for file discovery.
var (
	ErrUnsupportedExtension = errors.New("file must have .md, .markdown or .json extension")
	ErrInvalidWorkerCount   = errors.New("invalid worker count")
)

// maxWorkerFlag bounds --workers.
const maxWorkerFlag = 64

// FileToRender is one discovered input and where its output goes.
type FileToRender struct {
	InputPath  string
	OutputPath string
	Type       contentrender.ContentType
}

// contentTypeForPath maps a file extension to the content type it holds.
func contentTypeForPath(path string) (contentrender.ContentType, error) {
	switch {
	case fileutil.HasExtension(path, ".md", ".markdown"):
		return contentrender.ContentTypeMarkup, nil
	case fileutil.HasExtension(path, ".json"):
		return contentrender.ContentTypeStructured, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}
}

// discoverFiles finds the files to render under inputPath.
// A directory is walked recursively; files with other extensions are skipped.
func discoverFiles(inputPath, outputDir string, format outputFormat) ([]FileToRender, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		ct, err := contentTypeForPath(inputPath)
		if err != nil {
			return nil, err
		}
		outPath := resolveOutputPath(inputPath, outputDir, "", format)
		return []FileToRender{{InputPath: inputPath, OutputPath: outPath, Type: ct}}, nil
	}

	var files []FileToRender
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || isRenderedOutput(path) {
			return nil
		}
		ct, err := contentTypeForPath(path)
		if err != nil {
			return nil
		}
		files = append(files, FileToRender{
			InputPath:  path,
			OutputPath: resolveOutputPath(path, outputDir, inputPath, format),
			Type:       ct,
		})
		return nil
	})

	return files, err
}

// isRenderedOutput reports whether path is a JSON output of a previous run.
func isRenderedOutput(path string) bool {
	return strings.HasSuffix(path, renderedJSONSuffix)
}

// resolveOutputPath determines the output path for one input.
// Outputs land next to the input unless outputDir is set; a directory input
// keeps its relative layout under outputDir. An outputDir ending in the
// format's extension is taken as the file itself.
func resolveOutputPath(inputPath, outputDir, baseInputDir string, format outputFormat) string {
	ext := format.extension()
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	if outputDir == "" {
		return filepath.Join(filepath.Dir(inputPath), base+ext)
	}

	if baseInputDir == "" && strings.HasSuffix(outputDir, ext) {
		return outputDir
	}

	if baseInputDir != "" {
		if relPath, err := filepath.Rel(baseInputDir, inputPath); err == nil {
			return filepath.Join(outputDir, filepath.Dir(relPath), base+ext)
		}
	}

	return filepath.Join(outputDir, base+ext)
}

// validateWorkers checks the --workers flag range. Zero means auto.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0)", ErrInvalidWorkerCount, n)
	}
	if n > maxWorkerFlag {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, maxWorkerFlag)
	}
	return nil
}
