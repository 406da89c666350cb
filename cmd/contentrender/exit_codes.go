package main

import (
	"errors"
	"os"

	contentrender "github.com/alnah/go-contentrender"
	"github.com/alnah/go-contentrender/internal/assets"
	"github.com/alnah/go-contentrender/internal/config"
)

// Exit codes for the contentrender CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Success
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or content
	ExitIO      = 3 // File not found, permission denied
	ExitRender  = 4 // Content could not be rendered
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var batchErr *batchError
	if errors.As(err, &batchErr) {
		return batchErr.code()
	}

	if errors.Is(err, contentrender.ErrContentRender) {
		return ExitRender
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, assets.ErrAssetRead) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, contentrender.ErrContentValidation) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnsupportedExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrPathTraversal) {
		return ExitUsage
	}

	return ExitGeneral
}
