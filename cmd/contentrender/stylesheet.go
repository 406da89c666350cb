package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alnah/go-contentrender/internal/assets"
	"github.com/alnah/go-contentrender/internal/config"
	"github.com/alnah/go-contentrender/internal/fileutil"
	"github.com/alnah/go-contentrender/internal/hints"
)

// loadStylesheet resolves a preview stylesheet reference. A reference with a
// path separator is read from disk; anything else names a style looked up in
// assetPath and then among the built-in styles.
func loadStylesheet(ref, assetPath string) (string, error) {
	if fileutil.IsFilePath(ref) {
		css, err := os.ReadFile(ref) // #nosec G304 -- user-provided stylesheet
		if err != nil {
			return "", fmt.Errorf("%w: stylesheet: %v", ErrReadInput, err)
		}
		return string(css), nil
	}

	resolver, err := assets.NewAssetResolver(assetPath)
	if err != nil {
		return "", fmt.Errorf("%w: preview.assetPath: %v", config.ErrInvalidValue, err)
	}
	if ref == "" {
		ref = assets.DefaultStyleName
	}

	css, err := resolver.LoadStyle(ref)
	if err != nil {
		if errors.Is(err, assets.ErrStyleNotFound) {
			available, _ := resolver.Styles()
			return "", fmt.Errorf("%w%s", err, hints.ForStyleNotFound(available, resolver.HasCustomLoader()))
		}
		return "", err
	}
	return css, nil
}
