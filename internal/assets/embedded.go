package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed styles/*.css
var styles embed.FS

// EmbeddedLoader loads the built-in styles.
type EmbeddedLoader struct{}

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

// LoadStyle loads a built-in CSS style by name.
func (e *EmbeddedLoader) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	content, err := styles.ReadFile("styles/" + name + ".css")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}
	return string(content), nil
}

// Styles lists the built-in style names.
func (e *EmbeddedLoader) Styles() ([]string, error) {
	entries, err := fs.ReadDir(styles, "styles")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	names := styleNames(files)
	sort.Strings(names)
	return names, nil
}

// Compile-time interface check.
var _ AssetLoader = (*EmbeddedLoader)(nil)
