package assets

import (
	"fmt"
	"strings"
)

// ValidateAssetName checks that an asset name is safe for use as a filename.
// Returns ErrInvalidAssetName if the name is empty or contains path separators,
// dots, or null bytes.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// styleNames extracts sorted style names from a directory listing.
func styleNames(files []string) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		if name, ok := strings.CutSuffix(f, ".css"); ok && ValidateAssetName(name) == nil {
			names = append(names, name)
		}
	}
	return names
}
