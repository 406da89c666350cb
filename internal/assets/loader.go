package assets

// DefaultStyleName is the built-in style used when none is configured.
const DefaultStyleName = "default"

// AssetLoader loads stylesheets by name.
type AssetLoader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadStyle(name string) (string, error)

	// Styles lists the available style names, sorted.
	Styles() ([]string, error)
}
