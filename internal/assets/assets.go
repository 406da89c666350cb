package assets

import "fmt"

var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads a built-in CSS style by name.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// MustLoadStyle is like LoadStyle but panics when the style is missing.
// Intended for package-level variables holding built-in styles.
func MustLoadStyle(name string) string {
	css, err := LoadStyle(name)
	if err != nil {
		panic(fmt.Sprintf("assets: %v", err))
	}
	return css
}
