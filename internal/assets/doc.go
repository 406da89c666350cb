// Package assets provides the stylesheets used by preview pages.
// Stylesheets can be loaded from embedded files or a custom directory.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - built-in styles compiled into the binary
//	    ├── FilesystemLoader  - styles from a directory on disk
//	    └── AssetResolver     - custom first, embedded as fallback
//
// A custom directory may override a built-in style by reusing its name.
//
// # Directory Structure
//
//	{basePath}/
//	└── styles/
//	    └── {name}.css
//
// # Security
//
// Style names are validated to prevent path traversal. FilesystemLoader
// resolves symlinks and verifies paths stay within basePath.
package assets
