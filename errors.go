package contentrender

import "errors"

// Sentinel errors for library operations.
var (
	// ErrContentValidation means the request does not carry the source its
	// content type requires. Raised before any rendering work.
	ErrContentValidation = errors.New("content validation failed")

	// ErrContentRender means a structurally inconsistent document tree.
	// Surfaced on write paths, replaced by fallback content on read paths.
	ErrContentRender = errors.New("content render failed")

	// ErrNotFound is returned by stores for unknown document ids.
	ErrNotFound = errors.New("document not found")
)
