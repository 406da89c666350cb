// Package pipeline implements the HTML stages shared by every content type.
//
// Stages run in this order for both source formats:
//   - Markup preprocessing (line normalization, ==highlight== syntax)
//   - Markup to HTML conversion via goldmark
//   - Heading anchor injection and heading list extraction
//   - Allowlist sanitization with a pluggable attribute filter
//   - Plain-text extraction, word count and read time
//
// Preview pages (stylesheet injection and table of contents) are built from
// the sanitized output and are never persisted.
package pipeline
