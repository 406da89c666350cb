// Package yamlutil is the single place the YAML library is imported.
// Config loading and the config dump command go through it.
package yamlutil

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize caps accepted YAML documents (1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

func checkInput(data []byte, v any) error {
	switch {
	case len(data) == 0:
		return ErrNilData
	case len(data) > MaxInputSize:
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	case v == nil:
		return ErrNilDestination
	}
	return nil
}

// Unmarshal decodes data into v, ignoring unknown keys.
func Unmarshal(data []byte, v any) error {
	return decode(data, v)
}

// UnmarshalStrict decodes data into v and rejects keys v does not declare.
func UnmarshalStrict(data []byte, v any) error {
	return decode(data, v, yaml.Strict())
}

func decode(data []byte, v any, opts ...yaml.DecodeOption) error {
	if err := checkInput(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, opts...); err != nil {
		return &DecodeError{err: err}
	}
	return nil
}

// Marshal encodes v with two-space indentation. Multi-line strings use
// literal block style so embedded HTML stays readable.
func Marshal(v any) ([]byte, error) {
	out, err := yaml.MarshalWithOptions(v,
		yaml.Indent(2),
		yaml.UseLiteralStyleIfMultiline(true),
	)
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}
	return out, nil
}

// DecodeError wraps a parser failure.
type DecodeError struct {
	err error
}

func (e *DecodeError) Error() string {
	return "yamlutil: " + e.err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

// Pretty renders the failure with the offending source lines, for terminals.
func (e *DecodeError) Pretty(colored bool) string {
	return yaml.FormatError(e.err, colored, true)
}
