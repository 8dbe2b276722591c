package output

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Format represents the output format type.
type Format string

const (
	// FormatText is styled human-readable output
	FormatText Format = "text"

	// FormatYAML is self-documenting YAML output
	FormatYAML Format = "yaml"

	// FormatJSON is the JSON output format
	FormatJSON Format = "json"
)

// ParseFormat parses a format string into a Format value.
// Accepts: "text", "yaml", "json" (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return FormatText, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", errors.Newf("invalid format: %q (expected text, yaml, or json)", s)
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// IsStructured reports whether f is a machine-readable format.
func (f Format) IsStructured() bool {
	return f == FormatYAML || f == FormatJSON
}
