// Package format renders command output for the terminal or for scripts.
package format

import (
	"fmt"
	"strings"
)

// OutputFormat represents the output format of a command.
type OutputFormat string

const (
	// Text is human-readable output, styled when writing to a terminal.
	Text OutputFormat = "text"

	// JSON is a single JSON document for scripts.
	JSON OutputFormat = "json"
)

func (f OutputFormat) String() string {
	return string(f)
}

// SupportedFormats is a list of all supported output formats as strings
var SupportedFormats = []string{
	string(Text),
	string(JSON),
}

// Parse converts a string to an OutputFormat
func Parse(s string) (OutputFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case string(Text):
		return Text, nil
	case string(JSON):
		return JSON, nil
	default:
		return "", fmt.Errorf("invalid format: %s (supported: %s)", s, strings.Join(SupportedFormats, ", "))
	}
}

// IsValid checks if the provided format string is supported
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}
