package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format selects how package lists and status lines are drawn
type Format int

const (
	// FormatAuto styles output only when it goes to a color terminal
	FormatAuto Format = iota
	// FormatTerminal always styles output
	FormatTerminal
	// FormatText never styles output, which keeps it stable for scripts
	FormatText
)

// formatNames lists the accepted --format values, canonical name first
var formatNames = map[Format][]string{
	FormatAuto:     {"auto", ""},
	FormatTerminal: {"term", "terminal"},
	FormatText:     {"text", "plain"},
}

func (f Format) String() string {
	if names, ok := formatNames[f]; ok {
		return names[0]
	}
	return "unknown"
}

// ParseFormat reads a --format value, ignoring case
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(s)
	for f, names := range formatNames {
		for _, name := range names {
			if name == s {
				return f, nil
			}
		}
	}
	return FormatAuto, fmt.Errorf("unknown format: %s", s)
}

// DetectFormat resolves FormatAuto for out. NO_COLOR, a pipe or a
// colorless terminal all give FormatText.
func DetectFormat(out *os.File) Format {
	if os.Getenv("NO_COLOR") != "" || !IsTerminal(out) {
		return FormatText
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return FormatText
	}
	return FormatTerminal
}

// IsTerminal reports whether f is an interactive terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
