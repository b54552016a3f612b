package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"modnotifier/internal/config"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"

	defaultOutputWidth = 80
)

func outputFormat() string {
	return strings.ToLower(strings.TrimSpace(config.GetString(config.KeyOutputFormat)))
}

func isStructured(format string) bool {
	return format == formatJSON || format == formatYAML
}

// terminalStyle maps the output format onto a markdown style. Rich leaves
// the choice to the terminal's color profile.
func terminalStyle(format string) string {
	switch format {
	case "", "rich":
		return ""
	default:
		return format
	}
}

func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultOutputWidth
}
