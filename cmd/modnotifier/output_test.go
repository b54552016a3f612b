package main

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"modnotifier/internal/decorate"
)

func TestWriteStructured(t *testing.T) {
	rows := []decorate.Row{{ID: "a", Title: "Alpha", Version: "1.0.0", Badge: decorate.BadgeUpdateAvailable}}

	var js bytes.Buffer
	if err := writeStructured(&js, formatJSON, rows); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(js.String(), `"badge": "update-available"`) {
		t.Fatalf("unexpected json:\n%s", js.String())
	}

	var ym bytes.Buffer
	if err := writeStructured(&ym, formatYAML, rows); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var decoded []decorate.Row
	if err := yaml.Unmarshal(ym.Bytes(), &decoded); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != rows[0] {
		t.Fatalf("yaml lost data: %+v", decoded)
	}

	if err := writeStructured(&js, "xml", rows); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestTerminalStyle(t *testing.T) {
	tests := map[string]string{"": "", "rich": "", "light": "light", "plain": "plain"}
	for in, want := range tests {
		if got := terminalStyle(in); got != want {
			t.Errorf("terminalStyle(%q) = %q, want %q", in, got, want)
		}
	}
	if !isStructured(formatJSON) || !isStructured(formatYAML) || isStructured("rich") {
		t.Fatalf("isStructured misclassifies formats")
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{"": "(not set)", "abc": "***", "abcdefgh": "abcd****"}
	for in, want := range tests {
		if got := maskKey(in); got != want {
			t.Errorf("maskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTerminalWidthForBuffer(t *testing.T) {
	if got := terminalWidth(&bytes.Buffer{}); got != defaultOutputWidth {
		t.Fatalf("expected default width, got %d", got)
	}
	if isTerminal(&bytes.Buffer{}) {
		t.Fatalf("a buffer is not a terminal")
	}
}
