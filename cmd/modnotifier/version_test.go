package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintVersion(t *testing.T) {
	tests := []struct {
		name          string
		version       string
		build         string
		buildTime     string
		expectContain []string
	}{
		{
			name:          "dev build",
			version:       "dev",
			build:         "unknown",
			expectContain: []string{"modnotifier version dev", "Go version:", "OS/Arch:"},
		},
		{
			name:          "release build with commit",
			version:       "0.3.0",
			build:         "abc1234",
			buildTime:     "2026-10-19_12:00:00",
			expectContain: []string{"modnotifier version 0.3.0", "(build: abc1234)", "[2026-10-19_12:00:00]", "Go version:"},
		},
		{
			name:          "release build without buildtime",
			version:       "1.0.0",
			build:         "def5678",
			expectContain: []string{"modnotifier version 1.0.0", "(build: def5678)", "OS/Arch:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origVersion, origBuild, origBuildTime := Version, Build, BuildTime
			defer func() {
				Version, Build, BuildTime = origVersion, origBuild, origBuildTime
			}()
			Version, Build, BuildTime = tt.version, tt.build, tt.buildTime

			var buf bytes.Buffer
			printVersion(&buf)
			output := buf.String()
			for _, expected := range tt.expectContain {
				if !strings.Contains(output, expected) {
					t.Errorf("Expected output to contain %q, but got:\n%s", expected, output)
				}
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if !strings.Contains(out.String(), "modnotifier version") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
