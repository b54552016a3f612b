package decorate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"modnotifier/internal/update"
)

func TestDecorate(t *testing.T) {
	rows := []Row{
		{ID: "a", Title: "Alpha", Version: "1.0.0", Tooltip: "Installed"},
		{ID: "b", Title: "Beta", Version: "2.0.0"},
		{ID: "c", Title: "Gamma", Version: "3.0.0"},
	}
	records := []update.Record{
		{ID: "a", Latest: "1.1.0", ReleaseNotes: "https://example.com/a"},
		{ID: "b", Latest: "2.1.0"},
		{ID: "missing", Latest: "9.9.9"},
	}

	got := Decorate(rows, records)
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if rows[0].Badge != "" {
		t.Fatalf("input rows must not be modified")
	}

	a := got[0]
	if a.Badge != BadgeUpdateAvailable || a.Icon != IconUpdateAvailable || !a.Locked {
		t.Fatalf("row a not decorated: %+v", a)
	}
	wantTooltip := "Installed\nUpdate available: 1.1.0\nRelease Notes: https://example.com/a"
	if a.Tooltip != wantTooltip {
		t.Fatalf("tooltip = %q, want %q", a.Tooltip, wantTooltip)
	}

	b := got[1]
	if b.Tooltip != "Update available: 2.1.0" || b.Locked {
		t.Fatalf("row b unexpected: %+v", b)
	}

	if got[2] != rows[2] {
		t.Fatalf("row without a record must be untouched: %+v", got[2])
	}
}

func TestDecorateNoRecords(t *testing.T) {
	rows := []Row{{ID: "a", Title: "Alpha"}}
	got := Decorate(rows, nil)
	if len(got) != 1 || got[0] != rows[0] {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestRender(t *testing.T) {
	rows := Decorate([]Row{
		{ID: "a", Title: "A module with a really long title that will not fit", Version: "1.0.0"},
		{ID: "b", Title: "Beta", Version: "2.0.0"},
	}, []update.Record{{ID: "a", Latest: "1.1.0", ReleaseNotes: "https://example.com/notes"}})

	var buf bytes.Buffer
	if err := Render(&buf, rows, 50); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	out := ansi.Strip(buf.String())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if !strings.HasPrefix(lines[0], IconUpdateAvailable+" ") || !strings.Contains(lines[0], "…") {
		t.Fatalf("expected truncated decorated first row, got %q", lines[0])
	}
	if !strings.Contains(lines[0], BadgeUpdateAvailable) || !strings.Contains(lines[0], "1.0.0") {
		t.Fatalf("first row missing badge or version: %q", lines[0])
	}
	if !strings.Contains(out, "Update available: 1.1.0") || !strings.Contains(out, "https://example.com/notes") {
		t.Fatalf("tooltip not rendered:\n%s", out)
	}
	last := lines[len(lines)-1]
	if !strings.Contains(last, "Beta") || strings.Contains(last, BadgeUpdateAvailable) {
		t.Fatalf("plain row rendered wrong: %q", last)
	}
	for _, line := range lines {
		if ansi.StringWidth(line) > 50 {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
}
