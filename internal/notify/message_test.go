package notify

import (
	"strings"
	"testing"

	"modnotifier/internal/update"
)

func TestUpdatesAvailable(t *testing.T) {
	records := []update.Record{
		{ID: "a", Title: "Alpha", Current: "1.0.0", Latest: "1.1.0", ReleaseNotes: "https://example.com/a"},
		{ID: "b", Title: "Beta", Current: "2.0", Latest: "3.0"},
	}
	recipients := []string{"gm1", "gm2"}
	msg := UpdatesAvailable(records, recipients)
	recipients[0] = "mutated"

	if msg.Kind != KindUpdatesAvailable || msg.Speaker != SpeakerName {
		t.Fatalf("unexpected header fields: %+v", msg)
	}
	if len(msg.Items) != 2 || msg.Items[0].NotesURL != "https://example.com/a" || msg.Items[1].NotesURL != "" {
		t.Fatalf("unexpected items: %+v", msg.Items)
	}
	if msg.Recipients[0] != "gm1" {
		t.Fatalf("recipients should be copied, got %v", msg.Recipients)
	}

	md := Markdown(msg)
	for _, want := range []string{"#### " + TitleUpdatesAvailable, "**Alpha**: 1.0.0 → 1.1.0", "[Release Notes](https://example.com/a)", "**Beta**: 2.0 → 3.0"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Count(md, ReleaseNotesLabel) != 1 {
		t.Fatalf("expected one release notes link:\n%s", md)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	msg := APIKeyRequired("https://example.com/readme", "user1")
	if msg.Kind != KindAPIKeyRequired {
		t.Fatalf("unexpected kind %q", msg.Kind)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0] != "user1" {
		t.Fatalf("expected whisper to user1, got %v", msg.Recipients)
	}
	if !strings.Contains(msg.Body, "(https://example.com/readme)") {
		t.Fatalf("body should link the readme: %q", msg.Body)
	}

	noLink := APIKeyRequired("", "")
	if noLink.Recipients != nil || strings.Contains(noLink.Body, "](") {
		t.Fatalf("unexpected message without readme: %+v", noLink)
	}
}

func TestAllUpToDate(t *testing.T) {
	msg := AllUpToDate()
	if msg.Kind != KindAllUpToDate || len(msg.Items) != 0 || len(msg.Recipients) != 0 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestPlainText(t *testing.T) {
	msg := UpdatesAvailable([]update.Record{
		{Title: "\x1b[31mRed\x1b[0m", Current: "1", Latest: "2", ReleaseNotes: "https://n"},
	}, nil)
	got := PlainText(msg)
	want := TitleUpdatesAvailable + "\n- Red: 1 -> 2\n  Release Notes: https://n\n"
	if got != want {
		t.Fatalf("PlainText mismatch:\n got %q\nwant %q", got, want)
	}

	key := PlainText(APIKeyRequired("https://readme", ""))
	if !strings.Contains(key, "module documentation (https://readme)") {
		t.Fatalf("links should be flattened: %q", key)
	}
}

func TestPlainBody(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"no links", "no links"},
		{"see [docs](http://x) now", "see docs (http://x) now"},
		{"[a](1) and [b](2)", "a (1) and b (2)"},
		{"broken [link", "broken [link"},
		{"first\n\nsecond", "first\nsecond"},
		{"visit <https://auto.example>", "visit https://auto.example"},
	}
	for _, tt := range tests {
		if got := plainBody(tt.in); got != tt.want {
			t.Errorf("plainBody(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarkdownEscapesTitles(t *testing.T) {
	title := "Dice*So*Nice [beta]_x"
	msg := UpdatesAvailable([]update.Record{{ID: "d", Title: title, Current: "1", Latest: "2"}}, nil)

	md := Markdown(msg)
	if !strings.Contains(md, `**Dice\*So\*Nice \[beta\]\_x**`) {
		t.Fatalf("title not escaped:\n%s", md)
	}
	if got := plainBody(escapeMarkdown(title)); got != title {
		t.Fatalf("escaped title renders as %q, want %q", got, title)
	}
	if !strings.Contains(PlainText(msg), "- "+title+": 1 -> 2") {
		t.Fatalf("plain text should keep the raw title: %q", PlainText(msg))
	}
}
