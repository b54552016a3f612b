// Package notify builds the notifier's messages and delivers them to the
// terminal, a webhook or the world's chat log.
package notify

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"modnotifier/internal/update"
)

// SpeakerName is the alias messages are posted under.
const SpeakerName = "Module Outdated Notifier"

// Kind identifies what a message reports.
type Kind string

const (
	KindUpdatesAvailable Kind = "updates-available"
	KindAPIKeyRequired   Kind = "api-key-required"
	KindAllUpToDate      Kind = "all-up-to-date"
)

// Titles and labels used in rendered messages.
const (
	TitleUpdatesAvailable = "Module Updates Available"
	TitleAPIKeyRequired   = "API Key Required"
	TitleAllUpToDate      = "All modules are up to date."
	ReleaseNotesLabel     = "Release Notes"
)

// Item is one module line of an updates message.
type Item struct {
	Title    string `json:"title" yaml:"title"`
	Current  string `json:"current" yaml:"current"`
	Latest   string `json:"latest" yaml:"latest"`
	NotesURL string `json:"notesUrl,omitempty" yaml:"notesUrl,omitempty"`
}

// Message is a notification ready to be delivered by a Sink. Empty
// Recipients means the message is visible to everyone.
type Message struct {
	Kind       Kind     `json:"kind" yaml:"kind"`
	Speaker    string   `json:"speaker" yaml:"speaker"`
	Title      string   `json:"title" yaml:"title"`
	Body       string   `json:"body,omitempty" yaml:"body,omitempty"`
	Items      []Item   `json:"items,omitempty" yaml:"items,omitempty"`
	Recipients []string `json:"recipients,omitempty" yaml:"recipients,omitempty"`
}

// UpdatesAvailable lists every record, whispered to recipients.
func UpdatesAvailable(records []update.Record, recipients []string) Message {
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, Item{
			Title:    rec.Title,
			Current:  rec.Current,
			Latest:   rec.Latest,
			NotesURL: rec.ReleaseNotes,
		})
	}
	return Message{
		Kind:       KindUpdatesAvailable,
		Speaker:    SpeakerName,
		Title:      TitleUpdatesAvailable,
		Items:      items,
		Recipients: append([]string(nil), recipients...),
	}
}

// APIKeyRequired tells recipient how to configure the registry key.
func APIKeyRequired(readmeURL, recipient string) Message {
	body := "An API key for the package registry is required to check for module updates."
	if readmeURL != "" {
		body += fmt.Sprintf(" See the [module documentation](%s) for how to get one.", readmeURL)
	}
	msg := Message{
		Kind:    KindAPIKeyRequired,
		Speaker: SpeakerName,
		Title:   TitleAPIKeyRequired,
		Body:    body,
	}
	if recipient != "" {
		msg.Recipients = []string{recipient}
	}
	return msg
}

// AllUpToDate reports a successful check that found nothing.
func AllUpToDate() Message {
	return Message{
		Kind:    KindAllUpToDate,
		Speaker: SpeakerName,
		Title:   TitleAllUpToDate,
	}
}

// Markdown renders the message body as markdown.
func Markdown(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#### %s\n", msg.Title)
	if msg.Body != "" {
		fmt.Fprintf(&b, "\n%s\n", msg.Body)
	}
	if len(msg.Items) > 0 {
		b.WriteString("\n")
		for _, item := range msg.Items {
			fmt.Fprintf(&b, "- **%s**: %s → %s\n", escapeMarkdown(item.Title), item.Current, item.Latest)
			if item.NotesURL != "" {
				fmt.Fprintf(&b, "  [%s](%s)\n", ReleaseNotesLabel, item.NotesURL)
			}
		}
	}
	return b.String()
}

// PlainText renders the message without markup or terminal escapes.
func PlainText(msg Message) string {
	var b strings.Builder
	b.WriteString(msg.Title)
	b.WriteString("\n")
	if msg.Body != "" {
		b.WriteString(plainBody(msg.Body))
		b.WriteString("\n")
	}
	for _, item := range msg.Items {
		fmt.Fprintf(&b, "- %s: %s -> %s\n", item.Title, item.Current, item.Latest)
		if item.NotesURL != "" {
			fmt.Fprintf(&b, "  %s: %s\n", ReleaseNotesLabel, item.NotesURL)
		}
	}
	return ansi.Strip(b.String())
}

// markdownSpecials are escaped in text taken from module manifests.
const markdownSpecials = "\\`*_[]<>~|#"

func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(markdownSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// plainBody renders markdown as text, writing links as "text (url)".
func plainBody(s string) string {
	src := []byte(s)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))
	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(util.UnescapePunctuations(node.Segment.Value(src)))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if !entering {
				fmt.Fprintf(&b, " (%s)", node.Destination)
			}
		default:
			if !entering && n.Type() == ast.TypeBlock && n.NextSibling() != nil {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
