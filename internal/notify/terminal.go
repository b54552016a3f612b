package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	appErrors "modnotifier/internal/errors"
)

const defaultTerminalWidth = 80

var (
	styleSpeaker = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	styleKind = map[Kind]lipgloss.Style{
		KindUpdatesAvailable: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		KindAPIKeyRequired:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		KindAllUpToDate:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

// TerminalSink prints messages to a terminal as rendered markdown.
type TerminalSink struct {
	w      io.Writer
	render func(string) string
}

// TerminalOption configures a TerminalSink.
type TerminalOption func(*terminalSettings)

type terminalSettings struct {
	width int
	style string
}

// WithWidth sets the wrap width.
func WithWidth(width int) TerminalOption {
	return func(s *terminalSettings) {
		if width > 0 {
			s.width = width
		}
	}
}

// WithStyle selects a glamour style ("dark", "light", "notty") or "plain"
// for wrapped text without markdown rendering. Empty picks one from the
// writer's color profile.
func WithStyle(style string) TerminalOption {
	return func(s *terminalSettings) {
		s.style = style
	}
}

// NewTerminalSink creates a sink that writes to w.
func NewTerminalSink(w io.Writer, opts ...TerminalOption) *TerminalSink {
	settings := terminalSettings{width: defaultTerminalWidth}
	for _, opt := range opts {
		opt(&settings)
	}
	if strings.TrimSpace(settings.style) == "" {
		settings.style = styleForWriter(w)
	}
	return &TerminalSink{
		w:      w,
		render: buildMarkdownRenderer(settings.style, settings.width),
	}
}

// Post implements Sink.
func (t *TerminalSink) Post(_ context.Context, msg Message) error {
	header := styleSpeaker.Render(msg.Speaker)
	if style, ok := styleKind[msg.Kind]; ok {
		header += " " + style.Render("["+string(msg.Kind)+"]")
	}
	if _, err := fmt.Fprintf(t.w, "%s\n%s\n\n", header, t.render(Markdown(msg))); err != nil {
		return appErrors.New(appErrors.CodeNotifyFailed, "write terminal notification", err)
	}
	return nil
}

// styleForWriter picks "notty" for writers without color support.
func styleForWriter(w io.Writer) string {
	out := termenv.NewOutput(w)
	if out.Profile == termenv.Ascii {
		return "notty"
	}
	return "dark"
}

func buildMarkdownRenderer(style string, width int) func(string) string {
	fallback := func(input string) string {
		return strings.TrimSpace(wordwrap.String(input, width))
	}

	style = strings.ToLower(strings.TrimSpace(style))
	if style == "" || style == "rich" {
		style = "dark"
	}
	if style == "plain" {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}
