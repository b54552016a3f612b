package decorate

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
)

const (
	minRenderWidth = 20
	versionColumn  = 12
	tooltipIndent  = "    "
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleVersion = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleBadge   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("214")).
			Bold(true)
	styleTooltip = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	styleLocked  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Render writes rows as a list sized to width. Titles that do not fit are
// truncated; tooltips are wrapped under their row.
func Render(w io.Writer, rows []Row, width int) error {
	if width < minRenderWidth {
		width = minRenderWidth
	}
	for _, row := range rows {
		if _, err := io.WriteString(w, renderRow(row, width)); err != nil {
			return err
		}
	}
	return nil
}

func renderRow(row Row, width int) string {
	icon := row.Icon
	if icon == "" {
		icon = " "
	}
	badge := ""
	if row.Badge != "" {
		badge = " " + styleBadge.Render(row.Badge)
	}

	titleWidth := width - ansi.StringWidth(icon) - 1 - versionColumn - ansi.StringWidth(badge)
	if titleWidth < 1 {
		titleWidth = 1
	}
	title := row.Title
	if title == "" {
		title = row.ID
	}
	title = ansi.Truncate(title, titleWidth, "…")
	pad := titleWidth - ansi.StringWidth(title)
	if pad < 0 {
		pad = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s%s%s%s\n",
		icon,
		styleTitle.Render(title),
		strings.Repeat(" ", pad),
		styleVersion.Render(fmt.Sprintf("%*s", versionColumn, ansi.Truncate(row.Version, versionColumn, "…"))),
		badge,
	)
	if row.Tooltip != "" {
		wrapWidth := width - len(tooltipIndent)
		style := styleTooltip
		if row.Locked {
			style = styleLocked
		}
		for _, line := range strings.Split(wordwrap.String(row.Tooltip, wrapWidth), "\n") {
			b.WriteString(tooltipIndent)
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}
