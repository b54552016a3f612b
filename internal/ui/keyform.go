// Package ui holds the interactive terminal forms.
package ui

import (
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"modnotifier/internal/settings"
)

const (
	keyFieldWidth  = 48
	keyCharLimit   = 256
	pathCharLimit  = 4096
	focusKeyField  = 0
	focusFileField = 1
)

var (
	styleFormTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	styleFormLabel = lipgloss.NewStyle().
			Bold(true)

	styleFormHint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4")).
			Italic(true)

	styleFormOK = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	styleFormError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	styleFormBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2)
)

// KeyFormKeys are the bindings of the key form.
type KeyFormKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Save   key.Binding
	Reveal key.Binding
	Cancel key.Binding
}

// DefaultKeyFormKeys returns the standard bindings.
func DefaultKeyFormKeys() KeyFormKeys {
	return KeyFormKeys{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save / import"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Reveal: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "show/hide key"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// KeyForm edits the registry API key. The key can be typed in or imported
// from the host's license.mjs file.
type KeyForm struct {
	keys      KeyFormKeys
	keyInput  textinput.Model
	fileInput textinput.Model
	focus     int

	status    string
	statusErr bool

	submitted bool
	cancelled bool

	extract func(path string) (string, error)
}

// NewKeyForm creates a form prefilled with the current key.
func NewKeyForm(current string) *KeyForm {
	keyInput := textinput.New()
	keyInput.Prompt = "› "
	keyInput.Placeholder = "registry api key"
	keyInput.CharLimit = keyCharLimit
	keyInput.Width = keyFieldWidth
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.SetValue(current)
	keyInput.Focus()

	fileInput := textinput.New()
	fileInput.Prompt = "› "
	fileInput.Placeholder = "path/to/" + settings.LicenseFileName
	fileInput.CharLimit = pathCharLimit
	fileInput.Width = keyFieldWidth

	return &KeyForm{
		keys:      DefaultKeyFormKeys(),
		keyInput:  keyInput,
		fileInput: fileInput,
		extract:   settings.ExtractAPIKeyFromFile,
	}
}

// Value returns the key currently entered.
func (m *KeyForm) Value() string {
	return strings.TrimSpace(m.keyInput.Value())
}

// Submitted reports whether the user confirmed the form.
func (m *KeyForm) Submitted() bool {
	return m.submitted
}

// Cancelled reports whether the user dismissed the form.
func (m *KeyForm) Cancelled() bool {
	return m.cancelled
}

// Status returns the last import message and whether it was an error.
func (m *KeyForm) Status() (string, bool) {
	return m.status, m.statusErr
}

// Init implements tea.Model.
func (m *KeyForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *KeyForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Save):
			m.submitted = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
			m.toggleFocus()
			return m, textinput.Blink
		case key.Matches(msg, m.keys.Reveal):
			if m.keyInput.EchoMode == textinput.EchoPassword {
				m.keyInput.EchoMode = textinput.EchoNormal
			} else {
				m.keyInput.EchoMode = textinput.EchoPassword
			}
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			if m.focus == focusFileField {
				m.Import(m.fileInput.Value())
				return m, nil
			}
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	if m.focus == focusFileField {
		m.fileInput, cmd = m.fileInput.Update(msg)
	} else {
		m.keyInput, cmd = m.keyInput.Update(msg)
	}
	return m, cmd
}

// Import reads the key from a license file and moves focus back to the key
// field on success.
func (m *KeyForm) Import(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		m.setStatus("Enter the path to "+settings.LicenseFileName+" first.", true)
		return
	}
	apiKey, err := m.extract(path)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.keyInput.SetValue(apiKey)
	m.fileInput.SetValue("")
	m.setStatus("API key extracted from "+settings.LicenseFileName+".", false)
	if m.focus != focusKeyField {
		m.toggleFocus()
	}
}

func (m *KeyForm) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *KeyForm) toggleFocus() {
	if m.focus == focusKeyField {
		m.focus = focusFileField
		m.keyInput.Blur()
		m.fileInput.Focus()
		return
	}
	m.focus = focusKeyField
	m.fileInput.Blur()
	m.keyInput.Focus()
}

// View implements tea.Model.
func (m *KeyForm) View() string {
	var b strings.Builder
	b.WriteString(styleFormTitle.Render("Package Registry API Key"))
	b.WriteString("\n")
	b.WriteString(styleFormLabel.Render("API Key"))
	b.WriteString("\n")
	b.WriteString(m.keyInput.View())
	b.WriteString("\n")
	b.WriteString(styleFormHint.Render("Used to ask the registry for the latest module versions."))
	b.WriteString("\n\n")
	b.WriteString(styleFormLabel.Render("Import from " + settings.LicenseFileName))
	b.WriteString("\n")
	b.WriteString(m.fileInput.View())
	b.WriteString("\n")
	if m.status != "" {
		style := styleFormOK
		if m.statusErr {
			style = styleFormError
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styleFormHint.Render(helpLine(m.keys)))
	return styleFormBox.Render(b.String())
}

func helpLine(keys KeyFormKeys) string {
	bindings := []key.Binding{keys.Next, keys.Submit, keys.Save, keys.Reveal, keys.Cancel}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " • ")
}

// RunKeyForm shows the form until it is saved or cancelled. ok is false when
// the user cancelled.
func RunKeyForm(current string, in io.Reader, out io.Writer) (value string, ok bool, err error) {
	form := NewKeyForm(current)
	opts := []tea.ProgramOption{tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if _, err := tea.NewProgram(form, opts...).Run(); err != nil {
		return "", false, err
	}
	if !form.Submitted() {
		return "", false, nil
	}
	return form.Value(), true, nil
}
