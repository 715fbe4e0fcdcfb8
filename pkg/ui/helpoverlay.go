package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// helpMarkdown is the keyboard reference shown by "?".
const helpMarkdown = `# castrank

## Rankings

| key | action |
|---|---|
| j / k, ↓ / ↑ | move one row |
| pgdn / pgup, space | move one screen |
| g / G | first / last row |
| / | search by name |
| esc | leave the search box |
| 1 to 8 | sort by column (again flips direction) |
| a | active people only |
| r | retry a failed page |
| R | reload from page 1 |
| mouse wheel | scroll |
| click a header | sort by that column |

## By role

| key | action |
|---|---|
| j / k | move |
| h / l, ← / → | role list / people list |
| / | filter roles |
| c | include roles where everyone has one credit |
| a | active people only |
| r | reload roles |

## Everywhere

| key | action |
|---|---|
| tab | switch tab |
| y | copy the selected person's profile link |
| o | open the selected person's profile |
| ? | toggle this help |
| q, ctrl+c | quit |
`

// HelpOverlayModel shows the keyboard reference.
type HelpOverlayModel struct {
	visible bool
	width   int
	height  int
	theme   Theme

	rendered      string
	renderedWidth int
}

// NewHelpOverlayModel creates a new help overlay
func NewHelpOverlayModel(theme Theme) HelpOverlayModel {
	return HelpOverlayModel{theme: theme}
}

// Toggle toggles visibility
func (m *HelpOverlayModel) Toggle() {
	m.visible = !m.visible
}

// IsVisible returns true if overlay is showing
func (m HelpOverlayModel) IsVisible() bool {
	return m.visible
}

// SetSize sets dimensions and re-renders the markdown for the new width.
func (m *HelpOverlayModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	wrap := max(min(width-8, 80), 30)
	if wrap != m.renderedWidth {
		m.rendered = renderHelp(wrap)
		m.renderedWidth = wrap
	}
}

// renderHelp renders helpMarkdown, falling back to the raw text if glamour
// cannot.
func renderHelp(wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return strings.TrimSpace(out)
}

// Update handles input
func (m HelpOverlayModel) Update(msg tea.Msg) (HelpOverlayModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		// Any key closes help
		m.visible = false
	}
	return m, nil
}

// View renders the help overlay
func (m HelpOverlayModel) View() string {
	if !m.visible {
		return ""
	}
	body := m.rendered
	if body == "" {
		body = renderHelp(60)
	}
	hint := m.theme.Renderer.NewStyle().Faint(true).Italic(true).Render("[Press any key to close]")

	box := m.theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Padding(0, 1).
		Render(body + "\n\n" + hint)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
