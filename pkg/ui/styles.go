package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// DESIGN TOKENS - Consistent spacing, colors, and visual language
// ══════════════════════════════════════════════════════════════════════════════

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Dracula-inspired
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBg          = lipgloss.Color("#282A36")
	ColorBgSubtle    = lipgloss.Color("#363949")
	ColorBgHighlight = lipgloss.Color("#44475A")
	ColorText        = lipgloss.Color("#F8F8F2")
	ColorSubtext     = lipgloss.Color("#BFBFBF")
	ColorMuted       = lipgloss.Color("#6272A4")

	ColorPrimary = lipgloss.Color("#BD93F9")
	ColorInfo    = lipgloss.Color("#8BE9FD")
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorWarning = lipgloss.Color("#FFB86C")
	ColorDanger  = lipgloss.Color("#FF5555")

	// Role group colors
	ColorGroupTech = lipgloss.Color("#8BE9FD")
	ColorGroupProd = lipgloss.Color("#FFB86C")
	ColorGroupCast = lipgloss.Color("#FF79C6")
	ColorGroupBand = lipgloss.Color("#F1FA8C")
)

// Theme carries the renderer and the adaptive colors every view draws with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor

	Base lipgloss.Style
}

// DefaultTheme returns the theme for the default renderer.
func DefaultTheme() Theme {
	return NewTheme(lipgloss.DefaultRenderer())
}

// NewTheme builds a theme bound to r.
func NewTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: string(ColorPrimary)},
		Secondary: lipgloss.AdaptiveColor{Light: "#4A5A8A", Dark: string(ColorMuted)},
		Subtext:   lipgloss.AdaptiveColor{Light: "#555555", Dark: string(ColorSubtext)},
		Border:    lipgloss.AdaptiveColor{Light: "#C0C0C0", Dark: string(ColorBgHighlight)},
		Highlight: lipgloss.AdaptiveColor{Light: "#E8E0FF", Dark: string(ColorBgSubtle)},
		Success:   lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: string(ColorSuccess)},
		Warning:   lipgloss.AdaptiveColor{Light: "#B35900", Dark: string(ColorWarning)},
		Danger:    lipgloss.AdaptiveColor{Light: "#CF222E", Dark: string(ColorDanger)},
		Base:      r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: string(ColorText)}),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For split view layouts
// ══════════════════════════════════════════════════════════════════════════════

// PanelStyle is the style for an unfocused panel.
func (t Theme) PanelStyle() lipgloss.Style {
	return t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border)
}

// FocusedPanelStyle is the style for the focused panel.
func (t Theme) FocusedPanelStyle() lipgloss.Style {
	return t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary)
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// RenderGroupBadge returns a short colored tag for a role's main group.
func RenderGroupBadge(group string, t Theme) string {
	var fg lipgloss.Color
	label := strings.ToUpper(group)
	switch group {
	case "Tech":
		fg = ColorGroupTech
	case "Prod":
		fg = ColorGroupProd
	case "Cast":
		fg = ColorGroupCast
	case "Band":
		fg = ColorGroupBand
	default:
		fg, label = ColorMuted, "----"
	}
	if len(label) > 4 {
		label = label[:4]
	}
	return t.Renderer.NewStyle().Foreground(fg).Bold(true).Render(fmt.Sprintf("%-4s", label))
}

// RenderRankBadge renders a rank like "#1", colored by percentile.
func RenderRankBadge(rank, total int, t Theme) string {
	if total == 0 {
		return t.Renderer.NewStyle().Foreground(ColorMuted).Render("#?")
	}

	percentile := float64(rank) / float64(total)

	var color lipgloss.Color
	switch {
	case percentile <= 0.1:
		color = ColorSuccess
	case percentile <= 0.25:
		color = ColorInfo
	case percentile <= 0.5:
		color = ColorWarning
	default:
		color = ColorMuted
	}

	return t.Renderer.NewStyle().
		Foreground(color).
		Render(fmt.Sprintf("#%d", rank))
}

// RenderMiniBar renders a horizontal bar for a value between 0 and 1.
func RenderMiniBar(value float64, width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	value = min(max(value, 0), 1)
	filled := min(int(value*float64(width)), width)

	var barColor lipgloss.AdaptiveColor
	switch {
	case value >= 0.75:
		barColor = t.Success
	case value >= 0.5:
		barColor = t.Warning
	default:
		barColor = t.Secondary
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return t.Renderer.NewStyle().Foreground(barColor).Render(bar)
}

// ══════════════════════════════════════════════════════════════════════════════
// DIVIDERS AND SEPARATORS
// ══════════════════════════════════════════════════════════════════════════════

// RenderDivider renders a horizontal divider line
func RenderDivider(width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	return t.Renderer.NewStyle().
		Foreground(t.Border).
		Render(strings.Repeat("─", width))
}
