package theme

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// HuhTheme adapts t for the removal confirmation. The focused button takes
// the color of deleted diff lines, since confirming deletes records.
func HuhTheme(t *Theme) *huh.Theme {
	h := huh.ThemeBase()

	border := t.BorderStyle.GetForeground()
	danger := t.DeletedStyle.GetForeground()

	h.Focused.Base = h.Focused.Base.BorderForeground(border)
	h.Focused.Title = t.HeaderStyle.Bold(true)
	h.Focused.Description = h.Focused.Description.Foreground(t.SubtleStyle.GetForeground())
	h.Focused.FocusedButton = h.Focused.FocusedButton.Bold(true).Background(danger)
	h.Focused.BlurredButton = h.Focused.BlurredButton.Foreground(t.GenericTextStyle.GetForeground())

	h.Blurred = h.Focused
	h.Blurred.Base = h.Focused.Base.BorderStyle(lipgloss.HiddenBorder())

	return h
}
