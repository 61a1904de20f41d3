package styles

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// FormTheme returns a huh theme using the active palette.
func FormTheme() *huh.Theme {
	p := CurrentPalette
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(p.Primary)
	t.Focused.Title = t.Focused.Title.Foreground(p.Primary).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(p.Muted)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(p.Error)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(p.Error)
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(p.Secondary)
	t.Focused.TextInput.Prompt = t.Focused.TextInput.Prompt.Foreground(p.Secondary)

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	t.Blurred.Title = t.Blurred.Title.Foreground(p.Muted).Bold(false)

	return t
}
