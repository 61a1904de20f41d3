// Package render turns grading views into terminal text. The CLI prints the
// output directly; the TUI feeds it into viewports.
package render

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const defaultWidth = 100

// Options controls rendering.
type Options struct {
	// Color enables ANSI styling. Off for pipes and files.
	Color bool
	// Width is the wrap width for feedback bodies.
	Width int
	// Theme is the chroma style used for syntax highlighting.
	Theme string
	// Icons prefixes tree rows with nerd font icons.
	Icons bool
}

// DetectOptions enables color and sizes output when w is a terminal.
func DetectOptions(w io.Writer, theme string) Options {
	opts := Options{Width: defaultWidth, Theme: theme}

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return opts
	}
	opts.Color = true
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		opts.Width = width
	}
	return opts
}

func (o Options) width() int {
	if o.Width <= 0 {
		return defaultWidth
	}
	return o.Width
}

// paint applies style when color is enabled.
func (o Options) paint(style lipgloss.Style, s string) string {
	if !o.Color {
		return s
	}
	return style.Render(s)
}
