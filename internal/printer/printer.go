// Package printer writes human-facing status lines for CLI commands.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/grader/internal/core/styles"
)

type ctxKey struct{}

// Printer writes styled status messages. Command output meant for pipes goes
// to the command's writer instead; the printer is for people.
type Printer struct {
	w     io.Writer
	color bool
}

// New creates a printer writing to w. Styling is only applied when color is
// true.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// NewContext attaches p to ctx.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer attached to ctx, or a plain stderr printer.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stderr, false)
}

func (p *Printer) line(style lipgloss.Style, icon, msg string) {
	if p.color {
		icon = style.Render(icon)
	}
	_, _ = fmt.Fprintf(p.w, "%s %s\n", icon, msg)
}

// Printf writes an unadorned line.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

// Section writes a heading.
func (p *Printer) Section(title string) {
	if p.color {
		title = styles.HeaderStyle.Render(title)
	}
	_, _ = fmt.Fprintln(p.w, title)
}

// Success writes a success line with a muted detail.
func (p *Printer) Success(title, detail string) {
	if p.color {
		detail = styles.MutedStyle.Render(detail)
	}
	p.line(styles.SuccessStyle, "✔", title+" "+detail)
}

func (p *Printer) Successf(format string, args ...any) {
	p.line(styles.SuccessStyle, "✔", fmt.Sprintf(format, args...))
}

func (p *Printer) Infof(format string, args ...any) {
	p.line(styles.MutedStyle, "•", fmt.Sprintf(format, args...))
}

func (p *Printer) Warnf(format string, args ...any) {
	p.line(styles.StatusModifiedStyle, "!", fmt.Sprintf(format, args...))
}

func (p *Printer) Errorf(format string, args ...any) {
	p.line(styles.ErrorStyle, "✘", fmt.Sprintf(format, args...))
}
