package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/grader/internal/core/styles"
	"github.com/colonyops/grader/internal/render"
)

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	tree := m.treeView()
	file := m.fileView()
	body := lipgloss.JoinHorizontal(lipgloss.Top, tree, file)

	status := styles.StatusBarStyle.Width(m.width).Render(m.statusText())

	bottom := styles.HelpStyle.Render(m.help.ShortHelpView(keys.ShortHelp()))
	if m.comment != nil {
		bottom = m.comment.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, status, bottom)
}

func (m Model) statusText() string {
	if m.flash != "" {
		return m.flash
	}
	return render.StatusLine(m.view)
}

func (m Model) paneStyle(p pane) lipgloss.Style {
	if m.focus == p {
		return styles.PaneFocusedStyle
	}
	return styles.PaneStyle
}

func (m Model) treeView() string {
	width := m.treeWidth()
	height := m.bodyHeight() - 2

	// keep the cursor on screen
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}

	lines := make([]string, 0, height)
	selected := ""
	if m.view.File != nil {
		selected = m.view.File.Path
	}
	for i := start; i < len(m.rows) && len(lines) < height; i++ {
		row := m.rows[i]
		text := render.FormatTreeRow(row, m.opts)
		switch {
		case i == m.cursor && m.focus == paneTree:
			text = styles.SelectedStyle.Render(render.FormatTreeRow(row, plainOpts(m.opts)))
		case row.Node.Path() == selected:
			text = "> " + strings.TrimPrefix(text, "  ")
		}
		lines = append(lines, text)
	}
	if len(m.rows) == 0 {
		lines = append(lines, styles.MutedStyle.Render("no files"))
	}

	return m.paneStyle(paneTree).
		Width(width).
		Height(height).
		MaxHeight(height + 2).
		Render(strings.Join(lines, "\n"))
}

func (m Model) fileView() string {
	content := m.viewport.View()
	if m.view.File == nil {
		content = styles.MutedStyle.Render("select a file")
	}
	return m.paneStyle(paneFile).
		Width(m.viewport.Width).
		Height(m.viewport.Height).
		Render(content)
}

// fileContent renders file rows with the cursor line marked.
func (m Model) fileContent() string {
	var b strings.Builder
	for i, r := range m.fileRows {
		if i > 0 {
			b.WriteByte('\n')
		}
		if r.Line == m.line && !r.Comment && m.focus == paneFile {
			b.WriteString(styles.ChangedLineStyle.Render(r.Text))
			continue
		}
		b.WriteString(r.Text)
	}
	return b.String()
}

func plainOpts(o render.Options) render.Options {
	o.Color = false
	return o
}
