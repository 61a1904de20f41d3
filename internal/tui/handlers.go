package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/repotree"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Focus):
		if m.focus == paneTree && m.view.File != nil {
			m.focus = paneFile
		} else {
			m.focus = paneTree
		}
		m.redrawFile()
		return m, nil

	case key.Matches(msg, keys.Up):
		m.move(-1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.move(1)
		return m, nil

	case key.Matches(msg, keys.Open):
		return m.open()

	case key.Matches(msg, keys.Next):
		return m.run(m.session.NavigateNext())

	case key.Matches(msg, keys.Prev):
		return m.run(m.session.NavigatePrevious())

	case key.Matches(msg, keys.Retry):
		return m.run(m.session.Retry())

	case key.Matches(msg, keys.Comment):
		if m.focus != paneFile || m.line == 0 {
			m.flash = "open a file and move to a line to comment"
			return m, nil
		}
		c := newCommentInput(m.line, m.width)
		m.comment = &c
		return m, textinput.Blink

	case key.Matches(msg, keys.Delete):
		return m.deleteComment()
	}
	return m, nil
}

func (m *Model) move(delta int) {
	if m.focus == paneTree {
		m.cursor = clamp(m.cursor+delta, 0, len(m.rows)-1)
		return
	}
	if m.line == 0 {
		return
	}
	m.line = clamp(m.line+delta, 1, len(m.view.File.Content.Lines))
	m.redrawFile()
}

// open selects the file under the cursor or folds a directory.
func (m Model) open() (tea.Model, tea.Cmd) {
	if m.focus != paneTree || len(m.rows) == 0 {
		return m, nil
	}

	row := m.rows[m.cursor]
	if dir, ok := row.Node.(*repotree.Directory); ok {
		m.collapsed[dir.Path()] = !m.collapsed[dir.Path()]
		m.refresh()
		return m, nil
	}

	fetches, err := m.session.SelectFile(row.Node.Path())
	if err != nil {
		m.flash = err.Error()
		return m, nil
	}
	m.line = 1
	m.viewport.GotoTop()
	return m.run(fetches)
}

func (m Model) run(fetches []grading.Fetch) (tea.Model, tea.Cmd) {
	m.refresh()
	return m, fetchCmd(m.ctx, fetches)
}

func (m Model) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c, cmd := m.comment.Update(msg)
	switch {
	case c.cancelled:
		m.comment = nil
		return m, nil
	case c.submitted:
		m.comment = nil
		body, points := parseComment(c.input.Value())
		_, fetches, err := m.session.AddFeedback(c.line, body, points, 0)
		if err != nil {
			m.flash = err.Error()
			return m, nil
		}
		return m.run(fetches)
	}
	m.comment = &c
	return m, cmd
}

// deleteComment removes the newest comment on the cursor line.
func (m Model) deleteComment() (tea.Model, tea.Cmd) {
	if m.view.File == nil || m.line == 0 {
		return m, nil
	}

	var target string
	for _, c := range m.session.Comments(m.view.File.Path) {
		if c.Line == m.line {
			target = c.ID
		}
	}
	if target == "" {
		m.flash = "no comment on this line"
		return m, nil
	}

	_, fetches, err := m.session.DeleteFeedback(target)
	if err != nil {
		m.flash = err.Error()
		return m, nil
	}
	return m.run(fetches)
}
