// Package tui is the interactive grading console: a file tree on the left and
// the selected file, with changed lines and feedback, on the right.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/render"
)

type pane int

const (
	paneTree pane = iota
	paneFile
)

// resultMsg carries a completed fetch back to the update loop.
type resultMsg struct {
	result grading.Result
}

// Model is the bubbletea model. The session is only touched from Update, so
// fetch results are applied one at a time.
type Model struct {
	ctx     context.Context
	session *grading.Session
	initial []grading.Fetch
	opts    render.Options
	logger  zerolog.Logger

	view      grading.View
	rows      []render.TreeRow
	collapsed map[string]bool
	cursor    int

	fileRows []render.FileRow
	line     int
	viewport viewport.Model

	focus   pane
	comment *commentInput
	flash   string
	help    help.Model

	width  int
	height int
}

// New creates the console. initial are the fetches of the opening selection;
// they start when the program does.
func New(ctx context.Context, s *grading.Session, initial []grading.Fetch, opts render.Options) Model {
	m := Model{
		ctx:       ctx,
		session:   s,
		initial:   initial,
		opts:      opts,
		logger:    logging.Component("tui"),
		collapsed: make(map[string]bool),
		viewport:  viewport.New(0, 0),
		help:      help.New(),
	}
	m.refresh()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, s *grading.Session, initial []grading.Fetch, opts render.Options) error {
	p := tea.NewProgram(New(ctx, s, initial, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return fetchCmd(m.ctx, m.initial)
}

// fetchCmd runs each fetch in its own command.
func fetchCmd(ctx context.Context, fetches []grading.Fetch) tea.Cmd {
	if len(fetches) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(fetches))
	for _, f := range fetches {
		cmds = append(cmds, func() tea.Msg {
			return resultMsg{result: f.Run(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case resultMsg:
		follow := m.session.Apply(msg.result)
		m.refresh()
		return m, fetchCmd(m.ctx, follow)

	case tea.KeyMsg:
		if m.comment != nil {
			return m.updateComment(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// refresh rebuilds derived state from the session view.
func (m *Model) refresh() {
	m.view = m.session.View()

	m.rows = render.TreeRows(m.view.Tree, m.collapsed)
	m.cursor = clamp(m.cursor, 0, len(m.rows)-1)

	m.fileRows = render.FileRows(m.view.File, m.fileOptions())
	if m.view.File == nil || m.view.File.Phase != grading.PhaseReady {
		m.line = 0
	} else {
		m.line = clamp(m.line, 1, max(len(m.view.File.Content.Lines), 1))
	}
	m.redrawFile()
}

// redrawFile re-renders the viewport for the current cursor and focus.
func (m *Model) redrawFile() {
	m.viewport.SetContent(m.fileContent())
	m.scrollToLine()
}

func (m Model) fileOptions() render.Options {
	opts := m.opts
	if m.viewport.Width > 0 {
		opts.Width = m.viewport.Width
	}
	return opts
}

func (m *Model) resize() {
	treeWidth := m.treeWidth()
	m.viewport.Width = max(m.width-treeWidth-4, 10)
	m.viewport.Height = max(m.bodyHeight()-2, 1)
}

func (m Model) treeWidth() int {
	return max(m.width/3, 20)
}

// bodyHeight leaves room for the status and help lines.
func (m Model) bodyHeight() int {
	return max(m.height-2, 3)
}

// scrollToLine keeps the cursor line inside the viewport.
func (m *Model) scrollToLine() {
	row := m.cursorRow()
	if row < 0 {
		return
	}
	if row < m.viewport.YOffset {
		m.viewport.SetYOffset(row)
	} else if row >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(row - m.viewport.Height + 1)
	}
}

// cursorRow is the index in fileRows of the cursor line, or -1.
func (m Model) cursorRow() int {
	for i, r := range m.fileRows {
		if r.Line == m.line && !r.Comment {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
