package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// commentInput collects a comment for one line. A leading signed integer is
// taken as the point adjustment: "-2 missing edge case".
type commentInput struct {
	input     textinput.Model
	line      int
	submitted bool
	cancelled bool
}

func newCommentInput(line, width int) commentInput {
	ti := textinput.New()
	ti.Placeholder = "[points] comment, enter to save, esc to cancel"
	ti.Prompt = fmt.Sprintf("line %d> ", line)
	ti.Width = max(width-len(ti.Prompt)-2, 10)
	ti.Focus()
	return commentInput{input: ti, line: line}
}

func (c commentInput) Update(msg tea.Msg) (commentInput, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			if strings.TrimSpace(c.input.Value()) != "" {
				c.submitted = true
			}
			return c, nil
		case "esc":
			c.cancelled = true
			return c, nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c commentInput) View() string {
	return c.input.View()
}

// parseComment splits an optional leading point value from the body.
func parseComment(raw string) (body string, points int) {
	raw = strings.TrimSpace(raw)
	first, rest, found := strings.Cut(raw, " ")
	if !found {
		return raw, 0
	}
	if !strings.HasPrefix(first, "+") && !strings.HasPrefix(first, "-") {
		return raw, 0
	}
	p, err := strconv.Atoi(first)
	if err != nil {
		return raw, 0
	}
	return strings.TrimSpace(rest), p
}
