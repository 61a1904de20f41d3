package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/colonyops/grader/internal/core/styles"
)

var (
	mdMu        sync.Mutex
	mdRenderers = map[int]*glamour.TermRenderer{}
)

// Markdown renders a feedback body for the terminal. Rendering errors fall
// back to the raw body.
func Markdown(body string, width int) string {
	r, err := markdownRenderer(width)
	if err != nil {
		return body
	}
	out, err := r.Render(body)
	if err != nil {
		return body
	}
	return strings.Trim(out, "\n")
}

func markdownRenderer(width int) (*glamour.TermRenderer, error) {
	mdMu.Lock()
	defer mdMu.Unlock()

	if r, ok := mdRenderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	mdRenderers[width] = r
	return r, nil
}

// ResetMarkdown drops cached renderers after a palette change.
func ResetMarkdown() {
	mdMu.Lock()
	defer mdMu.Unlock()
	clear(mdRenderers)
}
