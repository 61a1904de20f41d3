package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/core/styles"
)

const changedMarker = "+"

// FileRow is one rendered line of a file view. Line is the 1-based source
// line the row shows or annotates; Comment marks rows that belong to a comment.
type FileRow struct {
	Text    string
	Line    int
	Comment bool
}

// FileRows renders a file view: a gutter with line numbers and change
// markers, highlighted code, and each line's comments beneath it.
func FileRows(fv *grading.FileView, opts Options) []FileRow {
	if fv == nil {
		return nil
	}
	switch fv.Phase {
	case grading.PhaseLoading:
		return []FileRow{{Text: opts.paint(styles.MutedStyle, "loading "+fv.Path+"...")}}
	case grading.PhaseError:
		return []FileRow{{Text: opts.paint(styles.ErrorStyle, fmt.Sprintf("failed to load %s: %v", fv.Path, fv.Err))}}
	}

	content := fv.Content
	code := content.Lines
	if opts.Color {
		code = Highlight(content.Path, content.Language, content.Lines, opts.Theme)
	}

	byLine := make(map[int][]feedback.Comment)
	for _, c := range fv.Comments {
		byLine[c.Line] = append(byLine[c.Line], c)
	}

	numWidth := len(strconv.Itoa(len(code)))
	pad := strings.Repeat(" ", numWidth+3)

	out := make([]FileRow, 0, len(code)+2*len(fv.Comments))
	addComment := func(c feedback.Comment) {
		for _, l := range CommentLines(c, opts) {
			out = append(out, FileRow{Text: pad + l, Line: c.Line, Comment: true})
		}
	}

	for i, line := range code {
		n := i + 1
		marker := " "
		if fv.IsChanged(n) {
			marker = opts.paint(styles.ChangedGutter, changedMarker)
		}
		num := opts.paint(styles.LineNumberStyle, fmt.Sprintf("%*d", numWidth, n))
		out = append(out, FileRow{Text: num + " " + marker + " " + line, Line: n})

		for _, c := range byLine[n] {
			addComment(c)
		}
	}

	// comments past the end of the file still belong to it
	for _, c := range fv.Comments {
		if c.Line > len(code) {
			addComment(c)
		}
	}
	return out
}

// FileLines returns the text of FileRows.
func FileLines(fv *grading.FileView, opts Options) []string {
	rows := FileRows(fv, opts)
	if rows == nil {
		return nil
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text
	}
	return out
}

// File writes a file view.
func File(w io.Writer, fv *grading.FileView, opts Options) error {
	for _, l := range FileLines(fv, opts) {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// CommentLines renders one comment as a header and its body.
func CommentLines(c feedback.Comment, opts Options) []string {
	header := CommentHeader(c)

	body := c.Body
	if opts.Color {
		body = Markdown(body, max(opts.width()-12, 20))
	}

	lines := []string{opts.paint(styles.CommentHeaderStyle, header)}
	lines = append(lines, strings.Split(body, "\n")...)
	if opts.Color {
		rendered := styles.CommentStyle.Render(strings.Join(lines, "\n"))
		return strings.Split(rendered, "\n")
	}
	for i := range lines {
		lines[i] = "| " + lines[i]
	}
	return lines
}

// CommentHeader is "#id author, N pts" with edit and pending markers.
func CommentHeader(c feedback.Comment) string {
	var b strings.Builder
	if c.Persisted() {
		b.WriteString("#" + feedback.FormatID(c.CommentID))
	} else {
		b.WriteString("draft")
	}
	if c.Author != "" {
		b.WriteString(" " + c.Author)
	}
	b.WriteString(", " + Points(c.Points))
	if c.HistoryLen() > 0 {
		b.WriteString(" (edited)")
	}
	if !c.Persisted() {
		b.WriteString(" (saving)")
	}
	return b.String()
}

// Points formats a point adjustment with its sign.
func Points(p int) string {
	unit := "pts"
	if p == 1 || p == -1 {
		unit = "pt"
	}
	if p > 0 {
		return fmt.Sprintf("+%d %s", p, unit)
	}
	return fmt.Sprintf("%d %s", p, unit)
}

// SubmissionHeader summarizes the selected submission.
func SubmissionHeader(ref snapshot.SubmissionRef) string {
	parts := []string{}
	if ref.AssignmentName != "" {
		parts = append(parts, ref.AssignmentName)
	}
	parts = append(parts, fmt.Sprintf("submission %d/%d", ref.RowNumber, ref.TotalCount))
	if len(ref.Contributors) > 0 {
		parts = append(parts, strings.Join(ref.Contributors, ", "))
	}
	return strings.Join(parts, " | ")
}

// StatusLine summarizes a session view in one line.
func StatusLine(v grading.View) string {
	switch v.Status {
	case grading.StatusNoSelection:
		if v.Selection.AssignmentID != 0 {
			return "assignment has no submissions"
		}
		return "no assignment selected"
	case grading.StatusLoading:
		return "loading..."
	case grading.StatusError:
		return "error: " + v.Err.Error()
	}

	s := "ready"
	if v.Submission != nil {
		s = SubmissionHeader(*v.Submission)
	}
	if v.File != nil {
		s += " | " + v.File.Path
	}
	return s
}
