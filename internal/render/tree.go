package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/colonyops/grader/internal/core/repotree"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/core/styles"
)

// TreeRow is one visible line of a file tree.
type TreeRow struct {
	Node  repotree.Node
	Depth int
	// Collapsed is set for directories whose children are hidden.
	Collapsed bool
}

// IsFile reports whether the row is a file.
func (r TreeRow) IsFile() bool {
	_, ok := r.Node.(*repotree.File)
	return ok
}

// TreeRows flattens root in display order. Children of directories named in
// collapsed are skipped.
func TreeRows(root *repotree.Directory, collapsed map[string]bool) []TreeRow {
	if root == nil {
		return nil
	}
	var rows []TreeRow
	root.Walk(func(n repotree.Node, depth int) bool {
		folded := collapsed[n.Path()]
		rows = append(rows, TreeRow{Node: n, Depth: depth, Collapsed: folded})
		return !folded
	})
	return rows
}

// FormatTreeRow renders a row as "<indent><marker> <name>".
func FormatTreeRow(r TreeRow, opts Options) string {
	indent := strings.Repeat("  ", r.Depth)

	switch n := r.Node.(type) {
	case *repotree.Directory:
		name := n.Name() + "/"
		if opts.Icons {
			name = styles.DirIcon(!r.Collapsed) + name
		}
		return indent + "  " + opts.paint(styles.DirectoryStyle, name)
	case *repotree.File:
		e := n.Entry()
		name := n.Name()
		if opts.Icons {
			name = styles.FileIcon(n.Path()) + name
		}
		style := styles.StatusStyle(e.Status)
		marker := styles.StatusMarker(e.Status)
		if marker == " " && len(e.ChangeRanges) > 0 {
			marker = styles.StatusMarker(snapshot.StatusModified)
			style = styles.StatusModifiedStyle
		}
		return indent + opts.paint(style, marker) + " " + opts.paint(style, name)
	default:
		return indent
	}
}

// Tree writes the whole tree, one row per line.
func Tree(w io.Writer, root *repotree.Directory, opts Options) error {
	for _, row := range TreeRows(root, nil) {
		if _, err := fmt.Fprintln(w, FormatTreeRow(row, opts)); err != nil {
			return err
		}
	}
	return nil
}
