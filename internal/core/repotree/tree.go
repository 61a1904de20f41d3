// Package repotree turns a flat repository listing into a hierarchical tree.
package repotree

import (
	"strings"

	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/rs/zerolog"
)

// Separator delimits path segments in repository entries.
const Separator = "/"

// Node is either a *Directory or a *File. The unexported method closes the set
// so type switches over Node only need those two cases.
type Node interface {
	Name() string
	Path() string
	node()
}

// Directory is an interior node. Children keep first-seen order.
type Directory struct {
	name     string
	path     string
	children map[string]Node
	order    []string
}

// File is a leaf node that carries the repository entry it was built from.
type File struct {
	name  string
	path  string
	entry snapshot.Entry
}

func (*Directory) node() {}
func (*File) node()      {}

func (d *Directory) Name() string { return d.name }
func (d *Directory) Path() string { return d.path }
func (f *File) Name() string      { return f.name }
func (f *File) Path() string      { return f.path }

// Entry returns the repository entry backing the file.
func (f *File) Entry() snapshot.Entry { return f.entry }

func newDirectory(name, path string) *Directory {
	return &Directory{
		name:     name,
		path:     path,
		children: make(map[string]Node),
	}
}

// Build constructs a tree from entries in input order. Invalid paths are
// skipped and kind collisions are resolved in favour of the later entry; both
// are logged, neither fails the build.
func Build(entries []snapshot.Entry) *Directory {
	logger := logging.Component("repotree")
	root := newDirectory("", "")

	for _, e := range entries {
		segments, ok := SplitPath(e.Path)
		if !ok {
			logger.Warn().Str("path", e.Path).Msg("skipping entry with invalid path")
			continue
		}
		root.insert(segments, e, &logger)
	}

	return root
}

// SplitPath splits a slash-delimited path into segments. Empty and "."
// segments are dropped. It reports false if nothing remains or the path
// contains "..".
func SplitPath(path string) ([]string, bool) {
	raw := strings.Split(path, Separator)
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		switch s {
		case "", ".":
			continue
		case "..":
			return nil, false
		}
		segments = append(segments, s)
	}
	return segments, len(segments) > 0
}

func (d *Directory) insert(segments []string, e snapshot.Entry, logger *zerolog.Logger) {
	current := d
	for i, seg := range segments[:len(segments)-1] {
		switch child := current.children[seg].(type) {
		case *Directory:
			current = child
		case *File:
			logger.Warn().
				Str("path", child.path).
				Str("entry", e.Path).
				Msg("file replaced by directory")
			dir := newDirectory(seg, strings.Join(segments[:i+1], Separator))
			current.set(seg, dir)
			current = dir
		default:
			dir := newDirectory(seg, strings.Join(segments[:i+1], Separator))
			current.set(seg, dir)
			current = dir
		}
	}

	name := segments[len(segments)-1]
	path := strings.Join(segments, Separator)
	existing := current.children[name]

	if e.Kind == snapshot.KindDirectory {
		switch existing.(type) {
		case *Directory:
			return
		case *File:
			logger.Warn().Str("path", path).Msg("file replaced by directory")
		}
		current.set(name, newDirectory(name, path))
		return
	}

	if _, ok := existing.(*Directory); ok {
		logger.Warn().Str("path", path).Msg("directory replaced by file")
	}
	current.set(name, &File{name: name, path: path, entry: e})
}

// set stores a child, keeping its original position if the name was seen before.
func (d *Directory) set(name string, n Node) {
	if _, ok := d.children[name]; !ok {
		d.order = append(d.order, name)
	}
	d.children[name] = n
}

// Children returns the direct children in display order.
func (d *Directory) Children() []Node {
	out := make([]Node, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.children[name])
	}
	return out
}

// Child returns the direct child with the given name.
func (d *Directory) Child(name string) (Node, bool) {
	n, ok := d.children[name]
	return n, ok
}

// Lookup walks the exact path segments from d.
func (d *Directory) Lookup(path string) (Node, bool) {
	segments, ok := SplitPath(path)
	if !ok {
		return nil, false
	}

	var current Node = d
	for _, seg := range segments {
		dir, ok := current.(*Directory)
		if !ok {
			return nil, false
		}
		current, ok = dir.children[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// File returns the file at path, if path names a file.
func (d *Directory) File(path string) (*File, bool) {
	n, ok := d.Lookup(path)
	if !ok {
		return nil, false
	}
	f, ok := n.(*File)
	return f, ok
}

// Walk visits every node below d depth-first in display order. Depth starts
// at 0 for d's children. Returning false from fn skips a directory's children.
func (d *Directory) Walk(fn func(n Node, depth int) bool) {
	d.walk(fn, 0)
}

func (d *Directory) walk(fn func(n Node, depth int) bool, depth int) {
	for _, name := range d.order {
		child := d.children[name]
		descend := fn(child, depth)
		if dir, ok := child.(*Directory); ok && descend {
			dir.walk(fn, depth+1)
		}
	}
}

// Files returns every file below d in display order.
func (d *Directory) Files() []*File {
	var files []*File
	d.Walk(func(n Node, _ int) bool {
		if f, ok := n.(*File); ok {
			files = append(files, f)
		}
		return true
	})
	return files
}
