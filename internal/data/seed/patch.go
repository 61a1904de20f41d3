package seed

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/colonyops/grader/internal/core/snapshot"
)

// Change is what a patch says about one file.
type Change struct {
	Status snapshot.ChangeStatus
	Ranges []snapshot.Range
}

// ParsePatch reads a unified diff and returns the change per new file path.
// Ranges cover added lines in new-file numbering; deleted files have none.
func ParsePatch(raw string) (map[string]Change, error) {
	out := make(map[string]Change)
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}

	files, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}

	for _, f := range files {
		name := f.NewName
		status := snapshot.StatusModified
		switch {
		case f.IsNew:
			status = snapshot.StatusAdded
		case f.IsDelete:
			status = snapshot.StatusRemoved
			name = f.OldName
		}

		var ranges []snapshot.Range
		for _, frag := range f.TextFragments {
			ranges = append(ranges, addedRanges(frag)...)
		}
		out[name] = Change{Status: status, Ranges: ranges}
	}
	return out, nil
}

// addedRanges walks a fragment and collects runs of added lines.
func addedRanges(frag *gitdiff.TextFragment) []snapshot.Range {
	var ranges []snapshot.Range
	line := int(frag.NewPosition)
	if line == 0 {
		line = 1
	}

	start := 0
	flush := func(end int) {
		if start != 0 {
			ranges = append(ranges, snapshot.Range{Start: start, End: end})
			start = 0
		}
	}

	for _, l := range frag.Lines {
		switch l.Op {
		case gitdiff.OpAdd:
			if start == 0 {
				start = line
			}
			line++
		case gitdiff.OpContext:
			flush(line - 1)
			line++
		case gitdiff.OpDelete:
			// deletions do not advance new-file numbering
		}
	}
	flush(line - 1)
	return ranges
}

// contentID is a git-style blob hash of the content.
func contentID(content string) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
