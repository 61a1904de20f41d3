// Package diffindex answers "is this line inside a changed region" for one file.
package diffindex

import (
	"cmp"
	"slices"
	"sort"

	"github.com/colonyops/grader/internal/core/snapshot"
)

// Index is an immutable set of changed lines stored as sorted, disjoint,
// non-adjacent ranges. The zero value reports every line unchanged.
type Index struct {
	ranges []snapshot.Range
}

// Build normalizes ranges into an Index. Ranges with End < Start or End < 1
// are dropped and Start < 1 is clamped to 1. Overlapping and adjacent ranges
// are merged.
func Build(ranges []snapshot.Range) Index {
	valid := make([]snapshot.Range, 0, len(ranges))
	for _, r := range ranges {
		if r.End < r.Start || r.End < 1 {
			continue
		}
		if r.Start < 1 {
			r.Start = 1
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return Index{}
	}

	slices.SortFunc(valid, func(a, b snapshot.Range) int {
		return cmp.Compare(a.Start, b.Start)
	})

	merged := valid[:1]
	for _, r := range valid[1:] {
		last := &merged[len(merged)-1]
		// Start >= 1, so Start-1 cannot underflow. End+1 can overflow at MaxInt.
		if r.Start-1 <= last.End {
			last.End = max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}

	return Index{ranges: merged}
}

// FromMemo builds an Index from a per-line hint where memo[i] > 0 marks line i+1.
func FromMemo(memo []int) Index {
	var ranges []snapshot.Range
	start := 0
	for i, v := range memo {
		line := i + 1
		switch {
		case v > 0 && start == 0:
			start = line
		case v <= 0 && start != 0:
			ranges = append(ranges, snapshot.Range{Start: start, End: line - 1})
			start = 0
		}
	}
	if start != 0 {
		ranges = append(ranges, snapshot.Range{Start: start, End: len(memo)})
	}
	return Index{ranges: ranges}
}

// IsChanged reports whether line is inside a changed range. Non-positive
// lines and lines past the last range are never changed.
func (idx Index) IsChanged(line int) bool {
	if line < 1 || len(idx.ranges) == 0 {
		return false
	}
	// first range whose end is at or after line
	i := sort.Search(len(idx.ranges), func(i int) bool {
		return idx.ranges[i].End >= line
	})
	return i < len(idx.ranges) && idx.ranges[i].Start <= line
}

// Ranges returns a copy of the merged ranges.
func (idx Index) Ranges() []snapshot.Range {
	return slices.Clone(idx.ranges)
}

// Len returns the number of merged ranges.
func (idx Index) Len() int {
	return len(idx.ranges)
}

// Empty reports whether no line is changed.
func (idx Index) Empty() bool {
	return len(idx.ranges) == 0
}

// Clamp returns an Index bounded to a file of n lines.
func (idx Index) Clamp(n int) Index {
	if n < 1 {
		return Index{}
	}
	out := make([]snapshot.Range, 0, len(idx.ranges))
	for _, r := range idx.ranges {
		if r.Start > n {
			break
		}
		r.End = min(r.End, n)
		out = append(out, r)
	}
	return Index{ranges: out}
}

// Sweep returns one flag per line of an n-line file in a single pass.
// Element i corresponds to line i+1.
func (idx Index) Sweep(n int) []bool {
	if n < 1 {
		return nil
	}
	out := make([]bool, n)
	for _, r := range idx.ranges {
		if r.Start > n {
			break
		}
		for line := r.Start; line <= min(r.End, n); line++ {
			out[line-1] = true
		}
	}
	return out
}

// ChangedCount returns the number of changed lines. Ranges are disjoint and
// within [1, MaxInt], so the sum cannot overflow.
func (idx Index) ChangedCount() int {
	total := 0
	for _, r := range idx.ranges {
		total += r.End - r.Start + 1
	}
	return total
}
