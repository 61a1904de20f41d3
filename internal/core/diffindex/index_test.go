package diffindex

import (
	"math"
	"testing"

	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/stretchr/testify/assert"
)

func rng(start, end int) snapshot.Range {
	return snapshot.Range{Start: start, End: end}
}

func TestBuild_MergesOverlapping(t *testing.T) {
	idx := Build([]snapshot.Range{rng(5, 8), rng(7, 10)})

	assert.Equal(t, []snapshot.Range{rng(5, 10)}, idx.Ranges())
	assert.True(t, idx.IsChanged(6))
	assert.False(t, idx.IsChanged(11))
}

func TestBuild_AdjacentEqualsSingle(t *testing.T) {
	split := Build([]snapshot.Range{rng(1, 3), rng(4, 6)})
	single := Build([]snapshot.Range{rng(1, 6)})

	assert.Equal(t, single.Ranges(), split.Ranges())
	for line := -1; line <= 8; line++ {
		assert.Equal(t, single.IsChanged(line), split.IsChanged(line), "line %d", line)
	}
}

func TestBuild_Unsorted(t *testing.T) {
	idx := Build([]snapshot.Range{rng(20, 22), rng(1, 2), rng(10, 12), rng(11, 15)})

	assert.Equal(t, []snapshot.Range{rng(1, 2), rng(10, 15), rng(20, 22)}, idx.Ranges())
}

func TestBuild_InvalidRanges(t *testing.T) {
	idx := Build([]snapshot.Range{rng(5, 3), rng(-4, 0), rng(-2, 2), rng(9, 9)})

	assert.Equal(t, []snapshot.Range{rng(1, 2), rng(9, 9)}, idx.Ranges())
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	in := []snapshot.Range{rng(7, 10), rng(5, 8)}
	_ = Build(in)

	assert.Equal(t, []snapshot.Range{rng(7, 10), rng(5, 8)}, in)
}

func TestIsChanged_Monotonic(t *testing.T) {
	supplied := []snapshot.Range{rng(3, 4), rng(10, 12), rng(11, 11), rng(30, 30)}
	idx := Build(supplied)

	for line := -2; line <= 40; line++ {
		inside := false
		for _, r := range supplied {
			if r.Contains(line) {
				inside = true
			}
		}
		assert.Equal(t, inside, idx.IsChanged(line), "line %d", line)
	}
}

func TestIsChanged_Empty(t *testing.T) {
	var zero Index
	idx := Build(nil)

	for _, line := range []int{-1, 0, 1, 100} {
		assert.False(t, zero.IsChanged(line))
		assert.False(t, idx.IsChanged(line))
	}
	assert.True(t, idx.Empty())
}

func TestClamp(t *testing.T) {
	idx := Build([]snapshot.Range{rng(2, 4), rng(8, 20), rng(30, 40)}).Clamp(10)

	assert.Equal(t, []snapshot.Range{rng(2, 4), rng(8, 10)}, idx.Ranges())
	assert.False(t, idx.IsChanged(11))
	assert.True(t, Build([]snapshot.Range{rng(1, 2)}).Clamp(0).Empty())
}

func TestSweep(t *testing.T) {
	idx := Build([]snapshot.Range{rng(2, 3), rng(5, 9)})

	assert.Equal(t, []bool{false, true, true, false, true, true}, idx.Sweep(6))
	assert.Nil(t, idx.Sweep(0))

	for i, changed := range idx.Sweep(12) {
		assert.Equal(t, idx.IsChanged(i+1), changed, "line %d", i+1)
	}
}

func TestFromMemo(t *testing.T) {
	tests := []struct {
		name string
		memo []int
		want []snapshot.Range
	}{
		{"empty", nil, nil},
		{"none", []int{0, 0, 0}, nil},
		{"runs", []int{1, 1, 0, 2, 0, 0, 3}, []snapshot.Range{rng(1, 2), rng(4, 4), rng(7, 7)}},
		{"trailing", []int{0, 1, 1}, []snapshot.Range{rng(2, 3)}},
		{"negative is unchanged", []int{-1, 1}, []snapshot.Range{rng(2, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromMemo(tt.memo)
			assert.Equal(t, tt.want, got.Ranges())
		})
	}
}

func TestChangedCount(t *testing.T) {
	idx := Build([]snapshot.Range{rng(1, 3), rng(3, 5), rng(10, 10)})
	assert.Equal(t, 6, idx.ChangedCount())
}

func TestBuild_MaxIntEnd(t *testing.T) {
	idx := Build([]snapshot.Range{rng(1, math.MaxInt), rng(5, 10), rng(math.MaxInt, math.MaxInt)})

	assert.Equal(t, []snapshot.Range{rng(1, math.MaxInt)}, idx.Ranges())
	assert.Equal(t, math.MaxInt, idx.ChangedCount())
	assert.True(t, idx.IsChanged(math.MaxInt))
}
