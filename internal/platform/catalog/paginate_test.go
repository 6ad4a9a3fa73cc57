package catalog

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		items     []int
		page      int
		perPage   int
		wantItems []int
		wantTotal int
	}{
		{"first page", items, 1, 2, []int{1, 2}, 3},
		{"last partial page", items, 3, 2, []int{5}, 3},
		{"exact fit", items, 1, 5, []int{1, 2, 3, 4, 5}, 1},
		{"out of range", items, 4, 2, []int{}, 3},
		{"page zero", items, 0, 2, []int{}, 3},
		{"empty input", nil, 1, 2, []int{}, 1},
		{"empty input far page", []int{}, 7, 2, []int{}, 1},
		{"no page size", items, 1, 0, []int{1, 2, 3, 4, 5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total := Paginate(tt.items, tt.page, tt.perPage)
			assert.Equal(t, tt.wantItems, got)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestShuffle(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	t.Run("same seed same order", func(t *testing.T) {
		assert.Equal(t, Shuffle(items, "42"), Shuffle(items, "42"))
		assert.Equal(t, Shuffle(items, "abc"), Shuffle(items, "abc"))
	})

	t.Run("is a permutation", func(t *testing.T) {
		assert.ElementsMatch(t, items, Shuffle(items, "7"))
	})

	t.Run("different seeds differ", func(t *testing.T) {
		assert.NotEqual(t, Shuffle(items, "1"), Shuffle(items, "2"))
	})

	t.Run("input untouched", func(t *testing.T) {
		before := append([]int(nil), items...)
		_ = Shuffle(items, "9")
		assert.Equal(t, before, items)
	})
}

func TestNewSeed(t *testing.T) {
	seed := NewSeed()
	n, err := strconv.Atoi(seed)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 0)
	assert.Less(t, n, 1_000_000_000)
}
