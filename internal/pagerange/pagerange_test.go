package pagerange

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exterr "github.com/a3tai/docingest/internal/errors"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		pageCount int
		want      []int
	}{
		{name: "empty selects all", expr: "", pageCount: 3, want: []int{1, 2, 3}},
		{name: "all keyword", expr: "ALL", pageCount: 2, want: []int{1, 2}},
		{name: "single page", expr: "4", pageCount: 10, want: []int{4}},
		{name: "simple range", expr: "1-5", pageCount: 10, want: []int{1, 2, 3, 4, 5}},
		{name: "list", expr: "1,3,10", pageCount: 10, want: []int{1, 3, 10}},
		{name: "mixed", expr: "3,5-7", pageCount: 10, want: []int{3, 5, 6, 7}},
		{name: "unsorted with overlap", expr: "7, 2-4 ,3,2", pageCount: 10, want: []int{2, 3, 4, 7}},
		{name: "degenerate range", expr: "5-5", pageCount: 5, want: []int{5}},
		{name: "empty document", expr: "", pageCount: 0, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.expr, tt.pageCount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "zero", expr: "0"},
		{name: "past end", expr: "11"},
		{name: "range past end", expr: "8-12"},
		{name: "descending", expr: "5-3"},
		{name: "garbage", expr: "abc"},
		{name: "negative", expr: "-2"},
		{name: "open range", expr: "3-"},
		{name: "empty token", expr: "1,,2"},
		{name: "trailing comma", expr: "1,"},
		{name: "too many dashes", expr: "1-2-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.expr, 10)
			require.Error(t, err)
			assert.True(t, exterr.Is(err, exterr.ErrorTypeInvalidRange), "got %v", err)
		})
	}
}

func TestResolve_StrictlyIncreasing(t *testing.T) {
	const pageCount = 20
	for a := 1; a <= pageCount; a++ {
		for b := a; b <= pageCount; b += 3 {
			expr := fmt.Sprintf("%d-%d,%d,%d", a, b, b, a)
			got, err := Resolve(expr, pageCount)
			require.NoError(t, err, expr)
			for i := 1; i < len(got); i++ {
				assert.Less(t, got[i-1], got[i], expr)
			}
			assert.Equal(t, a, got[0])
			assert.Equal(t, b, got[len(got)-1])
		}
	}
}

func TestParse(t *testing.T) {
	ranges, err := Parse("1-3, 7")
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{Start: 1, End: 3}, {Start: 7, End: 7}}, ranges)

	ranges, err = Parse("  ")
	require.NoError(t, err)
	assert.Nil(t, ranges)
}
