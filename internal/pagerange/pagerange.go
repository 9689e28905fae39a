// Package pagerange resolves page-selection expressions such as "1-5" or
// "1,3,10" into an ordered, duplicate-free list of 1-based page numbers.
package pagerange

import (
	"sort"
	"strconv"
	"strings"

	exterr "github.com/a3tai/docingest/internal/errors"
)

// AllPages is the expression selecting every page, same as the empty string
const AllPages = "all"

// PageRange represents an inclusive range of 1-based pages
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Parse splits an expression into its ranges without checking them against a
// page count. A single page n parses as {n, n}.
func Parse(expr string) ([]PageRange, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.EqualFold(expr, AllPages) {
		return nil, nil
	}

	var ranges []PageRange
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, invalid("empty token in %q", expr)
		}

		startStr, endStr, isRange := strings.Cut(token, "-")
		start, err := parsePage(startStr)
		if err != nil {
			return nil, invalid("unparseable token %q", token)
		}
		end := start
		if isRange {
			if end, err = parsePage(endStr); err != nil {
				return nil, invalid("unparseable token %q", token)
			}
		}
		if start > end {
			return nil, invalid("descending range %q", token)
		}
		ranges = append(ranges, PageRange{Start: start, End: end})
	}
	return ranges, nil
}

// Resolve parses expr and validates every index against pageCount. The result
// is strictly ascending. Out-of-bounds indices are rejected, never clamped.
func Resolve(expr string, pageCount int) ([]int, error) {
	ranges, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	if ranges == nil {
		pages := make([]int, pageCount)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	seen := make(map[int]struct{})
	for _, r := range ranges {
		if r.Start < 1 || r.End > pageCount {
			return nil, invalid("range %d-%d outside document pages 1-%d", r.Start, r.End, pageCount)
		}
		for p := r.Start; p <= r.End; p++ {
			seen[p] = struct{}{}
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

func parsePage(s string) (int, error) {
	s = strings.TrimSpace(s)
	// Atoi accepts a leading sign; a page number never has one.
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s)
}

func invalid(format string, args ...any) error {
	return exterr.Newf(exterr.ErrorTypeInvalidRange, format, args...)
}
