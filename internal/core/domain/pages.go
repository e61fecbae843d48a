package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePageRange expands a page range expression such as "1-3,7" into an
// ordered, de-duplicated list of 1-based page numbers. An empty expression
// means all pages. Pages outside [1, pageCount] are rejected. The result
// is truncated to MaxPagesPerRequest, never an error, so oversized ranges
// degrade to a bounded prefix.
func ParsePageRange(expr string, pageCount int) ([]int, error) {
	if pageCount < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidReference)
	}

	var pages []int
	seen := make(map[int]bool)
	add := func(n int) {
		if !seen[n] && len(pages) < MaxPagesPerRequest {
			seen[n] = true
			pages = append(pages, n)
		}
	}

	expr = strings.TrimSpace(expr)
	if expr == "" {
		for n := 1; n <= pageCount; n++ {
			add(n)
		}
		return pages, nil
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parsePageNumber(lo, pageCount)
			if err != nil {
				return nil, err
			}
			end, err := parsePageNumber(hi, pageCount)
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, fmt.Errorf("%w: descending page range %q", ErrInvalidReference, part)
			}
			for n := start; n <= end; n++ {
				add(n)
			}
			continue
		}

		n, err := parsePageNumber(part, pageCount)
		if err != nil {
			return nil, err
		}
		add(n)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: empty page range %q", ErrInvalidReference, expr)
	}
	return pages, nil
}

func parsePageNumber(s string, pageCount int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: bad page number %q", ErrInvalidReference, s)
	}
	if n < 1 || n > pageCount {
		return 0, fmt.Errorf("%w: page %d out of range 1-%d", ErrInvalidReference, n, pageCount)
	}
	return n, nil
}
