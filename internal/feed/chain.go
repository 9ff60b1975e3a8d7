// Package feed assembles dashboard threads from flat post, follow and tag rows.
package feed

import (
	"strconv"
	"strings"
)

// ChainDelimiter separates ancestor post ids inside a thread reference.
const ChainDelimiter = "/"

// ParseChain parses a thread reference such as "12/7/3" into the ordered
// ancestor-id sequence, root first. Every segment must be a strictly
// positive base-10 integer; an empty, zero or non-numeric segment makes
// the whole reference invalid and ParseChain fails closed with (nil,
// false). The raw reference text therefore never influences a query.
func ParseChain(ref string) ([]uint, bool) {
	if ref == "" {
		return nil, false
	}
	segments := strings.Split(ref, ChainDelimiter)
	ids := make([]uint, 0, len(segments))
	for _, segment := range segments {
		n, err := strconv.ParseUint(segment, 10, 32)
		if err != nil || n == 0 {
			return nil, false
		}
		ids = append(ids, uint(n))
	}
	return ids, true
}
