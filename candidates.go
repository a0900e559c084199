package serial

import (
	"iter"
	"slices"
	"strconv"
)

// Candidates yields the given paths in order.
func Candidates(paths ...string) iter.Seq[string] {
	return slices.Values(paths)
}

// NumberedCandidates lazily yields prefix+start .. prefix+(start+count-1),
// e.g. /dev/ttyUSB0 through /dev/ttyUSB9.
func NumberedCandidates(prefix string, start, count int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := start; i < start+count; i++ {
			if !yield(prefix + strconv.Itoa(i)) {
				return
			}
		}
	}
}
