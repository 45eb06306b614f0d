package remux

import (
	"slices"
	"strings"
)

// SortNatural sorts names so that embedded numbers compare by value:
// "2.ts" sorts before "10.ts". Names equal by value keep lexical order,
// so "01.ts" sorts before "1.ts".
func SortNatural(names []string) {
	slices.SortFunc(names, compareNatural)
}

// NaturalLess reports whether a sorts before b in natural order.
func NaturalLess(a, b string) bool {
	return compareNatural(a, b) < 0
}

func compareNatural(a, b string) int {
	if c := compareChunks(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func compareChunks(a, b string) int {
	for a != "" && b != "" {
		var ca, cb string
		ca, a = nextChunk(a)
		cb, b = nextChunk(b)

		da, db := isDigit(ca[0]), isDigit(cb[0])
		switch {
		case da && db:
			if c := compareNumbers(ca, cb); c != 0 {
				return c
			}
		case da != db:
			// Numbers sort before text.
			if da {
				return -1
			}
			return 1
		default:
			if c := strings.Compare(ca, cb); c != 0 {
				return c
			}
		}
	}

	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// nextChunk splits off the leading run of digits or non-digits.
func nextChunk(s string) (string, string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareNumbers(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
