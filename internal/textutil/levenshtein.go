package textutil

import "github.com/agnivade/levenshtein"

// EditRatio returns 1 - distance/maxLen in [0, 1], where distance is the
// rune-level Levenshtein distance. Two empty strings are identical.
func EditRatio(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	ratio := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
	if ratio < 0 {
		return 0
	}
	return ratio
}
