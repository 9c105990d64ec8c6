package main

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// closest returns the candidate nearest to name, or "" when nothing is
// within a third of name's length.
func closest(name string, candidates []string) string {
	best, bestDist := "", len(name)/3+1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
