package match

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	minRatio = 0.70
	maxRatio = 0.99
)

// compare returns the similarity ratio of two strings in [0, 1].
func compare(s1, s2 string) float64 {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(s1, s2, false)
	matches := 0
	for _, diff := range diffs {
		if diff.Type == diffmatchpatch.DiffEqual {
			matches += len(diff.Text)
		}
	}

	sums := len(s1) + len(s2)
	if sums > 0 {
		return 2.0 * float64(matches) / float64(sums)
	}

	return 1.0
}

// Closest returns the candidate most similar to name, ignoring case.
func Closest(name string, candidates []string) (string, float64) {
	name = strings.ToLower(name)

	best, bestRatio := "", 0.0
	for _, c := range candidates {
		ratio := compare(name, strings.ToLower(c))
		if ratio > bestRatio {
			best, bestRatio = c, ratio
		}
	}

	return best, bestRatio
}

// Suggest returns a candidate that looks like a misspelling of name, or "".
func Suggest(name string, candidates []string) string {
	best, ratio := Closest(name, candidates)
	if ratio > minRatio && ratio < maxRatio {
		return best
	}
	return ""
}
