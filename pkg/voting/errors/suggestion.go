package errors

import (
	"fmt"
	"strings"
)

// SuggestName suggests the closest known name for an unknown voting or
// aggregation reference using Levenshtein distance.
func SuggestName(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}

	minDistance := 1000
	var bestMatch string
	for _, name := range valid {
		dist := levenshteinDistance(unknown, name)
		if dist < minDistance {
			minDistance = dist
			bestMatch = name
		}
	}

	// Only suggest if the distance is reasonable
	if minDistance < 4 {
		return fmt.Sprintf("did you mean '%s'?", bestMatch)
	}

	if len(valid) > 5 {
		return fmt.Sprintf("known names include: %s, ...", strings.Join(valid[:5], ", "))
	}
	return fmt.Sprintf("known names: %s", strings.Join(valid, ", "))
}

// levenshteinDistance computes the edit distance between two strings, rune by rune.
func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	s1, s2 := []rune(a), []rune(b)

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // Deletion
				curr[j-1]+1,    // Insertion
				prev[j-1]+cost, // Substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
