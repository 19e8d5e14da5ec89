// Package resolver maps free-text product references onto catalog entries:
// exact id match, then substring containment, then an edit-distance
// fallback over both name and id.
package resolver

import (
	"strings"

	"chatcommerce/internal/domain"
)

// fuzzyThreshold is the largest edit distance still accepted as a match.
const fuzzyThreshold = 3

// Resolve returns the catalog entry best matching query, or nil. Matching
// stages run in order and the first hit wins; within a stage, catalog
// iteration order breaks ties, so equally distant products resolve to the
// first one encountered.
func Resolve(query string, catalog []domain.Product) *domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	for i := range catalog {
		if strings.ToLower(catalog[i].ID) == q {
			return &catalog[i]
		}
	}

	for i := range catalog {
		name := strings.ToLower(catalog[i].Name)
		id := strings.ToLower(catalog[i].ID)
		if strings.Contains(name, q) || strings.Contains(id, q) {
			return &catalog[i]
		}
	}

	var best *domain.Product
	bestDist := fuzzyThreshold + 1
	for i := range catalog {
		d := Distance(q, strings.ToLower(catalog[i].Name))
		if dID := Distance(q, strings.ToLower(catalog[i].ID)); dID < d {
			d = dID
		}
		if d == 0 {
			return &catalog[i]
		}
		if d < bestDist {
			bestDist = d
			best = &catalog[i]
		}
	}
	return best
}

// Distance is the Levenshtein edit distance between a and b with unit
// costs for substitution, insertion, and deletion.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
