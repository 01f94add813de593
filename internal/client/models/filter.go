package models

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// FilterAll disables status filtering.
const FilterAll = "all"

// ParseStatusFilter accepts "all" or a status name in any case and returns it
// in canonical form. Unknown names get the nearest status as a suggestion.
func ParseStatusFilter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, FilterAll) {
		return FilterAll, nil
	}

	best, bestDist := "", -1
	for _, st := range AllStatuses {
		if strings.EqualFold(s, string(st)) {
			return string(st), nil
		}
		d := levenshtein.ComputeDistance(strings.ToLower(s), strings.ToLower(string(st)))
		if bestDist < 0 || d < bestDist {
			best, bestDist = string(st), d
		}
	}

	if bestDist <= 3 {
		return "", fmt.Errorf("unknown status %q, did you mean %q?", s, best)
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// MatchesStatus compares case-insensitively; FilterAll matches everything.
func MatchesStatus(c Campaign, filter string) bool {
	return filter == "" || strings.EqualFold(filter, FilterAll) || strings.EqualFold(string(c.Status), filter)
}

// MatchesSearch is a case-insensitive substring match on the title.
func MatchesSearch(c Campaign, term string) bool {
	return term == "" || strings.Contains(strings.ToLower(c.Title), strings.ToLower(term))
}
