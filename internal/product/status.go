package product

import "fmt"

// MatchStatus classifies the reliability of a row's match.
type MatchStatus string

const (
	// StatusGood indicates a match with a good amount of certainty.
	StatusGood MatchStatus = "GOOD_MATCH"
	// StatusPotential is a doubtful match that may or may not be correct.
	StatusPotential MatchStatus = "POTENTIAL_MATCH"
	// StatusNoMatch means no hit, or only very poor hits.
	StatusNoMatch MatchStatus = "NO_MATCH"
	// StatusSkipped means the row did not carry enough input to search.
	StatusSkipped MatchStatus = "SKIPPED"
)

// MatchStatuses returns the closed set of statuses.
func MatchStatuses() []MatchStatus {
	return []MatchStatus{StatusGood, StatusPotential, StatusNoMatch, StatusSkipped}
}

// Usable reports whether a row with this status carries the matched record.
func (s MatchStatus) Usable() bool {
	return s == StatusGood || s == StatusPotential
}

func (s MatchStatus) Valid() bool {
	switch s {
	case StatusGood, StatusPotential, StatusNoMatch, StatusSkipped:
		return true
	}
	return false
}

func ParseMatchStatus(s string) (MatchStatus, error) {
	st := MatchStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown match status %q", s)
	}
	return st, nil
}
