package community

import (
	"sort"
	"time"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/geo"
)

// Vote thresholds on the leading condition.
const (
	HighConfidenceVotes   = 5
	MediumConfidenceVotes = 3
)

// ConsensusForHour tallies the reports that fall in the same calendar date and
// hour as targetHour (in targetHour's location) and, when anchor is set, inside
// the coarse box around it.
//
// Every label of a report is one vote. Conditions are ranked by votes; equal
// counts keep the order in which the labels were first seen. Confidence comes
// from the leading condition's votes alone. Malformed reports are skipped.
func ConsensusForHour(reports []Report, targetHour time.Time, anchor *geo.Point) ConsensusResult {
	loc := targetHour.Location()
	hourStart := startOfHour(targetHour)

	votes := make(map[Condition]int)
	var order []Condition
	matched := 0

	for _, r := range reports {
		if ValidateConditions(r.Conditions) != nil {
			continue
		}
		if !sameHour(r.Timestamp.In(loc), targetHour) {
			continue
		}
		if anchor != nil && !geo.WithinCoarseBox(*anchor, r.Point()) {
			continue
		}
		matched++
		for _, c := range r.Conditions {
			if _, ok := votes[c]; !ok {
				order = append(order, c)
			}
			votes[c]++
		}
	}

	if matched == 0 {
		return ConsensusResult{
			Hour:       hourStart,
			Conditions: []Condition{},
			Confidence: ConfidenceLow,
			HasReports: false,
		}
	}

	ranked := make([]Condition, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return votes[ranked[i]] > votes[ranked[j]]
	})

	tally := make(map[string]int, len(votes))
	for c, n := range votes {
		tally[string(c)] = n
	}

	return ConsensusResult{
		Hour:       hourStart,
		Conditions: ranked,
		Votes:      tally,
		Confidence: ConfidenceForVotes(votes[ranked[0]]),
		HasReports: true,
	}
}

// ConfidenceForVotes maps the leading condition's vote count to a level.
func ConfidenceForVotes(top int) Confidence {
	switch {
	case top >= HighConfidenceVotes:
		return ConfidenceHigh
	case top >= MediumConfidenceVotes:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func sameHour(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd && a.Hour() == b.Hour()
}

// startOfHour truncates t to its wall-clock hour in t's own location.
func startOfHour(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
}
