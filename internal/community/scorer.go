package community

import (
	"time"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/geo"
)

const (
	// RankWindow bounds the reports counted towards a submission's rank.
	RankWindow = 60 * time.Minute

	// DuplicateWindow bounds the anti-spam lookback for a submitter.
	DuplicateWindow = 10 * time.Minute

	// MaxClockSkew is how far ahead of the service clock a store-assigned
	// timestamp may be and still count as recent.
	MaxClockSkew = time.Minute
)

// gainSteps[i] is the gain awarded for lifetime count i+1.
var gainSteps = []int{12, 25, 75, 85, 100}

// PrecisionGain maps a lifetime contribution count to its precision gain.
func PrecisionGain(count int64) int {
	if count <= 0 {
		return 0
	}
	if count > int64(len(gainSteps)) {
		return gainSteps[len(gainSteps)-1]
	}
	return gainSteps[count-1]
}

// NearbyRecent returns the reports inside the coarse box around loc submitted
// within RankWindow before now. Reports up to MaxClockSkew after now are kept,
// since stores stamp reports with their own clock.
func NearbyRecent(reports []Report, loc geo.Point, now time.Time) []Report {
	cutoff := now.Add(-RankWindow)
	latest := now.Add(MaxClockSkew)
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.Timestamp.Before(cutoff) || r.Timestamp.After(latest) {
			continue
		}
		if !geo.WithinCoarseBox(loc, r.Point()) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Rank is the 1-based position of a new submission among nearbyRecent.
func Rank(nearbyRecent []Report) int {
	return len(nearbyRecent) + 1
}

// CheckDuplicate returns ErrDuplicateSubmission when userID already submitted
// the same condition set among nearbyRecent within DuplicateWindow of now.
// A different set from the same user is allowed. AnonymousUser carries no
// identity, so anonymous submissions are never duplicates of each other.
func CheckDuplicate(nearbyRecent []Report, userID string, conds []Condition, now time.Time) error {
	if userID == AnonymousUser {
		return nil
	}
	cutoff := now.Add(-DuplicateWindow)
	for _, r := range nearbyRecent {
		if r.UserID != userID || r.Timestamp.Before(cutoff) {
			continue
		}
		if SameConditionSet(r.Conditions, conds) {
			return ErrDuplicateSubmission
		}
	}
	return nil
}
