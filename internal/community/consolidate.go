package community

import (
	"sort"
	"time"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/geo"
)

const (
	// MarkerRadiusKm is the merge radius for map markers.
	MarkerRadiusKm = 0.150

	// DefaultMarkerRetention is how far back map consolidation looks.
	DefaultMarkerRetention = 6 * time.Hour
)

// Consolidate collapses reports from the last retention window into one marker
// per 150 m cluster.
//
// Reports are visited newest first, so the report that opens a marker is the
// newest of its cluster; later (older) reports only bump Count.
func Consolidate(reports []Report, now time.Time, retention time.Duration) []Marker {
	if retention <= 0 {
		retention = DefaultMarkerRetention
	}
	cutoff := now.Add(-retention)

	recent := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		recent = append(recent, r)
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})

	markers := make([]Marker, 0)
	for _, r := range recent {
		merged := false
		for i := range markers {
			if geo.WithinRadiusKm(markers[i].Report.Point(), r.Point(), MarkerRadiusKm) {
				markers[i].Count++
				merged = true
				break
			}
		}
		if !merged {
			markers = append(markers, Marker{Report: r, Count: 1})
		}
	}
	return markers
}
