package community

import (
	"context"
	"time"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/geo"
)

// AnonymousUser is the submitter id used when no identity is known.
const AnonymousUser = "anonymous"

// Report is an immutable community observation.
type Report struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"` // assigned by the store
	Conditions []Condition `json:"conditions"`
	Lat        float64     `json:"lat"`
	Lng        float64     `json:"lng"`
	UserID     string      `json:"userId"`
	Temp       *float64    `json:"temp,omitempty"`
}

// Point returns the report coordinates.
func (r Report) Point() geo.Point {
	return geo.Point{Lat: r.Lat, Lng: r.Lng}
}

// TimestampMillis returns the report time as milliseconds since epoch.
func (r Report) TimestampMillis() int64 {
	return r.Timestamp.UnixMilli()
}

// ReportInput is what a submitter provides; the store adds ID and Timestamp.
type ReportInput struct {
	Conditions []Condition
	Lat        float64
	Lng        float64
	UserID     string
	Temp       *float64
}

// ReportFilter narrows a store query. A zero Since returns everything.
type ReportFilter struct {
	Since time.Time
}

// Confidence rates how strongly reports agree on the dominant condition.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// ConsensusResult is the derived view for one hour bucket.
type ConsensusResult struct {
	Hour       time.Time      `json:"hour"`
	Conditions []Condition    `json:"conditions"`
	Votes      map[string]int `json:"votes,omitempty"`
	Confidence Confidence     `json:"confidence"`
	HasReports bool           `json:"hasReports"`
}

// Marker is one consolidated map pin: the newest report of a cluster plus
// the number of reports merged into it.
type Marker struct {
	Report Report `json:"report"`
	Count  int    `json:"count"`
}

// Contribution is returned to a submitter after an accepted report.
type Contribution struct {
	Report Report `json:"report"`
	Count  int64  `json:"count"`
	Gain   int    `json:"gain"`
	Rank   int    `json:"rank"`
}

// ReportStore is the append-only community report log.
type ReportStore interface {
	Append(ctx context.Context, in ReportInput) (Report, error)
	Query(ctx context.Context, filter ReportFilter) ([]Report, error)
}

// CounterStore keeps the lifetime contribution count per user.
// Increment must be atomic per user.
type CounterStore interface {
	Increment(ctx context.Context, userID string) (int64, error)
}

// Notifier is told about every accepted report.
type Notifier interface {
	ReportSubmitted(ctx context.Context, r Report) error
}
