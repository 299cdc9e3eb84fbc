package community

import (
	"context"
	"errors"
	"time"

	"github.com/apex/log"
	"github.com/jonboulle/clockwork"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/geo"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/observability"
)

// Service runs consensus, map consolidation and submission scoring on top of
// a report store and a contribution counter store.
type Service struct {
	reports  ReportStore
	counters CounterStore
	notifier Notifier
	clock    clockwork.Clock
	metrics  *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the real clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithNotifier publishes accepted reports to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records community metrics to m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new Service.
func NewService(reports ReportStore, counters CounterStore, opts ...Option) *Service {
	s := &Service{
		reports:  reports,
		counters: counters,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest is a validated submission.
type SubmitRequest struct {
	Conditions []Condition
	UserID     string
	Location   geo.Point
	Temp       *float64
}

// Submit scores and stores a new report.
//
// The duplicate check runs before anything is written. The contribution
// counter is only incremented once the append succeeded, so rejected or
// failed submissions never move it.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Contribution, error) {
	if err := ValidateConditions(req.Conditions); err != nil {
		s.metrics.ReportRejected("invalid")
		return Contribution{}, err
	}
	userID := req.UserID
	if userID == "" {
		userID = AnonymousUser
	}
	now := s.clock.Now()

	recent, err := s.reports.Query(ctx, ReportFilter{Since: now.Add(-RankWindow)})
	if err != nil {
		s.metrics.StoreError("query")
		return Contribution{}, NewStoreError("query reports", err)
	}
	nearby := NearbyRecent(recent, req.Location, now)

	if err := CheckDuplicate(nearby, userID, req.Conditions, now); err != nil {
		s.metrics.ReportRejected("duplicate")
		log.WithFields(log.Fields{
			"user":       userID,
			"conditions": JoinConditions(req.Conditions),
		}).Info("community: duplicate submission rejected")
		return Contribution{}, err
	}
	rank := Rank(nearby)

	report, err := s.reports.Append(ctx, ReportInput{
		Conditions: req.Conditions,
		Lat:        req.Location.Lat,
		Lng:        req.Location.Lng,
		UserID:     userID,
		Temp:       req.Temp,
	})
	if err != nil {
		s.metrics.StoreError("append")
		return Contribution{}, NewStoreError("append report", err)
	}

	count, err := s.counters.Increment(ctx, userID)
	if err != nil {
		s.metrics.StoreError("increment")
		log.WithError(err).WithField("report", report.ID).Error("community: report stored but contribution counter failed")
		return Contribution{}, NewStoreError("increment counter", err)
	}

	s.metrics.ReportAccepted()
	s.notify(ctx, report)

	return Contribution{
		Report: report,
		Count:  count,
		Gain:   PrecisionGain(count),
		Rank:   rank,
	}, nil
}

func (s *Service) notify(ctx context.Context, r Report) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ReportSubmitted(ctx, r); err != nil {
		s.metrics.NotificationFailed()
		log.WithError(err).WithField("report", r.ID).Warn("community: notification failed")
	}
}

// Consensus returns the consensus for the hour containing hour. Store
// failures yield an empty LOW result.
func (s *Service) Consensus(ctx context.Context, hour time.Time, anchor *geo.Point) ConsensusResult {
	results := s.HourlyConsensus(ctx, hour, 1, anchor)
	return results[0]
}

// HourlyConsensus returns one result per hour starting at the hour containing
// from. A single store read serves all hours.
func (s *Service) HourlyConsensus(ctx context.Context, from time.Time, hours int, anchor *geo.Point) []ConsensusResult {
	if hours <= 0 {
		hours = 1
	}
	start := startOfHour(from)

	reports, err := s.reports.Query(ctx, ReportFilter{Since: start})
	if err != nil {
		s.metrics.StoreError("query")
		log.WithError(err).Warn("community: consensus degraded to no reports")
		reports = nil
	}

	out := make([]ConsensusResult, 0, hours)
	for i := 0; i < hours; i++ {
		res := ConsensusForHour(reports, start.Add(time.Duration(i)*time.Hour), anchor)
		s.metrics.Consensus(string(res.Confidence))
		out = append(out, res)
	}
	return out
}

// Markers returns consolidated map markers for the retention window
// (DefaultMarkerRetention when zero). Store failures yield no markers.
func (s *Service) Markers(ctx context.Context, retention time.Duration) []Marker {
	if retention <= 0 {
		retention = DefaultMarkerRetention
	}
	now := s.clock.Now()

	reports, err := s.reports.Query(ctx, ReportFilter{Since: now.Add(-retention)})
	if err != nil {
		s.metrics.StoreError("query")
		log.WithError(err).Warn("community: markers degraded to empty")
		return []Marker{}
	}

	markers := Consolidate(reports, now, retention)
	s.metrics.Markers(len(markers))
	return markers
}

// TrackMarkers recomputes the marker set for every report received on feed,
// keeping the markers gauge current. It returns when feed is closed or ctx is
// done.
func (s *Service) TrackMarkers(ctx context.Context, feed <-chan Report, retention time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-feed:
			if !ok {
				return
			}
			markers := s.Markers(ctx, retention)
			log.WithFields(log.Fields{
				"report":  r.ID,
				"markers": len(markers),
			}).Debug("community: markers refreshed")
		}
	}
}

// IsUserError reports whether err is caused by the submission itself rather
// than by infrastructure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrDuplicateSubmission) || errors.Is(err, ErrInvalidConditions)
}
