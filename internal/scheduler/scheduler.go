package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/go-co-op/gocron"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

// Refresher refreshes the cached official weather for one location.
type Refresher interface {
	FetchAndStore(ctx context.Context, loc weather.Location) error
}

// Scheduler periodically refreshes official weather for configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	locations []weather.Location
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. A non-positive interval means 15 minutes.
func New(locations []weather.Location, interval time.Duration, refresher Refresher) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		locations: locations,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		log.Info("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() { s.RefreshAll() })
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.WithFields(log.Fields{
		"locations": len(s.locations),
		"interval":  s.interval.String(),
	}).Info("scheduler: started")
	return nil
}

// RefreshAll refreshes every location concurrently and returns the number of
// failures.
func (s *Scheduler) RefreshAll() int {
	start := time.Now()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, loc := range s.locations {
		wg.Add(1)
		go func(loc weather.Location) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if err := s.refresher.FetchAndStore(ctx, loc); err != nil {
				log.WithError(err).WithField("location", loc.Key()).Warn("scheduler: fetch failed")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(loc)
	}
	wg.Wait()

	log.WithFields(log.Fields{
		"locations": len(s.locations),
		"failed":    failed,
		"took":      time.Since(start).String(),
	}).Info("scheduler: completed weather fetch job")
	return failed
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
