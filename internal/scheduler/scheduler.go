package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
)

const jobTag = "revalidate"

// DefaultInterval is used when a non-positive interval is configured.
const DefaultInterval = 15 * time.Minute

// Ticker is woken up at every interval.
type Ticker interface {
	Tick()
}

// Scheduler periodically asks the dashboard to revalidate its active location.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Ticker

	mu       sync.Mutex
	interval time.Duration
}

// New creates a new Scheduler.
func New(target Ticker, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
	}
}

// Interval returns the current interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.scheduleLocked(); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	glog.Infof("scheduler: revalidating every %s", s.interval)
	return nil
}

// Reschedule replaces the job with one running at the new interval.
func (s *Scheduler) Reschedule(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: invalid interval %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if interval == s.interval {
		return nil
	}
	if err := s.scheduler.RemoveByTag(jobTag); err != nil {
		glog.Warningf("scheduler: removing job: %v", err)
	}
	s.interval = interval
	if err := s.scheduleLocked(); err != nil {
		return err
	}
	glog.Infof("scheduler: revalidating every %s", interval)
	return nil
}

func (s *Scheduler) scheduleLocked() error {
	_, err := s.scheduler.Every(s.interval).
		Tag(jobTag).
		SingletonMode().
		WaitForSchedule().
		Do(func() {
			glog.V(1).Info("scheduler: revalidation tick")
			s.target.Tick()
		})
	if err != nil {
		return fmt.Errorf("scheduler: schedule job: %w", err)
	}
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
