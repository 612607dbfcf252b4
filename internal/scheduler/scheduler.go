package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	jobs     map[string]cron.EntryID
	funcs    map[string]Job
	timezone *time.Location
	timeout  time.Duration
}

// New creates a new scheduler with the given timezone
func New(timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		funcs:    make(map[string]Job),
		timezone: loc,
		timeout:  10 * time.Minute,
	}, nil
}

// AddJob adds a job with a cron schedule, replacing any job of the same name
// schedule format: "0 7 * * *" (at 7:00 AM daily) or "@every 30m"
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		log.Printf("[scheduler] Starting job: %s", name)
		start := time.Now()

		if err := job(ctx); err != nil {
			log.Printf("[scheduler] Job %s failed: %v", name, err)
		} else {
			log.Printf("[scheduler] Job %s completed in %v", name, time.Since(start))
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = entryID
	s.funcs[name] = job
	s.mu.Unlock()
	log.Printf("[scheduler] Added job: %s (schedule: %s)", name, schedule)

	return nil
}

// Job names used by the dashboard
const (
	JobWeeklyReport = "weekly-report"
	JobProbe        = "probe"
)

// AddWeeklyReportJob schedules the weekly report
// schedule format: "0 9 * * 1" (Mondays at 9:00)
func (s *Scheduler) AddWeeklyReportJob(schedule string, job Job) error {
	return s.AddJob(JobWeeklyReport, schedule, job)
}

// AddProbeJob schedules the connectivity probe, e.g. "@every 30m".
// An empty schedule disables it.
func (s *Scheduler) AddProbeJob(schedule string, job Job) error {
	if schedule == "" {
		log.Printf("[scheduler] Probe job disabled")
		return nil
	}
	return s.AddJob(JobProbe, schedule, job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		delete(s.funcs, name)
		log.Printf("[scheduler] Removed job: %s", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	log.Println("[scheduler] Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler
func (s *Scheduler) Stop() context.Context {
	log.Println("[scheduler] Stopping scheduler")
	return s.cron.Stop()
}

// ErrUnknownJob is returned by RunNow for a name that was never added.
var ErrUnknownJob = errors.New("unknown job")

// RunNow immediately executes a registered job, e.g. from the tray or CLI
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.funcs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Printf("[scheduler] Running job now: %s", name)
	return job(ctx)
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
}
