package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the daily task. Its context is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs one job every day at HH:MM in a fixed location.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	at       string
	location *time.Location
	job      Job
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

var timeHHMM = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)

// New creates a scheduler for the given time and timezone.
func New(at, timezone string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		location: loc,
		job:      job,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	if err := s.UpdateTime(at); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Start begins cron execution.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// UpdateTime replaces the daily entry with one at the new HH:MM.
func (s *Scheduler) UpdateTime(at string) error {
	hour, minute, err := parseTime(at)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), s.run)
	if err != nil {
		return fmt.Errorf("add cron: %w", err)
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = id
	s.at = at
	return nil
}

// Time returns the configured HH:MM.
func (s *Scheduler) Time() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}

// Next reports the next activation, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	return s.cron.Entry(id).Next
}

// Location returns the scheduler location.
func (s *Scheduler) Location() *time.Location {
	return s.location
}

func (s *Scheduler) run() {
	start := time.Now()
	s.logger.Info("scheduled_job_start", slog.String("at", s.Time()))
	if err := s.job(s.ctx); err != nil {
		s.logger.Warn("scheduled_job_failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled_job_done", slog.Duration("duration", time.Since(start)))
}

func parseTime(value string) (int, int, error) {
	if !timeHHMM.MatchString(value) {
		return 0, 0, fmt.Errorf("invalid time format %q, want HH:MM", value)
	}
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time: %w", err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
