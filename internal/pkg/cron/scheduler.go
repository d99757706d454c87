package cron

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Gate reports whether a job should fire at the given tick.
type Gate func(now time.Time) bool

// Job represents a scheduled job
type Job struct {
	Name     string
	Interval time.Duration
	Gate     Gate // nil fires on every tick
	Fn       func(ctx context.Context) error
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	jobs   []Job
	log    *zap.Logger
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a new cron scheduler
func NewScheduler(log *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make([]Job, 0),
		log:    log,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(name string, interval time.Duration, gate Gate, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, Job{
		Name:     name,
		Interval: interval,
		Gate:     gate,
		Fn:       fn,
	})
	s.log.Info("cron job registered", zap.String("name", name), zap.Duration("interval", interval))
}

// Start begins running all scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(job)
	}

	s.log.Info("cron scheduler started", zap.Int("job_count", len(s.jobs)))
}

// Stop gracefully stops all scheduled jobs
func (s *Scheduler) Stop() {
	s.log.Info("stopping cron scheduler")
	s.cancel()
	s.wg.Wait()
	s.log.Info("cron scheduler stopped")
}

func (s *Scheduler) runJob(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.tick(s.ctx, job)

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info("cron job stopping", zap.String("name", job.Name))
			return
		case <-ticker.C:
			s.tick(s.ctx, job)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	if job.Gate != nil && !job.Gate(s.now()) {
		return
	}
	start := time.Now()
	s.log.Debug("cron job starting", zap.String("name", job.Name))

	if err := job.Fn(ctx); err != nil {
		s.log.Error("cron job failed", zap.String("name", job.Name), zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	s.log.Debug("cron job completed", zap.String("name", job.Name), zap.Duration("duration", time.Since(start)))
}

// RunOnce runs every job whose gate is open now, ignoring intervals.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		s.tick(ctx, job)
	}
}

// AtHour opens once per hourly tick, during the given local hour.
func AtHour(hour int, loc *time.Location) Gate {
	return func(now time.Time) bool {
		return now.In(loc).Hour() == hour
	}
}

// Weekly opens during the given local hour on the given weekday.
func Weekly(day time.Weekday, hour int, loc *time.Location) Gate {
	return func(now time.Time) bool {
		local := now.In(loc)
		return local.Weekday() == day && local.Hour() == hour
	}
}
