// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a periodic background task.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per run; defaults to 30s
	Run      func(ctx context.Context) error
}

// Runner drives a set of jobs on their own tickers until stopped.
type Runner struct {
	log    *zap.Logger
	jobs   []Job
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRunner creates a runner for jobs. Jobs with a non-positive interval or
// nil Run are skipped with a warning.
func NewRunner(logger *zap.Logger, jobs ...Job) *Runner {
	r := &Runner{log: logger, stopCh: make(chan struct{})}
	for _, j := range jobs {
		if j.Interval <= 0 || j.Run == nil {
			logger.Warn("task skipped: no interval or run func", zap.String("task", j.Name))
			continue
		}
		if j.Timeout <= 0 {
			j.Timeout = 30 * time.Second
		}
		r.jobs = append(r.jobs, j)
	}
	return r
}

// Start launches one goroutine per job.
func (r *Runner) Start() {
	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(j)
		r.log.Info("task started", zap.String("task", j.Name), zap.Duration("interval", j.Interval))
	}
}

// Stop signals all jobs and waits for in-flight runs. Safe to call twice.
func (r *Runner) Stop() {
	r.once.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
		r.log.Info("tasks stopped")
	})
}

func (r *Runner) loop(j Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runOnce(j)
		}
	}
}

func (r *Runner) runOnce(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		r.log.Error("task failed", zap.String("task", j.Name), zap.Error(err))
	}
}
