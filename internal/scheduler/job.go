// Package scheduler runs periodic jobs that never overlap.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/observability"
)

// Func is the work performed by a job run.
type Func func(ctx context.Context) error

// Status is a point-in-time view of a job.
type Status struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Skipped   int       `json:"skipped"`
}

// Job wraps a Func so that at most one run is in flight.
// A run requested while another is active is skipped, not queued.
type Job struct {
	name string
	fn   Func
	log  logrus.FieldLogger

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
	runs    int
	skipped int
}

// NewJob creates a Job.
func NewJob(name string, fn Func, log logrus.FieldLogger) *Job {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Job{
		name: name,
		fn:   fn,
		log:  log.WithField("job", name),
	}
}

// TryRun executes the job unless a run is already active.
// The run is detached from ctx cancellation so it always completes.
// Panics are recovered and reported as errors.
// Returns false when the run was skipped.
func (j *Job) TryRun(ctx context.Context) bool {
	j.mu.Lock()
	if j.running {
		j.skipped++
		j.mu.Unlock()
		j.log.Debug("previous run still active, skipping")
		observability.RecordJobRun(j.name, "skipped")
		return false
	}
	j.running = true
	j.mu.Unlock()

	err := j.runSafely(context.WithoutCancel(ctx))

	j.mu.Lock()
	j.running = false
	j.lastRun = time.Now()
	j.lastErr = err
	j.runs++
	j.mu.Unlock()

	if err != nil {
		j.log.WithError(err).Error("run failed")
		observability.RecordJobRun(j.name, "error")
	} else {
		observability.RecordJobRun(j.name, "success")
	}
	return true
}

func (j *Job) runSafely(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordJobRun(j.name, "panic")
			j.log.WithField("stack", string(debug.Stack())).Errorf("panic: %v", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.fn(ctx)
}

// Every runs the job on each interval tick until ctx is done.
// When immediate is set the first run starts before the first tick.
func (j *Job) Every(ctx context.Context, interval time.Duration, immediate bool) error {
	j.log.WithField("interval", interval).Info("starting scheduler")

	if immediate {
		j.TryRun(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.TryRun(ctx)
		}
	}
}

// Status returns the current job status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Status{
		Name:    j.name,
		Running: j.running,
		LastRun: j.lastRun,
		Runs:    j.runs,
		Skipped: j.skipped,
	}
	if j.lastErr != nil {
		s.LastError = j.lastErr.Error()
	}
	return s
}
