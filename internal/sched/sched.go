// Package sched runs the bot's periodic jobs on a shared cron runner. All
// schedules are fixed-interval (@every) and evaluated in UTC; a job that
// overruns its interval delays the next run instead of overlapping it.
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"wosbot/pkg/logx"
)

// Job is one periodic task. Errors are logged and never stop the schedule.
type Job func(ctx context.Context) error

type Runner struct {
	log logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
	started bool
}

func NewRunner(log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Runner{
		log:     log,
		entries: map[string]cron.EntryID{},
	}
	cl := cronLogger{log: log}
	r.c = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cl), cron.DelayIfStillRunning(cl)),
	)
	return r
}

// Add registers a named interval job. Adding a name twice replaces the
// previous schedule, which is how config reloads change intervals.
func (r *Runner) Add(name string, every time.Duration, job Job) error {
	if every <= 0 {
		return fmt.Errorf("sched: job %q: interval must be positive", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.entries[name]; ok {
		r.c.Remove(id)
	}
	id, err := r.c.AddFunc("@every "+every.String(), func() {
		r.mu.Lock()
		ctx := r.ctx
		r.mu.Unlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}
		if err := job(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("job failed", logx.String("job", name), logx.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("sched: job %q: %w", name, err)
	}
	r.entries[name] = id
	r.log.Debug("job scheduled", logx.String("job", name), logx.Duration("every", every))
	return nil
}

// Remove drops a named job. Unknown names are a no-op.
func (r *Runner) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.entries[name]; ok {
		r.c.Remove(id)
		delete(r.entries, name)
	}
}

// Start begins firing jobs. Call it only after the platform connection is
// ready so the first ticks have somewhere to send their output.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.started = true
	r.c.Start()
	r.log.Info("scheduler started", logx.Int("jobs", len(r.entries)))
}

// Stop cancels the job context and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	<-r.c.Stop().Done()
	r.log.Info("scheduler stopped")
}

// cronLogger adapts logx to the cron.Logger interface used by the job chain
// wrappers.
type cronLogger struct {
	log logx.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Warn(msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	fields := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logx.Any(key, kv[i+1]))
	}
	return fields
}
