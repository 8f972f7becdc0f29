// Package supervisor runs the bot's long-lived goroutines under one shared
// context with panic recovery and optional restart-with-backoff.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"wosbot/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logx.Logger

	wg       sync.WaitGroup
	errOnce  sync.Once
	firstErr atomic.Value
	doneOnce sync.Once
	doneCh   chan struct{}
}

func New(parent context.Context, log logx.Logger) *Supervisor {
	if log.IsZero() {
		log = logx.Nop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		log:    log,
		doneCh: make(chan struct{}),
	}
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel requests shutdown without waiting for goroutines to exit.
func (s *Supervisor) Cancel() { s.cancel() }

// Err returns the first non-cancellation error any goroutine reported.
func (s *Supervisor) Err() error {
	if v := s.firstErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Go runs fn under the supervisor context. Panics are recovered and recorded
// as errors; context.Canceled returns are a clean stop.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("goroutine panicked",
					logx.String("name", name),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
				s.setErr(fmt.Errorf("panic in %s: %v", name, r))
			}
		}()
		if err := fn(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.setErr(fmt.Errorf("%s: %w", name, err))
		}
	}()
}

// GoRestart runs fn and restarts it after errors or panics with jittered
// exponential backoff, until the context is cancelled or fn returns nil.
// Meant for loops that should self-heal through transient failures.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error) {
	const (
		minBackoff = 250 * time.Millisecond
		maxBackoff = 30 * time.Second
	)
	s.Go(name+".restart", func(ctx context.Context) error {
		backoff := minBackoff
		for {
			if ctx.Err() != nil {
				return nil
			}
			startedAt := time.Now()
			err := runRecovered(ctx, fn)
			if ctx.Err() != nil || err == nil || errors.Is(err, context.Canceled) {
				return nil
			}

			// A loop that ran for a while before failing gets a fresh
			// backoff window.
			if time.Since(startedAt) >= 30*time.Second {
				backoff = minBackoff
			}
			wait := backoff + time.Duration(time.Now().UnixNano()%int64(backoff/5+1))
			s.log.Warn("goroutine restarting",
				logx.String("name", name),
				logx.Duration("backoff", wait),
				logx.Err(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	})
}

func runRecovered(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Stop cancels the context and waits for all goroutines, bounded by ctx.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

func (s *Supervisor) Wait(ctx context.Context) error {
	s.doneOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.doneCh)
		}()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneCh:
		return s.Err()
	}
}

func (s *Supervisor) setErr(err error) {
	s.errOnce.Do(func() { s.firstErr.Store(err) })
}
