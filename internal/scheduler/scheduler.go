// Package scheduler debounces search requests and sequences the resulting
// search cycles so that only the most recently issued one may publish its
// results.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Func runs one search cycle. ctx is cancelled when a newer cycle is issued
// or the scheduler is closed.
type Func func(ctx context.Context, seq uint64)

// Scheduler coalesces requests arriving within the debounce delay into a
// single cycle, issued once the requests go quiet. Each cycle carries a
// sequence number; Commit only accepts the latest one.
type Scheduler struct {
	delay time.Duration
	run   Func

	base       context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	timer    *time.Timer
	token    uint64 // last debounce token handed out
	pending  uint64 // token of the armed timer, 0 if none
	seq      uint64 // last issued cycle
	cancel   context.CancelFunc
	inflight int
	idle     chan struct{}
	closed   bool
}

// New creates a Scheduler that runs fn after delay of quiescence.
func New(delay time.Duration, fn Func) *Scheduler {
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		delay:      delay,
		run:        fn,
		base:       base,
		cancelBase: cancel,
	}
}

// Request asks for a new cycle. Requests made before the delay elapses
// restart the wait; only the last one leads to a cycle.
func (s *Scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	token := s.arm()
	s.timer = time.AfterFunc(s.delay, func() { s.fire(token) })
}

// Trigger issues a new cycle right away, dropping any pending request.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	token := s.arm()
	s.mu.Unlock()

	go s.fire(token)
}

// arm invalidates the pending timer and returns a fresh token.
func (s *Scheduler) arm() uint64 {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.token++
	s.pending = s.token
	return s.token
}

func (s *Scheduler) fire(token uint64) {
	s.mu.Lock()
	if s.closed || token != s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = 0
	s.timer = nil

	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	s.inflight++
	s.mu.Unlock()

	slog.Debug("search cycle issued", slog.Uint64("seq", seq))
	s.run(ctx, seq)

	s.mu.Lock()
	cancel()
	if s.seq == seq {
		s.cancel = nil
	}
	s.inflight--
	s.signalIdleLocked()
	s.mu.Unlock()
}

// Commit runs apply if seq is the latest issued cycle and the scheduler is
// open, and reports whether it did. apply runs under the scheduler lock,
// so a newer cycle cannot be issued while an older one is being applied.
func (s *Scheduler) Commit(seq uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.seq {
		return false
	}
	apply()
	return true
}

// Latest returns the sequence number of the last issued cycle.
func (s *Scheduler) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Busy reports whether a request is pending or a cycle is running.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busyLocked()
}

func (s *Scheduler) busyLocked() bool {
	return s.pending != 0 || s.inflight > 0
}

// Wait blocks until no request is pending and no cycle is running, or ctx
// is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.busyLocked() {
			s.mu.Unlock()
			return nil
		}
		if s.idle == nil {
			s.idle = make(chan struct{})
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) signalIdleLocked() {
	if s.idle != nil && !s.busyLocked() {
		close(s.idle)
		s.idle = nil
	}
}

// Close abandons the pending request and cancels the running cycle. No
// cycle is issued or committed afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = 0
	s.cancelBase()
	s.signalIdleLocked()
}
