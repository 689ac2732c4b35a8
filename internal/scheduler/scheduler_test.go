package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDelay = 30 * time.Millisecond

type recorder struct {
	mu   sync.Mutex
	seqs []uint64
}

func (r *recorder) run(_ context.Context, seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, seq)
}

func (r *recorder) Seqs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.seqs...)
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestScheduler_CoalescesBurst(t *testing.T) {
	r := &recorder{}
	s := New(testDelay, r.run)
	defer s.Close()

	for range 5 {
		s.Request()
	}
	assert.True(t, s.Busy())

	waitIdle(t, s)
	assert.Equal(t, []uint64{1}, r.Seqs())
	assert.False(t, s.Busy())
}

func TestScheduler_RequestRestartsDelay(t *testing.T) {
	r := &recorder{}
	s := New(testDelay, r.run)
	defer s.Close()

	for range 4 {
		s.Request()
		time.Sleep(testDelay / 3)
	}
	assert.Empty(t, r.Seqs())

	waitIdle(t, s)
	assert.Equal(t, []uint64{1}, r.Seqs())
}

func TestScheduler_SeparateBursts(t *testing.T) {
	r := &recorder{}
	s := New(testDelay, r.run)
	defer s.Close()

	s.Request()
	waitIdle(t, s)
	s.Request()
	waitIdle(t, s)

	assert.Equal(t, []uint64{1, 2}, r.Seqs())
	assert.Equal(t, uint64(2), s.Latest())
}

func TestScheduler_TriggerRunsImmediately(t *testing.T) {
	r := &recorder{}
	s := New(time.Hour, r.run)
	defer s.Close()

	s.Request()
	s.Trigger()

	waitIdle(t, s)
	assert.Equal(t, []uint64{1}, r.Seqs())
}

func TestScheduler_LastRequestWins(t *testing.T) {
	started := make(chan uint64, 2)
	release := make(chan struct{})
	var canceled sync.Map

	s := New(testDelay, func(ctx context.Context, seq uint64) {
		started <- seq
		if seq == 1 {
			<-ctx.Done()
			canceled.Store(seq, true)
			// The straggler still tries to publish after the newer cycle.
			<-release
		}
	})
	defer s.Close()

	s.Trigger()
	require.Equal(t, uint64(1), <-started)

	s.Trigger()
	require.Equal(t, uint64(2), <-started)

	assert.Eventually(t, func() bool {
		_, ok := canceled.Load(uint64(1))
		return ok
	}, time.Second, 5*time.Millisecond)

	var applied []uint64
	assert.True(t, s.Commit(2, func() { applied = append(applied, 2) }))
	close(release)
	assert.False(t, s.Commit(1, func() { applied = append(applied, 1) }))

	waitIdle(t, s)
	assert.Equal(t, []uint64{2}, applied)
}

func TestScheduler_CloseAbandonsPending(t *testing.T) {
	r := &recorder{}
	s := New(testDelay, r.run)

	s.Request()
	s.Close()
	waitIdle(t, s)

	time.Sleep(2 * testDelay)
	assert.Empty(t, r.Seqs())

	s.Request()
	s.Trigger()
	assert.False(t, s.Busy())
	assert.False(t, s.Commit(0, func() {}))
}

func TestScheduler_CloseCancelsRunningCycle(t *testing.T) {
	done := make(chan struct{})
	s := New(testDelay, func(ctx context.Context, _ uint64) {
		<-ctx.Done()
		close(done)
	})

	s.Trigger()
	assert.Eventually(t, func() bool { return s.Latest() == 1 }, time.Second, 5*time.Millisecond)

	s.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("running cycle was not cancelled")
	}
	assert.False(t, s.Commit(1, func() {}))
}

func TestScheduler_WaitHonorsContext(t *testing.T) {
	s := New(time.Hour, func(context.Context, uint64) {})
	defer s.Close()

	s.Request()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}
