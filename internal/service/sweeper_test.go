package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingCleaner struct {
	calls atomic.Int32
	err   error
	ran   chan struct{}
}

func newCountingCleaner() *countingCleaner {
	return &countingCleaner{ran: make(chan struct{}, 16)}
}

func (c *countingCleaner) CleanupExpiredSessions(context.Context) (int64, error) {
	c.calls.Add(1)
	select {
	case c.ran <- struct{}{}:
	default:
	}
	return 2, c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startSweeper(t *testing.T, s *Sweeper) (context.CancelFunc, *sync.WaitGroup) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return cancel, &wg
}

func waitForRun(t *testing.T, c *countingCleaner) {
	t.Helper()
	select {
	case <-c.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}
}

func TestSweeper_RunsOnTrigger(t *testing.T) {
	cleaner := newCountingCleaner()
	s := NewSweeper(cleaner, discardLogger(), time.Hour)
	startSweeper(t, s)

	s.Trigger()
	waitForRun(t, cleaner)
	assert.Equal(t, int32(1), cleaner.calls.Load())
}

func TestSweeper_RunsOnInterval(t *testing.T) {
	cleaner := newCountingCleaner()
	s := NewSweeper(cleaner, discardLogger(), 10*time.Millisecond)
	startSweeper(t, s)

	waitForRun(t, cleaner)
	waitForRun(t, cleaner)
	assert.GreaterOrEqual(t, cleaner.calls.Load(), int32(2))
}

func TestSweeper_TriggerNeverBlocks(t *testing.T) {
	s := NewSweeper(newCountingCleaner(), discardLogger(), time.Hour)

	done := make(chan struct{})
	go func() {
		for range 100 {
			s.Trigger()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked without a running sweeper")
	}
}

func TestSweeper_SurvivesCleanupErrorAndStops(t *testing.T) {
	cleaner := newCountingCleaner()
	cleaner.err = errors.New("db down")
	s := NewSweeper(cleaner, discardLogger(), time.Hour)
	cancel, wg := startSweeper(t, s)

	s.Trigger()
	waitForRun(t, cleaner)
	s.Trigger()
	waitForRun(t, cleaner)

	cancel()
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
