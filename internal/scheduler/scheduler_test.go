package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestRunRepeatsAfterFailure(t *testing.T) {
	s, err := New(Options{Interval: 10 * time.Millisecond, RunImmediately: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			if calls.Add(1) >= 3 {
				cancel()
			}
			return errors.New("source down")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not repeat")
	}
	if calls.Load() < 3 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestRunStopsDuringStartupDelay(t *testing.T) {
	s, _ := New(Options{Interval: time.Hour, StartupDelay: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, func(context.Context, time.Time) error {
		t.Fatal("must not run before the startup delay elapses")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestNextSlotAligned(t *testing.T) {
	s, _ := New(Options{Interval: 6 * time.Hour, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2026, 3, 2, 7, 15, 0, 0, time.UTC)
	want := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if got := s.nextSlot(now); !got.Equal(want) {
		t.Fatalf("nextSlot = %v, want %v", got, want)
	}
	if got := s.slotStart(want.Add(time.Second)); !got.Equal(want) {
		t.Fatalf("slotStart = %v", got)
	}
}
