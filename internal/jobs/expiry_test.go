package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireOverdue(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpirySweeperRunOnce(t *testing.T) {
	expirer := &countingExpirer{}
	sweeper, err := NewExpirySweeper(expirer, "", quietLogger())
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	sweeper.RunOnce()
	if got := expirer.calls.Load(); got != 1 {
		t.Fatalf("expected one sweep, got %d", got)
	}

	expirer.err = errors.New("store down")
	sweeper.RunOnce()
	if got := expirer.calls.Load(); got != 2 {
		t.Fatalf("a failing sweep must still run, got %d", got)
	}
}

func TestExpirySweeperRejectsBadSchedule(t *testing.T) {
	if _, err := NewExpirySweeper(&countingExpirer{}, "every now and then", quietLogger()); err == nil {
		t.Fatalf("expected schedule parse error")
	}
}

func TestExpirySweeperStartStop(t *testing.T) {
	sweeper, err := NewExpirySweeper(&countingExpirer{}, "@every 1h", quietLogger())
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	sweeper.Start()
	sweeper.Stop()
}
