package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWait_Done(t *testing.T) {
	j := Start(func() error { return nil })
	if err := Wait(context.Background(), j, time.Millisecond, time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if j.State() != StateDone {
		t.Fatalf("state=%s want DONE", j.State())
	}
}

func TestWait_Failed(t *testing.T) {
	loadErr := errors.New("bad load")
	j := Start(func() error { return loadErr })
	err := Wait(context.Background(), j, time.Millisecond, time.Second)
	if !errors.Is(err, loadErr) {
		t.Fatalf("err=%v want %v", err, loadErr)
	}
}

func TestWait_Timeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	j := Start(func() error { <-block; return nil })
	err := Wait(context.Background(), j, time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("err=%v want timeout", err)
	}
}

func TestWait_ContextCancel(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	j := Start(func() error { <-block; return nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, j, time.Millisecond, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want canceled", err)
	}
}

func TestFailed_IsTerminal(t *testing.T) {
	submitErr := errors.New("never submitted")
	j := Failed(submitErr)
	if j.State() != StateFailed {
		t.Fatalf("state=%s", j.State())
	}
	if err := Wait(context.Background(), j, time.Millisecond, time.Second); !errors.Is(err, submitErr) {
		t.Fatalf("err=%v", err)
	}
}

func TestWait_NilJob(t *testing.T) {
	if err := Wait(context.Background(), nil, time.Millisecond, time.Second); err != nil {
		t.Fatalf("wait nil: %v", err)
	}
}
