package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// MainFunc is the blocking body of the daemon, typically the stdio
// tool server loop. It must return when ctx is cancelled.
type MainFunc func(ctx context.Context) error

// LifecycleRunner runs a MainFunc under a cancellable context and
// drains outstanding work on shutdown within a bounded timeout.
type LifecycleRunner struct {
	state    int32
	cancel   context.CancelFunc
	onceStop sync.Once
	hooks    Hooks
	drainer  Drainer
	main     MainFunc
	stopErr  error
	timeout  time.Duration
}

func NewLifecycleRunner(main MainFunc, drainer Drainer, hooks Hooks, timeout time.Duration) *LifecycleRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LifecycleRunner{
		state:   int32(StateNew),
		hooks:   hooks,
		drainer: drainer,
		main:    main,
		timeout: timeout,
	}
}

// Run prints the banner, invokes the hooks and blocks in the main
// function until it returns or ctx is cancelled. The main function's
// error wins over any drain error.
func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.casState(StateNew, StateStarting) {
		return errors.New("invalid state transition")
	}
	PrintBanner()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, r.cancel = context.WithCancel(ctx)
	if r.hooks.OnStart != nil {
		r.hooks.OnStart()
	}
	r.setState(StateRunning)

	var mainErr error
	if r.main != nil {
		mainErr = r.main(ctx)
	} else {
		<-ctx.Done()
	}
	stopErr := r.stop()
	if mainErr != nil && !errors.Is(mainErr, context.Canceled) {
		return mainErr
	}
	return stopErr
}

// Stop cancels the main function and drains.
func (r *LifecycleRunner) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	return r.stop()
}

func (r *LifecycleRunner) State() State {
	return State(atomic.LoadInt32(&r.state))
}

func (r *LifecycleRunner) stop() error {
	r.onceStop.Do(func() {
		r.setState(StateDraining)
		if r.drainer != nil {
			done := make(chan struct{})
			go func() {
				_ = r.drainer.Drain()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(r.timeout):
				r.stopErr = errors.New("drain timeout")
			}
		}
		if r.hooks.OnStop != nil {
			r.hooks.OnStop()
		}
		r.setState(StateStopped)
	})
	return r.stopErr
}

func (r *LifecycleRunner) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&r.state, int32(from), int32(to))
}

func (r *LifecycleRunner) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}
