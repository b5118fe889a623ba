// internal/cli/runner.go
package cli

import (
	"context"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// SpinnerInterval is how often the progress indicator redraws.
var SpinnerInterval = 120 * time.Millisecond

type result struct {
	value interface{}
	err   error
}

// Background runs fn on its own goroutine while the foreground redraws a
// progress indicator labelled label. The result comes back over a
// channel; cancelling ctx stops waiting and cancels fn.
func Background(ctx context.Context, label string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value: value, err: err}
	}()

	ticker := time.NewTicker(SpinnerInterval)
	defer ticker.Stop()

	frame := 0
	Warnf("%s %s", spinnerFrames[frame], label)
	for {
		select {
		case r := <-done:
			Normf("\r\033[K")
			return r.value, r.err
		case <-ctx.Done():
			Normf("\r\033[K")
			return nil, ctx.Err()
		case <-ticker.C:
			frame = (frame + 1) % len(spinnerFrames)
			Warnf("\r%s %s", spinnerFrames[frame], label)
		}
	}
}

// Poll calls fn until it reports done, up to attempts times with interval
// between calls.
func Poll(ctx context.Context, attempts int, interval time.Duration, fn func(ctx context.Context) (bool, error)) error {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		done, err := fn(ctx)
		if err != nil || done {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ErrStillPending
}
