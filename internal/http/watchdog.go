package http

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// ErrInactivityTimeout is returned by a response body when no data arrived
// within Options.InactivityTimeout.
var ErrInactivityTimeout = errors.New("http: no data received within inactivity timeout")

type watchdog struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	timeout time.Duration
}

func newWatchdog(parent context.Context, timeout time.Duration) (context.Context, *watchdog) {
	ctx, cancel := context.WithCancelCause(parent)
	wd := &watchdog{
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
	if timeout > 0 {
		wd.timer = time.AfterFunc(timeout, func() {
			cancel(os.ErrDeadlineExceeded)
		})
	}
	return ctx, wd
}

// Kick pushes the deadline forward after progress was made.
func (wd *watchdog) Kick() {
	if wd.timer != nil {
		wd.timer.Reset(wd.timeout)
	}
}

// Cancel stops the timer and releases the request context.
func (wd *watchdog) Cancel() {
	if wd.timer != nil {
		wd.timer.Stop()
	}
	wd.cancel(nil)
}

// cause replaces err with ErrInactivityTimeout when the watchdog fired.
func (wd *watchdog) cause(err error) error {
	if errors.Is(context.Cause(wd.ctx), os.ErrDeadlineExceeded) {
		return ErrInactivityTimeout
	}
	return err
}

// watchedBody kicks the watchdog on every successful read.
type watchedBody struct {
	io.ReadCloser
	wd *watchdog
}

func (b *watchedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.wd.Kick()
	}
	if err != nil && err != io.EOF {
		err = b.wd.cause(err)
	}
	return n, err
}

func (b *watchedBody) Close() error {
	err := b.ReadCloser.Close()
	b.wd.Cancel()
	return err
}
