// Package scanner turns keystrokes from a keyboard-wedge barcode reader into
// scanned codes.
package scanner

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultKeyGap is the longest pause between two keys of the same scan
	DefaultKeyGap = 150 * time.Millisecond
	// DefaultIdleTimeout emits a pending scan that never got its Enter
	DefaultIdleTimeout = 1000 * time.Millisecond
)

// Option configures a Wedge
type Option func(*Wedge)

// WithKeyGap sets the inter-key threshold
func WithKeyGap(d time.Duration) Option {
	return func(w *Wedge) {
		w.keyGap = d
	}
}

// WithIdleTimeout sets the inactivity timeout
func WithIdleTimeout(d time.Duration) Option {
	return func(w *Wedge) {
		w.idle = d
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(w *Wedge) {
		w.now = now
	}
}

// Wedge accumulates keys typed faster than the key gap. Enter or an idle
// timeout emits the accumulated code; a slow key starts a new one. Empty
// buffers never emit.
type Wedge struct {
	mu     sync.Mutex
	buf    []rune
	last   time.Time
	keyGap time.Duration
	idle   time.Duration
	now    func() time.Time
}

// NewWedge creates a Wedge with the default thresholds
func NewWedge(opts ...Option) *Wedge {
	w := &Wedge{
		keyGap: DefaultKeyGap,
		idle:   DefaultIdleTimeout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Key feeds one keystroke. It returns the scanned code when r is Enter and
// the buffer holds something.
func (w *Wedge) Key(r rune) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if r == '\n' || r == '\r' {
		w.last = now
		return w.takeLocked()
	}

	if len(w.buf) > 0 && now.Sub(w.last) > w.keyGap {
		w.buf = w.buf[:0]
	}
	w.buf = append(w.buf, r)
	w.last = now
	return "", false
}

// Poll emits the pending buffer once the idle timeout has passed since the
// last key
func (w *Wedge) Poll() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) == 0 || w.now().Sub(w.last) < w.idle {
		return "", false
	}
	return w.takeLocked()
}

// Pending returns the buffered keys without emitting them
func (w *Wedge) Pending() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}

func (w *Wedge) takeLocked() (string, bool) {
	if len(w.buf) == 0 {
		return "", false
	}
	code := string(w.buf)
	w.buf = w.buf[:0]
	return code, true
}

// Run reads keys until ctx is done or keys is closed, calling emit for every
// scan. A timer drives the idle timeout. A buffer still pending when keys
// closes is emitted.
func (w *Wedge) Run(ctx context.Context, keys <-chan rune, emit func(string)) error {
	timer := time.NewTimer(w.idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-keys:
			if !ok {
				if code, ok := w.takePending(); ok {
					emit(code)
				}
				return nil
			}
			if code, ok := w.Key(r); ok {
				emit(code)
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.idle)
		case <-timer.C:
			if code, ok := w.Poll(); ok {
				emit(code)
			}
			timer.Reset(w.idle)
		}
	}
}

func (w *Wedge) takePending() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.takeLocked()
}
