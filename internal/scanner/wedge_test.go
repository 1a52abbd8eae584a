package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestWedge() (*Wedge, *manualClock) {
	clock := &manualClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	return NewWedge(WithClock(clock.Now)), clock
}

func typeKeys(w *Wedge, clock *manualClock, s string, gap time.Duration) {
	for _, r := range s {
		clock.Advance(gap)
		w.Key(r)
	}
}

func TestWedge_EnterEmits(t *testing.T) {
	w, clock := newTestWedge()
	typeKeys(w, clock, "8412345678905", 20*time.Millisecond)

	code, ok := w.Key('\n')
	require.True(t, ok)
	assert.Equal(t, "8412345678905", code)
	assert.Empty(t, w.Pending())
}

func TestWedge_EmptyEnterDoesNotEmit(t *testing.T) {
	w, _ := newTestWedge()
	_, ok := w.Key('\r')
	assert.False(t, ok)
}

func TestWedge_SlowKeyRestartsBuffer(t *testing.T) {
	w, clock := newTestWedge()
	typeKeys(w, clock, "abc", 10*time.Millisecond)

	clock.Advance(151 * time.Millisecond)
	w.Key('9')
	typeKeys(w, clock, "87", 150*time.Millisecond)

	assert.Equal(t, "987", w.Pending())
	code, ok := w.Key('\n')
	require.True(t, ok)
	assert.Equal(t, "987", code)
}

func TestWedge_IdleTimeout(t *testing.T) {
	w, clock := newTestWedge()
	typeKeys(w, clock, "12345", 10*time.Millisecond)

	clock.Advance(999 * time.Millisecond)
	_, ok := w.Poll()
	assert.False(t, ok)

	clock.Advance(time.Millisecond)
	code, ok := w.Poll()
	require.True(t, ok)
	assert.Equal(t, "12345", code)

	clock.Advance(2 * time.Second)
	_, ok = w.Poll()
	assert.False(t, ok, "empty buffer never emits")
}

func TestWedge_CustomThresholds(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	w := NewWedge(WithClock(clock.Now), WithKeyGap(50*time.Millisecond), WithIdleTimeout(200*time.Millisecond))

	typeKeys(w, clock, "ab", 60*time.Millisecond)
	assert.Equal(t, "b", w.Pending())

	clock.Advance(200 * time.Millisecond)
	code, ok := w.Poll()
	require.True(t, ok)
	assert.Equal(t, "b", code)
}

func TestWedge_Run(t *testing.T) {
	w := NewWedge(WithIdleTimeout(20 * time.Millisecond))
	keys := make(chan rune)
	var got []string

	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), keys, func(code string) { got = append(got, code) })
	}()

	for _, r := range "ABC\n" {
		keys <- r
	}
	for _, r := range "XYZ" {
		keys <- r
	}
	time.Sleep(100 * time.Millisecond)
	keys <- 'Q'
	close(keys)

	require.NoError(t, <-done)
	assert.Equal(t, []string{"ABC", "XYZ", "Q"}, got)
}

func TestWedge_RunStopsOnCancel(t *testing.T) {
	w := NewWedge()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Run(ctx, make(chan rune), func(string) {})
	assert.ErrorIs(t, err, context.Canceled)
}
