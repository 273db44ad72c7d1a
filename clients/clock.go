package clients

import (
	"sync"
	"time"
)

// DefaultEpochDuration matches a one-day epoch.
const DefaultEpochDuration = 24 * time.Hour

// SystemClock derives epochs from wall time: epoch n covers
// [genesis + n*duration, genesis + (n+1)*duration).
type SystemClock struct {
	genesis  time.Time
	duration time.Duration
	now      func() time.Time
}

var _ Clock = (*SystemClock)(nil)

// NewSystemClock returns a clock with the given epoch length counted from the
// Unix epoch. A non-positive duration falls back to DefaultEpochDuration.
func NewSystemClock(duration time.Duration) *SystemClock {
	if duration <= 0 {
		duration = DefaultEpochDuration
	}
	return &SystemClock{
		genesis:  time.UnixMilli(0),
		duration: duration,
		now:      time.Now,
	}
}

func (c *SystemClock) CurrentEpoch() uint64 {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.duration)
}

func (c *SystemClock) NowMs() uint64 {
	ms := c.now().UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// ManualClock is a Clock whose epoch and time only move when told to.
type ManualClock struct {
	mu    sync.Mutex
	epoch uint64
	nowMs uint64
}

var _ Clock = (*ManualClock)(nil)

func NewManualClock(epoch, nowMs uint64) *ManualClock {
	return &ManualClock{epoch: epoch, nowMs: nowMs}
}

func (c *ManualClock) CurrentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *ManualClock) NowMs() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowMs
}

func (c *ManualClock) SetEpoch(epoch uint64) {
	c.mu.Lock()
	c.epoch = epoch
	c.mu.Unlock()
}

// AdvanceEpoch moves the clock n epochs forward.
func (c *ManualClock) AdvanceEpoch(n uint64) {
	c.mu.Lock()
	c.epoch += n
	c.mu.Unlock()
}

func (c *ManualClock) SetNowMs(ms uint64) {
	c.mu.Lock()
	c.nowMs = ms
	c.mu.Unlock()
}
