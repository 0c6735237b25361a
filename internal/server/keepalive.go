// ABOUTME: Activity heartbeat shared by the stream consumer and the local server reaper
// ABOUTME: Lock-free; Touch is called once per received response chunk

package server

import (
	"sync/atomic"
	"time"
)

// Keepalive records the last time the local server was in use.
type Keepalive struct {
	last atomic.Int64 // unix nanoseconds
	now  func() time.Time
}

// NewKeepalive creates a keepalive stamped with the current time. A nil now uses time.Now.
func NewKeepalive(now func() time.Time) *Keepalive {
	if now == nil {
		now = time.Now
	}
	k := &Keepalive{now: now}
	k.Touch()
	return k
}

// Touch marks activity.
func (k *Keepalive) Touch() {
	k.last.Store(k.now().UnixNano())
}

// Last returns the time of the most recent Touch.
func (k *Keepalive) Last() time.Time {
	return time.Unix(0, k.last.Load())
}

// IdleFor returns how long it has been since the last Touch as of now.
func (k *Keepalive) IdleFor(now time.Time) time.Duration {
	d := now.Sub(k.Last())
	if d < 0 {
		return 0
	}
	return d
}
