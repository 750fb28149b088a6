// Package wdtheartbeat tracks, per supervised program, the time of the
// last accepted heartbeat and whether the program's current instance
// has ever received one.
package wdtheartbeat

import "github.com/mulgadc/wdtgo/internal/wdtclock"

type programState struct {
	lastSeen  uint64
	firstSeen bool
}

// Tracker owns per-program heartbeat state, indexed by the stable
// program index assigned at config load.
type Tracker struct {
	clock wdtclock.Clock
	progs []programState
}

// New creates a Tracker sized for n programs.
func New(clock wdtclock.Clock, n int) *Tracker {
	return &Tracker{clock: clock, progs: make([]programState, n)}
}

// Reset marks program i as freshly spawned: last-seen ticks to now and
// first-seen is cleared, starting the warm-up clock for the new instance.
func (t *Tracker) Reset(i int) {
	t.progs[i] = programState{lastSeen: t.clock.NowMonotonic(), firstSeen: false}
}

// Update records an accepted heartbeat for program i. The current
// reading is stored even if it is below the previous one: an apparent
// clock regression resets last-seen to now.
func (t *Tracker) Update(i int) {
	t.progs[i].lastSeen = t.clock.NowMonotonic()
}

// SetFirstReceived marks that the current instance of program i has
// received its first heartbeat.
func (t *Tracker) SetFirstReceived(i int) {
	t.progs[i].firstSeen = true
}

// FirstSeen reports whether program i's current instance has received a
// heartbeat yet.
func (t *Tracker) FirstSeen(i int) bool {
	return t.progs[i].firstSeen
}

// Elapsed returns seconds since the last heartbeat (or since spawn, if
// none has arrived yet) for program i. Always non-negative: a monotonic
// clock never truly goes backwards within a process run, but an
// apparent regression is treated as a reset of last-seen to now and
// reports 0.
func (t *Tracker) Elapsed(i int) uint64 {
	now := t.clock.NowMonotonic()
	last := t.progs[i].lastSeen
	if now < last {
		t.progs[i].lastSeen = now
		return 0
	}
	return now - last
}

// IsTimeout reports whether program i has missed its heartbeat deadline.
// started must be the program's current "started" runtime flag:
// a program that isn't started is never timed out. heartbeatInterval
// and heartbeatDelay are the program descriptor's configured values;
// heartbeatInterval == 0 means "no heartbeat required".
func (t *Tracker) IsTimeout(i int, started bool, heartbeatInterval, heartbeatDelay uint64) bool {
	if !started || heartbeatInterval == 0 {
		return false
	}

	threshold := heartbeatInterval
	if !t.progs[i].firstSeen {
		threshold = max64(heartbeatInterval, heartbeatDelay)
	}

	return t.Elapsed(i) >= threshold
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
