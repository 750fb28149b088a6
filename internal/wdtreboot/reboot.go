// Package wdtreboot decides when the supervisor should trigger a full
// system reboot, independent of any single program's health. It supports
// three modes: disabled, a fixed wall-clock time of day, or a fixed
// interval measured from the supervisor's own uptime.
package wdtreboot

import (
	"fmt"

	"github.com/mulgadc/wdtgo/internal/wdtclock"
)

// Mode selects how Schedule decides a reboot is due.
type Mode int

const (
	// ModeDisabled never triggers a reboot.
	ModeDisabled Mode = iota
	// ModeDailyTime triggers once per day at a fixed hour:minute.
	ModeDailyTime
	// ModeInterval triggers every IntervalSeconds of supervisor uptime.
	ModeInterval
)

// Schedule is an immutable reboot policy plus its own firing state.
type Schedule struct {
	Mode Mode

	Hour   int // ModeDailyTime, 0-23
	Minute int // ModeDailyTime, 0-59

	IntervalSeconds uint64 // ModeInterval

	lastFiredDay   int  // day-of-year the daily trigger last fired, -1 if never
	intervalFired  bool // unused: ModeInterval re-arms through nextIntervalAt
	nextIntervalAt uint64
}

// Disabled returns a schedule that never fires.
func Disabled() *Schedule {
	return &Schedule{Mode: ModeDisabled, lastFiredDay: -1}
}

// NewDailyTime returns a schedule that fires once per day at hour:minute.
func NewDailyTime(hour, minute int) (*Schedule, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid daily reboot time %02d:%02d", hour, minute)
	}
	return &Schedule{Mode: ModeDailyTime, Hour: hour, Minute: minute, lastFiredDay: -1}, nil
}

// NewInterval returns a schedule that fires every seconds of supervisor
// uptime, starting the count from clock.NowMonotonic() at construction.
func NewInterval(clock wdtclock.Clock, seconds uint64) (*Schedule, error) {
	if seconds == 0 {
		return nil, fmt.Errorf("reboot interval must be greater than zero")
	}
	return &Schedule{
		Mode:            ModeInterval,
		IntervalSeconds: seconds,
		lastFiredDay:    -1,
		nextIntervalAt:  clock.NowMonotonic() + seconds,
	}, nil
}

// Due reports whether a reboot should fire right now, given the current
// wall-clock time (as a Go time.Time already broken into day-of-year,
// hour, and minute by the caller) and the current NowMonotonic reading
// of the clock the schedule was built with. It is idempotent within the minute/interval it fires in: a
// daily trigger fires at most once per calendar day, and an interval
// trigger re-arms itself for the next period once consumed.
func (s *Schedule) Due(dayOfYear, hour, minute int, nowMonotonic uint64) bool {
	switch s.Mode {
	case ModeDailyTime:
		if dayOfYear == s.lastFiredDay {
			return false
		}
		if hour == s.Hour && minute == s.Minute {
			s.lastFiredDay = dayOfYear
			return true
		}
		return false

	case ModeInterval:
		if nowMonotonic < s.nextIntervalAt {
			return false
		}
		s.nextIntervalAt = nowMonotonic + s.IntervalSeconds
		return true

	default:
		return false
	}
}
