package wdtreboot

import (
	"testing"

	"github.com/mulgadc/wdtgo/internal/wdtclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledNeverFires(t *testing.T) {
	s := Disabled()
	assert.False(t, s.Due(100, 3, 0, 99999))
}

func TestDailyTimeFiresOnceAtConfiguredMinute(t *testing.T) {
	s, err := NewDailyTime(3, 30)
	require.NoError(t, err)

	assert.False(t, s.Due(10, 3, 29, 0))
	assert.True(t, s.Due(10, 3, 30, 0))
	// Same day, same minute re-checked: already fired today.
	assert.False(t, s.Due(10, 3, 30, 0))
}

func TestDailyTimeFiresAgainOnNextDay(t *testing.T) {
	s, err := NewDailyTime(3, 30)
	require.NoError(t, err)

	assert.True(t, s.Due(10, 3, 30, 0))
	assert.True(t, s.Due(11, 3, 30, 0))
}

func TestDailyTimeRejectsInvalidClockValues(t *testing.T) {
	_, err := NewDailyTime(24, 0)
	assert.Error(t, err)

	_, err = NewDailyTime(0, 60)
	assert.Error(t, err)
}

func TestIntervalFiresAfterElapsedSeconds(t *testing.T) {
	clock := &wdtclock.FakeClock{Mono: 1000}
	s, err := NewInterval(clock, 60)
	require.NoError(t, err)

	assert.False(t, s.Due(0, 0, 0, 1030))
	assert.True(t, s.Due(0, 0, 0, 1060))
	// Re-armed for the next period.
	assert.False(t, s.Due(0, 0, 0, 1090))
	assert.True(t, s.Due(0, 0, 0, 1120))
}

func TestIntervalRejectsZero(t *testing.T) {
	clock := &wdtclock.FakeClock{Mono: 0}
	_, err := NewInterval(clock, 0)
	assert.Error(t, err)
}
