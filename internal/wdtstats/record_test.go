package wdtstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := New()
	r.StartedAtEvent(1000)
	r.UpdateFirstHeartbeatTime(2)
	r.UpdateHeartbeatTime(5)
	r.UpdateHeartbeatTime(6)
	r.UpdateResourceUsage(12.5, 4096)

	data := r.Encode()
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestLoadOrResetZeroesOnBadMagic(t *testing.T) {
	r := New()
	r.StartCount = 5
	data := r.Encode()
	data[len(data)-1] ^= 0xFF // corrupt the trailing magic byte

	got := LoadOrReset(data)
	assert.Equal(t, New(), got)
}

func TestLoadOrResetZeroesOnEmptyBuffer(t *testing.T) {
	got := LoadOrReset(nil)
	assert.Equal(t, New(), got)
}

func TestLoadOrResetAcceptsValidBuffer(t *testing.T) {
	r := New()
	r.CrashCount = 3
	data := r.Encode()

	got := LoadOrReset(data)
	assert.Equal(t, r, got)
}

func TestStartedAtEventRollsHeartbeatCount(t *testing.T) {
	r := New()
	r.UpdateHeartbeatTime(1)
	r.UpdateHeartbeatTime(1)
	assert.Equal(t, uint64(2), r.HeartbeatCount)

	r.StartedAtEvent(100)
	assert.Equal(t, uint64(0), r.HeartbeatCount)
	assert.Equal(t, uint64(2), r.HeartbeatCountOld)
}

func TestCrashedAtEventUpdatesAvgHeartbeatCountOld(t *testing.T) {
	r := New()
	r.UpdateHeartbeatTime(1)
	r.UpdateHeartbeatTime(1)
	r.UpdateHeartbeatTime(1)
	r.CrashedAtEvent(200)

	assert.Equal(t, uint64(1), r.CrashCount)
	assert.Equal(t, uint64(3), r.HeartbeatCountOld)
	assert.Equal(t, uint64(0), r.HeartbeatCount)
	assert.Equal(t, uint64(3), r.AvgHeartbeatCountOld)
}

func TestHeartbeatResetAtEventIncrementsSeparateCounter(t *testing.T) {
	r := New()
	r.HeartbeatResetAtEvent(300)
	assert.Equal(t, uint64(1), r.HeartbeatResetCount)
	assert.Equal(t, uint64(0), r.CrashCount)
}

func TestUpdateHeartbeatTimeTracksMinMaxAvg(t *testing.T) {
	r := New()
	r.UpdateHeartbeatTime(10)
	r.UpdateHeartbeatTime(2)
	r.UpdateHeartbeatTime(6)

	assert.Equal(t, int64(2), r.MinHeartbeat)
	assert.Equal(t, int64(10), r.MaxHeartbeat)
	assert.Equal(t, int64(6), r.AvgHeartbeat)
}

func TestUpdateFirstHeartbeatTimeMinKeptAcrossLaterStarts(t *testing.T) {
	r := New()
	r.StartedAtEvent(1)
	r.UpdateFirstHeartbeatTime(10)
	assert.Equal(t, int64(10), r.MinFirstHeartbeat)

	r.StartedAtEvent(2)
	r.UpdateFirstHeartbeatTime(50)
	// StartCount is now 2, so the re-arm guard (StartCount == 1) no
	// longer fires, and 50 > 10 means the minimum is left untouched.
	assert.Equal(t, int64(10), r.MinFirstHeartbeat)
}

func TestUpdateResourceUsageFirstSampleInitializesAvg(t *testing.T) {
	r := New()
	r.UpdateResourceUsage(40, 1000)
	assert.Equal(t, 40.0, r.CPUAvg)
	assert.Equal(t, 40.0, r.CPUMin)
	assert.Equal(t, 40.0, r.CPUMax)
	assert.Equal(t, 1000.0, r.MemAvgKB)
}

func TestUpdateResourceUsageCPUUsesEMA(t *testing.T) {
	r := New()
	r.UpdateResourceUsage(50, 1000)
	r.UpdateResourceUsage(0, 1000)
	// EMA: 0.1*0 + 0.9*50 = 45
	assert.InDelta(t, 45.0, r.CPUAvg, 0.0001)
}

func TestUpdateResourceUsageMemoryUsesArithmeticMean(t *testing.T) {
	r := New()
	r.UpdateResourceUsage(10, 1000)
	r.UpdateResourceUsage(10, 3000)
	assert.Equal(t, 2000.0, r.MemAvgKB)
}
