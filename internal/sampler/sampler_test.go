package sampler

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleSelfProcess(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no /proc filesystem available")
	}

	s, err := New()
	require.NoError(t, err)

	pid := int32(os.Getpid())

	first, err := s.Sample(pid)
	require.NoError(t, err)
	assert.Equal(t, 0.0, first.CPUPercent, "first sample has no prior reading to diff against")
	assert.Greater(t, first.MemoryKB, 0.0)

	time.Sleep(50 * time.Millisecond)

	second, err := s.Sample(pid)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.CPUPercent, 0.0)
}

func TestForgetClearsPriorReading(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no /proc filesystem available")
	}

	s, err := New()
	require.NoError(t, err)

	pid := int32(os.Getpid())
	_, err = s.Sample(pid)
	require.NoError(t, err)

	s.Forget(pid)
	assert.NotContains(t, s.prev, pid)
}

func TestSampleUnknownPidErrors(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no /proc filesystem available")
	}

	s, err := New()
	require.NoError(t, err)

	_, err = s.Sample(1 << 30)
	assert.Error(t, err)
}
