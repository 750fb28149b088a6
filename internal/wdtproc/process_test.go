package wdtproc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAndIsRunning(t *testing.T) {
	c := New(1)
	pid, err := c.Spawn(0, "sleep 5")
	require.NoError(t, err)
	assert.Greater(t, pid, int32(0))
	assert.True(t, c.IsRunning(0))

	rt := c.Runtime(0)
	assert.True(t, rt.Started)
	assert.Equal(t, pid, rt.PID)

	require.NoError(t, c.Terminate(0))
	assert.False(t, c.IsRunning(0))
	assert.False(t, c.Runtime(0).Started)
}

func TestSpawnCrashIsObservedAsNotRunning(t *testing.T) {
	c := New(1)
	_, err := c.Spawn(0, "/bin/false")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !c.IsRunning(0)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "exit-1", c.ExitReason(0))
}

func TestTerminateGracefulOnSleepyProcess(t *testing.T) {
	c := New(1)
	_, err := c.Spawn(0, "sleep 30")
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, c.Terminate(0))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, c.IsRunning(0))
}

func TestRestartRespawnsAndConfirmsRunning(t *testing.T) {
	c := New(1)
	_, err := c.Spawn(0, "sleep 30")
	require.NoError(t, err)

	pid, err := c.Restart(context.Background(), 0, "sleep 30")
	require.NoError(t, err)
	assert.Greater(t, pid, int32(0))
	assert.True(t, c.IsRunning(0))

	require.NoError(t, c.Terminate(0))
}

func TestSpawnEmptyCommandLineFails(t *testing.T) {
	c := New(1)
	_, err := c.Spawn(0, "   ")
	assert.Error(t, err)
}
