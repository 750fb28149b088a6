package wdtconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func buildINI(t *testing.T, raw string) *ini.File {
	t.Helper()
	f, err := ini.Load([]byte(raw))
	require.NoError(t, err)
	return f
}

func TestFromFileDefaults(t *testing.T) {
	f := buildINI(t, "")
	cfg, err := FromFile(f)
	require.NoError(t, err)
	assert.Equal(t, DefaultUDPPort, cfg.UDPPort)
	assert.Equal(t, DefaultMaxPrograms, cfg.MaxPrograms)
	assert.Equal(t, RebootDisabled, cfg.Reboot.Mode)
	assert.Empty(t, cfg.Programs)
}

func TestFromFileParsesPrograms(t *testing.T) {
	f := buildINI(t, `
[processWatchdog]
udp_port = 9000

[app:web]
cmd = /usr/bin/web-server --port 8080
start_delay = 2
heartbeat_delay = 10
heartbeat_interval = 5
`)
	cfg, err := FromFile(f)
	require.NoError(t, err)
	require.Len(t, cfg.Programs, 1)

	p := cfg.Programs[0]
	assert.Equal(t, "web", p.Name)
	assert.Equal(t, "/usr/bin/web-server --port 8080", p.Command)
	assert.Equal(t, uint64(2), p.StartDelaySeconds)
	assert.Equal(t, uint64(10), p.HeartbeatDelaySeconds)
	assert.Equal(t, uint64(5), p.HeartbeatIntervalSeconds)
	assert.Equal(t, 9000, cfg.UDPPort)
}

func TestFromFileRejectsMissingCmd(t *testing.T) {
	f := buildINI(t, `
[app:broken]
start_delay = 1
`)
	_, err := FromFile(f)
	assert.Error(t, err)
}

func TestFromFileRejectsTooManyPrograms(t *testing.T) {
	f := buildINI(t, `
[processWatchdog]
max_programs = 1

[app:a]
cmd = /bin/a

[app:b]
cmd = /bin/b
`)
	_, err := FromFile(f)
	assert.Error(t, err)
}

func TestParseRebootPolicyOff(t *testing.T) {
	p, err := parseRebootPolicy("OFF")
	require.NoError(t, err)
	assert.Equal(t, RebootDisabled, p.Mode)
}

func TestParseRebootPolicyDailyTime(t *testing.T) {
	p, err := parseRebootPolicy("03:30")
	require.NoError(t, err)
	assert.Equal(t, RebootDailyTime, p.Mode)
	assert.Equal(t, 3, p.Hour)
	assert.Equal(t, 30, p.Minute)
}

func TestParseRebootPolicyInterval(t *testing.T) {
	p, err := parseRebootPolicy("2d")
	require.NoError(t, err)
	assert.Equal(t, RebootInterval, p.Mode)
	assert.Equal(t, uint64(2*24*60*60), p.IntervalSeconds)
}

func TestParseRebootPolicyIntervalDefaultsToDaysWithoutSuffix(t *testing.T) {
	p, err := parseRebootPolicy("120")
	require.NoError(t, err)
	assert.Equal(t, RebootInterval, p.Mode)
	assert.Equal(t, uint64(120*24*60*60), p.IntervalSeconds)
}

func TestParseRebootPolicyIntervalOverCeilingDisables(t *testing.T) {
	p, err := parseRebootPolicy("100w")
	require.NoError(t, err)
	assert.Equal(t, RebootDisabled, p.Mode)
}

func TestParseRebootPolicyRejectsGarbage(t *testing.T) {
	_, err := parseRebootPolicy("not-a-time")
	assert.Error(t, err)
}

func TestParseRebootPolicyRejectsInvalidClock(t *testing.T) {
	_, err := parseRebootPolicy("25:00")
	assert.Error(t, err)
}
