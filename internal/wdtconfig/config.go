// Package wdtconfig loads the supervisor's INI configuration file: one
// [processWatchdog] section plus one [app:<name>] section per supervised
// program. It reads with gopkg.in/ini.v1 rather than hand-rolling a
// line parser.
package wdtconfig

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// MaxProgramNameLength bounds a program's configured name.
const MaxProgramNameLength = 31

// MaxCommandLength bounds a program's configured command line.
const MaxCommandLength = 255

// DefaultMaxPrograms is the program-table size used when the
// [processWatchdog] section doesn't override it.
const DefaultMaxPrograms = 6

// DefaultUDPPort is the heartbeat listener port used when unconfigured.
const DefaultUDPPort = 12345

// Program describes one supervised program.
type Program struct {
	Name                     string
	Command                  string
	StartDelaySeconds        uint64
	HeartbeatDelaySeconds    uint64
	HeartbeatIntervalSeconds uint64
}

// RebootMode mirrors wdtreboot.Mode without importing it, keeping this
// package's only dependency on the reboot domain a plain string/value
// pair the caller translates.
type RebootMode int

const (
	RebootDisabled RebootMode = iota
	RebootDailyTime
	RebootInterval
)

// RebootPolicy is the parsed form of the periodic_reboot setting.
type RebootPolicy struct {
	Mode            RebootMode
	Hour, Minute    int
	IntervalSeconds uint64
}

// Config is the fully parsed, validated configuration.
type Config struct {
	UDPPort     int
	MaxPrograms int
	Reboot      RebootPolicy
	Programs    []Program
}

// Load reads and validates path as an INI file.
func Load(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return FromFile(f)
}

// FromFile builds a Config from an already-parsed ini.File, so callers
// (and tests) can build one in memory with ini.Empty() or ini.Load.
func FromFile(f *ini.File) (Config, error) {
	sup := f.Section("processWatchdog")

	cfg := Config{
		UDPPort:     sup.Key("udp_port").MustInt(DefaultUDPPort),
		MaxPrograms: sup.Key("max_programs").MustInt(DefaultMaxPrograms),
	}

	reboot, err := parseRebootPolicy(sup.Key("periodic_reboot").MustString("OFF"))
	if err != nil {
		return Config{}, err
	}
	cfg.Reboot = reboot

	for _, sec := range f.Sections() {
		name, ok := strings.CutPrefix(sec.Name(), "app:")
		if !ok {
			continue
		}
		prog, err := parseProgram(name, sec)
		if err != nil {
			return Config{}, err
		}
		cfg.Programs = append(cfg.Programs, prog)
	}

	if len(cfg.Programs) > cfg.MaxPrograms {
		return Config{}, fmt.Errorf("%d programs configured, exceeds max_programs=%d", len(cfg.Programs), cfg.MaxPrograms)
	}

	return cfg, nil
}

func parseProgram(name string, sec *ini.Section) (Program, error) {
	if len(name) == 0 || len(name) > MaxProgramNameLength {
		return Program{}, fmt.Errorf("program name %q must be 1-%d characters", name, MaxProgramNameLength)
	}

	cmd := sec.Key("cmd").String()
	if len(cmd) == 0 {
		return Program{}, fmt.Errorf("program %q: cmd is required", name)
	}
	if len(cmd) > MaxCommandLength {
		return Program{}, fmt.Errorf("program %q: cmd exceeds %d characters", name, MaxCommandLength)
	}

	return Program{
		Name:                     name,
		Command:                  cmd,
		StartDelaySeconds:        sec.Key("start_delay").MustUint64(0),
		HeartbeatDelaySeconds:    sec.Key("heartbeat_delay").MustUint64(0),
		HeartbeatIntervalSeconds: sec.Key("heartbeat_interval").MustUint64(0),
	}, nil
}

// MaxRebootIntervalMinutes caps an interval reboot at one year; the
// original implementation disables periodic reboot rather than failing
// to load when a configured interval exceeds this.
const MaxRebootIntervalMinutes = 525600

// parseRebootPolicy parses the periodic_reboot grammar:
//
//	OFF          -> disabled
//	HH:MM        -> fires once daily at that wall-clock time
//	<n>[hdwm]    -> fires every n hours/days/weeks/months of uptime
//	<n>          -> no unit suffix defaults to days
func parseRebootPolicy(raw string) (RebootPolicy, error) {
	raw = strings.TrimSpace(raw)

	if strings.EqualFold(raw, "OFF") || raw == "" {
		return RebootPolicy{Mode: RebootDisabled}, nil
	}

	if hour, minute, ok := parseDailyTime(raw); ok {
		return RebootPolicy{Mode: RebootDailyTime, Hour: hour, Minute: minute}, nil
	}

	if minutes, ok := parseIntervalSpec(raw); ok {
		if minutes > MaxRebootIntervalMinutes {
			slog.Warn("periodic_reboot interval exceeds the maximum, disabling periodic reboot",
				"minutes", minutes, "max_minutes", MaxRebootIntervalMinutes)
			return RebootPolicy{Mode: RebootDisabled}, nil
		}
		return RebootPolicy{Mode: RebootInterval, IntervalSeconds: minutes * 60}, nil
	}

	return RebootPolicy{}, fmt.Errorf("invalid periodic_reboot value %q: want OFF, HH:MM, or <n>[h|d|w|m]", raw)
}

func parseDailyTime(raw string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(raw, ":")
	if !found {
		return 0, 0, false
	}
	hv, err := strconv.Atoi(h)
	if err != nil || hv < 0 || hv > 23 {
		return 0, 0, false
	}
	mv, err := strconv.Atoi(m)
	if err != nil || mv < 0 || mv > 59 {
		return 0, 0, false
	}
	return hv, mv, true
}

// parseIntervalSpec parses an integer optionally followed by a unit
// suffix (h/H, d/D, w/W, m/M). A bare integer with no suffix defaults
// to days, matching the original implementation's fallback unit.
func parseIntervalSpec(raw string) (minutes uint64, ok bool) {
	if len(raw) == 0 {
		return 0, false
	}

	unit := byte('d')
	digits := raw
	if last := raw[len(raw)-1]; last < '0' || last > '9' {
		unit = last
		digits = raw[:len(raw)-1]
	}

	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}

	var minutesPerUnit uint64
	switch unit {
	case 'h', 'H':
		minutesPerUnit = 60
	case 'd', 'D':
		minutesPerUnit = 24 * 60
	case 'w', 'W':
		minutesPerUnit = 7 * 24 * 60
	case 'm', 'M':
		minutesPerUnit = 30 * 24 * 60
	default:
		return 0, false
	}

	return n * minutesPerUnit, true
}
