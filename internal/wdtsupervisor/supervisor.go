// Package wdtsupervisor is the orchestrator: one Supervisor owns the
// UDP endpoint, the per-program descriptors and runtime state, the
// heartbeat tracker, the stats store, the resource sampler, and the
// reboot scheduler, and drives them all from a single tick loop.
package wdtsupervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mulgadc/wdtgo/internal/sampler"
	"github.com/mulgadc/wdtgo/internal/wdtclock"
	"github.com/mulgadc/wdtgo/internal/wdtconfig"
	"github.com/mulgadc/wdtgo/internal/wdtfs"
	"github.com/mulgadc/wdtgo/internal/wdtheartbeat"
	"github.com/mulgadc/wdtgo/internal/wdtproc"
	"github.com/mulgadc/wdtgo/internal/wdtreboot"
	"github.com/mulgadc/wdtgo/internal/wdtstats"
	"github.com/mulgadc/wdtgo/internal/wdtudp"
	"github.com/mulgadc/wdtgo/internal/wdtwire"
)

// Exit codes, the IPC contract with an outer process manager.
const (
	ExitNormal  = 0
	ExitRestart = 2
	ExitReboot  = 3
)

// TickInterval is the UDP poll timeout that paces the loop.
const TickInterval = 500 * time.Millisecond

// ResourceSampleBoundary is how often (loop uptime) resource usage is sampled.
const ResourceSampleBoundary = 60 * time.Second

// StatsFlushBoundary is how often (loop uptime) stats are persisted.
const StatsFlushBoundary = 15 * time.Minute

// maxUSR1BeforeHardAbort short-circuits a graceful shutdown if the
// operator sends SIGUSR1 this many times in one run, for an operator
// stuck waiting on a shutdown that will never complete cleanly.
const maxUSR1BeforeHardAbort = 10

// Supervisor owns every collaborator and the tick loop.
type Supervisor struct {
	cfg    wdtconfig.Config
	dir    string
	clock  wdtclock.Clock
	proc   *wdtproc.Controller
	hb     *wdtheartbeat.Tracker
	stats  []wdtstats.Record
	sample *sampler.Sampler
	reboot *wdtreboot.Schedule
	udp    *wdtudp.Endpoint
	logger *slog.Logger

	startMonotonic    uint64
	lastResourceBound int64
	lastFlushBound    int64

	pendingExit     bool
	pendingExitCode int
}

// New builds a Supervisor over cfg, reading/creating persisted stats
// under dir and binding the configured UDP port.
func New(cfg wdtconfig.Config, dir string, clock wdtclock.Clock, smp *sampler.Sampler, reboot *wdtreboot.Schedule, logger *slog.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	udp, err := wdtudp.Bind(cfg.UDPPort)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:               cfg,
		dir:               dir,
		clock:             clock,
		proc:              wdtproc.New(len(cfg.Programs)),
		hb:                wdtheartbeat.New(clock, len(cfg.Programs)),
		stats:             make([]wdtstats.Record, len(cfg.Programs)),
		sample:            smp,
		reboot:            reboot,
		udp:               udp,
		logger:            logger,
		startMonotonic:    clock.NowMonotonic(),
		lastResourceBound: -1,
		lastFlushBound:    -1,
	}

	if err := s.loadStats(); err != nil {
		udp.Close()
		return nil, err
	}

	return s, nil
}

func (s *Supervisor) statsRawPath(name string) string {
	return filepath.Join(s.dir, "stats_"+name+".raw")
}

func (s *Supervisor) statsLogPath(name string) string {
	return filepath.Join(s.dir, "stats_"+name+".log")
}

func (s *Supervisor) loadStats() error {
	for i, prog := range s.cfg.Programs {
		path := s.statsRawPath(prog.Name)
		if !wdtfs.Exists(path) {
			s.stats[i] = wdtstats.New()
			if err := s.flushStats(i); err != nil {
				return err
			}
			continue
		}
		data, err := wdtfs.ReadAll(path)
		if err != nil {
			return fmt.Errorf("read stats for %s: %w", prog.Name, err)
		}
		s.stats[i] = wdtstats.LoadOrReset(data)
	}
	return nil
}

func (s *Supervisor) flushStats(i int) error {
	prog := s.cfg.Programs[i]
	if err := wdtfs.WriteAll(s.statsRawPath(prog.Name), s.stats[i].Encode()); err != nil {
		return err
	}

	f, err := os.Create(s.statsLogPath(prog.Name))
	if err != nil {
		s.logger.Warn("failed to open stats log", "program", prog.Name, "err", err)
		return nil
	}
	defer f.Close()
	if err := wdtstats.WriteReport(f, prog.Name, s.stats[i]); err != nil {
		s.logger.Warn("failed to render stats report", "program", prog.Name, "err", err)
	}
	return nil
}

func (s *Supervisor) flushAllStats() {
	for i := range s.cfg.Programs {
		if err := s.flushStats(i); err != nil {
			s.logger.Warn("stats flush failed", "program", s.cfg.Programs[i].Name, "err", err)
		}
	}
}

func sentinelPath(dir, prefix, name string) string {
	return filepath.Join(dir, prefix+strings.ToLower(name))
}

func (s *Supervisor) startSentinel(name string) string   { return sentinelPath(s.dir, "start", name) }
func (s *Supervisor) stopSentinel(name string) string    { return sentinelPath(s.dir, "stop", name) }
func (s *Supervisor) restartSentinel(name string) string { return sentinelPath(s.dir, "restart", name) }
func (s *Supervisor) globalSentinel(name string) string  { return filepath.Join(s.dir, name) }

// Run executes the tick loop until ctx is cancelled, a termination
// signal arrives, or a global sentinel/internal error requests exit.
// It returns the exit code an outer process manager should act on.
func (s *Supervisor) Run(ctx context.Context) (int, error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigChan)

	exitCode := ExitNormal
	exitRequested := false
	hardAbort := false
	usr1Count := 0

	for !exitRequested {
		select {
		case <-ctx.Done():
			exitRequested = true
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				s.logger.Info("received termination signal, requesting restart", "signal", sig)
				exitRequested, exitCode = true, ExitRestart
			case syscall.SIGQUIT:
				s.logger.Info("received SIGQUIT, requesting reboot")
				exitRequested, exitCode = true, ExitReboot
			case syscall.SIGUSR1:
				usr1Count++
				s.logger.Info("received SIGUSR1, requesting normal exit", "count", usr1Count)
				exitRequested, exitCode = true, ExitNormal
				if usr1Count >= maxUSR1BeforeHardAbort {
					hardAbort = true
				}
			case syscall.SIGUSR2:
				// Reserved, intentionally inert.
			}
		default:
		}
		if exitRequested {
			break
		}

		if err := s.tick(); err != nil {
			s.logger.Error("tick failed, requesting restart", "err", err)
			exitRequested, exitCode = true, ExitRestart
			break
		}
		if s.pendingExit {
			exitRequested, exitCode = true, s.pendingExitCode
		}
	}

	if hardAbort {
		return exitCode, nil
	}

	s.shutdown()
	return exitCode, nil
}

// tick runs one iteration: receive, per-program scan, global sentinels,
// reboot check.
func (s *Supervisor) tick() error {
	data, err := s.udp.Poll(TickInterval)
	switch {
	case err == nil:
		s.dispatch(wdtwire.Parse(data))
	case errors.Is(err, wdtudp.ErrTimeout):
		// Nothing arrived this tick; proceed to the scan.
	default:
		return err
	}

	loopUptime := s.clock.NowMonotonic() - s.startMonotonic
	resourceBoundary := int64(loopUptime) / int64(ResourceSampleBoundary/time.Second)
	crossedResourceBoundary := resourceBoundary != s.lastResourceBound
	if crossedResourceBoundary {
		s.lastResourceBound = resourceBoundary
	}

	flushBoundary := int64(loopUptime) / int64(StatsFlushBoundary/time.Second)
	crossedFlushBoundary := flushBoundary != s.lastFlushBound
	if crossedFlushBoundary {
		s.lastFlushBound = flushBoundary
	}

	for i := range s.cfg.Programs {
		s.scanProgram(i, loopUptime, crossedResourceBoundary, crossedFlushBoundary)
	}

	s.checkGlobalSentinels()

	if crossedResourceBoundary {
		now := time.Now()
		if s.reboot.Due(now.YearDay(), now.Hour(), now.Minute(), s.clock.NowMonotonic()) {
			s.logger.Info("reboot schedule fired")
			s.requestExit(ExitReboot)
		}
	}

	return nil
}

func (s *Supervisor) requestExit(code int) {
	s.pendingExit = true
	s.pendingExitCode = code
}

func (s *Supervisor) scanProgram(i int, loopUptime uint64, sampleDue, flushDue bool) {
	prog := s.cfg.Programs[i]
	rt := s.proc.Runtime(i)

	if !rt.Started {
		stopSentinel := s.stopSentinel(prog.Name)
		if wdtfs.Exists(stopSentinel) {
			return
		}
		startSentinel := s.startSentinel(prog.Name)
		if wdtfs.Exists(startSentinel) || loopUptime >= prog.StartDelaySeconds {
			s.spawn(i)
		}
		return
	}

	if !s.proc.IsRunning(i) {
		s.logger.Warn("program crashed", "program", prog.Name, "reason", s.proc.ExitReason(i))
		s.stats[i].CrashedAtEvent(s.clock.WallNow())
		s.restart(i)
		return
	}

	if sampleDue && s.sample != nil {
		if sm, err := s.sample.Sample(rt.PID); err == nil {
			s.stats[i].UpdateResourceUsage(sm.CPUPercent, sm.MemoryKB)
		}
	}
	if flushDue {
		if err := s.flushStats(i); err != nil {
			s.logger.Warn("periodic stats flush failed", "program", prog.Name, "err", err)
		}
	}

	if s.hb.IsTimeout(i, true, prog.HeartbeatIntervalSeconds, prog.HeartbeatDelaySeconds) {
		s.logger.Warn("heartbeat timeout", "program", prog.Name)
		s.stats[i].HeartbeatResetAtEvent(s.clock.WallNow())
		s.restart(i)
		return
	}

	if wdtfs.Exists(s.stopSentinel(prog.Name)) {
		s.terminate(i)
		return
	}
	if restartSentinel := s.restartSentinel(prog.Name); wdtfs.Exists(restartSentinel) {
		s.restart(i)
		_ = wdtfs.Remove(restartSentinel)
	}
}

func (s *Supervisor) spawn(i int) {
	prog := s.cfg.Programs[i]
	pid, err := s.proc.Spawn(i, prog.Command)
	if err != nil {
		s.logger.Error("spawn failed", "program", prog.Name, "err", err)
		return
	}

	s.hb.Reset(i)
	if s.sample != nil {
		s.sample.Forget(pid)
	}
	s.stats[i].StartedAtEvent(s.clock.WallNow())
	_ = wdtfs.Remove(s.startSentinel(prog.Name))
	_ = wdtfs.Remove(s.restartSentinel(prog.Name))
	s.logger.Info("program spawned", "program", prog.Name, "pid", pid)
}

func (s *Supervisor) restart(i int) {
	prog := s.cfg.Programs[i]
	pid, err := s.proc.Restart(context.Background(), i, prog.Command)
	if err != nil {
		s.logger.Error("restart failed", "program", prog.Name, "err", err)
		return
	}
	s.hb.Reset(i)
	s.stats[i].StartedAtEvent(s.clock.WallNow())
	s.logger.Info("program restarted", "program", prog.Name, "pid", pid)
}

func (s *Supervisor) terminate(i int) {
	prog := s.cfg.Programs[i]
	if err := s.proc.Terminate(i); err != nil {
		s.logger.Error("terminate failed", "program", prog.Name, "err", err)
		return
	}
	s.logger.Info("program terminated", "program", prog.Name)
}

func (s *Supervisor) checkGlobalSentinels() {
	if path := s.globalSentinel("wdtstop"); wdtfs.Exists(path) {
		s.logger.Info("wdtstop sentinel detected, exiting normally")
		_ = wdtfs.Remove(path)
		s.requestExit(ExitNormal)
	}
	if path := s.globalSentinel("wdtrestart"); wdtfs.Exists(path) {
		s.logger.Info("wdtrestart sentinel detected, requesting restart")
		_ = wdtfs.Remove(path)
		s.requestExit(ExitRestart)
	}
	if path := s.globalSentinel("wdtreboot"); wdtfs.Exists(path) {
		s.logger.Info("wdtreboot sentinel detected, requesting reboot")
		_ = wdtfs.Remove(path)
		s.requestExit(ExitReboot)
	}
}

func (s *Supervisor) dispatch(cmd wdtwire.Command) {
	switch cmd.Kind {
	case wdtwire.KindHeartbeat:
		i, ok := s.findByPID(cmd.PID)
		if !ok {
			return // Unknown PID: likely a previous incarnation, ignore.
		}
		elapsed := s.hb.Elapsed(i)
		if s.hb.FirstSeen(i) {
			s.stats[i].UpdateHeartbeatTime(int64(elapsed))
		} else {
			s.stats[i].UpdateFirstHeartbeatTime(int64(elapsed))
			s.hb.SetFirstReceived(i)
		}
		s.hb.Update(i)

	case wdtwire.KindStart, wdtwire.KindStop, wdtwire.KindRestart:
		// Reserved: parsed but not acted on.

	case wdtwire.KindUnknown:
		s.logger.Debug("unrecognized command", "dump", cmd.Dump)
	}
}

func (s *Supervisor) findByPID(pid int32) (int, bool) {
	for i := range s.cfg.Programs {
		rt := s.proc.Runtime(i)
		if rt.Started && rt.PID == pid {
			return i, true
		}
	}
	return 0, false
}

func (s *Supervisor) shutdown() {
	s.flushAllStats()
	for i, prog := range s.cfg.Programs {
		if s.proc.Runtime(i).Started {
			if err := s.proc.Terminate(i); err != nil {
				s.logger.Error("shutdown terminate failed", "program", prog.Name, "err", err)
			}
		}
	}
	s.udp.Close()
	s.logger.Info("supervisor shutdown complete")
}
