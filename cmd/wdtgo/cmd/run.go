package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mulgadc/wdtgo/internal/sampler"
	"github.com/mulgadc/wdtgo/internal/wdtclock"
	"github.com/mulgadc/wdtgo/internal/wdtconfig"
	"github.com/mulgadc/wdtgo/internal/wdtlog"
	"github.com/mulgadc/wdtgo/internal/wdtreboot"
	"github.com/mulgadc/wdtgo/internal/wdtsupervisor"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the supervisor loop",
	Long:  `Start the supervisor loop: load the config, bind the UDP heartbeat socket, and supervise the declared programs until a signal, global sentinel, or internal error requests exit.`,
	RunE:  runSupervisor,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("dir", ".", "working directory for sentinel and stats files")
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir, _ := cmd.Flags().GetString("dir")
	dir, err = filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	logWriter, err := wdtlog.Open(dir)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logWriter.Close()

	logger := wdtlog.NewLogger(logWriter)
	slog.SetDefault(logger)

	clock := wdtclock.NewSystem()

	reboot, err := buildRebootSchedule(cfg.Reboot, clock)
	if err != nil {
		return fmt.Errorf("build reboot schedule: %w", err)
	}

	smp, err := sampler.New()
	if err != nil {
		logger.Warn("resource sampler unavailable, CPU/memory stats will not update", "err", err)
		smp = nil
	}

	sup, err := wdtsupervisor.New(cfg, dir, clock, smp, reboot, logger)
	if err != nil {
		return fmt.Errorf("initialize supervisor: %w", err)
	}

	logger.Info("supervisor starting", "programs", len(cfg.Programs), "udp_port", cfg.UDPPort, "dir", dir)

	code, err := sup.Run(context.Background())
	if err != nil {
		return err
	}

	logger.Info("supervisor exiting", "code", code)
	os.Exit(code)
	return nil
}

func buildRebootSchedule(policy wdtconfig.RebootPolicy, clock wdtclock.Clock) (*wdtreboot.Schedule, error) {
	switch policy.Mode {
	case wdtconfig.RebootDailyTime:
		return wdtreboot.NewDailyTime(policy.Hour, policy.Minute)
	case wdtconfig.RebootInterval:
		return wdtreboot.NewInterval(clock, policy.IntervalSeconds)
	default:
		return wdtreboot.Disabled(), nil
	}
}
