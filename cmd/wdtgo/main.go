package main

import (
	"log/slog"

	cpuid "github.com/klauspost/cpuid/v2"
	"github.com/mulgadc/wdtgo/cmd/wdtgo/cmd"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		slog.Debug("maxprocs", "msg", format)
	}))
	if err != nil {
		slog.Warn("failed to adjust GOMAXPROCS for cgroup limits", "err", err)
	} else {
		defer undo()
	}

	slog.Debug("host cpu detected", "vendor", cpuid.CPU.VendorID, "brand", cpuid.CPU.BrandName, "logical_cores", cpuid.CPU.LogicalCores)

	cmd.Execute()
}
