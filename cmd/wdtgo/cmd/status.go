/*
Copyright © 2025 Mulga Defense Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mulgadc/wdtgo/internal/wdtconfig"
	"github.com/mulgadc/wdtgo/internal/wdtstats"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted run statistics for every configured program",
	Long:  `Read each program's persisted stats file from the working directory and render a summary table.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("dir", ".", "working directory containing stats_<name>.raw files")
	statusCmd.Flags().Bool("full", false, "print the full per-program report instead of the summary table")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir, _ := cmd.Flags().GetString("dir")
	full, _ := cmd.Flags().GetBool("full")

	if len(cfg.Programs) == 0 {
		fmt.Println("no programs configured")
		return nil
	}

	if full {
		return printFullReports(cmd, dir, cfg.Programs)
	}
	return printSummaryTable(dir, cfg.Programs)
}

func printSummaryTable(dir string, programs []wdtconfig.Program) error {
	table := pterm.TableData{
		{"NAME", "STARTS", "CRASHES", "HB RESETS", "LAST START", "CPU AVG", "MEM AVG KB"},
	}

	for _, prog := range programs {
		rec, err := readStats(dir, prog.Name)
		if err != nil {
			table = append(table, []string{prog.Name, "-", "-", "-", "-", "-", "-"})
			continue
		}
		table = append(table, []string{
			prog.Name,
			fmt.Sprintf("%d", rec.StartCount),
			fmt.Sprintf("%d", rec.CrashCount),
			fmt.Sprintf("%d", rec.HeartbeatResetCount),
			formatStatusTime(rec.StartedAt),
			fmt.Sprintf("%.1f", rec.CPUAvg),
			fmt.Sprintf("%.0f", rec.MemAvgKB),
		})
	}

	return pterm.DefaultTable.WithHasHeader().WithLeftAlignment().WithData(table).Render()
}

func printFullReports(cmd *cobra.Command, dir string, programs []wdtconfig.Program) error {
	for i, prog := range programs {
		if i > 0 {
			fmt.Println()
		}
		rec, err := readStats(dir, prog.Name)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "program: %s\n  (no stats file yet: %v)\n", prog.Name, err)
			continue
		}
		if err := wdtstats.WriteReport(cmd.OutOrStdout(), prog.Name, rec); err != nil {
			return err
		}
	}
	return nil
}

func readStats(dir, name string) (wdtstats.Record, error) {
	path := filepath.Join(dir, "stats_"+name+".raw")
	data, err := os.ReadFile(path)
	if err != nil {
		return wdtstats.Record{}, err
	}
	return wdtstats.Decode(data)
}

func formatStatusTime(unixSeconds int64) string {
	if unixSeconds == 0 {
		return "never"
	}
	return time.Unix(unixSeconds, 0).UTC().Format("2006-01-02 15:04:05")
}
