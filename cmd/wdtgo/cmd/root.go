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

	"github.com/mulgadc/wdtgo/internal/wdtconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	appConfig *wdtconfig.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wdtgo",
	Short: "wdtgo supervises a small fleet of child programs on one host",
	Long: `wdtgo is a process watchdog: it launches a declared set of child
programs, monitors them via PID liveness and UDP heartbeats, restarts
them on crash or missed heartbeat, persists run statistics, and can
trigger its own restart or a host reboot on schedule or operator
command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "i", "wdtgo.ini", "path to the supervisor's INI config file")
	viper.BindEnv("config", "WDTGO_CONFIG_PATH")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

// loadConfig reads and validates the configured INI file, used by every
// subcommand that needs the program table rather than just the root.
func loadConfig() (wdtconfig.Config, error) {
	path := viper.GetString("config")
	return wdtconfig.Load(path)
}
