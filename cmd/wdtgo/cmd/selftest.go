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
	"net"
	"os"
	"strconv"
	"time"

	"github.com/mulgadc/wdtgo/internal/wdtfs"
	"github.com/mulgadc/wdtgo/internal/wdtstats"
	"github.com/mulgadc/wdtgo/internal/wdtudp"
	"github.com/spf13/cobra"
)

const selftestUDPTimeout = 500 * time.Millisecond

func dialSelf(port int) (net.Conn, error) {
	return net.Dial("udp4", "127.0.0.1:"+strconv.Itoa(port))
}

var selftests = map[string]func() error{
	"udp":       selftestUDP,
	"stats":     selftestStats,
	"sentinels": selftestSentinels,
}

var selftestCmd = &cobra.Command{
	Use:   "selftest <name>",
	Short: "Run a named self-test and exit",
	Long: `Run one of the built-in self-tests (udp, stats, sentinels) against this
host and exit 0 on success, 1 on failure. Intended for use from an install
script or health check rather than interactively.`,
	Args: cobra.ExactArgs(1),
	RunE: runSelftest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}

func runSelftest(cmd *cobra.Command, args []string) error {
	name := args[0]
	test, ok := selftests[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown self-test %q (known: udp, stats, sentinels)\n", name)
		os.Exit(1)
	}

	if err := test(); err != nil {
		fmt.Fprintf(os.Stderr, "self-test %q failed: %v\n", name, err)
		os.Exit(1)
	}

	fmt.Printf("self-test %q passed\n", name)
	return nil
}

// selftestUDP confirms the process can bind and round-trip a datagram on an
// ephemeral port, the same socket machinery the supervisor loop depends on.
func selftestUDP() error {
	ep, err := wdtudp.Bind(0)
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	defer ep.Close()

	conn, err := dialSelf(ep.LocalPort())
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("p1")); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	data, err := ep.Poll(selftestUDPTimeout)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if string(data) != "p1" {
		return fmt.Errorf("unexpected echo: %q", data)
	}
	return nil
}

// selftestStats confirms a fresh stats record survives an encode/decode
// round trip bit-for-bit, catching layout mistakes before they reach disk.
func selftestStats() error {
	rec := wdtstats.New()
	rec.StartedAtEvent(1)
	rec.UpdateHeartbeatTime(5)

	decoded, err := wdtstats.Decode(rec.Encode())
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if decoded != rec {
		return fmt.Errorf("round trip mismatch: got %+v, want %+v", decoded, rec)
	}
	return nil
}

// selftestSentinels confirms sentinel files can be created, detected, and
// consumed in a scratch directory, the mechanism operators use to signal
// the supervisor out of band.
func selftestSentinels() error {
	dir, err := os.MkdirTemp("", "wdtgo-selftest-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := dir + "/wdtstop"
	if err := wdtfs.CreateEmpty(path); err != nil {
		return fmt.Errorf("create sentinel: %w", err)
	}
	if !wdtfs.Exists(path) {
		return fmt.Errorf("sentinel not visible after create")
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("consume sentinel: %w", err)
	}
	if wdtfs.Exists(path) {
		return fmt.Errorf("sentinel still visible after consume")
	}
	return nil
}
