// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// defaultMaxBootFailures matches the original tool's compiled-in limit.
const defaultMaxBootFailures = 3

// slotSwitchExitCode is returned when the failure threshold is reached, to
// signal the caller (typically a bootloader script) to switch boot slots.
const slotSwitchExitCode = 77

var maxBootFailures uint

var checkStatusCmd = &cobra.Command{
	Use:   "check-status",
	Short: "Record a boot attempt and check whether the failure limit has been reached",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := open(0)
		if err != nil {
			return err
		}
		defer ctx.Close()

		failedBoots, err := ctx.MarkInProgress()
		if err != nil {
			return err
		}

		if uint(failedBoots) < maxBootFailures {
			return nil
		}

		fmt.Fprintln(os.Stderr, "Too many boot failures, exit with error to signal boot slot switch")

		// Clear the in-progress status for the next check after the slot
		// switch, mirroring the original tool's behavior.
		if _, err := ctx.MarkSuccessful(); err != nil {
			return err
		}

		// Returning, rather than calling os.Exit here, lets the deferred
		// ctx.Close above run (and with it, the write-gate revert) before
		// main applies the requested exit code.
		return &ExitError{Code: slotSwitchExitCode}
	},
}

func init() {
	checkStatusCmd.Flags().UintVar(&maxBootFailures, "max-failures", defaultMaxBootFailures,
		"number of failed boot attempts tolerated before signaling a slot switch")
}
