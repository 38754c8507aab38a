// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var markSuccessfulCmd = &cobra.Command{
	Use:   "mark-successful",
	Short: "Record a successful boot, clearing the in-progress flag and failure count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := open(0)
		if err != nil {
			return err
		}
		defer ctx.Close()

		prev, err := ctx.MarkSuccessful()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Failed boot count: %d\n", prev)

		return nil
	},
}
