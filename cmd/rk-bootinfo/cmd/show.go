// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/madisongh/rk-misc-tools/pkg/bootinfo"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print boot counter and header information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := open(bootinfo.OpenReadOnly)
		if err != nil {
			return err
		}
		defer ctx.Close()

		inProgress := "NO"
		if ctx.IsInProgress() {
			inProgress = "YES"
		}

		sectors := ctx.ExtensionSectors()
		plural := "s"
		if sectors == 1 {
			plural = ""
		}

		fmt.Printf("devinfo version:\t%d\n", ctx.DevinfoVersion())
		fmt.Printf("Boot in progress:\t%s\n", inProgress)
		fmt.Printf("Failed boots:\t\t%d\n", ctx.FailedBootCount())
		fmt.Printf("Extension space:\t%d sector%s\n", sectors, plural)

		return nil
	},
}
