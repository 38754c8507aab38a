// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/madisongh/rk-misc-tools/pkg/bootinfo"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the boot variable store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := bootinfo.OpenFlag(0)
		if initForce {
			flags = bootinfo.OpenForceInit
		}

		ctx, err := open(flags)
		if err != nil {
			return err
		}

		return ctx.Close()
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "F", false,
		"re-initialize even if the store is already valid")
}
