// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/madisongh/rk-misc-tools/pkg/bootinfo"
)

var getOmitName bool

var getCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print the value of a boot variable, or all of them if no name is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := open(bootinfo.OpenReadOnly)
		if err != nil {
			return err
		}
		defer ctx.Close()

		if len(args) == 0 {
			for _, name := range ctx.VarNames() {
				value, _ := ctx.GetVar(name)
				printVar(name, value, getOmitName)
			}

			return nil
		}

		value, err := ctx.GetVar(args[0])
		if err != nil {
			return err
		}

		printVar(args[0], value, getOmitName)

		return nil
	},
}

func printVar(name, value string, omitName bool) {
	if omitName {
		fmt.Println(value)
	} else {
		fmt.Printf("%s=%s\n", name, value)
	}
}

func init() {
	getCmd.Flags().BoolVarP(&getOmitName, "omit-name", "n", false,
		"print only the value, not the name=value pair")
}
