// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// maxFromFileValue bounds how much of --from-file's input is read, matching
// the original tool's fixed input buffer.
const maxFromFileValue = 512 * 1024

var fromFile string

var setCmd = &cobra.Command{
	Use:   "set name[=value] [value]",
	Short: "Set or delete a boot variable (omit the value, or use an empty value, to delete)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		var (
			value    string
			hasValue bool
		)

		if len(args) == 2 {
			value, hasValue = args[1], true
		}

		if fromFile != "" {
			if hasValue || strings.Contains(name, "=") {
				return fmt.Errorf("cannot specify both a value and --from-file")
			}

			fileValue, err := readFromFile(fromFile)
			if err != nil {
				return err
			}

			value, hasValue = fileValue, true
		}

		if !hasValue {
			if idx := strings.IndexByte(name, '='); idx > 0 {
				name, value = name[:idx], name[idx+1:]
			}
		}

		ctx, err := open(0)
		if err != nil {
			return err
		}
		defer ctx.Close()

		if err := ctx.SetVar(name, value); err != nil {
			return err
		}

		return ctx.Update()
	},
}

func readFromFile(path string) (string, error) {
	var (
		r   io.Reader
		err error
	)

	if path == "-" {
		r = os.Stdin
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			return "", openErr
		}
		defer f.Close()

		r = f
	}

	buf := make([]byte, maxFromFileValue)

	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if n >= maxFromFileValue {
		return "", fmt.Errorf("input value too large")
	}

	value := string(buf[:n])
	if strings.IndexByte(value, 0) >= 0 {
		return "", fmt.Errorf("null character in input value not allowed")
	}

	return value, nil
}

func init() {
	setCmd.Flags().StringVarP(&fromFile, "from-file", "f", "",
		"take the variable value from FILE, or stdin if FILE is -")
}
