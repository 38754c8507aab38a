// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cmd implements the rk-bootinfo command-line driver for
// pkg/bootinfo.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/madisongh/rk-misc-tools/pkg/bootinfo"
	"github.com/madisongh/rk-misc-tools/pkg/logging"
)

var (
	flagDevices     []string
	flagExtSectors  uint16
	flagOffsetA     int64
	flagOffsetB     int64
	flagLockDir     string
	flagLockGroup   string
	flagVerifyCRC   bool
	flagLogLevel    string
	flagLogJSON     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "rk-bootinfo",
	Short:         "Manage the boot variable store",
	Long:          ``,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// ExitError requests a specific process exit code once command execution
// (and its deferred cleanup) has returned, instead of the usual 0/1 that
// Execute's caller would otherwise apply. checkStatusCmd uses it for the
// boot-slot-switch signal, which must not bypass cleanup the way a direct
// os.Exit from within RunE would.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute adds all child commands to the root command and runs it. It is
// called by main.main.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err.Error())
		}

		return err
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&flagDevices, "device", nil,
		"candidate storage device paths, tried in order (default: the rockchip boot1 partitions)")
	rootCmd.PersistentFlags().Uint16Var(&flagExtSectors, "ext-sectors", bootinfo.DefaultExtensionSectors,
		"extension area size, in 512-byte sectors")
	rootCmd.PersistentFlags().Int64Var(&flagOffsetA, "offset-a", bootinfo.DefaultOffsetA,
		"byte offset of slot A on the storage device")
	rootCmd.PersistentFlags().Int64Var(&flagOffsetB, "offset-b", 0,
		"byte offset of slot B (default: immediately after slot A)")
	rootCmd.PersistentFlags().StringVar(&flagLockDir, "lock-dir", bootinfo.DefaultLockDir,
		"runtime directory for the session lockfile")
	rootCmd.PersistentFlags().StringVar(&flagLockGroup, "lock-group", "",
		"group (name or gid) that should own the lock directory")
	rootCmd.PersistentFlags().BoolVar(&flagVerifyCRC, "verify-header-crc", false,
		"additionally validate the header sector CRC-32 on load")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn",
		"log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false,
		"emit structured JSON logs to stderr instead of console-formatted ones")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(markSuccessfulCmd)
	rootCmd.AddCommand(checkStatusCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(versionCmd)
}

// config builds the bootinfo.Config from the persistent flags.
func config() bootinfo.Config {
	var devices []string
	if len(flagDevices) > 0 {
		devices = flagDevices
	}

	return bootinfo.Config{
		Devices:          devices,
		ExtensionSectors: flagExtSectors,
		OffsetA:          flagOffsetA,
		OffsetB:          flagOffsetB,
		LockDir:          flagLockDir,
		LockGroup:        flagLockGroup,
		VerifyHeaderCRC:  flagVerifyCRC,
	}
}

// logger builds the zap.Logger from the persistent logging flags.
func logger() *zap.Logger {
	level := zapcore.WarnLevel
	if err := level.Set(flagLogLevel); err != nil {
		level = zapcore.WarnLevel
	}

	if flagLogJSON {
		return logging.ZapLogger(logging.NewLogDestination(os.Stderr, level))
	}

	return logging.ConsoleLogger(level)
}

// open is the common entry point for every subcommand: build the config
// and logger from flags and call bootinfo.Open.
func open(flags bootinfo.OpenFlag) (*bootinfo.Context, error) {
	return bootinfo.Open(config(), flags, logger())
}
