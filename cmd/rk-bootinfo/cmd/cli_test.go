// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madisongh/rk-misc-tools/pkg/bootinfo"
)

// testDevice creates a regular file standing in for the raw block
// device, sized for two ext-sectors=1 slots, and returns the flags
// needed to point the CLI at it.
func testDevice(t *testing.T) (devPath string, baseArgs []string) {
	t.Helper()

	dir := t.TempDir()
	devPath = filepath.Join(dir, "bootdev")
	lockDir := filepath.Join(dir, "lock")

	f, err := os.Create(devPath)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(2*1024))
	require.NoError(t, f.Close())

	return devPath, []string{
		"--device", devPath,
		"--ext-sectors", "1",
		"--lock-dir", lockDir,
	}
}

// runRoot executes rootCmd with args, capturing what cobra itself writes
// to the command's out/err streams. Subcommands print directly to
// os.Stdout and os.Stderr, which is not captured.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	_, err := rootCmd.ExecuteC()

	return buf.String(), err
}

func TestSetThenGetRoundTrip(t *testing.T) {
	_, baseArgs := testDevice(t)

	_, err := runRoot(t, append([]string{"set", "greeting", "hello"}, baseArgs...)...)
	require.NoError(t, err)

	_, err = runRoot(t, append([]string{"get", "greeting"}, baseArgs...)...)
	require.NoError(t, err)

	_, err = runRoot(t, append([]string{"set", "greeting="}, baseArgs...)...)
	require.NoError(t, err)

	_, err = runRoot(t, append([]string{"get", "greeting"}, baseArgs...)...)
	require.Error(t, err)
}

func TestGetMissingVariableErrors(t *testing.T) {
	_, baseArgs := testDevice(t)

	_, err := runRoot(t, append([]string{"get", "nosuch"}, baseArgs...)...)
	require.Error(t, err)
}

// TestCheckStatusSlotSwitchReleasesLock drives check-status past its
// failure threshold and confirms the slot-switch path still releases
// the session lock (and, with it, the write-enable gate) rather than
// short-circuiting cleanup via os.Exit.
func TestCheckStatusSlotSwitchReleasesLock(t *testing.T) {
	_, baseArgs := testDevice(t)
	statusArgs := append([]string{"check-status", "--max-failures", "1"}, baseArgs...)

	_, err := runRoot(t, statusArgs...)
	require.NoError(t, err)

	_, err = runRoot(t, statusArgs...)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 77, exitErr.Code)

	cfg := bootinfo.Config{
		Devices:          []string{devicePathFromArgs(baseArgs)},
		ExtensionSectors: 1,
		LockDir:          lockDirFromArgs(baseArgs),
	}

	done := make(chan error, 1)

	go func() {
		ctx, openErr := bootinfo.Open(cfg, bootinfo.OpenReadOnly, zap.NewNop())
		if openErr != nil {
			done <- openErr

			return
		}

		done <- ctx.Close()
	}()

	select {
	case reopenErr := <-done:
		require.NoError(t, reopenErr)
	case <-time.After(2 * time.Second):
		t.Fatal("session lock was not released after check-status slot switch")
	}
}

func devicePathFromArgs(args []string) string {
	for i, a := range args {
		if a == "--device" {
			return args[i+1]
		}
	}

	return ""
}

func lockDirFromArgs(args []string) string {
	for i, a := range args {
		if a == "--lock-dir" {
			return args[i+1]
		}
	}

	return ""
}
