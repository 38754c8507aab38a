// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

import (
	"fmt"
	"os"
	"strings"
)

// setBootdevWriteableStatus toggles the read-only soft switch in sysfs
// for eMMC boot0/boot1 devices, if present. device is the /dev/... path;
// the sysfs files live at /sys/block/<name>/{ro,force_ro}.
//
// Returns true if the status was actually changed, false if it already
// matched makeWriteable or the sysfs files are absent — the latter is
// tolerated silently, since not every target has this soft switch.
func setBootdevWriteableStatus(device string, makeWriteable bool) (bool, error) {
	name := strings.TrimPrefix(device, "/dev/")
	if len(name) < 1 {
		return false, nil
	}

	roPath := fmt.Sprintf("/sys/block/%s/ro", name)
	forceROPath := fmt.Sprintf("/sys/block/%s/force_ro", name)

	cur, err := os.ReadFile(roPath)
	if err != nil {
		// No sysfs soft read-only switch for this device: no-op.
		return false, nil
	}

	isWriteable := len(cur) > 0 && cur[0] == '0'
	if isWriteable == makeWriteable {
		return false, nil
	}

	val := []byte{'1'}
	if makeWriteable {
		val = []byte{'0'}
	}

	if err := os.WriteFile(forceROPath, val, 0o200); err != nil {
		return false, wrapErr(KindIO, err, "set boot device write status")
	}

	return true, nil
}
