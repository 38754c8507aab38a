// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package version holds build-time version metadata for rk-bootinfo, set
// via -ldflags at build time.
package version

import "fmt"

var (
	// Tag is the release tag, set at build time.
	Tag = "dev"
	// SHA is the source commit, set at build time.
	SHA = "unknown"
)

// String returns the short version string printed by "rk-bootinfo version".
func String() string {
	return fmt.Sprintf("%s (%s)", Tag, SHA)
}
