// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

// Default tunables, matching the rockchip eMMC boot-1 partition layout
// the original tooling targeted.
const (
	// DefaultExtensionSectors is the default extension-area sector count.
	DefaultExtensionSectors = 1023
	// MaxExtensionSectors is the largest legal extension sector count.
	MaxExtensionSectors = 1023
	// SectorSize is the fixed on-disk sector size.
	SectorSize = 512

	// DefaultOffsetA is the default byte offset of slot A.
	DefaultOffsetA = 0

	// DefaultLockDir is the runtime directory holding the session lockfile.
	DefaultLockDir = "/run/rk-bootinfo"
	// DefaultLockFile is the lockfile name within LockDir.
	DefaultLockFile = "lockfile"
)

// DefaultDevices is the static candidate list for the storage device,
// tried in order; the first path that exists wins.
var DefaultDevices = []string{
	"/dev/mmcblk0boot1",
	"/dev/mmcblk1boot1",
}

// Config carries the process-wide parameters that would otherwise be
// compile-time constants or hidden globals: device candidates, slot
// offsets, extension size, and the lockfile directory. It is passed
// explicitly into Open rather than read from package state.
type Config struct {
	// Devices is the static candidate list for the storage device. The
	// first path that exists (os.Stat succeeds) is used. Defaults to
	// DefaultDevices when nil.
	Devices []string

	// ExtensionSectors is the compile-time-equivalent extension area
	// size, in 512-byte sectors. Must be in [1, MaxExtensionSectors].
	// Defaults to DefaultExtensionSectors when zero.
	ExtensionSectors uint16

	// OffsetA is the byte offset of slot A on the storage device.
	// The zero value is DefaultOffsetA (0).
	OffsetA int64

	// OffsetB is the byte offset of slot B. When zero, it is derived as
	// OffsetA + slotSize(ExtensionSectors) so that B immediately follows
	// A; callers targeting media where A and B must not share an erase
	// block should set this explicitly.
	OffsetB int64

	// LockDir is the runtime directory for the session lockfile, created
	// with mode 02770 if missing.
	LockDir string

	// LockGroup, if non-empty, names the group that should own LockDir;
	// resolved via os/user and applied with os.Chown. Ignored if empty.
	LockGroup string

	// VerifyHeaderCRC additionally validates the header sector's CRC-32
	// field on load. Spec compatibility switch: the header CRC is always
	// computed and stored on write, but by default only the extension
	// CRC gates slot validity.
	VerifyHeaderCRC bool
}

// withDefaults returns a copy of cfg with zero-valued fields replaced by
// their defaults, and validates the result.
func (cfg Config) withDefaults() (Config, error) {
	if cfg.Devices == nil {
		cfg.Devices = DefaultDevices
	}

	if cfg.ExtensionSectors == 0 {
		cfg.ExtensionSectors = DefaultExtensionSectors
	}

	if cfg.ExtensionSectors > MaxExtensionSectors {
		return Config{}, newErr(KindInvalidArgument, "extension sectors out of range")
	}

	if cfg.OffsetA < 0 {
		return Config{}, newErr(KindInvalidArgument, "negative slot A offset")
	}

	if cfg.OffsetB == 0 {
		cfg.OffsetB = cfg.OffsetA + cfg.slotSize()
	}

	if cfg.LockDir == "" {
		cfg.LockDir = DefaultLockDir
	}

	return cfg, nil
}

// slotSize is the total byte size of one slot: header sector plus
// extension area.
func (cfg Config) slotSize() int64 {
	return int64(SectorSize) * int64(1+cfg.ExtensionSectors)
}

// headerOffset returns the byte offset of slot i's header sector.
func (cfg Config) headerOffset(i int) int64 {
	if i == 0 {
		return cfg.OffsetA
	}

	return cfg.OffsetB
}

// extensionOffset returns the byte offset of slot i's extension area.
func (cfg Config) extensionOffset(i int) int64 {
	return cfg.headerOffset(i) + SectorSize
}

// varspaceSize is the usable capacity of the variable area in bytes:
// the whole slot, minus the header, minus the trailing CRC.
func (cfg Config) varspaceSize() int {
	return int(cfg.slotSize()) - headerSize - 4
}
