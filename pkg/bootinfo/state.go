// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

// MarkSuccessful clears BOOT_IN_PROGRESS and zeroes the failed-boot
// counter, then persists. It returns the failed-boot count as it stood
// before being zeroed.
func (ctx *Context) MarkSuccessful() (uint8, error) {
	if ctx.readonly {
		return 0, ErrReadOnly
	}

	prev := ctx.hdr.FailedBoots
	ctx.hdr.Flags &^= FlagBootInProgress
	ctx.hdr.FailedBoots = 0

	if err := ctx.Update(); err != nil {
		return 0, err
	}

	return prev, nil
}

// MarkInProgress records the start of a boot attempt. If
// BOOT_IN_PROGRESS was already set (a second attempt without an
// intervening success), the failed-boot counter is incremented with
// saturation at 255; otherwise BOOT_IN_PROGRESS is set. It returns the
// post-update failed-boot count.
func (ctx *Context) MarkInProgress() (uint8, error) {
	if ctx.readonly {
		return 0, ErrReadOnly
	}

	if ctx.hdr.Flags&FlagBootInProgress != 0 {
		if ctx.hdr.FailedBoots < 255 {
			ctx.hdr.FailedBoots++
		}
	} else {
		ctx.hdr.Flags |= FlagBootInProgress
	}

	if err := ctx.Update(); err != nil {
		return 0, err
	}

	return ctx.hdr.FailedBoots, nil
}

// IsInProgress reports BOOT_IN_PROGRESS from the in-memory header
// snapshot; it performs no I/O.
func (ctx *Context) IsInProgress() bool {
	return ctx.hdr.Flags&FlagBootInProgress != 0
}

// FailedBootCount returns the in-memory failed-boot counter.
func (ctx *Context) FailedBootCount() uint8 {
	return ctx.hdr.FailedBoots
}

// DevinfoVersion returns the on-disk format version of the current
// slot.
func (ctx *Context) DevinfoVersion() uint16 {
	return ctx.hdr.Version
}

// ExtensionSectors returns the extension-area sector count recorded in
// the current slot's header.
func (ctx *Context) ExtensionSectors() uint16 {
	return ctx.hdr.ExtSectors
}
