// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

import (
	"fmt"
	"os"
	"time"

	"github.com/siderolabs/go-retry/retry"
	"go.uber.org/zap"
)

// BlockDevice is the narrow capability a session needs from the
// underlying storage: positional, retrying reads and writes, plus a
// durability barrier and a close. Kept as an interface so tests can
// substitute a backing file for a real block device.
type BlockDevice interface {
	ReadAt(buf []byte, off int64) error
	WriteAt(buf []byte, off int64) error
	Sync() error
	Close() error
}

// osDevice is the real BlockDevice backed by an *os.File opened on a
// raw block device.
type osDevice struct {
	f *os.File
}

func openDevice(path string, readonly bool) (*osDevice, error) {
	flags := os.O_RDWR | os.O_SYNC
	if readonly {
		flags = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, wrapErr(KindIO, err, "open storage device")
	}

	return &osDevice{f: f}, nil
}

// ReadAt reads exactly len(buf) bytes from off, looping on short reads
// until satisfied or a real error (or EOF/zero-length transfer) occurs.
func (d *osDevice) ReadAt(buf []byte, off int64) error {
	return retryTransfer(len(buf), func(done int) (int, error) {
		return d.f.ReadAt(buf[done:], off+int64(done))
	})
}

// WriteAt writes exactly len(buf) bytes at off, looping on short writes.
func (d *osDevice) WriteAt(buf []byte, off int64) error {
	return retryTransfer(len(buf), func(done int) (int, error) {
		return d.f.WriteAt(buf[done:], off+int64(done))
	})
}

// Sync issues the durability barrier required after a full-slot write.
func (d *osDevice) Sync() error {
	if err := d.f.Sync(); err != nil {
		return wrapErr(KindIO, err, "flush storage device")
	}

	return nil
}

func (d *osDevice) Close() error {
	if err := d.f.Close(); err != nil {
		return wrapErr(KindIO, err, "close storage device")
	}

	return nil
}

// retryTransfer drives xfer repeatedly until total bytes have been moved,
// absorbing short reads/writes the same way the original tool's read()/
// write() loops did: a short transfer just continues from the new offset
// on the next call. A zero-length or negative return from xfer is a hard
// I/O failure, not something to retry.
func retryTransfer(total int, xfer func(done int) (int, error)) error {
	done := 0

	for done < total {
		n, err := xfer(done)
		if err != nil {
			return wrapErr(KindIO, err, "short transfer")
		}

		if n <= 0 {
			return newErr(KindIO, "zero-length transfer")
		}

		done += n
	}

	return nil
}

// findStorageDevice returns the first candidate path that exists,
// retrying briefly to absorb the device-enumeration race at early boot
// (e.g. an eMMC boot partition node appearing a beat after the kernel
// finishes probing it).
func findStorageDevice(candidates []string) (string, error) {
	var (
		path    string
		lastErr error
	)

	retryErr := retry.Constant(2*time.Second, retry.WithUnits(50*time.Millisecond)).Retry(func() error {
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p

				return nil
			}
		}

		lastErr = newErr(KindNoDevice, fmt.Sprintf("no candidate device found in %v", candidates))

		return retry.ExpectedError(lastErr)
	})
	if retryErr != nil {
		return "", lastErr
	}

	return path, nil
}

// writeGate toggles the per-device soft read-only sysfs switch around a
// write session, and restores it on close. Absence of the sysfs files
// is tolerated silently: the gate becomes a no-op.
type writeGate struct {
	device  string
	changed bool
	log     *zap.Logger
}

func newWriteGate(device string, log *zap.Logger) *writeGate {
	return &writeGate{device: device, log: log}
}

// enable makes the device writeable, remembering whether it actually
// changed anything so close can revert precisely that change.
func (g *writeGate) enable() error {
	changed, err := setBootdevWriteableStatus(g.device, true)
	if err != nil {
		g.log.Warn("could not toggle boot device write status", zap.String("device", g.device), zap.Error(err))
	}

	g.changed = changed

	return err
}

// disable reverts a previous enable, if it actually changed anything.
func (g *writeGate) disable() {
	if !g.changed {
		return
	}

	if _, err := setBootdevWriteableStatus(g.device, false); err != nil {
		g.log.Warn("could not revert boot device write status", zap.String("device", g.device), zap.Error(err))
	}

	g.changed = false
}
