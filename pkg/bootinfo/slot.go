// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

import "go.uber.org/zap"

// slotCount is the number of redundant slots.
const slotCount = 2

// loadedSlot holds the parsed header and the full raw slot bytes (header
// sector followed by extension area) read from one slot.
type loadedSlot struct {
	valid bool
	hdr   header
	buf   []byte // header sector (SectorSize) + extension area
}

// variableArea returns the slice of buf holding the packed variable
// list: everything between the header and the extension area's trailing
// CRC.
func (s *loadedSlot) variableArea() []byte {
	return s.buf[headerSize : len(s.buf)-4]
}

// loadSlots reads both slots from dev and validates each independently.
// An I/O error reading a slot marks it invalid rather than aborting the
// whole load, so that a damaged slot A does not prevent recovery from a
// healthy slot B.
func loadSlots(dev BlockDevice, cfg Config, log *zap.Logger) [slotCount]loadedSlot {
	var slots [slotCount]loadedSlot

	for i := 0; i < slotCount; i++ {
		slots[i] = loadSlot(dev, cfg, i, log)
	}

	return slots
}

func loadSlot(dev BlockDevice, cfg Config, i int, log *zap.Logger) loadedSlot {
	hdrBuf := make([]byte, SectorSize)
	if err := dev.ReadAt(hdrBuf, cfg.headerOffset(i)); err != nil {
		log.Warn("failed to read slot header", zap.Int("slot", i), zap.Error(err))

		return loadedSlot{}
	}

	if !magicMatches(hdrBuf) {
		return loadedSlot{}
	}

	var hdr header

	hdr.unmarshal(hdrBuf)

	if hdr.Version < currentVersion {
		return loadedSlot{}
	}

	if hdr.ExtSectors != cfg.ExtensionSectors {
		return loadedSlot{}
	}

	extSize := SectorSize * int(cfg.ExtensionSectors)
	ext := make([]byte, extSize)

	if err := dev.ReadAt(ext, cfg.extensionOffset(i)); err != nil {
		log.Warn("failed to read slot extension area", zap.Int("slot", i), zap.Error(err))

		return loadedSlot{}
	}

	storedCRC := leUint32(ext[len(ext)-4:])
	if computeExtensionCRC(ext) != storedCRC {
		return loadedSlot{}
	}

	buf := append(hdrBuf, ext...)

	if cfg.VerifyHeaderCRC {
		// The header CRC covers the header sector with the CRC field
		// itself zeroed, mirroring how it was computed on write.
		check := append([]byte(nil), buf[:SectorSize]...)
		zeroHeaderCRCField(check)

		if computeHeaderCRC(check) != hdr.HeaderCRC {
			return loadedSlot{}
		}
	}

	return loadedSlot{valid: true, hdr: hdr, buf: buf}
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// selectCurrent picks which slot is authoritative given validity and
// serials. Returns -1 if neither slot is valid.
func selectCurrent(slots [slotCount]loadedSlot) int {
	v0, v1 := slots[0].valid, slots[1].valid

	switch {
	case v0 && !v1:
		return 0
	case !v0 && v1:
		return 1
	case !v0 && !v1:
		return -1
	}

	s0, s1 := slots[0].hdr.Sernum, slots[1].hdr.Sernum

	switch {
	case s0 == 255 && s1 == 0:
		return 1
	case s1 == 255 && s0 == 0:
		return 0
	case s1 > s0:
		return 1
	default:
		// Includes the s0 == s1 tie, broken to slot 0 deterministically;
		// this can only arise from a corrupted or hand-crafted image, since
		// Update always increments the serial it writes.
		return 0
	}
}
