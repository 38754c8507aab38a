// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

import (
	"encoding/binary"
	"hash/crc32"
)

// deviceMagic is the literal 8-byte magic at the start of every header
// sector.
var deviceMagic = [8]byte{'B', 'O', 'O', 'T', 'I', 'N', 'F', 'O'}

// currentVersion is the on-disk format version this package writes and
// will accept on load.
const currentVersion = 4

// FlagBootInProgress is the header flags bit set at boot start and
// cleared on a confirmed successful boot.
const FlagBootInProgress = 1 << 0

// header mirrors the on-disk header sector layout, packed with no
// padding: magic(8) version(2) flags(1) failed_boots(1) header_crc(4)
// sernum(1) reserved(1) ext_sectors(2) = 20 bytes.
type header struct {
	Magic        [8]byte
	Version      uint16
	Flags        uint8
	FailedBoots  uint8
	HeaderCRC    uint32
	Sernum       uint8
	reserved     uint8
	ExtSectors   uint16
}

const headerSize = 8 + 2 + 1 + 1 + 4 + 1 + 1 + 2 // 20

// marshal serializes the header into the first headerSize bytes of buf,
// which must be at least SectorSize long. The CRC field is written
// as-is from h.HeaderCRC; callers compute it over the marshaled sector
// with this field still zero (see computeHeaderCRC).
func (h *header) marshal(buf []byte) {
	copy(buf[0:8], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[8:10], h.Version)
	buf[10] = h.Flags
	buf[11] = h.FailedBoots
	binary.LittleEndian.PutUint32(buf[12:16], h.HeaderCRC)
	buf[16] = h.Sernum
	buf[17] = h.reserved
	binary.LittleEndian.PutUint16(buf[18:20], h.ExtSectors)
}

// unmarshal populates h from the first headerSize bytes of buf.
func (h *header) unmarshal(buf []byte) {
	copy(h.Magic[:], buf[0:8])
	h.Version = binary.LittleEndian.Uint16(buf[8:10])
	h.Flags = buf[10]
	h.FailedBoots = buf[11]
	h.HeaderCRC = binary.LittleEndian.Uint32(buf[12:16])
	h.Sernum = buf[16]
	h.reserved = buf[17]
	h.ExtSectors = binary.LittleEndian.Uint16(buf[18:20])
}

// computeHeaderCRC computes the CRC-32 (zlib/IEEE) of the full header
// sector in buf. The header_crc field must be zero in buf: on write,
// Update marshals a header whose HeaderCRC is still zero; on load, the
// field is cleared with zeroHeaderCRCField before recomputing.
func computeHeaderCRC(buf []byte) uint32 {
	return crc32.ChecksumIEEE(buf[:SectorSize])
}

// computeExtensionCRC computes the CRC-32 over the extension area
// excluding its trailing 4-byte CRC field.
func computeExtensionCRC(ext []byte) uint32 {
	return crc32.ChecksumIEEE(ext[:len(ext)-4])
}

// zeroHeaderCRCField zeroes the 4-byte header_crc field in a header
// sector buffer, in place, for CRC computation/verification.
func zeroHeaderCRCField(buf []byte) {
	buf[12], buf[13], buf[14], buf[15] = 0, 0, 0, 0
}

func magicMatches(buf []byte) bool {
	for i := range deviceMagic {
		if buf[i] != deviceMagic[i] {
			return false
		}
	}

	return true
}
