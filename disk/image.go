package disk

import (
	"encoding/binary"
	"fmt"
	"io"
)

// bytesPerSector is one sector's on-media size: a 2-byte leading
// sector index (unused on load) plus the header, label, and data
// records, each word stored little-endian.
const bytesPerSector = 2 + (HeaderWords+LabelWords+DataWords)*2

// DecodeImage reads a §6.3 disk image: sectorsPerDrive sectors, each a
// 2-byte (unused) index followed by its header, label, and data words
// in struct order, little-endian. It returns an error rather than a
// partially-decoded image if r does not contain exactly
// sectorsPerDrive sectors worth of bytes.
func DecodeImage(r io.Reader) ([]Sector, error) {
	sectors := make([]Sector, sectorsPerDrive)
	buf := make([]byte, bytesPerSector)
	for i := range sectors {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("disk: DecodeImage: sector %d: %w", i, err)
		}
		b := buf[2:] // skip the unused leading index
		s := &sectors[i]
		for j := range s.Header {
			s.Header[j] = binary.LittleEndian.Uint16(b[:2])
			b = b[2:]
		}
		for j := range s.Label {
			s.Label[j] = binary.LittleEndian.Uint16(b[:2])
			b = b[2:]
		}
		for j := range s.Data {
			s.Data[j] = binary.LittleEndian.Uint16(b[:2])
			b = b[2:]
		}
	}
	if n, err := r.Read(make([]byte, 1)); n != 0 || err != io.EOF {
		return nil, fmt.Errorf("disk: DecodeImage: trailing data after %d sectors", len(sectors))
	}
	return sectors, nil
}

// EncodeImage writes sectors in §6.3's on-media format. The leading
// per-sector index bytes are written as the sector's position in the
// slice, matching the field's "unused on load" status.
func EncodeImage(w io.Writer, sectors []Sector) error {
	if len(sectors) != sectorsPerDrive {
		return fmt.Errorf("disk: EncodeImage: %d sectors, want %d", len(sectors), sectorsPerDrive)
	}
	buf := make([]byte, bytesPerSector)
	for i, s := range sectors {
		binary.LittleEndian.PutUint16(buf[0:2], uint16(i))
		b := buf[2:]
		for _, v := range s.Header {
			binary.LittleEndian.PutUint16(b[:2], v)
			b = b[2:]
		}
		for _, v := range s.Label {
			binary.LittleEndian.PutUint16(b[:2], v)
			b = b[2:]
		}
		for _, v := range s.Data {
			binary.LittleEndian.PutUint16(b[:2], v)
			b = b[2:]
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("disk: EncodeImage: sector %d: %w", i, err)
		}
	}
	return nil
}
