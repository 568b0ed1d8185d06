package alto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LoadBootBinary reads a raw little-endian 16-bit word stream from r
// and pokes it directly into main memory starting at address 0 on
// task 0's normal (non-extended) bank, bypassing the disk boot path.
// There is no on-media header for this format (unlike §6.1-6.3's
// fixed-size ROM/image records): the stream simply runs until r is
// exhausted, which must be an even number of bytes.
func (m *Machine) LoadBootBinary(r io.Reader) error {
	buf := make([]byte, 2)
	addr := uint16(0)
	for {
		n, err := io.ReadFull(r, buf)
		if err == io.EOF {
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("alto: LoadBootBinary: odd-length boot binary (%d trailing byte)", n)
		}
		if err != nil {
			return fmt.Errorf("alto: LoadBootBinary: %w", err)
		}
		m.mem.WriteDirect(0, addr, false, binary.LittleEndian.Uint16(buf))
		addr++
	}
}
