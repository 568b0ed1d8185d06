package alto

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/alto-sim/alto/microword"
)

// SaveState serializes the entire machine per spec.md §4.9: system
// type, then the engine's registers/scalars/ROMs/MPCs/cycle counters,
// then main memory (banks, XM banks, the access window), then each
// peripheral controller in the order disk, display, ethernet,
// keyboard (which also carries the mouse). All multi-byte values are
// big-endian.
func (m *Machine) SaveState(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint8(m.sys)); err != nil {
		return fmt.Errorf("alto: SaveState: system type: %w", err)
	}
	if err := m.cpu.WriteState(w); err != nil {
		return fmt.Errorf("alto: SaveState: %w", err)
	}
	if err := m.mem.WriteState(w); err != nil {
		return fmt.Errorf("alto: SaveState: %w", err)
	}
	if err := m.disk.WriteState(w); err != nil {
		return fmt.Errorf("alto: SaveState: %w", err)
	}
	if err := m.display.WriteState(w); err != nil {
		return fmt.Errorf("alto: SaveState: %w", err)
	}
	if err := m.ethernet.WriteState(w); err != nil {
		return fmt.Errorf("alto: SaveState: %w", err)
	}
	if err := m.keyboard.WriteState(w); err != nil {
		return fmt.Errorf("alto: SaveState: %w", err)
	}
	return nil
}

// LoadState reads a state file written by SaveState, refusing one
// whose system type does not match this Machine's or that carries
// trailing bytes past the expected size.
func (m *Machine) LoadState(r io.Reader) error {
	var sys uint8
	if err := binary.Read(r, binary.BigEndian, &sys); err != nil {
		return fmt.Errorf("alto: LoadState: system type: %w", err)
	}
	if microword.System(sys) != m.sys {
		return fmt.Errorf("alto: LoadState: file is for system type %d, machine is %d", sys, m.sys)
	}
	if err := m.cpu.ReadState(r); err != nil {
		return fmt.Errorf("alto: LoadState: %w", err)
	}
	if err := m.mem.ReadState(r); err != nil {
		return fmt.Errorf("alto: LoadState: %w", err)
	}
	if err := m.disk.ReadState(r); err != nil {
		return fmt.Errorf("alto: LoadState: %w", err)
	}
	if err := m.display.ReadState(r); err != nil {
		return fmt.Errorf("alto: LoadState: %w", err)
	}
	if err := m.ethernet.ReadState(r); err != nil {
		return fmt.Errorf("alto: LoadState: %w", err)
	}
	if err := m.keyboard.ReadState(r); err != nil {
		return fmt.Errorf("alto: LoadState: %w", err)
	}
	if n, err := r.Read(make([]byte, 1)); n != 0 || err != io.EOF {
		return fmt.Errorf("alto: LoadState: trailing data after expected state size")
	}
	return nil
}
