package memory

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WindowState is the byte-exact, on-the-wire shape of Window, used by
// §4.9 state persistence. Every field is fixed-width so it round-trips
// through encoding/binary without further conversion.
type WindowState struct {
	Open          bool
	Cycle         int32
	Task          uint8
	MAR           uint16
	Extended      bool
	HasStore      bool
	Low, High     uint16
	StoredOnce    bool
	SecondPending bool
}

// State is the byte-exact, on-the-wire shape of a Memory: the four
// main banks, the per-task XM bank registers, and the window.
type State struct {
	Banks  [NumBanks][bankSize]uint16
	XMBank [16]uint8
	Window WindowState
}

// Snapshot captures m's entire state for serialization.
func (m *Memory) Snapshot() State {
	var s State
	for i, bank := range m.banks {
		copy(s.Banks[i][:], bank)
	}
	s.XMBank = m.xmBank
	s.Window = WindowState{
		Open:          m.window.Open,
		Cycle:         int32(m.window.Cycle),
		Task:          m.window.Task,
		MAR:           m.window.MAR,
		Extended:      m.window.Extended,
		HasStore:      m.window.HasStore,
		Low:           m.window.low,
		High:          m.window.high,
		StoredOnce:    m.window.storedOnce,
		SecondPending: m.window.secondPending,
	}
	return s
}

// Restore installs a previously captured State, replacing m's banks,
// XM bank registers, and window wholesale.
func (m *Memory) Restore(s State) {
	for i := range m.banks {
		copy(m.banks[i], s.Banks[i][:])
	}
	m.xmBank = s.XMBank
	w := s.Window
	m.window = Window{
		Open:          w.Open,
		Cycle:         int(w.Cycle),
		Task:          w.Task,
		MAR:           w.MAR,
		Extended:      w.Extended,
		HasStore:      w.HasStore,
		low:           w.Low,
		high:          w.High,
		storedOnce:    w.StoredOnce,
		secondPending: w.SecondPending,
	}
}

// WriteState writes m's state to w in the big-endian, fixed-size
// encoding §4.9 requires.
func (m *Memory) WriteState(w io.Writer) error {
	s := m.Snapshot()
	if err := binary.Write(w, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("memory: WriteState: %w", err)
	}
	return nil
}

// ReadState reads a state previously written by WriteState and
// installs it into m.
func (m *Memory) ReadState(r io.Reader) error {
	var s State
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("memory: ReadState: %w", err)
	}
	m.Restore(s)
	return nil
}
