package keyboard

import (
	"encoding/binary"
	"fmt"
	"io"
)

// State is the byte-exact, on-the-wire shape of a Controller, per
// spec.md §4.9 (the keyboard and mouse are a single Go controller but
// two entries in that section's serialization order; alto.Machine
// writes this once to cover both).
type State struct {
	Keys    [NumKeyWords]uint16
	Buttons uint16

	TargetX, TargetY   int32
	CurrentX, CurrentY int32

	PollHorizontal bool
}

// Snapshot captures c's state.
func (c *Controller) Snapshot() State {
	return State{
		Keys:           c.keys,
		Buttons:        c.buttons,
		TargetX:        int32(c.targetX),
		TargetY:        int32(c.targetY),
		CurrentX:       int32(c.currentX),
		CurrentY:       int32(c.currentY),
		PollHorizontal: c.pollHorizontal,
	}
}

// Restore installs a previously captured State.
func (c *Controller) Restore(s State) {
	c.keys = s.Keys
	c.buttons = s.Buttons
	c.targetX = int(s.TargetX)
	c.targetY = int(s.TargetY)
	c.currentX = int(s.CurrentX)
	c.currentY = int(s.CurrentY)
	c.pollHorizontal = s.PollHorizontal
}

// WriteState writes c's state to w in the big-endian, fixed-size
// encoding §4.9 requires.
func (c *Controller) WriteState(w io.Writer) error {
	s := c.Snapshot()
	if err := binary.Write(w, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("keyboard: WriteState: %w", err)
	}
	return nil
}

// ReadState reads a state previously written by WriteState and
// installs it into c.
func (c *Controller) ReadState(r io.Reader) error {
	var s State
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("keyboard: ReadState: %w", err)
	}
	c.Restore(s)
	return nil
}
