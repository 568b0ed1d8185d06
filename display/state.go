package display

import (
	"encoding/binary"
	"fmt"
	"io"
)

// State is the byte-exact, on-the-wire shape of a Controller, per
// spec.md §4.9. Buffer and Stride are not part of it (see Snapshot).
type State struct {
	FIFO               [FIFOSize]uint16
	FIFOStart, FIFOEnd int32

	Scanline  int32
	EvenField bool
	WordIndex int32

	CursorX          uint16
	CursorData       uint16
	CursorXNew       bool
	CursorDataNew    bool
	CursorXShadow    uint16
	CursorDataShadow uint16

	LowRes, WhiteOnBlack    bool
	LowResShadow, WOBShadow bool
	ModeChangePending       bool

	WordBlocked, HorizBlocked bool

	DVCycle, DHCycle, DWCycle int32
	Pending                   uint8

	VBlankLines int32
}

// Snapshot captures c's state, not including Buffer/Stride (the
// output scanline buffer is presentation-layer working storage, not
// simulated state; a reload regenerates it from New's sizing).
func (c *Controller) Snapshot() State {
	return State{
		FIFO:              c.fifo,
		FIFOStart:         int32(c.fifoStart),
		FIFOEnd:           int32(c.fifoEnd),
		Scanline:          int32(c.scanline),
		EvenField:         c.evenField,
		WordIndex:         int32(c.wordIndex),
		CursorX:           c.cursorX,
		CursorData:        c.cursorData,
		CursorXNew:        c.cursorXNew,
		CursorDataNew:     c.cursorDataNew,
		CursorXShadow:     c.cursorXShadow,
		CursorDataShadow:  c.cursorDataShadow,
		LowRes:            c.lowRes,
		WhiteOnBlack:      c.whiteOnBlack,
		LowResShadow:      c.lowResShadow,
		WOBShadow:         c.wobShadow,
		ModeChangePending: c.modeChangePending,
		WordBlocked:       c.wordBlocked,
		HorizBlocked:      c.horizBlocked,
		DVCycle:           c.dvCycle,
		DHCycle:           c.dhCycle,
		DWCycle:           c.dwCycle,
		Pending:           c.pending,
		VBlankLines:       int32(c.vblankLines),
	}
}

// Restore installs a previously captured State.
func (c *Controller) Restore(s State) {
	c.fifo = s.FIFO
	c.fifoStart = int(s.FIFOStart)
	c.fifoEnd = int(s.FIFOEnd)
	c.scanline = int(s.Scanline)
	c.evenField = s.EvenField
	c.wordIndex = int(s.WordIndex)
	c.cursorX = s.CursorX
	c.cursorData = s.CursorData
	c.cursorXNew = s.CursorXNew
	c.cursorDataNew = s.CursorDataNew
	c.cursorXShadow = s.CursorXShadow
	c.cursorDataShadow = s.CursorDataShadow
	c.lowRes = s.LowRes
	c.whiteOnBlack = s.WhiteOnBlack
	c.lowResShadow = s.LowResShadow
	c.wobShadow = s.WOBShadow
	c.modeChangePending = s.ModeChangePending
	c.wordBlocked = s.WordBlocked
	c.horizBlocked = s.HorizBlocked
	c.dvCycle, c.dhCycle, c.dwCycle = s.DVCycle, s.DHCycle, s.DWCycle
	c.pending = s.Pending
	c.vblankLines = int(s.VBlankLines)
}

// WriteState writes c's state to w in the big-endian, fixed-size
// encoding §4.9 requires.
func (c *Controller) WriteState(w io.Writer) error {
	s := c.Snapshot()
	if err := binary.Write(w, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("display: WriteState: %w", err)
	}
	return nil
}

// ReadState reads a state previously written by WriteState and
// installs it into c.
func (c *Controller) ReadState(r io.Reader) error {
	var s State
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("display: ReadState: %w", err)
	}
	c.Restore(s)
	return nil
}
