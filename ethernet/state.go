package ethernet

import (
	"encoding/binary"
	"fmt"
	"io"
)

// State is the byte-exact, on-the-wire shape of a Controller, per
// spec.md §4.9. The Transport is a host collaborator, not simulated
// state, and is not part of it.
type State struct {
	Address uint8

	FIFO       [FIFOSize]uint16
	Start, End int32

	IOCmd uint8

	OutBusy, InBusy, InGone bool
	EndTX                   bool
	DataLate, Collision     bool
	CRCBad, Incomplete      bool

	InputState int32
	Status     uint16

	CountdownWakeup bool

	IntrCycle, TXIntrCycle, RXIntrCycle int32
	Pending                             bool
}

// Snapshot captures c's state.
func (c *Controller) Snapshot() State {
	return State{
		Address:         c.address,
		FIFO:            c.fifo,
		Start:           int32(c.start),
		End:             int32(c.end),
		IOCmd:           c.iocmd,
		OutBusy:         c.outBusy,
		InBusy:          c.inBusy,
		InGone:          c.inGone,
		EndTX:           c.endTx,
		DataLate:        c.dataLate,
		Collision:       c.collision,
		CRCBad:          c.crcBad,
		Incomplete:      c.incomplete,
		InputState:      int32(c.inputState),
		Status:          c.status,
		CountdownWakeup: c.countdownWakeup,
		IntrCycle:       c.intrCycle,
		TXIntrCycle:     c.txIntrCycle,
		RXIntrCycle:     c.rxIntrCycle,
		Pending:         c.pending,
	}
}

// Restore installs a previously captured State, leaving the bound
// Transport untouched.
func (c *Controller) Restore(s State) {
	c.address = s.Address
	c.fifo = s.FIFO
	c.start = int(s.Start)
	c.end = int(s.End)
	c.iocmd = s.IOCmd
	c.outBusy = s.OutBusy
	c.inBusy = s.InBusy
	c.inGone = s.InGone
	c.endTx = s.EndTX
	c.dataLate = s.DataLate
	c.collision = s.Collision
	c.crcBad = s.CRCBad
	c.incomplete = s.Incomplete
	c.inputState = inputState(s.InputState)
	c.status = s.Status
	c.countdownWakeup = s.CountdownWakeup
	c.intrCycle = s.IntrCycle
	c.txIntrCycle = s.TXIntrCycle
	c.rxIntrCycle = s.RXIntrCycle
	c.pending = s.Pending
}

// WriteState writes c's state to w in the big-endian, fixed-size
// encoding §4.9 requires.
func (c *Controller) WriteState(w io.Writer) error {
	s := c.Snapshot()
	if err := binary.Write(w, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("ethernet: WriteState: %w", err)
	}
	return nil
}

// ReadState reads a state previously written by WriteState and
// installs it into c.
func (c *Controller) ReadState(r io.Reader) error {
	var s State
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("ethernet: ReadState: %w", err)
	}
	c.Restore(s)
	return nil
}
