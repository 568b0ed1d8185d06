package cpu

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/alto-sim/alto/microword"
)

// State is the byte-exact, on-the-wire shape of everything the engine
// owns directly (register files, scalars/flags, the three ROM/RAM
// control stores, per-task MPCs, and the cycle counters), per
// spec.md §4.9. Memory banks, the access window, and each peripheral
// controller serialize themselves; alto.Machine stitches the pieces
// together in the order §4.9 specifies.
type State struct {
	HasError bool

	R        [numR]uint16
	S        [numS]uint16
	SRegBank [microword.NumTasks]uint8

	T, L, M, MAR, IR uint16
	MIR              uint32
	ALUC0            bool
	Skip             bool
	Carry            bool
	RMR              uint16
	CRAMAddr         uint16
	RDRAM            bool
	WRTRAM           bool
	SoftReset        bool

	ACSROM    [256]uint16
	Consts    [256]uint16
	Microcode [microcodeWords]uint32

	MPC     uint16
	TaskMPC [microword.NumTasks]uint16
	CTask   uint8
	NTask   uint8

	Cycle     int32
	TaskCycle [microword.NumTasks]int32
	IntrCycle int32
}

// Snapshot captures c's non-memory, non-peripheral state. The
// taskSwitch pipeline flag is not part of it: after Restore the chip
// keeps the value it already had.
func (c *Chip) Snapshot() State {
	return State{
		HasError:  c.Error != nil,
		R:         c.r,
		S:         c.s,
		SRegBank:  c.sregBank,
		T:         c.t,
		L:         c.l,
		M:         c.m,
		MAR:       c.mar,
		IR:        c.ir,
		MIR:       uint32(c.mir),
		ALUC0:     c.aluC0,
		Skip:      c.skip,
		Carry:     c.carry,
		RMR:       c.rmr,
		CRAMAddr:  c.cramAddr,
		RDRAM:     c.rdram,
		WRTRAM:    c.wrtram,
		SoftReset: c.softReset,
		ACSROM:    c.acsROM,
		Consts:    c.consts,
		Microcode: c.microcode,
		MPC:       c.mpc,
		TaskMPC:   c.taskMPC,
		CTask:     uint8(c.ctask),
		NTask:     uint8(c.ntask),
		Cycle:     c.cycle,
		TaskCycle: c.taskCycle,
		IntrCycle: c.intrCycle,
	}
}

// Restore installs a previously captured State, replacing every field
// Snapshot captured. A restored chip with HasError set carries a
// generic sticky error rather than the original concrete one, since
// the original error value itself is not part of the serialized
// state.
func (c *Chip) Restore(s State) {
	c.r = s.R
	c.s = s.S
	c.sregBank = s.SRegBank
	c.t, c.l, c.m, c.mar, c.ir = s.T, s.L, s.M, s.MAR, s.IR
	c.mir = microword.Word(s.MIR)
	c.aluC0 = s.ALUC0
	c.skip = s.Skip
	c.carry = s.Carry
	c.rmr = s.RMR
	c.cramAddr = s.CRAMAddr
	c.rdram = s.RDRAM
	c.wrtram = s.WRTRAM
	c.softReset = s.SoftReset
	c.acsROM = s.ACSROM
	c.consts = s.Consts
	c.microcode = s.Microcode
	c.mpc = s.MPC
	c.taskMPC = s.TaskMPC
	c.ctask = microword.Task(s.CTask)
	c.ntask = microword.Task(s.NTask)
	c.cycle = s.Cycle
	c.taskCycle = s.TaskCycle
	c.intrCycle = s.IntrCycle
	c.Error = nil
	if s.HasError {
		c.Error = InvalidState{"restored from a state file saved after an error"}
	}
}

// WriteState writes c's state to w in the big-endian, fixed-size
// encoding §4.9 requires.
func (c *Chip) WriteState(w io.Writer) error {
	s := c.Snapshot()
	if err := binary.Write(w, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("cpu: WriteState: %w", err)
	}
	return nil
}

// ReadState reads a state previously written by WriteState and
// installs it into c.
func (c *Chip) ReadState(r io.Reader) error {
	var s State
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("cpu: ReadState: %w", err)
	}
	c.Restore(s)
	return nil
}
