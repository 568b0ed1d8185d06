// Package memory implements the Alto's main memory: four banks of 64K
// 16-bit words, the I/O-mapped high address range, and the multi-cycle
// access window a LOAD_MAR opens for every <-MD / MD<- transfer.
//
// A window is not a cache: until it reaches the cycle at which
// hardware actually latches or stores data, a <-MD or MD<- source must
// stall the engine rather than return a value, which is why
// StallForRead and StallForWrite are exposed as their own queries
// instead of being folded into ReadMD and WriteMD.
package memory

import (
	"fmt"
	"math/rand"

	"github.com/alto-sim/alto/microword"
)

// NumBanks is the number of 64K-word main memory banks.
const NumBanks = 4

const bankSize = 1 << 16

// I/O address range. Addresses at or above ioBase are not main memory.
const (
	ioBase        = 0xFE00
	mouseAddr     = 0xFE18 // start of the mouse/keyboard range (keyboard.MouseAddr); ReadIO does not own it
	dontCareLow   = 0xFEF0
	dontCareHigh  = 0xFFDF
	dontCareValue = 0xFFFF
	xmBankLow     = 0xFFE0
	xmBankHigh    = 0xFFEF
)

// windowDuration gives the window cycle at which a window closes for a
// system; mdReadyCycle gives the cycle at which MD<- first becomes
// valid.
func windowDuration(sys microword.System) int {
	if sys == microword.AltoI {
		return 7
	}
	return 5
}

func mdReadyCycle(sys microword.System) int {
	if sys == microword.AltoI {
		return 5
	}
	return 3
}

// readReadyCycle is the window cycle at which a <-MD bus source may
// read MEM_LOW/MEM_HIGH: fixed at 5 on every system variant (only the
// MD<- write path's ready cycle varies by variant).
const readReadyCycle = 5

// Window models the state opened by a LOAD_MAR and closed automatically
// once its duration has elapsed.
type Window struct {
	Open     bool
	Cycle    int
	Task     uint8
	MAR      uint16
	Extended bool
	HasStore bool

	low, high     uint16
	storedOnce    bool
	secondPending bool
}

// Memory is the Alto's 4-bank main store plus the currently open access
// window and per-task extended-memory bank registers.
type Memory struct {
	sys    microword.System
	banks  [NumBanks][]uint16
	xmBank [16]uint8 // per-task XM bank register: bits [1:0] extended, [3:2] normal

	window Window
}

// New allocates a Memory for the given system variant with all banks
// zeroed (PowerOn below randomizes them, matching real hardware power-up
// state).
func New(sys microword.System) *Memory {
	m := &Memory{sys: sys}
	for i := range m.banks {
		m.banks[i] = make([]uint16, bankSize)
	}
	return m
}

// PowerOn randomizes every main memory bank, mirroring uninitialized
// core/semiconductor memory at power-up.
func (m *Memory) PowerOn() {
	for _, bank := range m.banks {
		for i := range bank {
			bank[i] = uint16(rand.Intn(1 << 16))
		}
	}
	m.window = Window{}
}

// bankIndex resolves which of the 4 banks a task's access lands in.
func (m *Memory) bankIndex(task uint8, extended bool) int {
	reg := m.xmBank[task&0xF]
	if extended {
		return int(reg & 0x3)
	}
	return int((reg >> 2) & 0x3)
}

// ClearXMBanks zeroes every task's extended-memory bank register, as
// required by a soft reset.
func (m *Memory) ClearXMBanks() {
	m.xmBank = [16]uint8{}
}

// SetXMBank stores a task's extended-memory bank register (only the
// low 4 bits are wired: 2 for normal access, 2 for extended).
func (m *Memory) SetXMBank(task uint8, val uint16) {
	m.xmBank[task&0xF] = uint8(val & 0xF)
}

// XMBank returns a task's extended-memory bank register, or the value
// read back from the 0xFFE0..0xFFEF I/O range.
func (m *Memory) XMBank(task uint8) uint16 {
	return uint16(m.xmBank[task&0xF])
}

// IsIO reports whether addr falls in the I/O-mapped range.
func IsIO(addr uint16) bool {
	return addr >= ioBase
}

// ReadIO resolves an I/O-mapped address that memory itself owns (the
// XM bank registers and the don't-care range). Callers must route
// mouse/keyboard addresses to the keyboard package first; ReadIO
// returns ok=false for addresses it does not own.
func (m *Memory) ReadIO(task uint8, addr uint16) (val uint16, ok bool) {
	switch {
	case addr >= xmBankLow && addr <= xmBankHigh:
		return m.XMBank(task), true
	case addr >= dontCareLow && addr <= dontCareHigh:
		return dontCareValue, true
	default:
		return 0, false
	}
}

// WriteIO resolves a write to an I/O-mapped address memory itself
// owns. Returns ok=false for addresses it does not own (don't-care
// writes are simply discarded by the hardware, so they report ok=true
// with no effect).
func (m *Memory) WriteIO(task uint8, addr uint16, val uint16) (ok bool) {
	switch {
	case addr >= xmBankLow && addr <= xmBankHigh:
		m.SetXMBank(task, val)
		return true
	case addr >= dontCareLow && addr <= dontCareHigh:
		return true
	default:
		return false
	}
}

// ReadDirect reads a plain main-memory address (addr < 0xFE00) for the
// given task's current bank selection, bypassing the access window.
// Used for reads that do not go through LOAD_MAR (debugger inspection,
// state dump, etc).
func (m *Memory) ReadDirect(task uint8, addr uint16, extended bool) uint16 {
	return m.banks[m.bankIndex(task, extended)][addr]
}

// WriteDirect mirrors ReadDirect for writes.
func (m *Memory) WriteDirect(task uint8, addr uint16, extended bool, val uint16) {
	m.banks[m.bankIndex(task, extended)][addr] = val
}

// BeginAccess opens a new access window for a LOAD_MAR executed by
// task, latching MAR and immediately reading both MEM_LOW (at MAR) and
// MEM_HIGH (at MAR's partner word: MAR|1 on Alto I, MAR^1 on Alto II).
// It is an error to call BeginAccess while a window is already open;
// callers must stall (advance cycles without issuing a new LOAD_MAR)
// until the prior window closes.
func (m *Memory) BeginAccess(task uint8, mar uint16, extended bool) error {
	if m.window.Open {
		return fmt.Errorf("memory: LOAD_MAR issued while window for task %d still open at cycle %d", m.window.Task, m.window.Cycle)
	}
	partner := mar | 1
	if m.sys != microword.AltoI {
		partner = mar ^ 1
	}
	bank := m.bankIndex(task, extended)
	m.window = Window{
		Open:     true,
		Cycle:    1,
		Task:     task,
		MAR:      mar,
		Extended: extended,
		low:      m.resolveRead(task, mar, extended, bank),
		high:     m.resolveRead(task, partner, extended, bank),
	}
	return nil
}

// resolveRead reads addr for the bank already picked, handling the I/O
// range the same way Read would.
func (m *Memory) resolveRead(task uint8, addr uint16, extended bool, bank int) uint16 {
	if IsIO(addr) {
		if v, ok := m.ReadIO(task, addr); ok {
			return v
		}
		return dontCareValue
	}
	return m.banks[bank][addr]
}

// Tick advances the window cycle by one, saturating at 10, and closes
// an open window once its duration has elapsed. The cycle keeps
// advancing after the window has closed (so callers who keep ticking
// after close don't need to special-case it, and a <-MD issued after
// the close still sees MEM_HIGH from the cycle after the ready cycle).
func (m *Memory) Tick() {
	if m.window.Cycle < 10 {
		m.window.Cycle++
	}
	if m.window.Open && m.window.Cycle >= windowDuration(m.sys) {
		m.closeIfDone()
	}
}

// closeIfDone closes the window once its duration has elapsed. A
// second MD<- (to MAR XOR 1) always lands before this point on every
// system variant, so closing is purely time-based and never needs to
// wait on store completion.
func (m *Memory) closeIfDone() {
	m.window.Open = false
}

// WindowOpen reports whether an access window is currently open.
func (m *Memory) WindowOpen() bool {
	return m.window.Open
}

// WindowCycle returns the currently open window's age in cycles since
// it was opened by BeginAccess.
func (m *Memory) WindowCycle() int {
	return m.window.Cycle
}

// WindowHasStore reports whether the currently open window has
// already received its first MD<- store.
func (m *Memory) WindowHasStore() bool {
	return m.window.HasStore
}

// StallForRead reports whether a <-MD bus source must stall the engine
// this cycle (the window hasn't reached the cycle at which MEM_LOW /
// MEM_HIGH become valid).
func (m *Memory) StallForRead() bool {
	return m.window.Open && m.window.Cycle < readReadyCycle
}

// ReadMD returns the value a <-MD bus source sees once the window has
// reached its ready cycle (cycle 5 on every variant): MEM_LOW at the
// ready cycle, MEM_HIGH one cycle later (with the Alto II "store
// already happened" interleave quirk: if a store already landed at
// the ready cycle, that same cycle returns MEM_HIGH instead of
// MEM_LOW).
func (m *Memory) ReadMD() uint16 {
	switch {
	case m.window.Cycle == readReadyCycle:
		if m.sys != microword.AltoI && m.window.HasStore {
			return m.window.high
		}
		return m.window.low
	case m.window.Cycle > readReadyCycle:
		return m.window.high
	default:
		return m.window.low
	}
}

// StallForWrite reports whether an MD<- bus destination must stall the
// engine this cycle.
func (m *Memory) StallForWrite() bool {
	return m.window.Open && m.window.Cycle < mdReadyCycle(m.sys)
}

// WriteMD performs an MD<- bus destination: the first call in a window
// stores val at MAR and marks HasStore; a second call one cycle later
// stores at MAR XOR 1.
func (m *Memory) WriteMD(task uint8, val uint16) {
	w := &m.window
	addr := w.MAR
	if w.storedOnce {
		addr = w.MAR ^ 1
		w.secondPending = false
	} else {
		w.storedOnce = true
		w.secondPending = true
	}
	w.HasStore = true
	if IsIO(addr) {
		if m.WriteIO(task, addr, val) {
			return
		}
		return
	}
	bank := m.bankIndex(task, w.Extended)
	m.banks[bank][addr] = val
}
