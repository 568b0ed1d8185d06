// Package cpu implements the Alto's micro-engine: the sixteen-task
// priority-scheduled microcoded processor that executes one 32-bit
// microinstruction per cycle against the R/S register files, the ALU
// and Nova-style shifter, the microcode control store, and the
// peripheral controllers wired to it.
package cpu

import (
	"fmt"

	"github.com/alto-sim/alto/irq"
	"github.com/alto-sim/alto/memory"
	"github.com/alto-sim/alto/microword"
)

// Register file sizing: 32 R registers, 8 banks of 32 S registers.
const (
	numR      = 32
	numSBanks = 8
	numS      = numSBanks * numR
)

// mcInvertMask is XORed into every microcode RAM word on read and
// write; the control store is wired inverted.
const mcInvertMask = 0x00088400

// mpcBankShift/mpcBankMask locate the 2-bit bank selector packed into
// the top of a task's saved MPC.
const (
	mpcBankShift = 10
	mpcBankMask  = 0x3
	mpcAddrMask  = 0x3FF
)

// microcodeWords is the flat size of the (bank, address) control
// store: 4 banks of 1024 words each, though only System.RAMBanks() of
// them are writable.
const microcodeWords = 4 * 1024

// Disk is the narrow view of the disk controller the engine drives.
type Disk interface {
	ReadKSTAT() uint16
	LoadKSTAT(bus uint16)
	ReadKDATA() uint16
	LoadKDATA(bus uint16)
	LoadKADR(bus uint16)
	LoadKCOMM(bus uint16)
	StrobeSeek(cycle int32)
	IncRecno() error
	ClrStat()
	F2Init() uint16
	F2RWC() uint16
	F2Recno() uint16
	F2XFRDAT() uint16
	F2SWRNRDY() uint16
	F2NFER() uint16
	F2STROBON() uint16
	BlockTask(task microword.Task)
	OnSectorTaskSwitch(task microword.Task)
	Pending() uint16
	ScheduledCycles() (sector, word, seek, seclate int32)
	DispatchSector(cycle int32)
	DispatchWord(cycle int32)
	DispatchSeek(cycle int32)
	DispatchSeclate()
	SoftReset()
	Reset()
}

// Display is the narrow view of the display controller.
type Display interface {
	LoadDDR(word uint16)
	LoadXPREG(bus uint16)
	LoadCSR(bus uint16)
	EvenField() uint16
	SetMode(bus uint16) uint16
	BlockWord()
	BlockHorizontal()
	BlockCursor()
	ClearHorizontalWakeup()
	ClearCursorWakeup()
	ClearMemoryRefreshWakeup()
	Pending() uint8
	ScheduledCycles() (dv, dh, dw int32)
	DispatchDV(cycle int32)
	DispatchDH(cycle int32)
	DispatchDW(cycle int32)
	Reset()
}

// Ethernet is the narrow view of the Ethernet controller.
type Ethernet interface {
	RSNF() uint16
	STARTF(bus uint16)
	EILFCT() uint16
	EIDFCT() uint16
	EPFCT() uint16
	EWFCT()
	EODFCT(cycle int32, bus uint16)
	EOSFCT()
	ERBFCT() uint16
	EEFCT(cycle int32)
	EBFCT() uint16
	ECBFCT() uint16
	EISFCT(cycle int32)
	ClearCountdownWakeup()
	WakeFromVBlank()
	BlockTask()
	Pending() bool
	ScheduledCycles() (intr, tx, rx int32)
	DispatchTX(cycle int32) error
	DispatchRX(cycle int32) error
	Reset()
}

// Keyboard is the narrow view of the keyboard/mouse controller.
type Keyboard interface {
	ReadBitmapWord(addr uint16) uint16
	ReadButtons() uint16
	PollMouse() uint16
}

// display task-local pending bits, remapped onto the real task numbers
// they wake: the display package tracks these with a compact 4-bit
// bitmap of its own rather than the engine's 16-bit one.
const (
	dispBitWord = 1 << iota
	dispBitHorizontal
	dispBitVertical
	dispBitCursor
)

var dispBitToTask = [...]struct {
	bit  uint8
	task microword.Task
}{
	{dispBitWord, microword.TaskDisplayWord},
	{dispBitHorizontal, microword.TaskDisplayHorizontal},
	// DispatchDV wakes the memory-refresh task on every scanline, not
	// the display-vertical task itself (which has no microcode of its
	// own on a stock Alto).
	{dispBitVertical, microword.TaskMemoryRefresh},
	{dispBitCursor, microword.TaskCursor},
}

// InvalidState reports a condition the reference hardware's microcode
// is never expected to produce: these always indicate a bug in the
// loaded microcode or in the engine, not normal operation.
type InvalidState struct {
	Msg string
}

func (e InvalidState) Error() string { return "cpu: " + e.Msg }

// ChipDef holds the engine's constructor dependencies.
type ChipDef struct {
	System   microword.System
	Mem      *memory.Memory
	Disk     Disk
	Display  Display
	Ethernet Ethernet
	Keyboard Keyboard

	// Consts is the 256-entry constant ROM, indexed by
	// microword.ConstAddr(rsel, bs).
	Consts [256]uint16
	// Microcode is the flat (bank<<10)|addr control store, ROM banks
	// pre-loaded, RAM banks zeroed or pre-loaded per the image.
	Microcode [microcodeWords]uint32
	// ACSROM is the 256-entry jump table IDISP/ACSOURCE index into.
	ACSROM [256]uint16
}

// Chip is the Alto's micro-engine.
type Chip struct {
	sys microword.System

	mem      *memory.Memory
	disk     Disk
	display  Display
	ethernet Ethernet
	keyboard Keyboard

	r        [numR]uint16
	s        [numS]uint16
	sregBank [microword.NumTasks]uint8

	t, l, m       uint16
	mar           uint16
	ir            uint16
	aluC0         bool
	skip          bool
	carry         bool // Nova-style carry, visible to the emulator task
	rmr           uint16
	cramAddr      uint16
	rdram, wrtram bool
	nextExtra     uint16

	mir     microword.Word
	mpc     uint16
	taskMPC [microword.NumTasks]uint16

	ctask, ntask microword.Task
	taskSwitch   bool

	cycle     int32
	taskCycle [microword.NumTasks]int32
	intrCycle int32

	softReset bool

	consts    [256]uint16
	microcode [microcodeWords]uint32
	acsROM    [256]uint16

	// Error is set once any step returns an error, mirroring the
	// reference simulator's sticky sim->error flag; callers may also
	// just check Step's return value directly.
	Error error
}

// Init constructs a Chip from def and powers it on.
func Init(def *ChipDef) (*Chip, error) {
	if def.Mem == nil {
		return nil, fmt.Errorf("cpu: Init: Mem is required")
	}
	c := &Chip{
		sys:       def.System,
		mem:       def.Mem,
		disk:      def.Disk,
		display:   def.Display,
		ethernet:  def.Ethernet,
		keyboard:  def.Keyboard,
		consts:    def.Consts,
		microcode: def.Microcode,
		acsROM:    def.ACSROM,
	}
	c.PowerOn()
	return c, nil
}

// PowerOn sets every task's saved MPC to its task number in bank 0,
// selects the emulator task, and leaves MIR at zero rather than
// prefetching the emulator task's real first microword: the very
// first Step call is a priming cycle that retires that zero word
// while fetching the real instruction at taskMPC[TaskEmulator] into
// MIR, one microinstruction of latency ahead of its real execution,
// matching the one-microinstruction-deep task/NEXT pipeline elsewhere
// in this engine. taskSwitch also starts forced true, but the priming
// cycle recomputes it before the first real microword runs, so an
// F1_TASK encoded in that microword is honored.
func (c *Chip) PowerOn() {
	for t := microword.Task(0); t < microword.NumTasks; t++ {
		c.taskMPC[t] = uint16(t)
	}
	c.ctask = microword.TaskEmulator
	c.ntask = microword.TaskEmulator
	c.mpc = 0
	c.mir = 0
	c.taskSwitch = true
	c.rmr = 0xFFFF
	c.Error = nil
	c.intrCycle = irq.None
	if cycle, err := irq.Earliest(0, c.scheduledCycles(), false); err == nil {
		c.intrCycle = cycle
	}
}

// decodeRAMAddress maps a 16-bit CRAM_ADDR value onto a flat
// (bank<<10)|addr index into the microcode store, per the fixed bank
// layout: bit 11 selects ROM (unsupported for RDRAM/WRTRAM), bit 10
// selects which half of the low/high 32-bit microword is addressed,
// and bits [13:12] select a RAM bank on the 3K-RAM variant.
func (c *Chip) decodeRAMAddress(cramAddr uint16) (addr uint16, lowHalf bool, err error) {
	if cramAddr&0x0800 != 0 {
		return 0, false, InvalidState{"reading from (or writing to) ROM is not supported"}
	}
	lowHalf = cramAddr&0x0400 == 0
	addr = cramAddr & 0x3FF
	var bank uint16
	switch c.sys {
	case microword.AltoII3KRAM:
		bank = (cramAddr >> 12) & 0x3
		if bank == 3 {
			return 0, false, InvalidState{"RAM bank 3 not supported"}
		}
		bank++
	case microword.AltoII2KROM:
		bank = 2
	default:
		bank = 1
	}
	addr += bank << 10
	return addr, lowHalf, nil
}

// doRDRAM implements F1_RAM_RDRAM's deferred effect: if armed, reads
// the decoded CRAM_ADDR location, XORs the invert mask, and ANDs
// either its low or high half into the bus. Returns 0xFFFF (a no-op
// AND) if RDRAM was not armed this cycle.
func (c *Chip) doRDRAM() (uint16, error) {
	if !c.rdram {
		return 0xFFFF, nil
	}
	c.rdram = false
	addr, lowHalf, err := c.decodeRAMAddress(c.cramAddr)
	if err != nil {
		return 0, err
	}
	mcode := c.microcode[addr] ^ mcInvertMask
	if lowHalf {
		return uint16(mcode), nil
	}
	return uint16(mcode >> 16), nil
}

// doWRTRAM implements F1_RAM_WRTRAM's deferred effect: if armed,
// packs M (the high half) and alu (the low half) into one 32-bit
// microword, XORs the invert mask, and stores it at the decoded
// CRAM_ADDR location.
func (c *Chip) doWRTRAM(alu uint32) error {
	if !c.wrtram {
		return nil
	}
	c.wrtram = false
	addr, _, err := c.decodeRAMAddress(c.cramAddr)
	if err != nil {
		return err
	}
	mcode := (uint32(c.m) << 16) | (alu & 0xFFFF)
	c.microcode[addr] = mcode ^ mcInvertMask
	return nil
}
