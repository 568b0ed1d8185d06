package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/alto-sim/alto/irq"
	"github.com/alto-sim/alto/memory"
	"github.com/alto-sim/alto/microword"
)

// fakeDisk, fakeDisplay, fakeEthernet and fakeKeyboard are minimal
// stand-ins for the narrow peripheral interfaces: every scheduled
// cycle reports irq.None so checkForInterrupts never fires unless a
// test explicitly arms one.
type fakeDisk struct {
	pending           uint16
	softResetCalls    int
	sectorSwitchCalls []microword.Task
}

func (f *fakeDisk) ReadKSTAT() uint16         { return 0 }
func (f *fakeDisk) LoadKSTAT(uint16)          {}
func (f *fakeDisk) ReadKDATA() uint16         { return 0 }
func (f *fakeDisk) LoadKDATA(uint16)          {}
func (f *fakeDisk) LoadKADR(uint16)           {}
func (f *fakeDisk) LoadKCOMM(uint16)          {}
func (f *fakeDisk) StrobeSeek(int32)          {}
func (f *fakeDisk) IncRecno() error           { return nil }
func (f *fakeDisk) ClrStat()                  {}
func (f *fakeDisk) F2Init() uint16            { return 0xFFFF }
func (f *fakeDisk) F2RWC() uint16             { return 0xFFFF }
func (f *fakeDisk) F2Recno() uint16           { return 0xFFFF }
func (f *fakeDisk) F2XFRDAT() uint16          { return 0xFFFF }
func (f *fakeDisk) F2SWRNRDY() uint16         { return 0xFFFF }
func (f *fakeDisk) F2NFER() uint16            { return 0xFFFF }
func (f *fakeDisk) F2STROBON() uint16         { return 0xFFFF }
func (f *fakeDisk) BlockTask(microword.Task)  {}
func (f *fakeDisk) OnSectorTaskSwitch(task microword.Task) {
	f.sectorSwitchCalls = append(f.sectorSwitchCalls, task)
}
func (f *fakeDisk) Pending() uint16           { return f.pending }
func (f *fakeDisk) ScheduledCycles() (sector, word, seek, seclate int32) {
	return irq.None, irq.None, irq.None, irq.None
}
func (f *fakeDisk) DispatchSector(int32) {}
func (f *fakeDisk) DispatchWord(int32)   {}
func (f *fakeDisk) DispatchSeek(int32)   {}
func (f *fakeDisk) DispatchSeclate()     {}
func (f *fakeDisk) SoftReset() {
	f.softResetCalls++
	f.pending = 1 << microword.TaskDiskSector
}
func (f *fakeDisk) Reset()               {}

type fakeDisplay struct {
	clearHorizCalls  int
	clearCursorCalls int
}

func (f *fakeDisplay) LoadDDR(uint16)                 {}
func (f *fakeDisplay) LoadXPREG(uint16)                {}
func (f *fakeDisplay) LoadCSR(uint16)                  {}
func (f *fakeDisplay) EvenField() uint16               { return 0 }
func (f *fakeDisplay) SetMode(uint16) uint16           { return 0 }
func (f *fakeDisplay) BlockWord()                      {}
func (f *fakeDisplay) BlockHorizontal()                {}
func (f *fakeDisplay) BlockCursor()                    {}
func (f *fakeDisplay) ClearHorizontalWakeup()          { f.clearHorizCalls++ }
func (f *fakeDisplay) ClearCursorWakeup()              { f.clearCursorCalls++ }
func (f *fakeDisplay) ClearMemoryRefreshWakeup()       {}
func (f *fakeDisplay) Pending() uint8                  { return 0 }
func (f *fakeDisplay) ScheduledCycles() (dv, dh, dw int32) {
	return irq.None, irq.None, irq.None
}
func (f *fakeDisplay) DispatchDV(int32) {}
func (f *fakeDisplay) DispatchDH(int32) {}
func (f *fakeDisplay) DispatchDW(int32) {}
func (f *fakeDisplay) Reset()           {}

type fakeEthernet struct {
	pending bool
}

func (f *fakeEthernet) RSNF() uint16            { return 0xFFFF }
func (f *fakeEthernet) STARTF(uint16)           {}
func (f *fakeEthernet) EILFCT() uint16          { return 0xFFFF }
func (f *fakeEthernet) EIDFCT() uint16          { return 0xFFFF }
func (f *fakeEthernet) EPFCT() uint16           { return 0xFFFF }
func (f *fakeEthernet) EWFCT()                  {}
func (f *fakeEthernet) EODFCT(int32, uint16)    {}
func (f *fakeEthernet) EOSFCT()                 {}
func (f *fakeEthernet) ERBFCT() uint16          { return 0xFFFF }
func (f *fakeEthernet) EEFCT(int32)             {}
func (f *fakeEthernet) EBFCT() uint16           { return 0xFFFF }
func (f *fakeEthernet) ECBFCT() uint16          { return 0xFFFF }
func (f *fakeEthernet) EISFCT(int32)            {}
func (f *fakeEthernet) ClearCountdownWakeup()   {}
func (f *fakeEthernet) WakeFromVBlank()         {}
func (f *fakeEthernet) BlockTask()              {}
func (f *fakeEthernet) Pending() bool           { return f.pending }
func (f *fakeEthernet) ScheduledCycles() (intr, tx, rx int32) {
	return irq.None, irq.None, irq.None
}
func (f *fakeEthernet) DispatchTX(int32) error { return nil }
func (f *fakeEthernet) DispatchRX(int32) error { return nil }
func (f *fakeEthernet) Reset()                 {}

type fakeKeyboard struct{}

func (f *fakeKeyboard) ReadBitmapWord(uint16) uint16 { return 0 }
func (f *fakeKeyboard) ReadButtons() uint16          { return 0 }
func (f *fakeKeyboard) PollMouse() uint16            { return 0 }

// mkWord packs a set of decoded fields back into a raw 32-bit
// microinstruction, mirroring microword.Decode's bit layout.
func mkWord(rsel uint8, aluf microword.ALUF, bs microword.BS, f1 microword.F1, f2 microword.F2, loadT, loadL bool, next uint16) microword.Word {
	w := uint32(rsel&0x1F) << 27
	w |= uint32(aluf&0xF) << 23
	w |= uint32(bs&0x7) << 20
	w |= uint32(f1&0xF) << 16
	w |= uint32(f2&0xF) << 12
	if loadT {
		w |= 1 << 11
	}
	if loadL {
		w |= 1 << 10
	}
	w |= uint32(next) & 0x3FF
	return microword.Word(w)
}

func newTestChip(t *testing.T, sys microword.System, program []microword.Word, mem *memory.Memory) (*Chip, *fakeDisk, *fakeEthernet, *fakeDisplay) {
	t.Helper()
	if mem == nil {
		mem = memory.New(sys)
	}
	def := &ChipDef{
		System:   sys,
		Mem:      mem,
		Disk:     &fakeDisk{},
		Display:  &fakeDisplay{},
		Ethernet: &fakeEthernet{},
		Keyboard: &fakeKeyboard{},
	}
	// Every BS source with bs_use_crom set (BS >= 4) ANDs the bus with
	// the constant ROM before its own value applies; a real constant
	// ROM image leaves the "pure passthrough" entries all-ones, so the
	// fakes here do too.
	for i := range def.Consts {
		def.Consts[i] = 0xFFFF
	}
	for i, w := range program {
		def.Microcode[i] = uint32(w)
	}
	c, err := Init(def)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return c, def.Disk.(*fakeDisk), def.Ethernet.(*fakeEthernet), def.Display.(*fakeDisplay)
}

// TestArithmeticAndRegisterLoad grounds the register file/ALU/shifter
// write-back path: R2 is read onto the bus and latched into L, then
// the shifter's passthrough writes L into R1, and a final ALU_PLUS_1
// against R1 latches the incremented value into T.
func TestArithmeticAndRegisterLoad(t *testing.T) {
	program := []microword.Word{
		mkWord(2, microword.ALUBus, microword.BSReadR, microword.F1None, microword.F2None, false, true, 1),
		mkWord(1, microword.ALUBus, microword.BSLoadR, microword.F1None, microword.F2None, false, false, 2),
		mkWord(1, microword.ALUBusPlus1, microword.BSReadR, microword.F1None, microword.F2None, true, false, 2),
	}
	c, _, _, _ := newTestChip(t, microword.AltoII1KROM, program, nil)
	c.r[2] = 0x1234

	// Power-on primes MIR with a dummy zero word rather than the real
	// first instruction (see PowerOn); the first Step retires that
	// dummy while fetching word 0, so four steps are needed to retire
	// all three real program words.
	for i := 0; i < 4; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("Step %d: %v\nstate: %s", i, err, spew.Sdump(c))
		}
	}

	if got, want := c.r[1], uint16(0x1234); got != want {
		t.Errorf("r[1] = 0x%04X, want 0x%04X", got, want)
	}
	if got, want := c.t, uint16(0x1235); got != want {
		t.Errorf("t = 0x%04X, want 0x%04X", got, want)
	}
}

// TestTaskSwitch grounds F1_TASK dispatch and its one-microinstruction
// pipeline latency: with the Ethernet task's pending bit the only one
// set, the emulator task's F1_TASK only arms the switch (ntask); ctask
// itself does not move to Ethernet until the following cycle, matching
// update_program_counters comparing ctask against ntask before either
// is touched this cycle.
func TestTaskSwitch(t *testing.T) {
	program := []microword.Word{
		mkWord(0, microword.ALUBus, microword.BSNone, microword.F1Task, microword.F2None, false, false, 5),
	}
	c, _, eth, _ := newTestChip(t, microword.AltoII1KROM, program, nil)
	eth.pending = true

	// Priming step: retires power-on's dummy MIR and fetches the real
	// F1_TASK instruction without executing it.
	if err := c.Step(); err != nil {
		t.Fatalf("Step priming: %v\nstate: %s", err, spew.Sdump(c))
	}

	if err := c.Step(); err != nil {
		t.Fatalf("Step 1: %v\nstate: %s", err, spew.Sdump(c))
	}
	if got, want := c.ctask, microword.TaskEmulator; got != want {
		t.Errorf("ctask after arming switch = %d, want %d (still same cycle's task)", got, want)
	}
	if got, want := c.ntask, microword.TaskEthernet; got != want {
		t.Errorf("ntask = %d, want %d", got, want)
	}

	if err := c.Step(); err != nil {
		t.Fatalf("Step 2: %v\nstate: %s", err, spew.Sdump(c))
	}
	if got, want := c.ctask, microword.TaskEthernet; got != want {
		t.Errorf("ctask = %d, want %d", got, want)
	}
	if got, want := c.mpc, uint16(microword.TaskEthernet); got != want {
		t.Errorf("mpc = 0x%04X, want 0x%04X", got, want)
	}
}

// TestSoftReset grounds do_soft_reset: a STARTF with bit 15 set takes
// effect one cycle later (the reference's captured-then-cleared
// soft_reset flag), restoring every task's saved MPC according to RMR
// and RMR itself to all-ones, and waking the disk sector task.
func TestSoftReset(t *testing.T) {
	program := []microword.Word{
		mkWord(2, microword.ALUBus, microword.BSReadR, microword.F1EmuSTARTF, microword.F2None, false, false, 1),
		mkWord(0, microword.ALUBus, microword.BSNone, microword.F1None, microword.F2None, false, false, 1),
	}
	c, dsk, _, _ := newTestChip(t, microword.AltoII1KROM, program, nil)
	c.r[2] = 0x8000
	c.rmr = 0x0000

	// Priming step: retires power-on's dummy MIR and fetches the real
	// STARTF instruction without executing it.
	if err := c.Step(); err != nil {
		t.Fatalf("Step priming: %v\nstate: %s", err, spew.Sdump(c))
	}

	if err := c.Step(); err != nil {
		t.Fatalf("Step 1: %v\nstate: %s", err, spew.Sdump(c))
	}
	if c.softReset != true {
		t.Fatalf("softReset not armed after STARTF: state: %s", spew.Sdump(c))
	}

	if err := c.Step(); err != nil {
		t.Fatalf("Step 2: %v\nstate: %s", err, spew.Sdump(c))
	}

	if got, want := c.rmr, uint16(0xFFFF); got != want {
		t.Errorf("rmr = 0x%04X, want 0x%04X", got, want)
	}
	if got, want := c.ctask, microword.TaskEmulator; got != want {
		t.Errorf("ctask = %d, want %d", got, want)
	}
	if got, want := c.taskMPC[microword.TaskEmulator], uint16(1<<mpcBankShift); got != want {
		t.Errorf("taskMPC[emulator] = 0x%04X, want 0x%04X", got, want)
	}
	if dsk.softResetCalls != 1 {
		t.Errorf("disk.SoftReset called %d times, want 1", dsk.softResetCalls)
	}
}

// TestMemoryRoundTrip grounds LOAD_MAR/MD<-/<-MD against a real
// memory.Memory: a value written through one window is read back
// through a second window opened at the same address.
func TestMemoryRoundTrip(t *testing.T) {
	program := []microword.Word{
		mkWord(3, microword.ALUBus, microword.BSReadR, microword.F1LoadMAR, microword.F2None, false, false, 1),
		mkWord(4, microword.ALUBus, microword.BSReadR, microword.F1None, microword.F2StoreMD, false, false, 2),
		mkWord(3, microword.ALUBus, microword.BSReadR, microword.F1LoadMAR, microword.F2None, false, false, 3),
		mkWord(0, microword.ALUBus, microword.BSReadMD, microword.F1None, microword.F2None, true, false, 3),
	}
	mem := memory.New(microword.AltoII1KROM)
	c, _, _, _ := newTestChip(t, microword.AltoII1KROM, program, mem)
	c.r[3] = 0x0100
	c.r[4] = 0xABCD

	// One extra step to retire power-on's dummy MIR and prime the
	// fetch of the first real program word.
	for i := 0; i < 5; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("Step %d: %v\nstate: %s", i, err, spew.Sdump(c))
		}
	}

	if got, want := c.t, uint16(0xABCD); got != want {
		t.Errorf("t = 0x%04X, want 0x%04X", got, want)
	}
}

// TestOnTaskSwitchSideEffects grounds disk_on_switch_task/
// display_on_switch_task: switching INTO the Disk Sector task disarms
// SECLATE, and switching INTO the Cursor task clears its own pending
// wakeup, both dispatched on the arriving task, without running an
// explicit F1_BLOCK.
func TestOnTaskSwitchSideEffects(t *testing.T) {
	full := make([]microword.Word, int(microword.TaskCursor)+1)
	c, dsk, _, disp := newTestChip(t, microword.AltoII1KROM, full, nil)

	c.ntask = microword.TaskDiskSector
	if err := c.Step(); err != nil {
		t.Fatalf("Step (into disk sector): %v\nstate: %s", err, spew.Sdump(c))
	}
	if got, want := c.ctask, microword.TaskDiskSector; got != want {
		t.Fatalf("ctask = %d, want %d (switch should have occurred)", got, want)
	}
	if len(dsk.sectorSwitchCalls) != 1 || dsk.sectorSwitchCalls[0] != microword.TaskDiskSector {
		t.Errorf("sectorSwitchCalls = %v, want [TaskDiskSector]", dsk.sectorSwitchCalls)
	}
	if disp.clearCursorCalls != 0 || disp.clearHorizCalls != 0 {
		t.Errorf("display clear calls fired for a disk-only switch: cursor=%d horiz=%d", disp.clearCursorCalls, disp.clearHorizCalls)
	}

	c.ntask = microword.TaskCursor
	if err := c.Step(); err != nil {
		t.Fatalf("Step (into cursor): %v\nstate: %s", err, spew.Sdump(c))
	}
	if got, want := c.ctask, microword.TaskCursor; got != want {
		t.Fatalf("ctask = %d, want %d (switch should have occurred)", got, want)
	}
	if disp.clearCursorCalls != 1 {
		t.Errorf("clearCursorCalls = %d, want 1", disp.clearCursorCalls)
	}
	if len(dsk.sectorSwitchCalls) != 1 {
		t.Errorf("sectorSwitchCalls = %v, want unchanged at 1 entry", dsk.sectorSwitchCalls)
	}
}
