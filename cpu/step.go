package cpu

import (
	"github.com/alto-sim/alto/irq"
	"github.com/alto-sim/alto/microword"
)

// Step executes one microinstruction cycle. Once any step has
// returned an error, every subsequent call returns that same sticky
// error without touching any state.
func (c *Chip) Step() error {
	if c.Error != nil {
		return c.Error
	}
	if err := c.step(); err != nil {
		c.Error = err
		return err
	}
	return nil
}

// step runs the reference engine's per-cycle pipeline in its exact
// order: decode, read the bus, compute the ALU and shifter, run F1/F2
// (including the deferred BLOCK), write back registers, advance the
// program counters, apply a pending soft reset, and finally dispatch
// any peripheral interrupts this cycle's advance crossed.
func (c *Chip) step() error {
	prevCycle := c.cycle
	c.advanceCycle()

	if c.ctask == microword.TaskEthernet {
		c.ethernet.ClearCountdownWakeup()
	}

	softReset := c.softReset
	c.softReset = false

	f := microword.Decode(c.mir, c.sys, c.ctask)

	modRSel := c.modifiedRSel(f)
	constAddr := microword.ConstAddr(modRSel, f.BS)

	bus, err := c.readBus(f, modRSel, constAddr)
	if err != nil {
		return err
	}

	aluResult, aluCarry, err := computeALU(f.ALUF, bus, c.t, c.skip)
	if err != nil {
		return err
	}

	if err := c.doWRTRAM(aluResult); err != nil {
		return err
	}

	loadR := !f.UseConstant && f.BS == microword.BSLoadR
	sh := c.doShift(f, c.l, loadR)

	f1, err := c.doF1(f, bus, aluResult)
	if err != nil {
		return err
	}

	nextExtra, err := c.doF2(f, bus, aluResult, aluCarry, sh.output, sh.novaCarry)
	if err != nil {
		return err
	}

	if f.F1 == microword.F1Block {
		c.doBlock(c.ctask)
	}

	c.wbRegisters(f, modRSel, sh, aluResult, aluCarry, bus)

	c.updateProgramCounters(nextExtra, f1)

	if softReset {
		c.doSoftReset()
	}

	return c.checkForInterrupts(prevCycle)
}

// advanceCycle ticks the global cycle counter, the current task's
// private cycle counter, and the memory access window, all by one.
// Every counter wraps within the 31-bit space irq.Cycle uses.
func (c *Chip) advanceCycle() {
	c.cycle = irq.Cycle(c.cycle + 1)
	c.taskCycle[c.ctask] = irq.Cycle(c.taskCycle[c.ctask] + 1)
	c.mem.Tick()
}

// updateProgramCounters advances the task-switch pipeline by exactly
// one microinstruction, matching the reference engine: a task switch
// requested this cycle (nntask, carried in f1) does not take effect
// until the NEXT call, and next_extra computed from this cycle's F2
// folds into the NEXT field of the instruction about to be fetched
// for the (possibly just-switched) current task, not the one retiring.
// Order: detect whether the switch armed last cycle now takes effect,
// switch ctask, fetch that task's pending MIR, fold next_extra into
// ITS Next field (applying SWMODE's bank swap if armed) and save the
// result as that task's MPC for its following fetch, then record this
// cycle's F1_TASK request as the switch to take effect next cycle.
func (c *Chip) updateProgramCounters(nextExtra uint16, f1 f1Result) {
	c.taskSwitch = c.ctask != c.ntask
	c.ctask = c.ntask

	mpc := c.taskMPC[c.ctask]
	mir := microword.Word(c.microcode[mpc])
	mf := microword.Decode(mir, c.sys, c.ctask)

	nextAddr := (mf.Next | nextExtra) & mpcAddrMask
	bank := (mpc >> mpcBankShift) & mpcBankMask

	if f1.swmode {
		bank = c.swmodeBank(bank, nextAddr)
	}

	c.taskMPC[c.ctask] = (bank << mpcBankShift) | nextAddr

	c.mir = mir
	c.mpc = mpc

	if f1.haveNext {
		c.ntask = f1.nextTask
	}

	if c.taskSwitch {
		c.onTaskSwitch(c.ctask)
	}
}

// onTaskSwitch dispatches the engine's task-switch side effects to
// whichever peripheral owns the task just switched INTO: the disk's
// SECLATE latch reset (if the Disk Sector task wakes up and runs
// before the Disk Controller hits the SECLATE trigger time, SECLATE
// never latches for that sector) and the display's auto-clear of the
// horizontal/cursor task's own pending wakeup bit (it is now running,
// so it is no longer "pending"). Grounded on the reference's
// disk_on_switch_task and display_on_switch_task, both dispatched
// with the task just switched to, from the same task-switch check.
// The reference also checks TASK_DISPLAY_VERTICAL, but that task
// never runs any microcode on a stock Alto (see scheduledCycles'
// DV-wakes-memory-refresh note), so it is omitted.
func (c *Chip) onTaskSwitch(to microword.Task) {
	switch to {
	case microword.TaskDiskSector:
		c.disk.OnSectorTaskSwitch(to)
	case microword.TaskDisplayHorizontal:
		c.display.ClearHorizontalWakeup()
	case microword.TaskCursor:
		c.display.ClearCursorWakeup()
	}
}

// swmodeBank applies the system-specific SWMODE bank-selection table:
// a simple ROM/RAM (bank 0/bank 1) toggle on Alto I and the 1K ROM
// variant, a 3-way
// table keyed on the new address's bit 8 on the 2K ROM variant, and a
// 4-way table keyed on bits 8 and 7 on the 3K RAM variant. Any variant
// not named falls through unchanged.
func (c *Chip) swmodeBank(bank, nextAddr uint16) uint16 {
	switch c.sys {
	case microword.AltoI, microword.AltoII1KROM:
		return bank ^ 1
	case microword.AltoII2KROM:
		switch bank {
		case 0:
			if nextAddr&0x100 != 0 {
				return 1
			}
			return 2
		case 1:
			if nextAddr&0x100 != 0 {
				return 2
			}
			return 0
		case 2:
			if nextAddr&0x100 != 0 {
				return 1
			}
			return 0
		}
	case microword.AltoII3KRAM:
		if nextAddr&0x100 != 0 {
			switch bank {
			case 0:
				if nextAddr&0x80 != 0 {
					return 1
				}
				return 2
			case 1:
				return 2
			case 2, 3:
				return 1
			}
		} else {
			switch bank {
			case 0:
				if nextAddr&0x80 != 0 {
					return 3
				}
				return 1
			case 1, 2:
				if nextAddr&0x80 != 0 {
					return 3
				}
				return 0
			case 3:
				if nextAddr&0x80 != 0 {
					return 2
				}
				return 0
			}
		}
	}
	return bank
}

// doSoftReset implements F1_EMU_STARTF's bit-15 request: every task's
// saved MPC is reset to its task number, in bank 0 if the task's RMR
// bit is set or the system's default RAM bank otherwise; the engine
// switches to the emulator task and re-fetches; the disk sector task
// is woken (word task's wakeup cleared); and RMR itself is restored to
// all-ones. Grounded on the reference's do_soft_reset, whose RMR
// polarity is the opposite of this specification's prose description
// of it (see DESIGN.md).
func (c *Chip) doSoftReset() {
	c.mem.ClearXMBanks()

	var bank uint16 = 1
	if c.sys == microword.AltoII2KROM {
		bank = 2
	}

	for t := microword.Task(0); t < microword.NumTasks; t++ {
		if c.rmr&(1<<uint(t)) != 0 {
			c.taskMPC[t] = uint16(t)
		} else {
			c.taskMPC[t] = (bank << mpcBankShift) | uint16(t)
		}
	}

	c.ctask = microword.TaskEmulator
	c.ntask = microword.TaskEmulator
	c.mpc = c.taskMPC[c.ctask]
	c.mir = microword.Word(c.microcode[c.mpc])
	mbank := (c.mpc >> mpcBankShift) & mpcBankMask
	c.taskMPC[c.ctask] = (mbank << mpcBankShift) | (microword.Decode(c.mir, c.sys, c.ctask).Next & mpcAddrMask)

	c.disk.SoftReset()
	c.rmr = 0xFFFF
}

// scheduledCycles gathers every peripheral's raw scheduled event
// cycles into one slice for irq.Earliest to fold. Unlike the reference
// simulator, which has each peripheral fold its own sub-events into a
// single intr_cycle before the top level folds three values together,
// this folds all ten raw values directly in one pass: functionally
// equivalent, since irq.Earliest folds any number of entries, and one
// less layer of bookkeeping to keep in sync.
func (c *Chip) scheduledCycles() []int32 {
	dSector, dWord, dSeek, dSeclate := c.disk.ScheduledCycles()
	dv, dh, dw := c.display.ScheduledCycles()
	eIntr, eTx, eRx := c.ethernet.ScheduledCycles()
	return []int32{dSector, dWord, dSeek, dSeclate, dv, dh, dw, eIntr, eTx, eRx}
}

// checkForInterrupts walks every peripheral wakeup whose scheduled
// cycle now lies at or before the current cycle, dispatching each in
// turn (disk, then display, then Ethernet, matching the reference's
// fixed tie-break order), and recomputes the next interrupt cycle
// after each dispatch until the next one is still in the future.
func (c *Chip) checkForInterrupts(prevCycle int32) error {
	for {
		if c.intrCycle == irq.None {
			return nil
		}
		diff := irq.Cycle(c.cycle - prevCycle)
		intrDiff := irq.Cycle(c.intrCycle - prevCycle)
		if diff < intrDiff {
			return nil
		}
		prevCycle = irq.Cycle(prevCycle + intrDiff)

		dSector, dWord, dSeek, dSeclate := c.disk.ScheduledCycles()
		if c.intrCycle == dSector {
			c.disk.DispatchSector(c.intrCycle)
		}
		if c.intrCycle == dWord {
			c.disk.DispatchWord(c.intrCycle)
		}
		if c.intrCycle == dSeek {
			c.disk.DispatchSeek(c.intrCycle)
		}
		if c.intrCycle == dSeclate {
			c.disk.DispatchSeclate()
		}

		dv, dh, dw := c.display.ScheduledCycles()
		if c.intrCycle == dv {
			c.display.DispatchDV(c.intrCycle)
			c.ethernet.WakeFromVBlank()
		}
		if c.intrCycle == dh {
			c.display.DispatchDH(c.intrCycle)
		}
		if c.intrCycle == dw {
			c.display.DispatchDW(c.intrCycle)
		}

		_, eTx, eRx := c.ethernet.ScheduledCycles()
		if c.intrCycle == eTx {
			if err := c.ethernet.DispatchTX(c.intrCycle); err != nil {
				return err
			}
		}
		if c.intrCycle == eRx {
			if err := c.ethernet.DispatchRX(c.intrCycle); err != nil {
				return err
			}
		}

		next, err := irq.Earliest(prevCycle, c.scheduledCycles(), false)
		if err != nil {
			return err
		}
		if next == prevCycle {
			return InvalidState{"intr_cycle did not advance"}
		}
		c.intrCycle = next
	}
}
