package cpu

import "github.com/alto-sim/alto/microword"

// f1Result carries the two outputs F1 dispatch can produce beyond its
// direct side effects: a requested task switch and an armed SWMODE.
type f1Result struct {
	nextTask microword.Task
	haveNext bool
	swmode   bool
}

// getPending folds every peripheral's pending bitmap into the
// engine's global 16-bit task-pending view. The emulator task is
// always runnable.
func (c *Chip) getPending() uint16 {
	pending := uint16(1) << microword.TaskEmulator
	pending |= c.disk.Pending()
	for _, m := range dispBitToTask {
		if c.display.Pending()&m.bit != 0 {
			pending |= 1 << m.task
		}
	}
	if c.ethernet.Pending() {
		pending |= 1 << microword.TaskEthernet
	}
	return pending
}

// doF1 executes F1's direct side effects and returns the deferred
// task-switch/SWMODE requests a few F1 codes raise. BLOCK is handled
// by the caller after F2 has run and before writeback.
func (c *Chip) doF1(f microword.Fields, bus uint16, alu uint32) (f1Result, error) {
	var res f1Result

	switch f.F1 {
	case microword.F1None, microword.F1Constant, microword.F1LLSH1, microword.F1LRSH1, microword.F1LLCY8:
		// No direct effect; LLSH1/LRSH1/LLCY8 are handled by the shifter.
	case microword.F1LoadMAR:
		if err := c.execLoadMAR(f, alu); err != nil {
			return res, err
		}
	case microword.F1Task:
		if c.taskSwitch {
			return res, nil
		}
		pending := c.getPending()
		for t := int(microword.NumTasks) - 1; t >= 0; t-- {
			if pending&(1<<uint(t)) != 0 {
				res.nextTask = microword.Task(t)
				res.haveNext = true
				break
			}
		}
	case microword.F1Block:
		if c.ctask == microword.TaskEmulator {
			return res, InvalidState{"emulator task cannot block"}
		}
		// Deferred to the caller's doBlock, after F2 and before writeback.
	default:
		if err := c.doTaskF1(f, bus, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// execLoadMAR implements F1_LOAD_MAR: stretches the global cycle
// until any window left open by a prior LOAD_MAR has aged past the
// system's minimum, then opens a fresh window at MAR=alu.
func (c *Chip) execLoadMAR(f microword.Fields, alu uint32) error {
	minCycles := c.sys.MemoryWindowCycles()
	for c.mem.WindowOpen() && c.mem.WindowCycle() < minCycles {
		c.advanceCycle()
	}
	extended := c.sys != microword.AltoI && f.F2 == microword.F2StoreMD
	if err := c.mem.BeginAccess(uint8(c.ctask), uint16(alu), extended); err != nil {
		return err
	}
	if c.ctask == microword.TaskMemoryRefresh && c.sys == microword.AltoI && f.RSel == microword.RMask {
		c.display.ClearMemoryRefreshWakeup()
	}
	return nil
}

// doTaskF1 dispatches the RAM-task-generic and per-task F1 codes
// (10..17 octal): microcode RAM control, STARTF/RMR/ESRB, and the
// disk/Ethernet device functions.
func (c *Chip) doTaskF1(f microword.Fields, bus uint16, res *f1Result) error {
	if f.RAMTask {
		switch f.F1 {
		case microword.F1RAMSWMODE:
			if c.ctask != microword.TaskEmulator {
				return InvalidState{"SWMODE valid only on the emulator task"}
			}
			res.swmode = true
			return nil
		case microword.F1RAMWRTRAM:
			c.wrtram = true
			return nil
		case microword.F1RAMRDRAM:
			c.rdram = true
			return nil
		case microword.F1RAMLoadSRB:
			if c.ctask == microword.TaskEmulator {
				return nil
			}
			bank := uint8(bus>>1) & 0x7
			if c.sys != microword.AltoII3KRAM {
				bank = 0
			}
			c.sregBank[c.ctask] = bank
			return nil
		}
	}

	switch c.ctask {
	case microword.TaskEmulator:
		switch f.F1 {
		case microword.F1EmuLoadRMR:
			c.rmr = bus
		case microword.F1EmuLoadESRB:
			bank := uint8(bus>>1) & 0x7
			if c.sys != microword.AltoII3KRAM {
				bank = 0
			}
			c.sregBank[c.ctask] = bank
		case microword.F1EmuRSNF:
			// Handled by readBus.
		case microword.F1EmuSTARTF:
			return c.execSTARTF(bus)
		}
	case microword.TaskDiskSector, microword.TaskDiskWord:
		switch f.F1 {
		case microword.F1DskStrobe:
			c.disk.StrobeSeek(c.cycle)
		case microword.F1DskLoadKSTAT:
			c.disk.LoadKSTAT(bus)
		case microword.F1DskIncRecno:
			return c.disk.IncRecno()
		case microword.F1DskClrstat:
			c.disk.ClrStat()
		case microword.F1DskLoadKCOMM:
			c.disk.LoadKCOMM(bus)
		case microword.F1DskLoadKADR:
			c.disk.LoadKADR(bus)
		case microword.F1DskLoadKDATA:
			c.disk.LoadKDATA(bus)
		}
	case microword.TaskEthernet:
		switch f.F1 {
		case microword.F1EthEILFCT, microword.F1EthEPFCT:
			// Handled by readBus.
		case microword.F1EthEWFCT:
			c.ethernet.EWFCT()
		}
	}
	return nil
}

// execSTARTF implements F1_EMU_STARTF: bit 15 requests a soft reset;
// otherwise bus selects an Ethernet start code (the remaining codes
// are reserved for devices this engine does not model).
func (c *Chip) execSTARTF(bus uint16) error {
	if bus&0x8000 != 0 {
		c.softReset = true
		return nil
	}
	switch bus {
	case 0x00:
	case 0x01, 0x02, 0x03:
		c.ethernet.STARTF(bus)
	case 0x04, 0x10, 0x20:
		// Reserved device start codes (display/parity self test):
		// no peripheral on this engine implements them.
	default:
		return InvalidState{"invalid STARTF value"}
	}
	return nil
}

// doF2 executes F2's direct effects, returning the NEXT field's extra
// bits (next_extra) that fold into the following microinstruction
// address.
func (c *Chip) doF2(f microword.Fields, bus uint16, alu uint32, aluC0 bool, shOut uint16, novaCarry bool) (uint16, error) {
	var extra uint16
	switch f.F2 {
	case microword.F2None, microword.F2Constant:
	case microword.F2BusEq0:
		if bus == 0 {
			extra = 1
		}
	case microword.F2ShLt0:
		if shOut&0x8000 != 0 {
			extra = 1
		}
	case microword.F2ShEq0:
		if shOut == 0 {
			extra = 1
		}
	case microword.F2Bus:
		extra = bus & mpcAddrMask
	case microword.F2ALUCY:
		if aluC0 {
			extra = 1
		}
	case microword.F2StoreMD:
		if f.F1 == microword.F1LoadMAR && c.sys != microword.AltoI {
			return 0, nil
		}
		if err := c.execStoreMD(bus); err != nil {
			return 0, err
		}
	default:
		v, err := c.doTaskF2(f, bus, shOut, novaCarry)
		if err != nil {
			return 0, err
		}
		extra = v
	}
	return extra, nil
}

// execStoreMD implements F2_STORE_MD: stretches the cycle to the
// system's MD-ready point, then performs the first or second half of
// an MD<- store depending on which cycle within the window this is.
func (c *Chip) execStoreMD(bus uint16) error {
	ready := 5
	if c.sys != microword.AltoI {
		ready = 3
	}
	for c.mem.WindowCycle() < ready {
		c.advanceCycle()
	}
	cur := c.mem.WindowCycle()
	switch {
	case cur == ready:
	case cur == ready+1:
		if !c.mem.WindowHasStore() {
			return InvalidState{"first write on cycle 6"}
		}
	default:
		return InvalidState{"unexpected write memory cycle"}
	}
	c.mem.WriteMD(uint8(c.ctask), bus)
	return nil
}

// doTaskF2 dispatches the per-task F2 codes (10..17 octal).
func (c *Chip) doTaskF2(f microword.Fields, bus uint16, shOut uint16, novaCarry bool) (uint16, error) {
	switch c.ctask {
	case microword.TaskEmulator:
		switch f.F2 {
		case microword.F2EmuMagic, microword.F2EmuACDest:
			return 0, nil
		case microword.F2EmuBusOdd:
			return bus & 1, nil
		case microword.F2EmuLoadDNS:
			c.execLoadDNS(shOut, novaCarry)
			return 0, nil
		case microword.F2EmuLoadIR:
			c.ir = bus
			c.skip = false
			extra := uint16(bus>>8) & 0x7
			if bus&0x8000 != 0 {
				extra |= 0x8
			}
			return extra, nil
		case microword.F2EmuIDisp:
			if c.ir&0x8000 != 0 {
				return 3 - ((c.ir >> 6) & 0x3), nil
			}
			return c.acsROM[((c.ir>>8)&0x7F)+0x80], nil
		case microword.F2EmuACSource:
			if c.ir&0x8000 != 0 {
				return 3 - ((c.ir >> 6) & 0x3), nil
			}
			return c.acsROM[(c.ir>>8)&0x7F], nil
		}
	case microword.TaskDiskSector, microword.TaskDiskWord:
		switch f.F2 {
		case microword.F2DskInit:
			return c.disk.F2Init(), nil
		case microword.F2DskRWC:
			return c.disk.F2RWC(), nil
		case microword.F2DskRecno:
			return c.disk.F2Recno(), nil
		case microword.F2DskXfrdat:
			return c.disk.F2XFRDAT(), nil
		case microword.F2DskSwrnrdy:
			return c.disk.F2SWRNRDY(), nil
		case microword.F2DskNfer:
			return c.disk.F2NFER(), nil
		case microword.F2DskStrobon:
			return c.disk.F2STROBON(), nil
		}
	case microword.TaskEthernet:
		switch f.F2 {
		case microword.F2EthEODFCT:
			c.ethernet.EODFCT(c.cycle, bus)
		case microword.F2EthEOSFCT:
			c.ethernet.EOSFCT()
		case microword.F2EthERBFCT:
			return c.ethernet.ERBFCT(), nil
		case microword.F2EthEEFCT:
			c.ethernet.EEFCT(c.cycle)
		case microword.F2EthEBFCT:
			return c.ethernet.EBFCT(), nil
		case microword.F2EthECBFCT:
			return c.ethernet.ECBFCT(), nil
		case microword.F2EthEISFCT:
			c.ethernet.EISFCT(c.cycle)
		}
	case microword.TaskDisplayWord:
		if f.F2 == microword.F2DWLoadDDR {
			c.display.LoadDDR(bus)
		}
	case microword.TaskCursor:
		switch f.F2 {
		case microword.F2CurLoadXPREG:
			c.display.LoadXPREG(bus)
		case microword.F2CurLoadCSR:
			c.display.LoadCSR(bus)
		}
	case microword.TaskDisplayHorizontal:
		switch f.F2 {
		case microword.F2DHEvenField:
			return c.display.EvenField(), nil
		case microword.F2DHSetmode:
			return c.display.SetMode(bus), nil
		}
	}
	return 0, nil
}

// execLoadDNS implements F2_EMU_LOAD_DNS: derives the Nova skip
// decision from IR's low 3 bits against the shifter's output and
// carry, then (unless IR selects the "don't load carry" variant)
// latches the resulting carry.
func (c *Chip) execLoadDNS(shOut uint16, novaCarry bool) {
	switch c.ir & 0x7 {
	case 0:
		c.skip = false
	case 1: // SKP
		c.skip = true
	case 2: // SZC
		c.skip = !novaCarry
	case 3: // SNC
		c.skip = novaCarry
	case 4: // SZR
		c.skip = shOut == 0
	case 5: // SNR
		c.skip = shOut != 0
	case 6: // SEZ
		c.skip = shOut == 0 || !novaCarry
	case 7: // SBN
		c.skip = shOut != 0 && novaCarry
	}
	if c.ir&0x0008 == 0 {
		c.carry = novaCarry
	}
}

// doBlock dispatches F1_BLOCK to whichever peripheral owns task: the
// disk's BlockTask is called for every task and ignores tasks it does
// not own; the display and Ethernet blocks are called only for their
// own tasks.
func (c *Chip) doBlock(task microword.Task) {
	c.disk.BlockTask(task)
	switch task {
	case microword.TaskDisplayWord:
		c.display.BlockWord()
	case microword.TaskDisplayHorizontal:
		c.display.BlockHorizontal()
	case microword.TaskCursor:
		c.display.BlockCursor()
	}
	if task == microword.TaskEthernet {
		c.ethernet.BlockTask()
	}
}

// wbRegisters performs this cycle's register writeback: R/S file
// updates from the shifter, and L/M/T/CRAM_ADDR updates from the ALU
// and bus.
func (c *Chip) wbRegisters(f microword.Fields, modRSel uint8, sh shiftResult, alu uint32, aluCarry bool, bus uint16) {
	if sh.loadR {
		c.r[modRSel&microword.RMask] = sh.output
	}
	if !f.UseConstant && f.RAMTask && f.BS == microword.BSEmuLoadSLocation {
		bank := c.sregBank[c.ctask]
		c.s[int(bank)*numR+int(f.RSel)] = c.m
	}
	if f.LoadL {
		c.l = uint16(alu)
		if c.ctask == microword.TaskEmulator {
			c.m = uint16(alu)
		}
		c.aluC0 = aluCarry
	}
	if f.LoadT {
		if f.LoadTFromALU {
			c.t = uint16(alu)
		} else {
			c.t = bus
		}
		c.cramAddr = uint16(alu)
	}
}
