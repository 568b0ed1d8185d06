package cpu

import "github.com/alto-sim/alto/microword"

// modifiedRSel applies the emulator task's IR-derived RSEL override:
// ACSOURCE and ACDEST/LOAD_DNS each replace the low 2 bits of RSEL
// with bits extracted (and inverted) from the instruction register,
// selecting one of the Nova's four accumulators.
func (c *Chip) modifiedRSel(f microword.Fields) uint8 {
	rsel := f.RSel
	if c.ctask != microword.TaskEmulator {
		return rsel
	}
	switch f.F2 {
	case microword.F2EmuACSource:
		rsel = (rsel &^ 0x3) | uint8((^(c.ir>>13))&0x3)
	case microword.F2EmuACDest, microword.F2EmuLoadDNS:
		rsel = (rsel &^ 0x3) | uint8((^(c.ir>>11))&0x3)
	}
	return rsel
}

// readBus computes this cycle's bus value: the RDRAM baseline, ANDed
// with the constant ROM when either CROM path applies, ANDed with
// task-specific extras (RSNF/EILFCT/EPFCT), and finally ANDed with
// whatever BS selects.
func (c *Chip) readBus(f microword.Fields, modRSel uint8, constAddr uint8) (uint16, error) {
	out, err := c.doRDRAM()
	if err != nil {
		return 0, err
	}

	if f.UseConstant {
		out &= c.consts[constAddr]
		return out, nil
	}
	if f.BSUseCROM {
		out &= c.consts[constAddr]
	}

	if c.ctask == microword.TaskEmulator && f.F1 == microword.F1EmuRSNF {
		out &= c.ethernet.RSNF()
	} else if c.ctask == microword.TaskEthernet {
		switch f.F1 {
		case microword.F1EthEILFCT:
			out &= c.ethernet.EILFCT()
		case microword.F1EthEPFCT:
			out &= c.ethernet.EPFCT()
		}
	}

	switch f.BS {
	case microword.BSReadR:
		out &= c.readR(modRSel)
	case microword.BSLoadR:
		out &= 0
	case microword.BSNone:
	case microword.BSReadMD:
		for c.mem.StallForRead() {
			c.advanceCycle()
		}
		out &= c.mem.ReadMD()
	case microword.BSReadMouse:
		out &= c.keyboard.PollMouse()
	case microword.BSReadDisp:
		t := c.ir & 0xFF
		if c.ir&0x300 != 0 && c.ir&0x80 != 0 {
			t |= 0xFF00
		}
		out &= t
	default:
		v, err := c.readTaskSpecificBus(f, modRSel)
		if err != nil {
			return 0, err
		}
		out &= v
	}
	return out, nil
}

// readTaskSpecificBus resolves BS codes 3 and 4 (BSTaskSpecific1/2):
// the generic R-AM-task S-register read for most tasks, or the
// disk/ethernet overrides for the tasks that repurpose those codes.
func (c *Chip) readTaskSpecificBus(f microword.Fields, modRSel uint8) (uint16, error) {
	if f.RAMTask {
		bank := c.sregBank[c.ctask]
		switch f.BS {
		case microword.BSEmuReadSLocation:
			if f.RSel == microword.RZero {
				return c.m, nil
			}
			return c.s[int(bank)*numR+int(f.RSel)], nil
		case microword.BSEmuLoadSLocation:
			return 0xFFFF, nil
		}
		return 0, InvalidState{"invalid bus source"}
	}
	if c.ctask == microword.TaskEthernet && f.BS == microword.BSEthEIDFCT {
		return c.ethernet.EIDFCT(), nil
	}
	if c.ctask == microword.TaskDiskSector || c.ctask == microword.TaskDiskWord {
		switch f.BS {
		case microword.BSDskReadKSTAT:
			return c.disk.ReadKSTAT(), nil
		case microword.BSDskReadKDATA:
			return c.disk.ReadKDATA(), nil
		}
	}
	return 0, InvalidState{"invalid bus source"}
}

// readR reads the R register file; R0 is hardwired to zero.
func (c *Chip) readR(rsel uint8) uint16 {
	if rsel == microword.RZero {
		return 0
	}
	return c.r[rsel&microword.RMask]
}

// computeALU evaluates the 16-bit ALU function selected by ALUF
// against bus and t, returning the 16-bit result and the carry out of
// bit 15 (as a 17th bit of the underlying arithmetic).
func computeALU(aluf microword.ALUF, bus, t uint16, skip bool) (result uint32, carry bool, err error) {
	a := uint32(bus)
	b := uint32(t)
	var res uint32
	switch aluf {
	case microword.ALUBus:
		res = a
	case microword.ALUT:
		res = b
	case microword.ALUBusOrT:
		res = a | b
	case microword.ALUBusAndT, microword.ALUBusAndTWB:
		res = a & b
	case microword.ALUBusXorT:
		res = a ^ b
	case microword.ALUBusPlus1:
		res = a + 1
	case microword.ALUBusMinus1:
		res = a + 0xFFFF
	case microword.ALUBusPlusT:
		res = a + b
	case microword.ALUBusMinusT:
		res = a + ((^b)&0xFFFF) + 1
	case microword.ALUBusMinusTMinus1:
		res = a + ((^b) & 0xFFFF)
	case microword.ALUBusPlusTPlus1:
		res = a + b + 1
	case microword.ALUBusPlusSkip:
		if skip {
			res = a + 1
		} else {
			res = a
		}
	case microword.ALUBusAndNotT:
		res = a & (^b) & 0xFFFF
	default:
		return 0, false, InvalidState{"invalid ALUF"}
	}
	carry = res&0xFFFF0000 != 0
	return res & 0xFFFF, carry, nil
}
