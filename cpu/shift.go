package cpu

import "github.com/alto-sim/alto/microword"

// shiftResult bundles the Nova-style shifter's output value and its
// two derived flags (whether R is loaded from the output, and the Nova
// carry the DNS path latches) back to the caller.
type shiftResult struct {
	output    uint16
	loadR     bool
	novaCarry bool
}

// doShift evaluates the shifter for this cycle: the emulator task's
// F2_EMU_LOAD_DNS/F2_EMU_MAGIC selects a Nova DNS-style skip-and-carry
// dispatch layered on top of the plain L<<1/L>>1/L<<>>8 shift network
// every task shares.
func (c *Chip) doShift(f microword.Fields, l uint16, loadR bool) shiftResult {
	dns := c.ctask == microword.TaskEmulator && f.F2 == microword.F2EmuLoadDNS
	hasMagic := c.ctask == microword.TaskEmulator && f.F2 == microword.F2EmuMagic

	carry := c.carry
	novaCarry := carry
	res := shiftResult{loadR: loadR}

	if dns {
		res.loadR = c.ir&0x0008 == 0
		switch (c.ir >> 4) & 0x3 {
		case 0:
			carry = c.carry
		case 1:
			carry = false
		case 2:
			carry = true
		case 3:
			carry = !c.carry
		}
		switch (c.ir >> 8) & 0x7 {
		case 0, 2, 7:
			// COM/MOV/AND: carry unaffected by the ALU's own carry out.
		default:
			if c.aluC0 {
				carry = !carry
			}
		}
		novaCarry = carry
	}

	switch f.F1 {
	case microword.F1LLSH1:
		out := l << 1
		if hasMagic {
			if c.t&0x8000 != 0 {
				out |= 1
			}
		} else if dns {
			if carry {
				out |= 1
			} else {
				out &^= 1
			}
			novaCarry = l&0x8000 != 0
		}
		res.output = out
	case microword.F1LRSH1:
		out := l >> 1
		if hasMagic {
			if c.t&0x0001 != 0 {
				out |= 0x8000
			}
		} else if dns {
			if carry {
				out |= 0x8000
			} else {
				out &^= 0x8000
			}
			novaCarry = l&0x1 != 0
		}
		res.output = out
	case microword.F1LLCY8:
		res.output = (l << 8) | (l >> 8)
	default:
		res.output = l
	}

	res.novaCarry = novaCarry
	return res
}
