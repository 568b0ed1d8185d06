// Package microword decodes the Alto's 32-bit microinstruction word
// into its constituent fields, and names the task, ALU, bus-source,
// F1 and F2 enumerations those fields select between.
//
// Field layout and enumeration values are fixed by the hardware and
// are not configurable; this package is a pure decoder with no state
// of its own.
package microword

// Word is a single raw 32-bit microinstruction as stored in the
// microcode RAM/ROM.
type Word uint32

// System identifies an Alto hardware variant: which microcode banks
// are ROM vs. RAM, and how many cycles a memory access window takes
// to close.
type System int

const (
	AltoI System = iota
	AltoII1KROM
	AltoII2KROM
	AltoII3KRAM
)

// MemoryWindowCycles returns the LOAD_MAR access window duration for
// the system: 7 cycles on Alto I, 5 on every Alto II variant.
func (s System) MemoryWindowCycles() int {
	if s == AltoI {
		return 7
	}
	return 5
}

// RAMBanks returns how many of the system's 4 microcode banks are
// writable RAM (the rest are ROM).
func (s System) RAMBanks() int {
	switch s {
	case AltoI, AltoII1KROM, AltoII2KROM:
		return 1
	case AltoII3KRAM:
		return 3
	default:
		return 1
	}
}

// Task identifies one of the Alto's 16 microcode tasks. Higher values
// are higher priority.
type Task uint8

const (
	TaskEmulator         Task = 0
	TaskDiskSector       Task = 04
	TaskEthernet         Task = 07
	TaskMemoryRefresh    Task = 010
	TaskDisplayWord      Task = 011
	TaskCursor           Task = 012
	TaskDisplayHorizontal Task = 013
	TaskDisplayVertical  Task = 014
	TaskParity           Task = 015
	TaskDiskWord         Task = 016
	NumTasks             Task = 020
)

// ALUF selects the function the ALU computes from BUS and T.
type ALUF uint8

const (
	ALUBus             ALUF = 0
	ALUT               ALUF = 01
	ALUBusOrT          ALUF = 02
	ALUBusAndT         ALUF = 03
	ALUBusXorT         ALUF = 04
	ALUBusPlus1        ALUF = 05
	ALUBusMinus1       ALUF = 06
	ALUBusPlusT        ALUF = 07
	ALUBusMinusT       ALUF = 010
	ALUBusMinusTMinus1 ALUF = 011
	ALUBusPlusTPlus1   ALUF = 012
	ALUBusPlusSkip     ALUF = 013
	ALUBusAndTWB       ALUF = 014
	ALUBusAndNotT      ALUF = 015
	ALUUndefined1      ALUF = 016
	ALUUndefined2      ALUF = 017
)

// loadTFromALUMask has bit i set when ALUF value i loads T directly
// from the ALU's result rather than from BUS.
const loadTFromALUMask = 0x1C65

// LoadTFromALU reports whether this ALU function, when T is loaded
// (LoadT), loads T from the ALU output instead of from BUS.
func (a ALUF) LoadTFromALU() bool {
	return loadTFromALUMask&(1<<uint(a)) != 0
}

// BS selects the source placed on the processor bus.
type BS uint8

const (
	BSReadR         BS = 0
	BSLoadR         BS = 01
	BSNone          BS = 02
	BSTaskSpecific1 BS = 03
	BSTaskSpecific2 BS = 04
	BSReadMD        BS = 05
	BSReadMouse     BS = 06
	BSReadDisp      BS = 07
)

// Emulator task aliases for the task-specific BS codes.
const (
	BSEmuReadSLocation BS = BSTaskSpecific1
	BSEmuLoadSLocation BS = BSTaskSpecific2
)

// Disk sector/word task aliases for the task-specific BS codes.
const (
	BSDskReadKSTAT BS = BSTaskSpecific1
	BSDskReadKDATA BS = BSTaskSpecific2
)

// Ethernet task alias for the task-specific BS code.
const BSEthEIDFCT BS = BSTaskSpecific2

// UseConstantROM reports whether this bus source also addresses the
// constant ROM, whose word is ANDed onto the bus in parallel with the
// source BS selects.
func (b BS) UseConstantROM() bool {
	return b >= 4
}

// F1 selects the first special function of the microinstruction.
type F1 uint8

const (
	F1None     F1 = 0
	F1LoadMAR  F1 = 01
	F1Task     F1 = 02
	F1Block    F1 = 03
	F1LLSH1    F1 = 04
	F1LRSH1    F1 = 05
	F1LLCY8    F1 = 06
	F1Constant F1 = 07
)

// RAM-task-generic F1 functions: WRTRAM/RDRAM are accepted on every RAM
// task and SWMODE only on the emulator task; LOAD_SRB is wired on every
// other RAM task (the
// emulator task instead uses F1EmuLoadESRB at the same numeric slot
// one code later).
const (
	F1RAMSWMODE F1 = 010
	F1RAMWRTRAM F1 = 011
	F1RAMRDRAM  F1 = 012
	F1RAMLoadSRB F1 = 014
)

// Emulator-task F1 functions.
const (
	F1EmuSWMODE   F1 = 010
	F1EmuWRTRAM   F1 = 011
	F1EmuRDRAM    F1 = 012
	F1EmuLoadRMR  F1 = 013
	F1EmuLoadESRB F1 = 015
	F1EmuRSNF     F1 = 016
	F1EmuSTARTF   F1 = 017
)

// Disk sector/word task F1 functions.
const (
	F1DskStrobe     F1 = 011
	F1DskLoadKSTAT  F1 = 012
	F1DskIncRecno   F1 = 013
	F1DskClrstat    F1 = 014
	F1DskLoadKCOMM  F1 = 015
	F1DskLoadKADR   F1 = 016
	F1DskLoadKDATA  F1 = 017
)

// Ethernet task F1 functions.
const (
	F1EthEILFCT F1 = 013
	F1EthEPFCT  F1 = 014
	F1EthEWFCT  F1 = 015
)

// F2 selects the second special function of the microinstruction.
type F2 uint8

const (
	F2None     F2 = 0
	F2BusEq0   F2 = 01
	F2ShLt0    F2 = 02
	F2ShEq0    F2 = 03
	F2Bus      F2 = 04
	F2ALUCY    F2 = 05
	F2StoreMD  F2 = 06
	F2Constant F2 = 07
)

// Emulator-task F2 functions.
const (
	F2EmuBusOdd   F2 = 010
	F2EmuMagic    F2 = 011
	F2EmuLoadDNS  F2 = 012
	F2EmuACDest   F2 = 013
	F2EmuLoadIR   F2 = 014
	F2EmuIDisp    F2 = 015
	F2EmuACSource F2 = 016
)

// Disk sector/word task F2 functions.
const (
	F2DskInit    F2 = 010
	F2DskRWC     F2 = 011
	F2DskRecno   F2 = 012
	F2DskXfrdat  F2 = 013
	F2DskSwrnrdy F2 = 014
	F2DskNfer    F2 = 015
	F2DskStrobon F2 = 016
)

// Ethernet task F2 functions.
const (
	F2EthEODFCT F2 = 010
	F2EthEOSFCT F2 = 011
	F2EthERBFCT F2 = 012
	F2EthEEFCT  F2 = 013
	F2EthEBFCT  F2 = 014
	F2EthECBFCT F2 = 015
	F2EthEISFCT F2 = 016
)

// Display word task F2 function.
const F2DWLoadDDR F2 = 010

// Cursor task F2 functions.
const (
	F2CurLoadXPREG F2 = 010
	F2CurLoadCSR   F2 = 011
)

// Display horizontal task F2 functions.
const (
	F2DHEvenField F2 = 010
	F2DHSetmode   F2 = 011
)

// Display vertical task F2 function.
const F2DVEvenField F2 = 010

// RZero and RMask describe the R register file addressing space: R0
// always reads as zero, and only the low 5 bits of RSel are wired.
const (
	RZero uint8 = 0
	RMask uint8 = 037
)

// IsRAMTask reports whether BS codes 3 and 4 select the generic
// S-register read/load interpretation for this task, rather than a
// task-specific override (disk's KSTAT/KDATA, ethernet's EIDFCT).
func IsRAMTask(t Task) bool {
	switch t {
	case TaskDiskSector, TaskDiskWord, TaskEthernet:
		return false
	default:
		return true
	}
}

// Fields holds every field extracted from a decoded Word, plus the
// context it was decoded under (SysType, TaskID) and the derived
// booleans every task needs without re-deriving them from ALUF/BS/task
// each cycle: UseConstant (F1 or F2 directly selects CONSTANT, in
// which case the constant ROM supplies the bus's entire value),
// BSUseCROM (BS itself addresses the constant ROM, BS >= 4 — distinct
// from UseConstant, since RSEL is wired to the constant ROM in
// parallel with whatever BS selects), and RAMTask (whether BS codes 3
// and 4 select the generic R-AM-task S-register interpretation for
// this task rather than a task-specific override).
type Fields struct {
	SysType      System
	TaskID       Task
	RSel         uint8
	ALUF         ALUF
	BS           BS
	F1           F1
	F2           F2
	LoadT        bool
	LoadL        bool
	Next         uint16
	UseConstant  bool
	BSUseCROM    bool
	RAMTask      bool
	LoadTFromALU bool
}

// Decode splits a raw microinstruction word into its Fields, tagging
// the result with the system and task it was fetched under. The bit
// positions mirror the hardware's fixed field layout:
//
//	31..27  RSEL   26..23  ALUF   22..20  BS
//	19..16  F1     15..12  F2     11  T   10  L
//	9..0    NEXT
func Decode(w Word, sys System, task Task) Fields {
	rsel := uint8((w >> 27) & Word(RMask))
	aluf := ALUF((w >> 23) & 0x0F)
	bs := BS((w >> 20) & 0x07)
	f1 := F1((w >> 16) & 0x0F)
	f2 := F2((w >> 12) & 0x0F)
	loadT := (w>>11)&0x01 != 0
	loadL := (w>>10)&0x01 != 0
	next := uint16(w & 0x3FF)

	return Fields{
		SysType:      sys,
		TaskID:       task,
		RSel:         rsel,
		ALUF:         aluf,
		BS:           bs,
		F1:           f1,
		F2:           f2,
		LoadT:        loadT,
		LoadL:        loadL,
		Next:         next,
		UseConstant:  f1 == F1Constant || f2 == F2Constant,
		BSUseCROM:    bs.UseConstantROM(),
		RAMTask:      IsRAMTask(task),
		LoadTFromALU: aluf.LoadTFromALU(),
	}
}

// ConstAddr packs an RSel/BS pair into the 8-bit constant ROM address
// (RSel forms the high 5 bits, BS the low 3).
func ConstAddr(rsel uint8, bs BS) uint8 {
	return ((rsel & 0x1F) << 3) | (uint8(bs) & 0x7)
}

// ConstAddrRSel extracts the RSel portion of a constant ROM address.
func ConstAddrRSel(addr uint8) uint8 {
	return addr >> 3
}

// ConstAddrBS extracts the BS portion of a constant ROM address.
func ConstAddrBS(addr uint8) BS {
	return BS(addr & 0x7)
}
