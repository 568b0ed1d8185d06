package microword

import "testing"

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		word Word
		sys  System
		task Task
		want Fields
	}{
		{
			name: "all zero word on the emulator task carries only context and RAMTask",
			word: 0,
			sys:  AltoII1KROM,
			task: TaskEmulator,
			want: Fields{SysType: AltoII1KROM, TaskID: TaskEmulator, RAMTask: true, LoadTFromALU: true},
		},
		{
			name: "rsel aluf bs f1 f2 t l next all distinct",
			// RSEL=017 ALUF=05 BS=06 F1=013 F2=012 T=1 L=1 NEXT=0123
			word: Word(017)<<27 | Word(05)<<23 | Word(06)<<20 | Word(013)<<16 | Word(012)<<12 | 1<<11 | 1<<10 | 0123,
			sys:  AltoII1KROM,
			task: TaskEmulator,
			want: Fields{
				SysType:      AltoII1KROM,
				TaskID:       TaskEmulator,
				RSel:         017,
				ALUF:         ALUBusPlus1,
				BS:           BSReadMouse,
				F1:           F1EthEILFCT,
				F2:           F2EmuLoadDNS,
				LoadT:        true,
				LoadL:        true,
				Next:         0123,
				BSUseCROM:    true,
				RAMTask:      true,
				LoadTFromALU: true,
			},
		},
		{
			name: "bs below 4 does not use constant rom",
			word: Word(BSTaskSpecific1) << 20,
			sys:  AltoII1KROM,
			task: TaskEmulator,
			want: Fields{SysType: AltoII1KROM, TaskID: TaskEmulator, BS: BSTaskSpecific1, RAMTask: true, LoadTFromALU: true},
		},
		{
			name: "bs of 4 or more uses constant rom",
			word: Word(BSReadMD) << 20,
			sys:  AltoII1KROM,
			task: TaskEmulator,
			want: Fields{SysType: AltoII1KROM, TaskID: TaskEmulator, BS: BSReadMD, BSUseCROM: true, RAMTask: true, LoadTFromALU: true},
		},
		{
			name: "f1 constant sets the real use-constant flag regardless of bs",
			word: Word(F1Constant) << 16,
			sys:  AltoII1KROM,
			task: TaskEmulator,
			want: Fields{SysType: AltoII1KROM, TaskID: TaskEmulator, F1: F1Constant, UseConstant: true, RAMTask: true, LoadTFromALU: true},
		},
		{
			name: "disk sector task is not a ram task",
			word: 0,
			sys:  AltoII1KROM,
			task: TaskDiskSector,
			want: Fields{SysType: AltoII1KROM, TaskID: TaskDiskSector, RAMTask: false, LoadTFromALU: true},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := Decode(test.word, test.sys, test.task)
			if got != test.want {
				t.Errorf("Decode(%#x, %d, %d) = %+v, want %+v", uint32(test.word), test.sys, test.task, got, test.want)
			}
		})
	}
}

func TestLoadTFromALU(t *testing.T) {
	// loadTFromALUMask = 0x1C65, bits 0,2,5,6,10,11,12 per mask.
	tests := []struct {
		aluf ALUF
		want bool
	}{
		{ALUBus, true},               // bit 0
		{ALUT, false},                // bit 1
		{ALUBusOrT, true},            // bit 2
		{ALUBusAndT, false},          // bit 3
		{ALUBusXorT, false},          // bit 4
		{ALUBusPlus1, true},          // bit 5
		{ALUBusMinus1, true},         // bit 6
		{ALUBusPlusT, false},         // bit 7
	}
	for _, test := range tests {
		if got := test.aluf.LoadTFromALU(); got != test.want {
			t.Errorf("ALUF(%#o).LoadTFromALU() = %t, want %t", uint8(test.aluf), got, test.want)
		}
	}
}

func TestUseConstantROM(t *testing.T) {
	for bs := BS(0); bs < 4; bs++ {
		if bs.UseConstantROM() {
			t.Errorf("BS(%d).UseConstantROM() = true, want false", bs)
		}
	}
	for bs := BS(4); bs <= 07; bs++ {
		if !bs.UseConstantROM() {
			t.Errorf("BS(%d).UseConstantROM() = false, want true", bs)
		}
	}
}

func TestConstAddrRoundTrip(t *testing.T) {
	for rsel := uint8(0); rsel < 32; rsel++ {
		for bs := BS(0); bs <= 07; bs++ {
			addr := ConstAddr(rsel, bs)
			if got := ConstAddrRSel(addr); got != rsel {
				t.Errorf("ConstAddrRSel(ConstAddr(%d,%d)) = %d, want %d", rsel, bs, got, rsel)
			}
			if got := ConstAddrBS(addr); got != bs {
				t.Errorf("ConstAddrBS(ConstAddr(%d,%d)) = %d, want %d", rsel, bs, got, bs)
			}
		}
	}
}
