package memory

import (
	"testing"

	"github.com/alto-sim/alto/microword"
)

func TestXMBankRoundTrip(t *testing.T) {
	m := New(microword.AltoII2KROM)
	m.SetXMBank(3, 0xB)
	if got := m.XMBank(3); got != 0xB {
		t.Errorf("XMBank(3) = %#x, want 0xB", got)
	}
	if got := m.XMBank(4); got != 0 {
		t.Errorf("XMBank(4) = %#x, want 0 (untouched task)", got)
	}
}

func TestBankIndexSelectsNormalAndExtended(t *testing.T) {
	m := New(microword.AltoII2KROM)
	m.SetXMBank(1, 0xB) // 1011: normal bits[3:2]=10=2, extended bits[1:0]=11=3
	if got := m.bankIndex(1, false); got != 2 {
		t.Errorf("bankIndex(normal) = %d, want 2", got)
	}
	if got := m.bankIndex(1, true); got != 3 {
		t.Errorf("bankIndex(extended) = %d, want 3", got)
	}
}

func TestReadWriteDirectPerBank(t *testing.T) {
	m := New(microword.AltoI)
	m.WriteDirect(0, 0x100, false, 0xBEEF)
	if got := m.ReadDirect(0, 0x100, false); got != 0xBEEF {
		t.Errorf("ReadDirect = %#x, want 0xBEEF", got)
	}
	// A different bank (selected via the extended register) must not alias.
	m.SetXMBank(0, 0x1) // extended bank 1
	m.WriteDirect(0, 0x100, true, 0xCAFE)
	if got := m.ReadDirect(0, 0x100, false); got != 0xBEEF {
		t.Errorf("normal-bank value clobbered by extended write: got %#x", got)
	}
	if got := m.ReadDirect(0, 0x100, true); got != 0xCAFE {
		t.Errorf("ReadDirect(extended) = %#x, want 0xCAFE", got)
	}
}

func TestDontCareRange(t *testing.T) {
	m := New(microword.AltoII2KROM)
	if v, ok := m.ReadIO(0, dontCareLow); !ok || v != dontCareValue {
		t.Errorf("ReadIO(dontCareLow) = %#x,%t, want %#x,true", v, ok, dontCareValue)
	}
	if v, ok := m.ReadIO(0, dontCareHigh); !ok || v != dontCareValue {
		t.Errorf("ReadIO(dontCareHigh) = %#x,%t, want %#x,true", v, ok, dontCareValue)
	}
}

func TestBeginAccessRejectsReentry(t *testing.T) {
	m := New(microword.AltoII2KROM)
	if err := m.BeginAccess(0, 0x10, false); err != nil {
		t.Fatalf("first BeginAccess: %v", err)
	}
	if err := m.BeginAccess(0, 0x20, false); err == nil {
		t.Error("expected error opening a second window while one is open")
	}
}

func TestWindowClosesAfterDuration(t *testing.T) {
	tests := []struct {
		name string
		sys  microword.System
		want int
	}{
		{"alto I closes after 7 cycles", microword.AltoI, 7},
		{"alto II closes after 5 cycles", microword.AltoII2KROM, 5},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			m := New(test.sys)
			if err := m.BeginAccess(0, 0x10, false); err != nil {
				t.Fatal(err)
			}
			for i := 1; i < test.want; i++ {
				if !m.WindowOpen() {
					t.Fatalf("window closed early at cycle %d", i)
				}
				m.Tick()
			}
			if m.WindowOpen() {
				t.Errorf("window still open after %d ticks, want closed", test.want)
			}
		})
	}
}

func TestReadMDBeforeReadyStalls(t *testing.T) {
	m := New(microword.AltoII2KROM)
	if err := m.BeginAccess(0, 0x10, false); err != nil {
		t.Fatal(err)
	}
	if !m.StallForRead() {
		t.Error("expected StallForRead true immediately after BeginAccess")
	}
	for m.StallForRead() {
		m.Tick()
	}
	_ = m.ReadMD()
}

func TestWriteMDWritesBothHalvesOneCycleApart(t *testing.T) {
	m := New(microword.AltoII2KROM)
	if err := m.BeginAccess(0, 0x200, false); err != nil {
		t.Fatal(err)
	}
	for m.StallForWrite() {
		m.Tick()
	}
	m.WriteMD(0, 0x1111)
	m.Tick()
	m.WriteMD(0, 0x2222)
	if got := m.ReadDirect(0, 0x200, false); got != 0x1111 {
		t.Errorf("low word = %#x, want 0x1111", got)
	}
	if got := m.ReadDirect(0, 0x200^1, false); got != 0x2222 {
		t.Errorf("high word = %#x, want 0x2222", got)
	}
}
