// Command alto runs the Alto simulator against a set of ROM, boot, and
// disk image files.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/alto-sim/alto/alto"
	"github.com/alto-sim/alto/disk"
	"github.com/alto-sim/alto/microword"
)

var (
	constROM  = flag.String("c", "", "Path to the constant ROM file (§6.2 format)")
	microROM  = flag.String("m", "", "Path to the microcode ROM file (§6.1 format)")
	bootBin   = flag.String("b", "", "Path to a raw boot binary to poke into memory before running")
	disk1     = flag.String("1", "", "Path to a disk image for drive 1")
	disk2     = flag.String("2", "", "Path to a disk image for drive 2")
	altoI     = flag.Bool("i", false, "Emulate an Alto I (1 ROM bank + 1 RAM bank)")
	altoII1K  = flag.Bool("ii_1krom", false, "Emulate an Alto II with 1K ROM + 1 RAM bank")
	altoII2K  = flag.Bool("ii_2krom", false, "Emulate an Alto II with 2K ROM + 1 RAM bank")
	altoII3K  = flag.Bool("ii_3kram", false, "Emulate an Alto II with 1K ROM + 3 RAM banks")
	etherAddr = flag.String("e", "0", "This station's own Ethernet address (decimal or 0x-prefixed)")
	debug     = flag.Bool("debug", false, "If true, emit a structured log line for every step instead of running silently")
)

// stubTransport is the zero-configuration Ethernet transport used
// when the caller hasn't wired a real one in: TX is discarded, RX
// never has data. §6.6 requires only that the controller see some
// Transport; which kind is a host-level decision out of this
// program's scope.
type stubTransport struct{}

func (stubTransport) ResetTX()              {}
func (stubTransport) AppendTX(uint16)       {}
func (stubTransport) Send() error           { return nil }
func (stubTransport) Receive() (int, error) { return 0, nil }
func (stubTransport) ClearRX()              {}
func (stubTransport) GetRXWord() uint16     { return 0 }
func (stubTransport) HasRXData() bool       { return false }
func (stubTransport) EnableRX(bool)         {}

func pickSystem() (microword.System, error) {
	picked := 0
	sys := microword.AltoII1KROM
	if *altoI {
		picked++
		sys = microword.AltoI
	}
	if *altoII1K {
		picked++
		sys = microword.AltoII1KROM
	}
	if *altoII2K {
		picked++
		sys = microword.AltoII2KROM
	}
	if *altoII3K {
		picked++
		sys = microword.AltoII3KRAM
	}
	if picked > 1 {
		return 0, fmt.Errorf("only one of -i/-ii_1krom/-ii_2krom/-ii_3kram may be given")
	}
	return sys, nil
}

func loadDiskImage(m *alto.Machine, driveNum int, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening disk image %q: %w", path, err)
	}
	defer f.Close()
	sectors, err := disk.DecodeImage(f)
	if err != nil {
		return fmt.Errorf("decoding disk image %q: %w", path, err)
	}
	return m.LoadDisk(driveNum, sectors)
}

func main() {
	flag.Parse()

	sys, err := pickSystem()
	if err != nil {
		log.Fatalf("system variant: %v", err)
	}

	if *microROM == "" {
		log.Fatalf("-m (microcode ROM) is required")
	}
	if *constROM == "" {
		log.Fatalf("-c (constant ROM) is required")
	}

	addr, err := strconv.ParseUint(*etherAddr, 0, 8)
	if err != nil {
		log.Fatalf("-e: invalid Ethernet address %q: %v", *etherAddr, err)
	}

	def := &alto.MachineDef{
		System:          sys,
		EthernetAddress: uint8(addr),
		Transport:       stubTransport{},
	}

	mf, err := os.Open(*microROM)
	if err != nil {
		log.Fatalf("opening microcode ROM %q: %v", *microROM, err)
	}
	if err := alto.LoadMicrocodeROM(mf, &def.Microcode, 0); err != nil {
		mf.Close()
		log.Fatalf("loading microcode ROM: %v", err)
	}
	mf.Close()

	cf, err := os.Open(*constROM)
	if err != nil {
		log.Fatalf("opening constant ROM %q: %v", *constROM, err)
	}
	if err := alto.LoadConstantROM(cf, &def.Constants); err != nil {
		cf.Close()
		log.Fatalf("loading constant ROM: %v", err)
	}
	cf.Close()

	m, err := alto.Init(def)
	if err != nil {
		log.Fatalf("initializing machine: %v", err)
	}

	if *bootBin != "" {
		bf, err := os.Open(*bootBin)
		if err != nil {
			log.Fatalf("opening boot binary %q: %v", *bootBin, err)
		}
		err = m.LoadBootBinary(bf)
		bf.Close()
		if err != nil {
			log.Fatalf("loading boot binary: %v", err)
		}
	}

	disk1Path := *disk1
	if disk1Path == "" && flag.NArg() > 0 {
		disk1Path = flag.Arg(0)
	}
	if err := loadDiskImage(m, 0, disk1Path); err != nil {
		log.Fatalf("%v", err)
	}
	if err := loadDiskImage(m, 1, *disk2); err != nil {
		log.Fatalf("%v", err)
	}

	for {
		if err := m.Step(); err != nil {
			log.Fatalf("step error: %v", err)
		}
		if *debug {
			log.Printf("step complete")
		}
	}
}
