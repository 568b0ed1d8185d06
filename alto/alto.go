// Package alto wires the Alto's micro-engine to its memory system and
// peripheral controllers into a single runnable Machine, and owns the
// machine-level concerns no single chip package should: ROM loading,
// disk image loading, and whole-machine state persistence.
package alto

import (
	"fmt"

	"github.com/alto-sim/alto/cpu"
	"github.com/alto-sim/alto/disk"
	"github.com/alto-sim/alto/display"
	"github.com/alto-sim/alto/ethernet"
	"github.com/alto-sim/alto/keyboard"
	"github.com/alto-sim/alto/memory"
	"github.com/alto-sim/alto/microword"
)

// DisplayStride is the Alto's native display width in pixels, used to
// size the display controller's scanline buffer.
const DisplayStride = 606

// MachineDef defines the pieces needed to assemble a Machine.
type MachineDef struct {
	System microword.System

	// Constants and Microcode are the pre-loaded constant ROM and
	// control store; see LoadConstantROM/LoadMicrocodeROM.
	Constants [256]uint16
	Microcode [4 * 1024]uint32
	ACSROM    [256]uint16

	// EthernetAddress is this station's 6-bit Ethernet address.
	EthernetAddress uint8
	// Transport backs the Ethernet controller; see ethernet.Transport.
	Transport ethernet.Transport
}

// Machine is a fully wired Alto: the micro-engine, main memory, and
// every peripheral controller it drives.
type Machine struct {
	sys microword.System

	mem      *memory.Memory
	disk     *disk.Controller
	display  *display.Controller
	ethernet *ethernet.Controller
	keyboard *keyboard.Controller
	cpu      *cpu.Chip
}

// Init builds and powers on a Machine from def. Chips are constructed
// in dependency order (peripherals first, the engine last) since the
// engine's ChipDef references every peripheral controller.
func Init(def *MachineDef) (*Machine, error) {
	if def.Transport == nil {
		return nil, fmt.Errorf("alto: Init: Transport is required")
	}

	m := &Machine{
		sys:      def.System,
		mem:      memory.New(def.System),
		disk:     disk.New(),
		display:  display.New(DisplayStride),
		ethernet: ethernet.New(def.EthernetAddress, def.Transport),
		keyboard: keyboard.New(),
	}
	m.mem.PowerOn()

	c, err := cpu.Init(&cpu.ChipDef{
		System:    def.System,
		Mem:       m.mem,
		Disk:      m.disk,
		Display:   m.display,
		Ethernet:  m.ethernet,
		Keyboard:  m.keyboard,
		Consts:    def.Constants,
		Microcode: def.Microcode,
		ACSROM:    def.ACSROM,
	})
	if err != nil {
		return nil, fmt.Errorf("alto: Init: %w", err)
	}
	m.cpu = c
	return m, nil
}

// LoadDisk installs a decoded image (see DecodeImage) into drive 0 or
// 1.
func (m *Machine) LoadDisk(driveNum int, sectors []disk.Sector) error {
	return m.disk.LoadImage(driveNum, sectors)
}

// Step advances the machine by one engine cycle.
func (m *Machine) Step() error {
	return m.cpu.Step()
}

// Run steps the machine until Step returns an error (including the
// sticky error a prior Step call left set) or n cycles have elapsed,
// whichever comes first. n <= 0 means run until error.
func (m *Machine) Run(n int) error {
	for i := 0; n <= 0 || i < n; i++ {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Display returns the machine's display controller, for a host UI to
// read Buffer/Stride from between frames.
func (m *Machine) Display() *display.Controller { return m.display }

// Keyboard returns the machine's keyboard/mouse controller, for a host
// UI to push key and mouse events into.
func (m *Machine) Keyboard() *keyboard.Controller { return m.keyboard }

// Error reports the machine's sticky engine error, if any.
func (m *Machine) Error() error { return m.cpu.Error }
