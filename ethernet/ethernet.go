// Package ethernet implements the Alto's Ethernet controller: a
// 16-word TX/RX FIFO, the ExFCT microcode operations that drive it,
// and the scheduled TX/RX interrupt handlers that move words between
// the FIFO and a host-supplied Transport.
package ethernet

import "fmt"

// FIFOSize is the number of words the controller's ring buffer holds.
const FIFOSize = 16

// inputState tracks the RX side's progress through a packet.
type inputState int

const (
	inputOff inputState = iota
	inputWaiting
	inputReceiving
	inputDone
)

// tx/rx interrupt lead times, in engine cycles, matching the hardware
// countdown used to pace packet transfer against the wire.
const (
	txInterruptDelay = 512
	rxInterruptDelay = 31
)

// None marks a scheduled cycle slot as empty.
const None int32 = -1

// Transport is the host-side connection a Controller sends to and
// receives from. The controller neither knows nor cares whether it is
// backed by UDP broadcast, a captured file, or a test stub.
type Transport interface {
	ResetTX()
	AppendTX(word uint16)
	Send() error
	Receive() (pending int, err error)
	ClearRX()
	GetRXWord() uint16
	HasRXData() bool
	EnableRX(enable bool)
}

// Controller is the Alto's Ethernet interface.
type Controller struct {
	address uint8 // 6 bits: this station's address

	fifo  [FIFOSize]uint16
	start int
	end   int // may exceed start by up to FIFOSize before being considered full

	iocmd uint8

	outBusy, inBusy, inGone bool
	endTx                   bool
	dataLate, collision     bool
	crcBad, incomplete      bool

	inputState inputState
	status     uint16

	countdownWakeup bool

	intrCycle, txIntrCycle, rxIntrCycle int32
	pending                             bool

	transport Transport
}

// New returns a Controller for the given 6-bit station address, bound
// to transport.
func New(address uint8, transport Transport) *Controller {
	c := &Controller{
		address:     address & 0x3F,
		transport:   transport,
		intrCycle:   None,
		txIntrCycle: None,
		rxIntrCycle: None,
	}
	c.Reset()
	return c
}

// Reset zeros the FIFO, disables RX, and disarms both interrupts.
func (c *Controller) Reset() {
	c.fifo = [FIFOSize]uint16{}
	c.start, c.end = 0, 0
	c.iocmd = 0
	c.outBusy, c.inBusy, c.inGone = false, false, false
	c.endTx = false
	c.dataLate, c.collision, c.crcBad, c.incomplete = false, false, false, false
	c.inputState = inputOff
	c.pending = false
	c.txIntrCycle = None
	c.rxIntrCycle = None
	if c.transport != nil {
		c.transport.EnableRX(false)
	}
	c.recomputeStatus()
}

// ClearCountdownWakeup is the engine's "before step" hook for the
// Ethernet task: it must clear countdown_wakeup left by the prior
// microword before the next one executes.
func (c *Controller) ClearCountdownWakeup() {
	c.countdownWakeup = false
}

// Pending reports whether the Ethernet task has a wakeup pending.
func (c *Controller) Pending() bool {
	return c.pending
}

// BlockTask clears the Ethernet task's pending wakeup.
func (c *Controller) BlockTask() {
	c.pending = false
}

// WakeFromVBlank implements the display vertical task's piggy-back
// wakeup of the Ethernet task: the display handler fires this every
// vertical blank, and it only raises pending if EWFCT armed the
// countdown wakeup.
func (c *Controller) WakeFromVBlank() {
	if c.countdownWakeup {
		c.pending = true
	}
}

func (c *Controller) fifoCount() int {
	return c.end - c.start
}

func (c *Controller) fifoEmpty() bool {
	return c.fifoCount() == 0
}

func (c *Controller) fifoFull() bool {
	return c.fifoCount() >= FIFOSize
}

func (c *Controller) push(word uint16) {
	c.fifo[c.end%FIFOSize] = word
	c.end++
}

func (c *Controller) peek() uint16 {
	return c.fifo[c.start%FIFOSize]
}

func (c *Controller) pop() uint16 {
	v := c.peek()
	c.start++
	return v
}

func (c *Controller) recomputeStatus() {
	c.status = uint16(c.iocmd)
	if c.collision {
		c.status |= 1 << 8
	}
	if c.crcBad {
		c.status |= 1 << 9
	}
	if c.incomplete {
		c.status |= 1 << 10
	}
	if c.dataLate {
		c.status |= 1 << 11
	}
}

// RSNF returns the controller's own station address.
func (c *Controller) RSNF() uint16 {
	return 0xFF00 | uint16(c.address)
}

// STARTF loads the low 2 bits of iocmd from bus and raises pending.
func (c *Controller) STARTF(bus uint16) {
	c.iocmd = uint8(bus & 0x3)
	c.pending = true
	c.recomputeStatus()
}

// EILFCT peeks the FIFO head without dequeuing.
func (c *Controller) EILFCT() uint16 {
	if c.fifoEmpty() {
		return 0
	}
	return c.peek()
}

// EIDFCT dequeues one word. When in_gone is set, in_busy is cleared
// and pending is raised again (the final "end of packet"
// notification); otherwise pending clears once the FIFO has fewer
// than 2 words.
func (c *Controller) EIDFCT() uint16 {
	var v uint16
	if !c.fifoEmpty() {
		v = c.pop()
	}
	if c.inGone {
		c.inBusy = false
		c.pending = true
	} else if c.fifoCount() < 2 {
		c.pending = false
	}
	return v
}

// EPFCT returns the status word and resets the interface: clears the
// FIFO, disables RX via the transport, and clears pending.
func (c *Controller) EPFCT() uint16 {
	s := c.status
	c.start, c.end = 0, 0
	if c.transport != nil {
		c.transport.EnableRX(false)
	}
	c.pending = false
	return s
}

// EWFCT sets countdown_wakeup, cleared by the engine before the next
// step.
func (c *Controller) EWFCT() {
	c.countdownWakeup = true
}

// EODFCT enqueues a word from bus. When the FIFO reaches its last free
// slot while out_busy is set, a TX interrupt is scheduled 512 cycles
// ahead. Pending is cleared.
func (c *Controller) EODFCT(cycle int32, bus uint16) {
	if !c.fifoFull() {
		c.push(bus)
	}
	if c.fifoCount() >= FIFOSize-1 && c.outBusy {
		c.txIntrCycle = cycle + txInterruptDelay
	}
	c.pending = false
}

// EOSFCT sets out_busy and raises pending.
func (c *Controller) EOSFCT() {
	c.outBusy = true
	c.pending = true
}

// ERBFCT computes the next_extra bits derived from iocmd for dispatch.
func (c *Controller) ERBFCT() uint16 {
	return uint16(c.iocmd&0x3) << 2
}

// EEFCT sets end_tx and schedules a TX interrupt 512 cycles ahead;
// clears pending.
func (c *Controller) EEFCT(cycle int32) {
	c.endTx = true
	c.txIntrCycle = cycle + txInterruptDelay
	c.pending = false
}

// EBFCT returns combined status bits for F2 dispatch: bit 2 set if
// idle, iocmd nonzero, or data_late; bit 3 set on collision.
func (c *Controller) EBFCT() uint16 {
	var v uint16
	if !c.outBusy || c.iocmd != 0 || c.dataLate {
		v |= 1 << 2
	}
	if c.collision {
		v |= 1 << 3
	}
	return v
}

// ECBFCT returns bit 2 set if the FIFO is non-empty.
func (c *Controller) ECBFCT() uint16 {
	if !c.fifoEmpty() {
		return 1 << 2
	}
	return 0
}

// EISFCT starts a receive: if in_busy, clears the RX buffer; enables
// RX; sets input_state to WAITING; schedules an RX interrupt 31 cycles
// ahead.
func (c *Controller) EISFCT(cycle int32) {
	if c.inBusy {
		c.start, c.end = 0, 0
	}
	if c.transport != nil {
		c.transport.EnableRX(true)
	}
	c.inBusy = true
	c.inGone = false
	c.inputState = inputWaiting
	c.rxIntrCycle = cycle + rxInterruptDelay
}

// ScheduledCycles returns the controller's three scheduled event
// cycles in (intr, tx, rx) order for the interrupt scheduler fold.
func (c *Controller) ScheduledCycles() (intr, tx, rx int32) {
	return c.intrCycle, c.txIntrCycle, c.rxIntrCycle
}

// DispatchTX runs the TX interrupt handler at the given cycle: while
// the FIFO is non-empty, pops and appends each word to the transport's
// TX buffer, raising pending; if end_tx was set, sends the packet and
// clears out_busy.
func (c *Controller) DispatchTX(cycle int32) error {
	c.txIntrCycle = None
	for !c.fifoEmpty() {
		c.transport.AppendTX(c.pop())
		c.pending = true
	}
	if c.endTx {
		if err := c.transport.Send(); err != nil {
			return fmt.Errorf("ethernet: transport send: %w", err)
		}
		c.outBusy = false
		c.endTx = false
	}
	return nil
}

// DispatchRX runs the RX interrupt handler at the given cycle.
func (c *Controller) DispatchRX(cycle int32) error {
	switch c.inputState {
	case inputWaiting:
		pending, err := c.transport.Receive()
		if err != nil {
			return fmt.Errorf("ethernet: transport receive: %w", err)
		}
		if pending > 0 {
			c.inputState = inputReceiving
		}
		c.rxIntrCycle = cycle + rxInterruptDelay
	case inputReceiving:
		if !c.fifoFull() {
			c.push(c.transport.GetRXWord())
		}
		if !c.transport.HasRXData() {
			c.inGone = true
			c.transport.EnableRX(false)
			c.inputState = inputDone
			c.pending = true
		} else {
			if c.fifoCount() >= 2 {
				c.pending = true
			}
			c.rxIntrCycle = cycle + rxInterruptDelay
		}
	case inputOff, inputDone:
		c.rxIntrCycle = None
	}
	return nil
}
