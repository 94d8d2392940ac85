// Package usart drives the asynchronous serial ports.  It only covers what
// the IO transport and the debug console need: DMA-driven transfers with
// error and idle-line interrupts on one port, polled writes on the other.
//
// Peripheral clock and pin mux are enabled by board startup code before any
// port is touched.
package usart

import (
	"embedded/rtos"
	_ "unsafe" // for linkname
)

// Enable resets the port, drains a stale received byte, clears pending error
// flags, programs the baud rate divisor and enables the transmitter and
// receiver with error and idle-line interrupts armed.  The interrupt only
// fires once a handler is attached, see [Port.Attach].
func (p *Port) Enable(baud uint32) {
	p.cr1.Store(0)
	p.cr2.Store(0)
	p.cr3.Store(0)

	p.Drain()
	p.Clear(ErrAll)

	p.brr.Store((clockPeriph + baud/2) / baud)

	p.cr3.Store(cr3ErrIE)
	p.cr1.Store(cr1Enable | cr1RxEnable | cr1TxEnable | cr1IdleIE)
}

// Disable resets the control registers and detaches the interrupt handler.
func (p *Port) Disable() {
	p.irq().Disable(0)
	handlers[p.slot()] = nil
	p.cr1.Store(0)
	p.cr2.Store(0)
	p.cr3.Store(0)
}

// Status returns the current ISR flags.
//
//go:nosplit
func (p *Port) Status() Status {
	return p.isr.Load()
}

// Clear clears the given status flags.
//
//go:nosplit
func (p *Port) Clear(s Status) {
	p.icr.Store(s)
}

// Drain discards a byte pending in the receive holding register, if any.
// Reading RDR also releases an overrun condition.
//
//go:nosplit
func (p *Port) Drain() {
	if p.isr.LoadBits(RxNotEmpty) != 0 {
		p.rdr.Load()
	}
}

// SetReceiveDMA gates the port's receive DMA request line.
//
//go:nosplit
func (p *Port) SetReceiveDMA(on bool) {
	if on {
		p.cr3.SetBits(cr3DMARx)
	} else {
		p.cr3.ClearBits(cr3DMARx)
	}
}

// SetTransmitDMA gates the port's transmit DMA request line.
//
//go:nosplit
func (p *Port) SetTransmitDMA(on bool) {
	if on {
		p.cr3.SetBits(cr3DMATx)
	} else {
		p.cr3.ClearBits(cr3DMATx)
	}
}

// DataRegs returns the bus addresses of the receive and transmit data
// registers for DMA setup.
func (p *Port) DataRegs() (rx, tx uintptr) {
	return p.rdr.Addr(), p.tdr.Addr()
}

// WriteByte transmits a single byte by polling, bypassing DMA.
func (p *Port) WriteByte(b byte) {
	for p.isr.LoadBits(TxEmpty) == 0 {
	}
	p.tdr.Store(uint32(b))
}

// Write implements io.Writer by polled transmission.  Used for the console,
// not for the IO link.
func (p *Port) Write(b []byte) (n int, err error) {
	for _, c := range b {
		p.WriteByte(c)
	}
	return len(b), nil
}

// Attach binds h to the port's interrupt vector and unmasks it.  The handler
// runs in interrupt context.
func (p *Port) Attach(h func()) {
	handlers[p.slot()] = h
	p.irq().Enable(rtos.IntPrioLow, 0)
}

var handlers [2]func()

func (p *Port) slot() int {
	switch p {
	case UART8:
		return 0
	case USART3:
		return 1
	}
	panic("usart: unsupported port")
}

func (p *Port) irq() rtos.IRQ {
	if p == UART8 {
		return 83
	}
	return 39
}

//go:linkname uart8Handler IRQ83_Handler
//go:interrupthandler
func uart8Handler() {
	if h := handlers[0]; h != nil {
		h()
	}
}

//go:linkname usart3Handler IRQ39_Handler
//go:interrupthandler
func usart3Handler() {
	if h := handlers[1]; h != nil {
		h()
	}
}
