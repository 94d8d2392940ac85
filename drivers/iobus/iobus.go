// Package iobus implements the serial transport between the flight controller
// and its IO co-processor: a half-duplex request/reply exchange of fixed
// format frames over a single UART, moved by DMA and bounded by the line idle
// interrupt.
//
// One Engine owns one UART and two DMA streams.  Exchange is the only
// suspension point and blocks the caller until the reply arrived, faulted or
// timed out; callers must serialize their exchanges.  The packet register
// semantics carried in the payload are a layer above this package.
package iobus

import (
	"errors"

	"github.com/render-se/fcio/stm32/dma"
	"github.com/render-se/fcio/stm32/usart"
)

var (
	// ErrNoChannel means a DMA stream could not be acquired at init.
	ErrNoChannel = errors.New("iobus: no dma stream")
	// ErrTimeout means the co-processor did not reply inside the deadline.
	ErrTimeout = errors.New("iobus: exchange timeout")
	// ErrProtocol covers DMA faults, line faults, malformed short frames and
	// checksum mismatches.  The perf counters tell them apart.
	ErrProtocol = errors.New("iobus: protocol error")
)

// Port is the UART the engine drives.  Implemented by [usart.Port]; tests
// substitute a stub.
type Port interface {
	Enable(baud uint32)
	Disable()
	Attach(isr func())
	Status() usart.Status
	Clear(usart.Status)
	Drain()
	SetReceiveDMA(on bool)
	SetTransmitDMA(on bool)
	WriteByte(b byte)
}

// Channel is one unidirectional DMA stream bound to the port's data
// registers.
type Channel interface {
	// SetupReceive programs a circular, peripheral-to-memory, byte
	// granularity transfer over all of dst.
	SetupReceive(dst []byte)
	// SetupTransmit programs a memory-to-peripheral transfer over src.
	SetupTransmit(src []byte)
	// Start enables the stream; done, if non-nil, is invoked from interrupt
	// context on completion or fault.
	Start(done func(dma.Status))
	// Stop disables the stream.  Idempotent.
	Stop()
	// Residual returns the bytes not yet transferred.
	Residual() int
	// Free releases the stream for other claimants.
	Free()
}
