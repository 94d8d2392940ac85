package usart

import (
	"embedded/mmio"
	"unsafe"
)

// Peripheral clock feeding both ports (APB1).
const clockPeriph = 54_000_000

// Memory mapped USART instances used by this firmware.
var (
	UART8  = (*Port)(unsafe.Pointer(uintptr(0x4000_7c00))) // IO co-processor link
	USART3 = (*Port)(unsafe.Pointer(uintptr(0x4000_4800))) // debug console
)

// Port is the register block of one USART.  All driver methods are defined
// directly on it.
type Port struct {
	cr1  mmio.U32
	cr2  mmio.U32
	cr3  mmio.U32
	brr  mmio.U32
	gtpr mmio.U32
	rtor mmio.U32
	rqr  mmio.U32
	isr  mmio.R32[Status]
	icr  mmio.R32[Status]
	rdr  mmio.U32
	tdr  mmio.U32
}

// Status holds the ISR flags.  The same bit positions are written to ICR to
// clear a flag.
type Status uint32

const (
	ParityErr  Status = 1 << 0
	FramingErr Status = 1 << 1
	NoiseErr   Status = 1 << 2
	Overrun    Status = 1 << 3
	Idle       Status = 1 << 4
	RxNotEmpty Status = 1 << 5
	TxDone     Status = 1 << 6
	TxEmpty    Status = 1 << 7

	// ErrAll covers every clearable error flag plus idle, the mask the
	// interrupt handler wipes on each invocation.
	ErrAll = ParityErr | FramingErr | NoiseErr | Overrun | Idle
)

// CR1 bits
const (
	cr1Enable   uint32 = 1 << 0
	cr1RxEnable uint32 = 1 << 2
	cr1TxEnable uint32 = 1 << 3
	cr1IdleIE   uint32 = 1 << 4
)

// CR3 bits
const (
	cr3ErrIE uint32 = 1 << 0
	cr3DMARx uint32 = 1 << 6
	cr3DMATx uint32 = 1 << 7
)
