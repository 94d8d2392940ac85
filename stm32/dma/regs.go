package dma

import (
	"embedded/mmio"
	"unsafe"
)

// Both general purpose DMA controllers.  Each owns eight streams which can be
// claimed individually, see [Controller.Claim].
var (
	DMA1 = &Controller{regs: (*registers)(unsafe.Pointer(uintptr(0x4002_6000))), num: 0}
	DMA2 = &Controller{regs: (*registers)(unsafe.Pointer(uintptr(0x4002_6400))), num: 1}
)

type registers struct {
	lisr    mmio.U32 // streams 0..3 status
	hisr    mmio.U32 // streams 4..7 status
	lifcr   mmio.U32 // streams 0..3 status clear
	hifcr   mmio.U32 // streams 4..7 status clear
	streams [8]streamRegs
}

type streamRegs struct {
	cr   mmio.R32[Flags]
	ndtr mmio.U32
	par  mmio.U32
	m0ar mmio.U32
	m1ar mmio.U32
	fcr  mmio.U32
}

// Flags configure a stream via its CR register.
type Flags uint32

const (
	enable          Flags = 1 << 0
	directModeErrIE Flags = 1 << 1
	transferErrIE   Flags = 1 << 2
	transferDoneIE  Flags = 1 << 4

	MemToPeriph Flags = 1 << 6 // default direction is peripheral-to-memory
	Circular    Flags = 1 << 8
	PeriphInc   Flags = 1 << 9
	MemInc      Flags = 1 << 10

	// peripheral and memory transfer granularity defaults to a byte

	Channel0 Flags = 0 << 25
	Channel1 Flags = 1 << 25
	Channel2 Flags = 2 << 25
	Channel3 Flags = 3 << 25
	Channel4 Flags = 4 << 25
	Channel5 Flags = 5 << 25
	Channel6 Flags = 6 << 25
	Channel7 Flags = 7 << 25

	intEnable = directModeErrIE | transferErrIE | transferDoneIE
)

// Status reports the outcome of a transfer as latched in LISR/HISR.
type Status uint8

const (
	FIFOError     Status = 1 << 0
	_             Status = 1 << 1
	DirectModeErr Status = 1 << 2
	TransferError Status = 1 << 3
	HalfComplete  Status = 1 << 4
	Complete      Status = 1 << 5

	statusAll = FIFOError | DirectModeErr | TransferError | HalfComplete | Complete
)

func (s Status) Err() bool {
	return s&(FIFOError|DirectModeErr|TransferError) != 0
}

// Per-stream bit group offsets in LISR/HISR and LIFCR/HIFCR.
var statusShift = [8]uint{0, 6, 16, 22, 0, 6, 16, 22}

func (s *Stream) status() Status {
	var v uint32
	if s.n < 4 {
		v = s.c.regs.lisr.Load()
	} else {
		v = s.c.regs.hisr.Load()
	}
	return Status(v>>statusShift[s.n]) & statusAll
}

func (s *Stream) clear(st Status) {
	v := uint32(st) << statusShift[s.n]
	if s.n < 4 {
		s.c.regs.lifcr.Store(v)
	} else {
		s.c.regs.hifcr.Store(v)
	}
}
