// Package dma drives the two general purpose DMA controllers.  A transfer is
// run on a claimed stream: program it with Setup, kick it off with Start and
// either poll Residual or pass a completion callback, which will be invoked
// from the stream's interrupt.
package dma

import (
	"embedded/rtos"
	"sync/atomic"

	"github.com/render-se/fcio/debug"
	"github.com/render-se/fcio/stm32/cpu"
)

type Controller struct {
	regs    *registers
	num     int
	claimed [8]atomic.Bool
}

var streams [2][8]Stream

// Claim acquires exclusive ownership of a stream.  Returns nil if the stream
// is already claimed.  The stream's request channel is selected later via the
// ChannelN setup flag.
func (c *Controller) Claim(n int) *Stream {
	debug.Assert(n >= 0 && n < 8, "dma: stream out of range")
	if c.claimed[n].Swap(true) {
		return nil
	}
	s := &streams[c.num][n]
	s.c, s.n = c, n
	return s
}

// A Stream is one unidirectional DMA transfer engine.
type Stream struct {
	c    *Controller
	n    int
	done func(Status)
}

// Free stops the stream and releases it for other claimants.
func (s *Stream) Free() {
	s.Stop()
	s.c.claimed[s.n].Store(false)
}

func (s *Stream) regs() *streamRegs {
	return &s.c.regs.streams[s.n]
}

// Setup programs a byte granularity transfer between the peripheral data
// register at paddr and p.  The stream must be stopped.  Direction, circular
// mode and the request channel are passed in f; memory increment is implied.
func (s *Stream) Setup(paddr uintptr, p []byte, f Flags) {
	debug.Assert(len(p) > 0 && len(p) <= 0xffff, "dma: bad transfer length")

	r := s.regs()
	r.cr.Store(0)
	for r.cr.LoadBits(enable) != 0 {
	}
	s.clear(statusAll)

	r.par.Store(uint32(paddr))
	r.m0ar.Store(uint32(cpu.PhysicalAddressSlice(p)))
	r.ndtr.Store(uint32(len(p)))
	r.fcr.Store(0) // direct mode, see note in iobus about the FIFO
	r.cr.Store(f | MemInc)
}

// Start enables the stream.  If done is non-nil it is called from interrupt
// context once the transfer completes or faults.  A nil done runs the
// transfer silently; its progress can still be watched via Residual.
func (s *Stream) Start(done func(Status)) {
	s.done = done
	if done != nil {
		s.regs().cr.SetBits(intEnable)
		s.irq().Enable(rtos.IntPrioLow, 0)
	}
	s.regs().cr.SetBits(enable)
}

// Stop disables the stream and discards any latched status.  Stopping an
// already stopped stream is harmless.
func (s *Stream) Stop() {
	r := s.regs()
	r.cr.ClearBits(enable | intEnable)
	for r.cr.LoadBits(enable) != 0 {
	}
	s.clear(statusAll)
}

// Residual returns the number of bytes not yet transferred out of the
// programmed length.
func (s *Stream) Residual() int {
	return int(s.regs().ndtr.Load())
}

func (s *Stream) irq() rtos.IRQ {
	return irqs[s.c.num][s.n]
}

var irqs = [2][8]rtos.IRQ{
	{11, 12, 13, 14, 15, 16, 17, 47},
	{56, 57, 58, 59, 60, 68, 69, 70},
}

//go:nosplit
//go:nowritebarrierrec
func handle(c *Controller, n int) {
	s := &streams[c.num][n]
	st := s.status()
	s.clear(st)
	if done := s.done; done != nil && (st&Complete != 0 || st.Err()) {
		done(st)
	}
}
