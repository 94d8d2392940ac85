package iobus

import (
	"embedded/rtos"
	"sync/atomic"
	"time"

	"github.com/render-se/fcio/debug"
	"github.com/render-se/fcio/perf"
	"github.com/render-se/fcio/stm32/cpu"
	"github.com/render-se/fcio/stm32/usart"
)

// Baudrate of the IO link.
const Baudrate = 1_500_000

const (
	// Deadline for one exchange.  A full frame takes ~426µs on the wire, so
	// 10ms covers worst case turnaround while bounding the caller's stall.
	exchangeTimeout = 10 * time.Millisecond

	// At least one character time, slept after an aborted exchange so no
	// lingering idle interrupt fires right into the next one.
	quiesceTime = 100 * time.Microsecond
)

// Receive session states.  Written by the interrupt paths while a session is
// active, read by the caller after wake.
const (
	rxInactive uint32 = iota
	rxWaiting
	rxDone
	rxDoneErr
)

// Engine performs blocking request/reply exchanges with the IO co-processor.
// Create with [New] or [Probe].
type Engine struct {
	port   Port
	rx, tx Channel

	packet *Packet // active session's buffer
	status atomic.Uint32
	done   rtos.Cond

	txns     *perf.Elapsed
	timeouts *perf.Counter
	crcErrs  *perf.Counter
	dmaErrs  *perf.Counter
	uartErrs *perf.Counter
	idles    *perf.Counter
	badIdles *perf.Counter
}

// New initializes the engine over the given hardware: resets and enables the
// port at the link baudrate and attaches the status interrupt handler.  Call
// exactly once per port.
func New(port Port, rx, tx Channel) *Engine {
	e := &Engine{
		port: port, rx: rx, tx: tx,
		txns:     perf.NewElapsed("iobus: txns"),
		timeouts: perf.NewCounter("iobus: timeouts"),
		crcErrs:  perf.NewCounter("iobus: crc errors"),
		dmaErrs:  perf.NewCounter("iobus: dma errors"),
		uartErrs: perf.NewCounter("iobus: uart errors"),
		idles:    perf.NewCounter("iobus: idle completions"),
		badIdles: perf.NewCounter("iobus: malformed idles"),
	}
	port.Enable(Baudrate)
	port.Attach(e.isr)
	return e
}

// Exchange transmits p and overwrites it with the reply.  It returns nil,
// [ErrTimeout] or [ErrProtocol]; retry policy belongs to the caller.  After
// any outcome the hardware is quiescent and ready for the next call.  Only
// one exchange may be in flight per engine.
func (e *Engine) Exchange(p *Packet) error {
	debug.Assert(cpu.IsPadded(p.b), "iobus: unpadded packet buffer")

	e.packet = p

	// A previous exchange may have left a byte in the holding register.
	e.port.Drain()
	e.port.Clear(e.port.Status() & usart.ErrAll)

	e.txns.Begin()
	e.status.Store(rxWaiting)

	// Receive over the full capacity in circular mode.  Circular mode works
	// around the DMA FIFO that can't be disabled: without it bytes would
	// linger in the FIFO when the idle interrupt fires and a complete frame
	// would be misjudged as still in progress.
	e.rx.SetupReceive(p.b)
	e.port.SetReceiveDMA(true)
	e.rx.Start(e.complete)

	// Hand the buffer over to hardware.
	cpu.WritebackSlice(p.b)

	// Transmit exactly the frame and without completion callback: in a
	// request/reply protocol transmit completion is implied by the reply.
	e.tx.SetupTransmit(p.b[:p.FrameSize()])
	e.port.SetTransmitDMA(true)
	e.tx.Start(nil)

	if !e.done.Wait(exchangeTimeout) {
		if e.status.CompareAndSwap(rxWaiting, rxInactive) {
			e.abort()
			time.Sleep(quiesceTime)
			e.timeouts.Count()
			e.txns.Cancel() // not a transaction
			return ErrTimeout
		}
		// A completion path won the race against the deadline, its signal
		// is posted or imminent.  Consume it and take the completed path.
		e.done.Wait(time.Millisecond)
	}

	var err error
	if e.status.Swap(rxInactive) == rxDoneErr {
		// DMA fault, line fault or malformed short frame; the detail was
		// counted where it was detected.
		e.dmaErrs.Count()
		err = ErrProtocol
	} else if !p.Verify() || p.Code() == CodeCorrupt {
		// A corrupt code means the peer saw our frame fail its check.
		e.crcErrs.Count()
		err = ErrProtocol
	}
	e.txns.End()
	return err
}

// Close quiesces the hardware, releases both DMA streams and disables the
// port.  The engine must not be used afterwards.
func (e *Engine) Close() {
	e.abort()
	e.rx.Free()
	e.tx.Free()
	e.port.Disable()
}

// abort leaves the port and both streams in a quiescent state ready for the
// next exchange.  Used on timeout and on fatal line errors.
func (e *Engine) abort() {
	e.port.SetReceiveDMA(false)
	e.port.SetTransmitDMA(false)
	e.tx.Stop()
	e.rx.Stop()

	e.port.Drain()
	e.port.Clear(e.port.Status() & usart.ErrAll)
}
