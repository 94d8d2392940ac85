package iobus

import (
	"github.com/render-se/fcio/stm32/cpu"
	"github.com/render-se/fcio/stm32/dma"
	"github.com/render-se/fcio/stm32/usart"
)

// complete finishes the active session and wakes the caller.  All three
// completion paths funnel here: the receive DMA callback, the idle line
// interrupt and fatal line errors.  Acting only on a Waiting session makes
// duplicate or late invocations harmless and guarantees a single post of the
// completion signal per exchange.
//
//go:nosplit
func (e *Engine) complete(st dma.Status) {
	if !e.status.CompareAndSwap(rxWaiting, rxDone) {
		return
	}

	// An overrun latched at this instant means bytes were lost, no matter
	// what the DMA reported.
	sr := e.port.Status()
	if sr&(usart.Overrun|usart.RxNotEmpty) != 0 {
		e.port.Drain()
		e.port.Clear(sr & (usart.Overrun | usart.RxNotEmpty))
		st |= dma.TransferError
	}
	if st.Err() {
		e.status.Store(rxDoneErr)
	}

	e.port.SetReceiveDMA(false)
	e.port.SetTransmitDMA(false)
	e.tx.Stop()
	e.rx.Stop()

	e.done.Signal()
}

// isr handles every UART status event.
//
//go:nosplit
func (e *Engine) isr() {
	sr := e.port.Status()

	// Always drain and clear so accumulated flags can't block future
	// interrupts.
	e.port.Drain()
	e.port.Clear(sr & usart.ErrAll)

	if sr&(usart.Overrun|usart.NoiseErr|usart.FramingErr) != 0 {
		if e.status.Load() == rxWaiting {
			// Fatal to the exchange in progress.  The DMA won't signal
			// completion on a line fault, so force an error completion.
			e.abort()
			e.uartErrs.Count()
			e.complete(dma.TransferError)
			return
		}
		// No transaction to kill, only count the event.  Line break could
		// carry an out-of-band handshake some day.
		e.uartErrs.Count()

		// Don't act on idle if it's set along with an error.
		return
	}

	if sr&usart.Idle != 0 && e.status.Load() == rxWaiting {
		// The peer stopped transmitting before filling the buffer: a short
		// frame.  Fetch what DMA deposited and measure it against the
		// header.
		cpu.InvalidateSlice(e.packet.b)
		n := Capacity - e.rx.Residual()
		if n < 1 || n < e.packet.FrameSize() {
			e.badIdles.Count()
			e.rx.Stop()
			e.complete(dma.TransferError)
			return
		}
		e.idles.Count()
		e.rx.Stop()
		e.complete(dma.Complete)
	}
}
