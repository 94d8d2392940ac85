package iobus

import (
	"github.com/render-se/fcio/stm32/dma"
	"github.com/render-se/fcio/stm32/usart"
)

// The IO link is UART8 with DMA1 stream 0 (transmit) and stream 6 (receive),
// both on request channel 5.
const (
	txStream = 0
	rxStream = 6
)

// uartStream binds a DMA stream to the port's data registers.
type uartStream struct {
	s        *dma.Stream
	rdr, tdr uintptr
}

func (v uartStream) SetupReceive(dst []byte) {
	v.s.Setup(v.rdr, dst, dma.Circular|dma.Channel5)
}

func (v uartStream) SetupTransmit(src []byte) {
	v.s.Setup(v.tdr, src, dma.MemToPeriph|dma.Channel5)
}

func (v uartStream) Start(done func(dma.Status)) { v.s.Start(done) }
func (v uartStream) Stop()                       { v.s.Stop() }
func (v uartStream) Residual() int               { return v.s.Residual() }
func (v uartStream) Free()                       { v.s.Free() }

// Probe acquires the IO link hardware and initializes the engine on it.
// Returns [ErrNoChannel] if a DMA stream is taken.
func Probe() (*Engine, error) {
	rx := dma.DMA1.Claim(rxStream)
	tx := dma.DMA1.Claim(txStream)
	if rx == nil || tx == nil {
		if rx != nil {
			rx.Free()
		}
		if tx != nil {
			tx.Free()
		}
		return nil, ErrNoChannel
	}

	rdr, tdr := usart.UART8.DataRegs()
	return New(usart.UART8,
		uartStream{s: rx, rdr: rdr, tdr: tdr},
		uartStream{s: tx, rdr: rdr, tdr: tdr}), nil
}
