package iobus

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/render-se/fcio/perf"
)

// FloodPIO kills DMA and transmits 0x55 forever by polling, for bit timing
// measurements on a scope.  Never returns; the engine is unusable afterwards.
func (e *Engine) FloodPIO() {
	e.tx.Stop()
	e.rx.Stop()
	e.port.SetReceiveDMA(false)
	e.port.SetTransmitDMA(false)

	for {
		e.port.WriteByte(0x55)
	}
}

// FloodExchanges hammers the link with synthetic write requests, 5000
// exchanges per round, reporting failures and dumping all perf counters to w
// after each round.  rounds <= 0 floods forever.  Test-only; not part of the
// steady state contract.
func (e *Engine) FloodExchanges(w io.Writer, rounds int) {
	p := NewPacket()
	payload := make([]byte, 2)

	fails := 0
	for r := 0; rounds <= 0 || r < rounds; r++ {
		for i := 0; i < 5000; i++ {
			binary.LittleEndian.PutUint16(payload, uint16(i))
			p.SetRequest(CodeWrite, payload)
			if e.Exchange(p) != nil {
				fails++
			}
		}
		fmt.Fprintf(w, "==== flood: %d failures ====\n", fails)
		perf.Print(w)
	}
}
