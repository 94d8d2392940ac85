package iobus_test

import (
	"testing"
	"time"

	"github.com/render-se/fcio/drivers/iobus"
	"github.com/render-se/fcio/stm32/dma"
	"github.com/render-se/fcio/stm32/usart"
)

// stubPort fakes the UART register interface.  The engine's interrupt handler
// is captured at Attach and invoked by tests to simulate status events.
type stubPort struct {
	status   usart.Status
	isr      func()
	rxDMA    bool
	txDMA    bool
	disabled bool
	tx       []byte
}

func (p *stubPort) Enable(baud uint32)     {}
func (p *stubPort) Disable()               { p.disabled = true }
func (p *stubPort) Attach(isr func())      { p.isr = isr }
func (p *stubPort) Status() usart.Status   { return p.status }
func (p *stubPort) Clear(s usart.Status)   { p.status &^= s }
func (p *stubPort) Drain()                 { p.status &^= usart.RxNotEmpty }
func (p *stubPort) SetReceiveDMA(on bool)  { p.rxDMA = on }
func (p *stubPort) SetTransmitDMA(on bool) { p.txDMA = on }
func (p *stubPort) WriteByte(b byte)       { p.tx = append(p.tx, b) }

// stubChannel fakes one DMA stream.  onStart hooks simulated hardware
// behavior into the moment a transfer is enabled.
type stubChannel struct {
	buf      []byte
	done     func(dma.Status)
	running  bool
	freed    bool
	stops    int
	residual int
	onStart  func(c *stubChannel)
}

func (c *stubChannel) SetupReceive(dst []byte) { c.buf = dst; c.residual = len(dst) }
func (c *stubChannel) SetupTransmit(src []byte) {
	c.buf = src
	c.residual = len(src)
}

func (c *stubChannel) Start(done func(dma.Status)) {
	c.done = done
	c.running = true
	if c.onStart != nil {
		c.onStart(c)
	}
}

func (c *stubChannel) Stop()         { c.running = false; c.stops++ }
func (c *stubChannel) Residual() int { return c.residual }
func (c *stubChannel) Free()         { c.running = false; c.freed = true }

type testBus struct {
	port   *stubPort
	rx, tx *stubChannel
	engine *iobus.Engine
}

func newTestBus(t *testing.T) *testBus {
	t.Helper()
	b := &testBus{port: &stubPort{}, rx: &stubChannel{}, tx: &stubChannel{}}
	b.engine = iobus.New(b.port, b.rx, b.tx)
	if b.port.isr == nil {
		t.Fatal("engine did not attach an interrupt handler")
	}
	return b
}

// reply encodes a sealed reply frame.
func reply(code iobus.Code, payload []byte) []byte {
	q := iobus.NewPacket()
	q.SetRequest(code, payload)
	return q.Bytes()[:q.FrameSize()]
}

// deliver deposits raw on the receive side, as receive DMA would.
func (b *testBus) deliver(raw []byte) {
	copy(b.rx.buf, raw)
	b.rx.residual = len(b.rx.buf) - len(raw)
}

// idle raises the idle line interrupt.
func (b *testBus) idle() {
	b.port.status |= usart.Idle
	b.port.isr()
}

func (b *testBus) checkQuiescent(t *testing.T) {
	t.Helper()
	if b.rx.running || b.tx.running {
		t.Error("a dma stream is still running")
	}
	if b.port.rxDMA || b.port.txDMA {
		t.Error("a uart dma request line is still enabled")
	}
}

func request(n int) *iobus.Packet {
	p := iobus.NewPacket()
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i)
	}
	p.SetRequest(iobus.CodeRead, payload)
	return p
}

func TestExchangeShortReply(t *testing.T) {
	b := newTestBus(t)

	// 10 byte request, 6 byte reply (2 byte payload) ended by idle line
	want := reply(iobus.CodeSuccess, []byte{0x12, 0x34})
	b.tx.onStart = func(*stubChannel) {
		b.deliver(want)
		b.idle()
	}

	p := request(6)
	if err := b.engine.Exchange(p); err != nil {
		t.Fatal("exchange:", err)
	}
	if p.Code() != iobus.CodeSuccess {
		t.Errorf("reply code %#02x", p.Code())
	}
	if p.Payload()[0] != 0x12 || p.Payload()[1] != 0x34 {
		t.Errorf("reply payload % x", p.Payload())
	}
	b.checkQuiescent(t)
}

func TestExchangeMalformedShortReply(t *testing.T) {
	b := newTestBus(t)

	// only 3 bytes arrive of a frame whose header declares 6
	b.tx.onStart = func(*stubChannel) {
		b.deliver(reply(iobus.CodeSuccess, []byte{0x12, 0x34})[:3])
		b.idle()
	}

	if err := b.engine.Exchange(request(6)); err != iobus.ErrProtocol {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
	b.checkQuiescent(t)
}

func TestExchangeFullReply(t *testing.T) {
	b := newTestBus(t)

	// a full capacity reply completes via the dma callback, no idle needed
	full := make([]byte, iobus.MaxPayload)
	b.tx.onStart = func(*stubChannel) {
		b.deliver(reply(iobus.CodeSuccess, full))
		b.rx.residual = 0
		b.rx.done(dma.Complete)
	}

	if err := b.engine.Exchange(request(4)); err != nil {
		t.Fatal("exchange:", err)
	}
	b.checkQuiescent(t)
}

func TestExchangeOverrunAtCompletion(t *testing.T) {
	b := newTestBus(t)

	// overrun latched exactly when the dma callback fires loses data, even
	// though the dma itself reports success
	b.tx.onStart = func(*stubChannel) {
		b.deliver(reply(iobus.CodeSuccess, make([]byte, iobus.MaxPayload)))
		b.rx.residual = 0
		b.port.status |= usart.Overrun
		b.rx.done(dma.Complete)
	}

	if err := b.engine.Exchange(request(4)); err != iobus.ErrProtocol {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
	b.checkQuiescent(t)
}

func TestExchangeCRCMismatch(t *testing.T) {
	b := newTestBus(t)

	raw := reply(iobus.CodeSuccess, []byte{1, 2, 3})
	raw[len(raw)-1] ^= 0xff
	b.tx.onStart = func(*stubChannel) {
		b.deliver(raw)
		b.idle()
	}

	if err := b.engine.Exchange(request(2)); err != iobus.ErrProtocol {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestExchangeCorruptCode(t *testing.T) {
	b := newTestBus(t)

	// a well-formed reply carrying the corrupt marker means the peer saw our
	// request fail its checksum
	b.tx.onStart = func(*stubChannel) {
		b.deliver(reply(iobus.CodeCorrupt, nil))
		b.idle()
	}

	if err := b.engine.Exchange(request(2)); err != iobus.ErrProtocol {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestExchangeLineError(t *testing.T) {
	b := newTestBus(t)

	b.tx.onStart = func(*stubChannel) {
		b.port.status |= usart.FramingErr
		b.port.isr()
	}

	if err := b.engine.Exchange(request(4)); err != iobus.ErrProtocol {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
	b.checkQuiescent(t)
}

func TestExchangeTimeout(t *testing.T) {
	b := newTestBus(t)

	// nothing ever fires
	begin := time.Now()
	err := b.engine.Exchange(request(4))
	elapsed := time.Since(begin)

	if err != iobus.ErrTimeout {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	if elapsed < 10*time.Millisecond {
		t.Errorf("returned after %v, before the deadline", elapsed)
	}
	if elapsed > 50*time.Millisecond {
		t.Errorf("returned after %v, deadline overshoot too large", elapsed)
	}
	b.checkQuiescent(t)
}

func TestExchangeDuplicateCompletions(t *testing.T) {
	b := newTestBus(t)

	b.tx.onStart = func(*stubChannel) {
		b.deliver(reply(iobus.CodeSuccess, []byte{7}))
		b.idle()
		// late and duplicate events after completion must be dropped
		b.idle()
		b.rx.done(dma.TransferError)
	}

	if err := b.engine.Exchange(request(1)); err != nil {
		t.Fatal("exchange:", err)
	}
	b.checkQuiescent(t)
}

func TestSpuriousEventsWhileInactive(t *testing.T) {
	b := newTestBus(t)

	// line error and idle with no session waiting are counted or ignored,
	// never acted on
	b.port.status |= usart.FramingErr
	b.port.isr()
	b.port.status |= usart.Idle
	b.port.isr()

	b.tx.onStart = func(*stubChannel) {
		b.deliver(reply(iobus.CodeSuccess, nil))
		b.idle()
	}
	if err := b.engine.Exchange(request(2)); err != nil {
		t.Fatal("exchange after spurious events:", err)
	}
}

func TestClose(t *testing.T) {
	b := newTestBus(t)
	b.engine.Close()

	if !b.rx.freed || !b.tx.freed {
		t.Error("a dma stream was not freed")
	}
	if !b.port.disabled {
		t.Error("port was not disabled")
	}
	b.checkQuiescent(t)
}

// Every outcome must leave the engine ready for the next exchange.
func TestExchangeBackToBack(t *testing.T) {
	b := newTestBus(t)

	// timeout first
	if err := b.engine.Exchange(request(4)); err != iobus.ErrTimeout {
		t.Fatalf("got %v, want ErrTimeout", err)
	}

	// then a protocol error
	b.tx.onStart = func(*stubChannel) {
		b.deliver(reply(iobus.CodeSuccess, []byte{1, 2})[:2])
		b.idle()
	}
	if err := b.engine.Exchange(request(4)); err != iobus.ErrProtocol {
		t.Fatalf("got %v, want ErrProtocol", err)
	}

	// then success, with no leftover state observed
	b.tx.onStart = func(*stubChannel) {
		b.deliver(reply(iobus.CodeSuccess, []byte{0xaa}))
		b.idle()
	}
	p := request(4)
	if err := b.engine.Exchange(p); err != nil {
		t.Fatal("exchange:", err)
	}
	if p.Payload()[0] != 0xaa {
		t.Errorf("reply payload % x", p.Payload())
	}
	b.checkQuiescent(t)
}
