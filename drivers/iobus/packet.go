package iobus

import (
	"encoding/binary"

	"github.com/sigurn/crc8"

	"github.com/render-se/fcio/debug"
	"github.com/render-se/fcio/stm32/cpu"
)

// Frame layout on the wire: a little endian payload length, a code byte, the
// payload and a trailing checksum byte.  Exactly one frame travels per
// direction per exchange; the idle line marks the end of short frames.
const (
	headerSize = 3 // payload length (2) + code (1)
	crcSize    = 1

	// Capacity is the receive buffer size and the largest possible frame.
	// A full frame takes ~426µs on the wire at the configured bit rate.
	Capacity   = 64
	MaxPayload = Capacity - headerSize - crcSize
)

// Code describes a request to the co-processor or its verdict in a reply.
type Code uint8

const (
	CodeRead  Code = 0x00 // request: read registers
	CodeWrite Code = 0x40 // request: write registers

	CodeSuccess Code = 0x00 // reply: ok
	CodeCorrupt Code = 0x40 // reply: peer received us corrupted
	CodeError   Code = 0x80 // reply: request refused
)

var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// A Packet is one exchange buffer.  It is written by receive DMA and read by
// transmit DMA, so it is backed by a cache-line padded slice and conceptually
// owned by hardware while an exchange is in flight.  Allocate once and reuse.
type Packet struct {
	b []byte
}

func NewPacket() *Packet {
	return &Packet{b: cpu.MakePaddedSlice[byte](Capacity)}
}

// Bytes exposes the backing buffer.  Hands off to DMA setup and tests; don't
// touch it during an exchange.
func (p *Packet) Bytes() []byte { return p.b }

// Size returns the payload length declared by the header.
func (p *Packet) Size() int { return int(binary.LittleEndian.Uint16(p.b)) }

// FrameSize returns the total wire size declared by the header, including
// header and checksum trailer.  A corrupted header may declare more than
// Capacity; callers must treat that as malformed.
func (p *Packet) FrameSize() int { return headerSize + p.Size() + crcSize }

func (p *Packet) Code() Code { return Code(p.b[2]) }

// Payload returns the declared payload, clamped to the buffer.
func (p *Packet) Payload() []byte {
	return p.b[headerSize : headerSize+min(p.Size(), MaxPayload)]
}

// SetRequest encodes a request frame with the given code and payload and
// seals it.
func (p *Packet) SetRequest(code Code, payload []byte) {
	debug.Assert(len(payload) <= MaxPayload, "iobus: oversized payload")
	binary.LittleEndian.PutUint16(p.b, uint16(len(payload)))
	p.b[2] = byte(code)
	copy(p.b[headerSize:], payload)
	p.Seal()
}

// crc computes the trailer checksum over the declared frame with the checksum
// byte zeroed.
func (p *Packet) crc() uint8 {
	n := p.FrameSize()
	saved := p.b[n-1]
	p.b[n-1] = 0
	c := crc8.Checksum(p.b[:n], crcTable)
	p.b[n-1] = saved
	return c
}

// Seal stores the trailer checksum.
func (p *Packet) Seal() {
	p.b[p.FrameSize()-1] = p.crc()
}

// Verify reports whether the frame is well-formed and its stored checksum
// matches.
func (p *Packet) Verify() bool {
	if p.FrameSize() > Capacity {
		return false
	}
	return p.b[p.FrameSize()-1] == p.crc()
}
