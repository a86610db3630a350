package stream

import (
	"encoding/binary"

	"lumina-core/internal/domain/model"
)

// Wire format: 12-byte header followed by tightly packed pixel data,
// one UDP datagram per frame.
//
//	offset 0..3   magic "LUM" + protocol version
//	offset 4      flags (bit0 data present, bit4 RGBW packing)
//	offset 5      sequence number, wraps mod 256
//	offset 6..7   payload length, big-endian uint16
//	offset 8..11  channel/pixel offset, big-endian uint32
const (
	HeaderSize  = 12
	DefaultPort = 4048

	flagDataPresent = 0x01
	flagRGBW        = 0x10
)

var magic = [4]byte{'L', 'U', 'M', 0x01}

// Codec packs pixel buffers into stream datagrams and owns the session
// sequence counter. Not safe for concurrent use; a session drives its
// codec from a single loop.
type Codec struct {
	seq uint8
}

// Seq returns the sequence number the next frame will carry.
func (c *Codec) Seq() uint8 { return c.seq }

// PackFrame builds a complete datagram for the given pixels. The
// sequence counter advances on every call — including frames a sink
// later drops — so gaps in received sequence numbers are diagnostic
// only, not authoritative.
func (c *Codec) PackFrame(pixels []model.Color, rgbw bool, offset uint32) []byte {
	bpp := 3
	flags := byte(flagDataPresent)
	if rgbw {
		bpp = 4
		flags |= flagRGBW
	}

	buf := make([]byte, HeaderSize+len(pixels)*bpp)
	copy(buf[0:4], magic[:])
	buf[4] = flags
	buf[5] = c.seq
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(pixels)*bpp))
	binary.BigEndian.PutUint32(buf[8:12], offset)

	p := HeaderSize
	for _, px := range pixels {
		buf[p] = clampByte(px.R)
		buf[p+1] = clampByte(px.G)
		buf[p+2] = clampByte(px.B)
		if rgbw {
			buf[p+3] = clampByte(px.W)
		}
		p += bpp
	}

	c.seq++ // wraps at 256 by uint8 arithmetic
	return buf
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
