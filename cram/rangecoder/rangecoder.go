// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rangecoder implements the carry-propagating byte-oriented range
// coder shared by the arithmetic-dynamic and fqzcomp-qual codecs, along
// with the simple adaptive frequency model used to drive it.
//
// The coder is the standard 32-bit-range, 64-bit-low variant described by
// Eugene Shelwien, with renormalisation whenever range drops below 1<<24.
package rangecoder

// top is the renormalisation threshold; range is kept >= top except
// transiently during RC_Encode/RC_Decode.
const top = 1 << 24

// Encoder is a range encoder writing into an in-memory byte buffer.
type Encoder struct {
	low uint64
	rng uint32
	out []byte
}

// NewEncoder returns a range Encoder appending to an internal buffer. Use
// Bytes after Finish to retrieve the encoded stream.
func NewEncoder() *Encoder {
	return &Encoder{rng: 0xffffffff}
}

// Encode encodes a symbol occupying [cumFreq, cumFreq+freq) out of
// totFreq, narrowing the current interval accordingly.
func (e *Encoder) Encode(cumFreq, freq, totFreq uint32) {
	e.low += uint64(cumFreq) * uint64(e.rng/totFreq)
	e.rng = (e.rng / totFreq) * freq
	for e.rng < top {
		if byte((e.low^(e.low+uint64(e.rng)))>>56) != 0 {
			e.rng = (uint32(e.low) | (top - 1)) - uint32(e.low)
		}
		e.out = append(e.out, byte(e.low>>56))
		e.rng <<= 8
		e.low <<= 8
	}
}

// Finish flushes the remaining state bytes and returns the encoded stream.
func (e *Encoder) Finish() []byte {
	for i := 0; i < 8; i++ {
		e.out = append(e.out, byte(e.low>>56))
		e.low <<= 8
	}
	return e.out
}

// Bytes returns the bytes written so far, without flushing. Primarily
// useful for estimating size mid-stream during metrics trials.
func (e *Encoder) Bytes() []byte { return e.out }

// Decoder is a range decoder reading from an in-memory byte buffer.
type Decoder struct {
	low  uint64
	rng  uint32
	code uint32
	in   []byte
	pos  int
}

// NewDecoder returns a range Decoder over buf, seeding its state from
// the first 8 bytes of the stream.
func NewDecoder(buf []byte) *Decoder {
	d := &Decoder{rng: 0xffffffff, in: buf}
	for i := 0; i < 8; i++ {
		d.code = d.code<<8 | uint32(d.readByte())
	}
	return d
}

func (d *Decoder) readByte() byte {
	if d.pos >= len(d.in) {
		return 0
	}
	b := d.in[d.pos]
	d.pos++
	return b
}

// GetFreq returns a value in [0, totFreq) identifying which symbol's
// interval the coder is currently positioned in. The caller must locate
// the symbol owning that value and call Decode with its (cumFreq, freq).
func (d *Decoder) GetFreq(totFreq uint32) uint32 {
	d.rng /= totFreq
	return d.code / d.rng
}

// Decode narrows the interval having identified the symbol occupying
// [cumFreq, cumFreq+freq) out of totFreq (rng already divided by totFreq
// by the preceding GetFreq call).
func (d *Decoder) Decode(cumFreq, freq, totFreq uint32) {
	tmp := uint64(cumFreq) * uint64(d.rng)
	d.low += tmp
	d.code -= uint32(tmp)
	d.rng *= freq
	for d.rng < top {
		if byte((d.low^(d.low+uint64(d.rng)))>>56) != 0 {
			d.rng = (uint32(d.low) | (top - 1)) - uint32(d.low)
		}
		d.code = d.code<<8 | uint32(d.readByte())
		d.rng <<= 8
		d.low <<= 8
	}
}

// Pos returns the number of input bytes consumed so far, for callers
// needing to track multi-segment streams.
func (d *Decoder) Pos() int { return d.pos }
