// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package varint provides the integer encodings used across CRAM file
// format versions: ITF-8/LTF-8 for format versions up to and including 3,
// and a plain 7-bit-per-byte big-endian encoding (with zig-zag signed
// variants) for format version 4 and later.
//
// A single Vtable is selected once, at file-open time, from the file
// definition's version byte, and used for the lifetime of the file; CRAM
// never mixes encodings within one stream.
package varint

import (
	"hash/crc32"

	"github.com/biogo/cram/encoding/itf8"
	"github.com/biogo/cram/encoding/ltf8"
)

// Vtable is the set of integer codecs in effect for a CRAM file, selected
// by file format version.
type Vtable struct {
	// EncodeUint writes v into b and returns the number of bytes written.
	EncodeUint func(b []byte, v uint64) int
	// DecodeUint reads an unsigned integer from b, returning the value,
	// the number of bytes consumed and whether decoding succeeded.
	DecodeUint func(b []byte) (v uint64, n int, ok bool)
	// EncodeInt writes v into b and returns the number of bytes written.
	EncodeInt func(b []byte, v int64) int
	// DecodeInt reads a signed integer from b, returning the value, the
	// number of bytes consumed and whether decoding succeeded.
	DecodeInt func(b []byte) (v int64, n int, ok bool)
	// Len returns the number of bytes EncodeInt would write for v.
	Len func(v int64) int
}

// ForVersion returns the Vtable for the given CRAM major format version.
// Versions 1, 2 and 3 use ITF-8/LTF-8; version 4 and later use the 7-bit
// unsigned/signed (zig-zag) varint encoding.
func ForVersion(major byte) Vtable {
	if major >= 4 {
		return sevenBitVtable
	}
	return itf8Vtable
}

var itf8Vtable = Vtable{
	EncodeUint: func(b []byte, v uint64) int { return itf8.Encode(b, int32(v)) },
	DecodeUint: func(b []byte) (uint64, int, bool) {
		v, n, ok := itf8.Decode(b)
		return uint64(uint32(v)), n, ok
	},
	EncodeInt: func(b []byte, v int64) int { return ltf8.Encode(b, v) },
	DecodeInt: func(b []byte) (int64, int, bool) { return ltf8.Decode(b) },
	Len:       func(v int64) int { return ltf8.Len(v) },
}

var sevenBitVtable = Vtable{
	EncodeUint: EncodeUvarint,
	DecodeUint: DecodeUvarint,
	EncodeInt:  EncodeVarint,
	DecodeInt:  DecodeVarint,
	Len:        VarintLen,
}

// EncodeUvarint encodes v into b using 7 bits per byte, big-endian, with
// the high bit of each byte but the last set as a continuation flag. It
// returns the number of bytes written.
func EncodeUvarint(b []byte, v uint64) int {
	n := UvarintLen(v)
	for i := 0; i < n; i++ {
		shift := uint(7 * (n - 1 - i))
		x := byte(v>>shift) & 0x7f
		if i != n-1 {
			x |= 0x80
		}
		b[i] = x
	}
	return n
}

// UvarintLen returns the number of bytes EncodeUvarint would write for v.
func UvarintLen(v uint64) int {
	n := 1
	v >>= 7
	for v != 0 {
		n++
		v >>= 7
	}
	return n
}

// DecodeUvarint decodes an unsigned 7-bit varint from b.
func DecodeUvarint(b []byte) (v uint64, n int, ok bool) {
	for n = 0; n < len(b); n++ {
		v = v<<7 | uint64(b[n]&0x7f)
		if b[n]&0x80 == 0 {
			return v, n + 1, true
		}
	}
	return 0, len(b) + 1, false
}

// zig-zag encode/decode for signed values.
func zigzagEncode(v int64) uint64 { return uint64((v << 1) ^ (v >> 63)) }
func zigzagDecode(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

// EncodeVarint zig-zag encodes v and writes it using the 7-bit unsigned
// encoding.
func EncodeVarint(b []byte, v int64) int { return EncodeUvarint(b, zigzagEncode(v)) }

// VarintLen returns the number of bytes EncodeVarint would write for v.
func VarintLen(v int64) int { return UvarintLen(zigzagEncode(v)) }

// DecodeVarint decodes a zig-zag 7-bit varint from b.
func DecodeVarint(b []byte) (v int64, n int, ok bool) {
	u, n, ok := DecodeUvarint(b)
	if !ok {
		return 0, n, false
	}
	return zigzagDecode(u), n, true
}

// CRCReader wraps an io.Reader-like byte slice cursor and a running CRC32
// accumulator, matching the "every reader takes a CRC accumulator" rule in
// spec.md §4.1. It is a thin convenience over the Vtable decode functions
// for callers (block/container framing) that need to track consumed bytes
// against a shared buffer.
type CRCReader struct {
	Vtable
	CRC uint32
}

// NewCRCReader returns a CRCReader for the given Vtable with a zero CRC.
func NewCRCReader(vt Vtable) *CRCReader {
	return &CRCReader{Vtable: vt}
}

// Uint decodes an unsigned integer from b, folding the consumed bytes
// into the running CRC, and returns the value and bytes consumed.
func (r *CRCReader) Uint(b []byte) (v uint64, n int, ok bool) {
	v, n, ok = r.DecodeUint(b)
	if ok {
		r.CRC = crc32.Update(r.CRC, crc32.IEEETable, b[:n])
	}
	return v, n, ok
}

// Int decodes a signed integer from b, folding the consumed bytes into
// the running CRC, and returns the value and bytes consumed.
func (r *CRCReader) Int(b []byte) (v int64, n int, ok bool) {
	v, n, ok = r.DecodeInt(b)
	if ok {
		r.CRC = crc32.Update(r.CRC, crc32.IEEETable, b[:n])
	}
	return v, n, ok
}
