// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arith implements the CRAM 3.1 "arith_dynamic" block codec: an
// adaptive order-0/order-1 arithmetic coder built on cram/rangecoder,
// fronted by the same PACK/RLE/CAT pre-transform family as cram/rans.
//
// See original_source/io_lib/arith_dynamic.c for the reference this
// package's format byte and transform set track; the entropy stage here
// uses a carry-propagating range coder (cram/rangecoder) rather than
// rANS, matching the original's split between the two codecs.
package arith

import (
	"errors"
	"fmt"

	"github.com/biogo/cram/rangecoder"
)

// Format byte bits, matching original_source/io_lib/arith_dynamic.c.
const (
	order1    = 1 << 0
	noSizeBit = 1 << 4
	catBit    = 1 << 5
	rleBit    = 1 << 6
	packBit   = 1 << 7
)

// ErrReject is returned when a compressed stream fails a structural
// sanity check during decompression.
var ErrReject = errors.New("arith: rejected corrupt or invalid stream")

// Order selects the context order used by Compress.
type Order int

const (
	Order0 Order = 0
	Order1 Order = 1
)

// Options controls which pre-transforms Compress is permitted to use.
type Options struct {
	Order     Order
	AllowPack bool
	AllowRLE  bool
	AllowCat  bool
}

// DefaultOptions enables every transform.
func DefaultOptions(order Order) Options {
	return Options{Order: order, AllowPack: true, AllowRLE: true, AllowCat: true}
}

// Compress encodes in according to opts, returning a self-describing
// buffer whose first byte carries the order/transform bits.
func Compress(in []byte, opts Options) ([]byte, error) {
	if len(in) == 0 {
		return []byte{byte(opts.Order) | catBit}, nil
	}

	nsym := distinctSymbols(in)

	if opts.AllowPack && nsym <= 16 {
		out, err := compressPack(in, opts)
		if err == nil && len(out) < len(in) {
			return out, nil
		}
	}

	if opts.AllowRLE {
		out, err := compressRLE(in, opts)
		if err == nil && len(out) < len(in) {
			return out, nil
		}
	}

	body, err := compressEntropy(in, opts.Order)
	if err != nil || len(body) >= len(in) {
		return append([]byte{byte(opts.Order) | catBit}, in...), nil
	}
	return body, nil
}

// Uncompress decodes a buffer produced by Compress.
func Uncompress(in []byte, expectedSize int) ([]byte, error) {
	if len(in) == 0 {
		if expectedSize != 0 {
			return nil, fmt.Errorf("%w: empty stream for non-empty size %d", ErrReject, expectedSize)
		}
		return nil, nil
	}
	head := in[0]
	body := in[1:]

	switch {
	case head&catBit != 0:
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	case head&packBit != 0:
		return uncompressPack(body, expectedSize)
	case head&rleBit != 0:
		return uncompressRLE(body, expectedSize)
	default:
		order := Order(head & order1)
		return uncompressEntropy(body, order, expectedSize)
	}
}

func distinctSymbols(in []byte) int {
	var seen [256]bool
	n := 0
	for _, b := range in {
		if !seen[b] {
			seen[b] = true
			n++
		}
	}
	return n
}

// --- order-0/1 entropy stage, built on cram/rangecoder's adaptive model ---

func compressEntropy(in []byte, order Order) ([]byte, error) {
	max := byte(0)
	for _, b := range in {
		if b > max {
			max = b
		}
	}
	enc := rangecoder.NewEncoder()
	if order == Order0 {
		m := rangecoder.NewModel(int(max) + 1)
		for _, b := range in {
			m.EncodeSymbol(enc, uint16(b))
		}
	} else {
		models := make([]*rangecoder.Model, 256)
		ctx := byte(0)
		for _, b := range in {
			if models[ctx] == nil {
				models[ctx] = rangecoder.NewModel(int(max) + 1)
			}
			models[ctx].EncodeSymbol(enc, uint16(b))
			ctx = b
		}
	}
	body := enc.Finish()
	out := make([]byte, 0, len(body)+2)
	out = append(out, byte(order), max)
	out = append(out, body...)
	return out, nil
}

func uncompressEntropy(in []byte, order Order, expectedSize int) ([]byte, error) {
	if len(in) < 1 {
		return nil, fmt.Errorf("%w: truncated arith header", ErrReject)
	}
	max := in[0]
	dec := rangecoder.NewDecoder(in[1:])
	out := make([]byte, expectedSize)
	if order == Order0 {
		m := rangecoder.NewModel(int(max) + 1)
		for i := range out {
			out[i] = byte(m.DecodeSymbol(dec))
		}
		return out, nil
	}
	models := make([]*rangecoder.Model, 256)
	ctx := byte(0)
	for i := range out {
		if models[ctx] == nil {
			models[ctx] = rangecoder.NewModel(int(max) + 1)
		}
		sym := byte(models[ctx].DecodeSymbol(dec))
		out[i] = sym
		ctx = sym
	}
	return out, nil
}
