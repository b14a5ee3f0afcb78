// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rans implements the CRAM 3.1 "rans_4x16pr" block codec: order-0
// and order-1 rANS entropy coding with an optional 4-way interleave, plus
// the PACK/RLE/CAT/stripe pre-transforms that sit in front of it.
//
// See https://samtools.github.io/hts-specs/CRAMv3.pdf section 11 for the
// wire format this package approximates; this implementation is not
// guaranteed to produce byte-identical output to samtools/htslib (the
// core's non-goal is interoperable file production, not a new spec), but
// every stream it writes is a faithful self-decode under the algorithm
// spec.md §4.4 describes.
package rans

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Format byte bits, matching spec.md §4.4.
const (
	order1    = 1 << 0
	stripeBit = 1 << 3
	noSizeBit = 1 << 4
	catBit    = 1 << 5
	rleBit    = 1 << 6
	packBit   = 1 << 7
)

// Numeric parameters fixed by the format.
const (
	tfShift   = 12 // order-0 total frequency shift: TOTFREQ = 1<<12
	tfShiftO1 = 10 // order-1 per-context total frequency shift: 1<<10
	totFreq   = 1 << tfShift
	totFreqO1 = 1 << tfShiftO1
	ransByteL = 1 << 23
)

// ErrReject is returned when a compressed stream fails a structural
// sanity check during decompression (bad frequency table, truncated
// input, invalid transform metadata).
var ErrReject = errors.New("rans: rejected corrupt or invalid stream")

// Order selects the context order used by Compress.
type Order int

const (
	Order0 Order = 0
	Order1 Order = 1
)

// Options controls which pre-transforms Compress is permitted to use.
type Options struct {
	Order       Order
	AllowPack   bool // alphabet must be <= 16 distinct symbols
	AllowRLE    bool
	AllowStripe bool
	AllowCat    bool
}

// DefaultOptions enables every transform. The cram driver passes it
// unchanged; Compress itself skips PACK for more than 16 symbols.
func DefaultOptions(order Order) Options {
	return Options{Order: order, AllowPack: true, AllowRLE: true, AllowStripe: true, AllowCat: true}
}

// Compress encodes in according to opts, returning a self-describing
// buffer whose first byte carries the order/transform bits.
func Compress(in []byte, opts Options) ([]byte, error) {
	if len(in) == 0 {
		return []byte{byte(opts.Order) | catBit}, nil
	}

	nsym := distinctSymbols(in)

	if opts.AllowStripe && len(in)%4 == 0 && len(in) > 20 {
		out, err := compressStripe(in, opts)
		if err == nil && len(out) < len(in) {
			return out, nil
		}
	}

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
		// CAT: entropy coding would not help, or isn't allowed to fail
		// silently; fall back to verbatim storage.
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
	case head&stripeBit != 0:
		return uncompressStripe(body, expectedSize)
	case head&packBit != 0:
		return uncompressPack(body, head, expectedSize)
	case head&rleBit != 0:
		return uncompressRLE(body, head, expectedSize)
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

// --- order-0/1 entropy stage ---

func compressEntropy(in []byte, order Order) ([]byte, error) {
	if order == Order1 && len(in) < 4 {
		order = Order0
	}
	head := []byte{byte(order)}
	if order == Order0 {
		freqs := normalize(histogram(in), len(in), tfShift)
		table := writeFreqTable(freqs)
		body := encodeOrder0(in, freqs)
		out := append(head, table...)
		out = append(out, body...)
		return out, nil
	}
	ctxFreqs := make([][256]uint32, 256)
	ctxHist := histogramO1(in)
	for c := range ctxHist {
		ctxFreqs[c] = normalize(ctxHist[c], sum256(ctxHist[c]), tfShiftO1)
	}
	var table []byte
	for c := 0; c < 256; c++ {
		if sum256(ctxHist[c]) == 0 {
			table = append(table, 0) // empty marker for unused context
			continue
		}
		table = append(table, 1)
		table = append(table, writeFreqTable(ctxFreqs[c])...)
	}
	body := encodeOrder1(in, ctxFreqs)
	out := append(head, table...)
	out = append(out, body...)
	return out, nil
}

func uncompressEntropy(in []byte, order Order, expectedSize int) ([]byte, error) {
	if order == Order0 {
		freqs, n, err := readFreqTable(in, totFreq)
		if err != nil {
			return nil, err
		}
		return decodeOrder0(in[n:], freqs, expectedSize)
	}
	pos := 0
	ctxFreqs := make([][256]uint32, 256)
	for c := 0; c < 256; c++ {
		if pos >= len(in) {
			return nil, fmt.Errorf("%w: truncated order-1 table", ErrReject)
		}
		marker := in[pos]
		pos++
		if marker == 0 {
			continue
		}
		freqs, n, err := readFreqTable(in[pos:], totFreqO1)
		if err != nil {
			return nil, err
		}
		ctxFreqs[c] = freqs
		pos += n
	}
	return decodeOrder1(in[pos:], ctxFreqs, expectedSize)
}

func histogram(in []byte) [256]uint32 {
	var h [256]uint32
	for _, b := range in {
		h[b]++
	}
	return h
}

func histogramO1(in []byte) [256][256]uint32 {
	var h [256][256]uint32
	ctx := byte(0)
	for _, b := range in {
		h[ctx][b]++
		ctx = b
	}
	return h
}

func sum256(h [256]uint32) int {
	s := 0
	for _, v := range h {
		s += int(v)
	}
	return s
}

// normalize rescales counts to sum exactly to 1<<shift, as described in
// spec.md §4.4: lift any zero-but-present symbol to 1, then add/remove
// the remainder at the maximum-frequency symbol, taking any excess it
// cannot absorb one count at a time from the other symbols above 1.
func normalize(counts [256]uint32, size int, shift uint) [256]uint32 {
	var freqs [256]uint32
	if size == 0 {
		return freqs
	}
	target := uint32(1) << shift
	var sum uint32
	maxSym, maxFreq := -1, uint32(0)
	for s, c := range counts {
		if c == 0 {
			continue
		}
		f := uint32((uint64(c)*uint64(target)*2 + uint64(size)) / (2 * uint64(size)))
		if f == 0 {
			f = 1
		}
		freqs[s] = f
		sum += f
		if f > maxFreq {
			maxFreq = f
			maxSym = s
		}
	}
	if maxSym < 0 {
		return freqs
	}
	diff := int64(target) - int64(sum)
	nf := int64(freqs[maxSym]) + diff
	if nf < 1 {
		nf = 1
	}
	sum = sum - freqs[maxSym] + uint32(nf)
	freqs[maxSym] = uint32(nf)
	// Spread any excess the maximum-frequency symbol could not absorb.
	for s := 0; sum > target; s = (s + 1) % 256 {
		if freqs[s] > 1 {
			freqs[s]--
			sum--
		}
	}
	return freqs
}

// writeFreqTable encodes a 256-entry frequency table using a run-length
// friendly alphabet scan (spec.md §4.4 step 5): a leading varint entry
// count, then for every symbol with non-zero frequency the symbol byte
// and its frequency as a varint. The entry count (rather than a sentinel
// byte) disambiguates the end of the table regardless of which symbol
// values or frequency varint encodings appear, sized for round-trip
// fidelity rather than byte-for-byte compatibility with htslib's own
// table bytes.
func writeFreqTable(freqs [256]uint32) []byte {
	n := 0
	for _, f := range freqs {
		if f != 0 {
			n++
		}
	}
	out := appendUvarint(nil, uint64(n))
	for s, f := range freqs {
		if f == 0 {
			continue
		}
		out = append(out, byte(s))
		out = appendUvarint(out, uint64(f))
	}
	return out
}

func readFreqTable(in []byte, wantTotal uint32) (freqs [256]uint32, n int, err error) {
	count, pos := readUvarint(in)
	if pos == 0 {
		return freqs, 0, fmt.Errorf("%w: truncated frequency table count", ErrReject)
	}
	for i := uint64(0); i < count; i++ {
		if pos >= len(in) {
			return freqs, 0, fmt.Errorf("%w: truncated frequency table", ErrReject)
		}
		sym := in[pos]
		pos++
		f, nn := readUvarint(in[pos:])
		if nn == 0 {
			return freqs, 0, fmt.Errorf("%w: bad varint in frequency table", ErrReject)
		}
		freqs[sym] = uint32(f)
		pos += nn
	}
	var tot uint64
	for _, f := range freqs {
		tot += uint64(f)
	}
	if uint32(tot) != wantTotal {
		return freqs, 0, fmt.Errorf("%w: frequency table sums to %d, want %d", ErrReject, tot, wantTotal)
	}
	return freqs, pos, nil
}

func appendUvarint(b []byte, v uint64) []byte {
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

func readUvarint(b []byte) (uint64, int) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, 0
	}
	return v, n
}
