// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rans

import (
	"fmt"

	"github.com/biogo/cram/internal/pool"
)

// cumTable turns a normalized frequency table into (cumFreq, freq) pairs
// per symbol and a slot->symbol decode table of length 1<<shift, the Go
// analogue of the "256 x TOTFREQ_O1 sfb_t" lookup table spec.md §5
// describes caching per worker thread.
type cumTable struct {
	cum  [257]uint32
	freq [256]uint32
	slot []byte // length 1<<shift; slot[x] = symbol owning frequency slot x
}

func buildCumTable(freqs [256]uint32, shift uint) cumTable {
	return buildCumTableInto(freqs, shift, make([]byte, 1<<shift))
}

// buildCumTableInto is buildCumTable but fills a caller-supplied slot
// buffer (must have length 1<<shift) rather than allocating one, so a
// run of per-context tables can share a single pooled backing array.
func buildCumTableInto(freqs [256]uint32, shift uint, slot []byte) cumTable {
	var t cumTable
	t.freq = freqs
	t.slot = slot
	var acc uint32
	for s, f := range freqs {
		t.cum[s] = acc
		for i := uint32(0); i < f; i++ {
			t.slot[acc+i] = byte(s)
		}
		acc += f
	}
	t.cum[256] = acc
	return t
}

// --- 4-way interleaved order-0 rANS ---

// lanesFor partitions [0,n) into 4 round-robin lanes and returns, for
// each lane, the list of original indices it owns in ascending order.
func lanesFor(n int) [4][]int {
	var lanes [4][]int
	for i := 0; i < n; i++ {
		j := i & 3
		lanes[j] = append(lanes[j], i)
	}
	return lanes
}

func encodeOrder0(in []byte, freqs [256]uint32) []byte {
	ct := buildCumTable(freqs, tfShift)
	lanes := lanesFor(len(in))

	var lensBuf [16]byte
	var laneBytes [4][]byte
	for j := 0; j < 4; j++ {
		laneBytes[j] = encodeLane(in, lanes[j], ct, tfShift)
		putUint32(lensBuf[j*4:], uint32(len(laneBytes[j])))
	}
	out := append([]byte{}, lensBuf[:]...)
	for j := 0; j < 4; j++ {
		out = append(out, laneBytes[j]...)
	}
	return out
}

func decodeOrder0(in []byte, freqs [256]uint32, expectedSize int) ([]byte, error) {
	if len(in) < 16 {
		return nil, fmt.Errorf("%w: truncated order-0 rANS header", ErrReject)
	}
	var lens [4]int
	for j := 0; j < 4; j++ {
		lens[j] = int(getUint32(in[j*4:]))
	}
	pos := 16
	ct := buildCumTable(freqs, tfShift)
	lanes := lanesFor(expectedSize)
	out := make([]byte, expectedSize)
	for j := 0; j < 4; j++ {
		if pos+lens[j] > len(in) {
			return nil, fmt.Errorf("%w: truncated order-0 rANS lane", ErrReject)
		}
		if err := decodeLane(in[pos:pos+lens[j]], lanes[j], ct, tfShift, out); err != nil {
			return nil, err
		}
		pos += lens[j]
	}
	return out, nil
}

// encodeLane rANS-encodes the symbols in[idx] for idx in order, which
// must be processed in reverse for the classic byte-renormalised rANS
// construction (Giesen's rans_byte.h) to decode forward correctly.
func encodeLane(in []byte, order []int, ct cumTable, shift uint) []byte {
	x := uint32(ransByteL)
	var emitted []byte
	scale := uint32(1) << shift
	for k := len(order) - 1; k >= 0; k-- {
		sym := in[order[k]]
		freq := ct.freq[sym]
		if freq == 0 {
			freq = 1 // unreachable for well-formed tables; guards div by zero
		}
		start := ct.cum[sym]
		xMax := ((ransByteL >> shift) << 8) * freq
		for x >= xMax {
			emitted = append(emitted, byte(x))
			x >>= 8
		}
		x = (x/freq)*scale + (x % freq) + start
	}
	for i := 0; i < 4; i++ {
		emitted = append(emitted, byte(x>>24))
		x <<= 8
	}
	out := make([]byte, len(emitted))
	for i, b := range emitted {
		out[len(emitted)-1-i] = b
	}
	return out
}

func decodeLane(in []byte, order []int, ct cumTable, shift uint, out []byte) error {
	if len(in) < 4 {
		if len(order) == 0 {
			return nil
		}
		return fmt.Errorf("%w: truncated rANS lane state", ErrReject)
	}
	x := getUint32(in)
	pos := 4
	mask := uint32(1)<<shift - 1
	for _, idx := range order {
		slotVal := x & mask
		if int(slotVal) >= len(ct.slot) {
			return fmt.Errorf("%w: rANS slot out of range", ErrReject)
		}
		sym := ct.slot[slotVal]
		out[idx] = sym
		freq := ct.freq[sym]
		start := ct.cum[sym]
		x = freq*(x>>shift) + slotVal - start
		for x < ransByteL {
			if pos >= len(in) {
				x <<= 8
				continue
			}
			x = x<<8 | uint32(in[pos])
			pos++
		}
	}
	return nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// --- order-1 (single-state; no 4-lane interleave as in order-0) ---

func encodeOrder1(in []byte, ctxFreqs [][256]uint32) []byte {
	tables := make([]cumTable, 256)
	for c := range tables {
		tables[c] = buildCumTable(ctxFreqs[c], tfShiftO1)
	}
	x := uint32(ransByteL)
	var emitted []byte
	scale := uint32(1) << tfShiftO1
	ctx := make([]byte, len(in))
	c := byte(0)
	for i, b := range in {
		ctx[i] = c
		c = b
	}
	for k := len(in) - 1; k >= 0; k-- {
		sym := in[k]
		ct := tables[ctx[k]]
		freq := ct.freq[sym]
		if freq == 0 {
			freq = 1
		}
		start := ct.cum[sym]
		xMax := ((ransByteL >> tfShiftO1) << 8) * freq
		for x >= xMax {
			emitted = append(emitted, byte(x))
			x >>= 8
		}
		x = (x/freq)*scale + (x % freq) + start
	}
	for i := 0; i < 4; i++ {
		emitted = append(emitted, byte(x>>24))
		x <<= 8
	}
	out := make([]byte, len(emitted))
	for i, b := range emitted {
		out[len(emitted)-1-i] = b
	}
	return out
}

func decodeOrder1(in []byte, ctxFreqs [][256]uint32, expectedSize int) ([]byte, error) {
	if expectedSize == 0 {
		return nil, nil
	}
	if len(in) < 4 {
		return nil, fmt.Errorf("%w: truncated order-1 rANS state", ErrReject)
	}
	backing := pool.GetDecodeTable(256 * totFreqO1)
	defer pool.PutDecodeTable(backing)
	tables := make([]cumTable, 256)
	for c := range tables {
		tables[c] = buildCumTableInto(ctxFreqs[c], tfShiftO1, backing[c*totFreqO1:(c+1)*totFreqO1])
	}
	x := getUint32(in)
	pos := 4
	mask := uint32(1)<<tfShiftO1 - 1
	out := make([]byte, expectedSize)
	ctx := byte(0)
	for i := 0; i < expectedSize; i++ {
		ct := tables[ctx]
		slotVal := x & mask
		if int(slotVal) >= len(ct.slot) {
			return nil, fmt.Errorf("%w: rANS order-1 slot out of range", ErrReject)
		}
		sym := ct.slot[slotVal]
		out[i] = sym
		freq := ct.freq[sym]
		start := ct.cum[sym]
		x = freq*(x>>tfShiftO1) + slotVal - start
		for x < ransByteL {
			if pos >= len(in) {
				x <<= 8
				continue
			}
			x = x<<8 | uint32(in[pos])
			pos++
		}
		ctx = sym
	}
	return out, nil
}
