// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nametok implements the CRAM read-name tokeniser (spec.md
// §4.7): read names are split into columns at transitions between
// alphabetic runs, digit runs, and single-character separators; each
// column is then compressed independently, picking whichever of
// literal/delta/match-prior/numeric coding is smallest for that column.
package nametok

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/biogo/cram/arith"
	"github.com/biogo/cram/rans"
)

// ErrReject is returned when a compressed stream fails a structural
// sanity check during decompression.
var ErrReject = errors.New("nametok: rejected corrupt or invalid stream")

// SubCodec selects which entropy coder backs a tokeniser column's
// sub-streams: NAME_TOK3 uses rANS, NAME_TOKA uses the arithmetic coder.
type SubCodec int

const (
	Tok3 SubCodec = iota // rANS-coded sub-streams
	TokA                 // arithmetic-coded sub-streams
)

func subCompress(c SubCodec, level int, in []byte) ([]byte, error) {
	if c == TokA {
		return arith.Compress(in, arith.DefaultOptions(arith.Order1))
	}
	return rans.Compress(in, rans.DefaultOptions(rans.Order1))
}

func subUncompress(c SubCodec, in []byte, expectedSize int) ([]byte, error) {
	if c == TokA {
		return arith.Uncompress(in, expectedSize)
	}
	return rans.Uncompress(in, expectedSize)
}

// tokenKind classifies a run within a read name.
type tokenKind byte

const (
	kindDigit tokenKind = iota
	kindAlpha
	kindOther // a single separator byte
)

func classify(b byte) tokenKind {
	switch {
	case b >= '0' && b <= '9':
		return kindDigit
	case (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z'):
		return kindAlpha
	default:
		return kindOther
	}
}

// tokenize splits name into runs of consecutive same-kind bytes, with
// kindOther runs always length 1 (each separator byte is its own
// column), matching spec.md §4.7.
func tokenize(name string) []string {
	var toks []string
	i := 0
	for i < len(name) {
		k := classify(name[i])
		if k == kindOther {
			toks = append(toks, name[i:i+1])
			i++
			continue
		}
		j := i + 1
		for j < len(name) && classify(name[j]) == k {
			j++
		}
		toks = append(toks, name[i:j])
		i = j
	}
	return toks
}

// columnMethod selects how a column's values are coded, per spec.md
// §4.7's "literal, delta against prior row, match-prior, numeric with
// variable bit-width" set.
type columnMethod byte

const (
	methodLiteral columnMethod = iota
	methodMatchPrior
	methodDelta
	methodNumeric
)

// Compress tokenises each of names into columns and encodes each column
// with whichever columnMethod yields the smallest output, using sc to
// entropy-code the resulting literal/delta streams.
func Compress(names []string, sc SubCodec, level int) ([]byte, error) {
	nRec := len(names)
	out := appendUvarint(nil, uint64(nRec))
	if nRec == 0 {
		return out, nil
	}

	tokRows := make([][]string, nRec)
	maxCols := 0
	for i, name := range names {
		tokRows[i] = tokenize(name)
		if len(tokRows[i]) > maxCols {
			maxCols = len(tokRows[i])
		}
	}
	out = appendUvarint(out, uint64(maxCols))

	for col := 0; col < maxCols; col++ {
		vals := make([]string, nRec)
		present := make([]bool, nRec)
		for r := 0; r < nRec; r++ {
			if col < len(tokRows[r]) {
				vals[r] = tokRows[r][col]
				present[r] = true
			}
		}
		colBytes, err := compressColumn(vals, present, sc, level)
		if err != nil {
			return nil, err
		}
		out = appendUvarint(out, uint64(len(colBytes)))
		out = append(out, colBytes...)
	}
	return out, nil
}

// Uncompress reverses Compress, returning the reassembled read names in
// row order.
func Uncompress(in []byte) ([]string, error) {
	nRec64, n := readUvarint(in)
	if n == 0 {
		return nil, fmt.Errorf("%w: truncated record count", ErrReject)
	}
	pos := n
	nRec := int(nRec64)
	if nRec == 0 {
		return nil, nil
	}
	maxCols64, n := readUvarint(in[pos:])
	if n == 0 {
		return nil, fmt.Errorf("%w: truncated column count", ErrReject)
	}
	pos += n
	maxCols := int(maxCols64)

	cols := make([][]string, maxCols)
	for col := 0; col < maxCols; col++ {
		clen, n := readUvarint(in[pos:])
		if n == 0 {
			return nil, fmt.Errorf("%w: truncated column length", ErrReject)
		}
		pos += n
		if pos+int(clen) > len(in) {
			return nil, fmt.Errorf("%w: truncated column payload", ErrReject)
		}
		vals, err := uncompressColumn(in[pos:pos+int(clen)], nRec)
		if err != nil {
			return nil, err
		}
		cols[col] = vals
		pos += int(clen)
	}

	names := make([]string, nRec)
	for r := 0; r < nRec; r++ {
		for col := 0; col < maxCols; col++ {
			names[r] += cols[col][r]
		}
	}
	return names, nil
}

// compressColumn encodes one tokeniser column. Each row either has a
// value or is absent (its name had fewer tokens); absence is recorded in
// a presence bitmap ahead of the value stream.
func compressColumn(vals []string, present []bool, sc SubCodec, level int) ([]byte, error) {
	n := len(vals)
	bitmap := make([]byte, (n+7)/8)
	for i, p := range present {
		if p {
			bitmap[i/8] |= 1 << uint(i%8)
		}
	}

	method, payload := chooseColumnMethod(vals, present)
	sub, err := subCompress(sc, level, payload)
	if err != nil {
		return nil, err
	}

	out := []byte{byte(sc), byte(method)}
	out = append(out, bitmap...)
	out = appendUvarint(out, uint64(len(payload)))
	out = appendUvarint(out, uint64(len(sub)))
	out = append(out, sub...)
	return out, nil
}

func uncompressColumn(body []byte, nRec int) ([]string, error) {
	if len(body) < 2 {
		return nil, fmt.Errorf("%w: truncated column header", ErrReject)
	}
	sc := SubCodec(body[0])
	method := columnMethod(body[1])
	pos := 2
	bmLen := (nRec + 7) / 8
	if pos+bmLen > len(body) {
		return nil, fmt.Errorf("%w: truncated presence bitmap", ErrReject)
	}
	bitmap := body[pos : pos+bmLen]
	pos += bmLen

	payloadLen, n := readUvarint(body[pos:])
	if n == 0 {
		return nil, fmt.Errorf("%w: bad payload-length varint", ErrReject)
	}
	pos += n
	subLen, n := readUvarint(body[pos:])
	if n == 0 {
		return nil, fmt.Errorf("%w: bad sub-length varint", ErrReject)
	}
	pos += n
	if pos+int(subLen) > len(body) {
		return nil, fmt.Errorf("%w: truncated column sub-payload", ErrReject)
	}
	payload, err := subUncompress(sc, body[pos:pos+int(subLen)], int(payloadLen))
	if err != nil {
		return nil, err
	}

	present := make([]bool, nRec)
	for i := range present {
		present[i] = bitmap[i/8]&(1<<uint(i%8)) != 0
	}
	return decodeColumnValues(method, payload, present)
}

// chooseColumnMethod picks the smallest-encoding representation for a
// column's present values, returning the method tag and its payload
// bytes (pre sub-entropy-coding).
func chooseColumnMethod(vals []string, present []bool) (columnMethod, []byte) {
	best, bestBytes := methodLiteral, encodeLiteral(vals, present)

	if matchPrior := encodeMatchPrior(vals, present); len(matchPrior) < len(bestBytes) {
		best, bestBytes = methodMatchPrior, matchPrior
	}
	if numeric, ok := asNumeric(vals, present); ok && len(numeric) < len(bestBytes) {
		best, bestBytes = methodNumeric, numeric
	}
	if delta, ok := encodeDelta(vals, present); ok && len(delta) < len(bestBytes) {
		best, bestBytes = methodDelta, delta
	}
	return best, bestBytes
}

func decodeColumnValues(method columnMethod, payload []byte, present []bool) ([]string, error) {
	switch method {
	case methodNumeric:
		return decodeNumeric(payload, present)
	case methodMatchPrior:
		return decodeMatchPrior(payload, present)
	case methodDelta:
		return decodeDelta(payload, present)
	default:
		return decodeLiteral(payload, present)
	}
}

// --- literal: length-prefixed concatenation of present values ---

func encodeLiteral(vals []string, present []bool) []byte {
	var out []byte
	for i, p := range present {
		if !p {
			continue
		}
		out = appendUvarint(out, uint64(len(vals[i])))
		out = append(out, vals[i]...)
	}
	return out
}

func decodeLiteral(payload []byte, present []bool) ([]string, error) {
	out := make([]string, len(present))
	pos := 0
	for i, p := range present {
		if !p {
			continue
		}
		l, n := readUvarint(payload[pos:])
		if n == 0 {
			return nil, fmt.Errorf("%w: truncated literal length", ErrReject)
		}
		pos += n
		if pos+int(l) > len(payload) {
			return nil, fmt.Errorf("%w: truncated literal value", ErrReject)
		}
		out[i] = string(payload[pos : pos+int(l)])
		pos += int(l)
	}
	return out, nil
}

// --- match-prior: a single bit per row (matches previous present row's
// value), with literal bytes only for rows that don't match ---

func encodeMatchPrior(vals []string, present []bool) []byte {
	var bits []byte
	var lits []byte
	prev := ""
	have := false
	bitPos := 0
	for i, p := range present {
		if !p {
			continue
		}
		if bitPos%8 == 0 {
			bits = append(bits, 0)
		}
		match := have && vals[i] == prev
		if match {
			bits[len(bits)-1] |= 1 << uint(bitPos%8)
		} else {
			lits = appendUvarint(lits, uint64(len(vals[i])))
			lits = append(lits, vals[i]...)
		}
		prev = vals[i]
		have = true
		bitPos++
	}
	out := appendUvarint(nil, uint64(bitPos))
	out = append(out, bits...)
	out = append(out, lits...)
	return out
}

func decodeMatchPrior(payload []byte, present []bool) ([]string, error) {
	nBits, n := readUvarint(payload)
	if n == 0 {
		return nil, fmt.Errorf("%w: truncated match-prior bit count", ErrReject)
	}
	pos := n
	bmLen := (int(nBits) + 7) / 8
	if pos+bmLen > len(payload) {
		return nil, fmt.Errorf("%w: truncated match-prior bitmap", ErrReject)
	}
	bits := payload[pos : pos+bmLen]
	pos += bmLen

	out := make([]string, len(present))
	prev := ""
	bitPos := 0
	for i, p := range present {
		if !p {
			continue
		}
		match := bits[bitPos/8]&(1<<uint(bitPos%8)) != 0
		if match {
			out[i] = prev
		} else {
			l, n := readUvarint(payload[pos:])
			if n == 0 {
				return nil, fmt.Errorf("%w: truncated match-prior literal length", ErrReject)
			}
			pos += n
			if pos+int(l) > len(payload) {
				return nil, fmt.Errorf("%w: truncated match-prior literal", ErrReject)
			}
			out[i] = string(payload[pos : pos+int(l)])
			pos += int(l)
		}
		prev = out[i]
		bitPos++
	}
	return out, nil
}

// --- delta: numeric-only columns stored as a varint delta from the
// prior present row's numeric value ---

func encodeDelta(vals []string, present []bool) ([]byte, bool) {
	nums, ok := parseAllNumeric(vals, present)
	if !ok {
		return nil, false
	}
	var out []byte
	prev := int64(0)
	for i, p := range present {
		if !p {
			continue
		}
		out = appendVarint(out, nums[i]-prev)
		prev = nums[i]
	}
	return out, true
}

func decodeDelta(payload []byte, present []bool) ([]string, error) {
	out := make([]string, len(present))
	pos := 0
	prev := int64(0)
	for i, p := range present {
		if !p {
			continue
		}
		d, n := readVarint(payload[pos:])
		if n == 0 {
			return nil, fmt.Errorf("%w: truncated delta value", ErrReject)
		}
		pos += n
		prev += d
		out[i] = strconv.FormatInt(prev, 10)
	}
	return out, nil
}

// --- numeric: every present value in the column parses as a decimal
// integer; store as plain varints (no delta) ---

func asNumeric(vals []string, present []bool) ([]byte, bool) {
	nums, ok := parseAllNumeric(vals, present)
	if !ok {
		return nil, false
	}
	var out []byte
	for i, p := range present {
		if !p {
			continue
		}
		out = appendVarint(out, nums[i])
	}
	return out, true
}

func decodeNumeric(payload []byte, present []bool) ([]string, error) {
	out := make([]string, len(present))
	pos := 0
	for i, p := range present {
		if !p {
			continue
		}
		v, n := readVarint(payload[pos:])
		if n == 0 {
			return nil, fmt.Errorf("%w: truncated numeric value", ErrReject)
		}
		pos += n
		out[i] = strconv.FormatInt(v, 10)
	}
	return out, nil
}

// parseAllNumeric parses every present value as a decimal integer,
// requiring each to round trip through strconv.FormatInt unchanged
// (rejecting the column otherwise); a leading-zero token like "007"
// would otherwise lose its formatting under numeric/delta coding.
func parseAllNumeric(vals []string, present []bool) ([]int64, bool) {
	nums := make([]int64, len(vals))
	for i, p := range present {
		if !p {
			continue
		}
		v, err := strconv.ParseInt(vals[i], 10, 64)
		if err != nil || strconv.FormatInt(v, 10) != vals[i] {
			return nil, false
		}
		nums[i] = v
	}
	return nums, true
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

func appendVarint(b []byte, v int64) []byte {
	var tmp [10]byte
	n := binary.PutVarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

func readVarint(b []byte) (int64, int) {
	v, n := binary.Varint(b)
	if n <= 0 {
		return 0, 0
	}
	return v, n
}
