// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arith

import (
	"encoding/binary"
	"fmt"
)

// --- PACK: 2/4/8 symbols per byte when the alphabet has <= 16 members ---

func packWidth(nsym int) (bits, perByte int) {
	switch {
	case nsym <= 2:
		return 1, 8
	case nsym <= 4:
		return 2, 4
	default:
		return 4, 2
	}
}

func compressPack(in []byte, opts Options) ([]byte, error) {
	var present [256]bool
	var alphabet []byte
	for _, b := range in {
		if !present[b] {
			present[b] = true
			alphabet = append(alphabet, b)
		}
	}
	nsym := len(alphabet)
	if nsym == 0 || nsym > 16 {
		return nil, fmt.Errorf("%w: pack requires 1..16 symbols, got %d", ErrReject, nsym)
	}
	var code [256]byte
	for i, s := range alphabet {
		code[s] = byte(i)
	}
	nbits, perByte := packWidth(nsym)

	packed := make([]byte, 0, (len(in)+perByte-1)/perByte)
	for i := 0; i < len(in); i += perByte {
		var b byte
		for k := 0; k < perByte && i+k < len(in); k++ {
			b |= code[in[i+k]] << (uint(k) * uint(nbits))
		}
		packed = append(packed, b)
	}

	sub, err := Compress(packed, Options{Order: opts.Order, AllowRLE: opts.AllowRLE, AllowCat: true})
	if err != nil {
		return nil, err
	}

	out := []byte{byte(opts.Order) | packBit, byte(nbits), byte(nsym)}
	out = append(out, alphabet...)
	out = appendUvarint(out, uint64(len(packed)))
	out = appendUvarint(out, uint64(len(sub)))
	out = append(out, sub...)
	return out, nil
}

func uncompressPack(body []byte, expectedSize int) ([]byte, error) {
	if len(body) < 2 {
		return nil, fmt.Errorf("%w: truncated pack meta", ErrReject)
	}
	nbits := int(body[0])
	nsym := int(body[1])
	pos := 2
	if nsym == 0 || pos+nsym > len(body) {
		return nil, fmt.Errorf("%w: truncated pack alphabet", ErrReject)
	}
	alphabet := body[pos : pos+nsym]
	pos += nsym
	packedLen, n := readUvarint(body[pos:])
	if n == 0 {
		return nil, fmt.Errorf("%w: bad pack packed-length varint", ErrReject)
	}
	pos += n
	subLen, n := readUvarint(body[pos:])
	if n == 0 {
		return nil, fmt.Errorf("%w: bad pack sub-length varint", ErrReject)
	}
	pos += n
	if pos+int(subLen) > len(body) {
		return nil, fmt.Errorf("%w: truncated pack payload", ErrReject)
	}
	packed, err := Uncompress(body[pos:pos+int(subLen)], int(packedLen))
	if err != nil {
		return nil, err
	}
	perByte := 8 / nbits
	mask := byte(1<<uint(nbits)) - 1
	out := make([]byte, 0, expectedSize)
	for _, b := range packed {
		for k := 0; k < perByte && len(out) < expectedSize; k++ {
			idx := (b >> (uint(k) * uint(nbits))) & mask
			if int(idx) >= len(alphabet) {
				return nil, fmt.Errorf("%w: pack symbol index out of range", ErrReject)
			}
			out = append(out, alphabet[idx])
		}
	}
	if len(out) != expectedSize {
		return nil, fmt.Errorf("%w: pack produced %d bytes, want %d", ErrReject, len(out), expectedSize)
	}
	return out, nil
}

// --- RLE: run-length pre-transform, interleaving literal and run streams ---

func compressRLE(in []byte, opts Options) ([]byte, error) {
	var saved [256]int
	for i := 0; i < len(in); {
		j := i + 1
		for j < len(in) && in[j] == in[i] {
			j++
		}
		if n := j - i; n > 1 {
			saved[in[i]] += n - 2
		}
		i = j
	}
	var chosen []byte
	for s := 0; s < 256; s++ {
		if saved[s] > 0 {
			chosen = append(chosen, byte(s))
		}
	}
	if len(chosen) == 0 {
		return nil, fmt.Errorf("%w: no symbols benefit from RLE", ErrReject)
	}
	var isChosen [256]bool
	for _, s := range chosen {
		isChosen[s] = true
	}

	var lits, runs []byte
	for i := 0; i < len(in); {
		b := in[i]
		j := i + 1
		for j < len(in) && in[j] == b {
			j++
		}
		n := j - i
		lits = append(lits, b)
		if isChosen[b] {
			runs = appendUvarint(runs, uint64(n-1))
		}
		i = j
	}

	sub, err := Compress(lits, Options{Order: opts.Order, AllowPack: opts.AllowPack, AllowCat: true})
	if err != nil {
		return nil, err
	}

	out := []byte{byte(opts.Order) | rleBit, byte(len(chosen))}
	out = append(out, chosen...)
	out = appendUvarint(out, uint64(len(lits)))
	out = appendUvarint(out, uint64(len(sub)))
	out = append(out, sub...)
	out = appendUvarint(out, uint64(len(runs)))
	out = append(out, runs...)
	return out, nil
}

func uncompressRLE(body []byte, expectedSize int) ([]byte, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("%w: truncated RLE meta", ErrReject)
	}
	nChosen := int(body[0])
	pos := 1
	if pos+nChosen > len(body) {
		return nil, fmt.Errorf("%w: truncated RLE chosen-symbol set", ErrReject)
	}
	var isChosen [256]bool
	for _, s := range body[pos : pos+nChosen] {
		isChosen[s] = true
	}
	pos += nChosen

	litsLen, n := readUvarint(body[pos:])
	if n == 0 {
		return nil, fmt.Errorf("%w: bad RLE literal-length varint", ErrReject)
	}
	pos += n
	subLen, n := readUvarint(body[pos:])
	if n == 0 {
		return nil, fmt.Errorf("%w: bad RLE sub-length varint", ErrReject)
	}
	pos += n
	if pos+int(subLen) > len(body) {
		return nil, fmt.Errorf("%w: truncated RLE literal payload", ErrReject)
	}
	lits, err := Uncompress(body[pos:pos+int(subLen)], int(litsLen))
	if err != nil {
		return nil, err
	}
	pos += int(subLen)

	runsLen, n := readUvarint(body[pos:])
	if n == 0 {
		return nil, fmt.Errorf("%w: bad RLE run-length-section varint", ErrReject)
	}
	pos += n
	if pos+int(runsLen) > len(body) {
		return nil, fmt.Errorf("%w: truncated RLE run-length section", ErrReject)
	}
	runs := body[pos : pos+int(runsLen)]

	out := make([]byte, 0, expectedSize)
	rpos := 0
	for _, b := range lits {
		n := 1
		if isChosen[b] {
			rl, nn := readUvarint(runs[rpos:])
			if nn == 0 {
				return nil, fmt.Errorf("%w: truncated RLE run length", ErrReject)
			}
			rpos += nn
			n = int(rl) + 1
		}
		for k := 0; k < n; k++ {
			out = append(out, b)
		}
	}
	if len(out) != expectedSize {
		return nil, fmt.Errorf("%w: RLE produced %d bytes, want %d", ErrReject, len(out), expectedSize)
	}
	return out, nil
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
