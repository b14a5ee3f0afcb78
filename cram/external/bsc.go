// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package external

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/biogo/cram/rans"
)

// bscCompress approximates libbsc's blocksort (BWT) + MTF + RLE + entropy
// pipeline. No pure-Go binding to libbsc exists (it is a C++-only
// library; see original_source/codec_src/cram_codec_bsc.cpp), so this
// hand-rolls the same family of transforms, finishing with this module's
// own order-0 rANS stage rather than libbsc's QLFC entropy coder.
func bscCompress(in []byte) ([]byte, error) {
	if len(in) == 0 {
		return []byte{0, 0, 0, 0}, nil
	}
	bwt, idx := bwtForward(in)
	mtf := mtfEncode(bwt)
	rle := rle0Encode(mtf)
	body, err := rans.Compress(rle, rans.DefaultOptions(rans.Order0))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4, 4+4+len(body))
	binary.LittleEndian.PutUint32(out, uint32(idx))
	out = appendUint32(out, uint32(len(rle)))
	out = append(out, body...)
	return out, nil
}

func bscUncompress(in []byte) ([]byte, error) {
	if len(in) < 4 {
		return nil, fmt.Errorf("external: truncated bsc header")
	}
	idx := int(binary.LittleEndian.Uint32(in))
	if len(in) == 4 {
		return nil, nil
	}
	if len(in) < 8 {
		return nil, fmt.Errorf("external: truncated bsc header")
	}
	rleLen := int(binary.LittleEndian.Uint32(in[4:]))
	rle, err := rans.Uncompress(in[8:], rleLen)
	if err != nil {
		return nil, err
	}
	mtf := rle0Decode(rle)
	bwt := mtfDecode(mtf)
	return bwtInverse(bwt, idx), nil
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

// bwtForward computes the Burrows-Wheeler transform of in by sorting all
// rotations; it returns the transformed bytes and the row index of the
// original string within the sorted rotation list.
func bwtForward(in []byte) ([]byte, int) {
	n := len(in)
	doubled := append(append([]byte{}, in...), in...)
	rotIdx := make([]int, n)
	for i := range rotIdx {
		rotIdx[i] = i
	}
	sort.Slice(rotIdx, func(a, b int) bool {
		ra := doubled[rotIdx[a] : rotIdx[a]+n]
		rb := doubled[rotIdx[b] : rotIdx[b]+n]
		for k := 0; k < n; k++ {
			if ra[k] != rb[k] {
				return ra[k] < rb[k]
			}
		}
		return rotIdx[a] < rotIdx[b]
	})
	out := make([]byte, n)
	orig := -1
	for i, r := range rotIdx {
		out[i] = doubled[r+n-1]
		if r == 0 {
			orig = i
		}
	}
	return out, orig
}

// bwtInverse reconstructs the original bytes from a BWT column and the
// row index of the original rotation, using the standard LF-mapping
// reconstruction.
func bwtInverse(bwt []byte, idx int) []byte {
	n := len(bwt)
	if n == 0 {
		return nil
	}
	count := [256]int{}
	for _, b := range bwt {
		count[b]++
	}
	var base [256]int
	sum := 0
	for s := 0; s < 256; s++ {
		base[s] = sum
		sum += count[s]
	}
	next := make([]int, n)
	occ := [256]int{}
	for i, b := range bwt {
		next[i] = base[b] + occ[b]
		occ[b]++
	}
	out := make([]byte, n)
	row := idx
	for i := n - 1; i >= 0; i-- {
		out[i] = bwt[row]
		row = next[row]
	}
	return out
}

// mtfEncode applies a move-to-front transform over the byte alphabet.
func mtfEncode(in []byte) []byte {
	var table [256]byte
	for i := range table {
		table[i] = byte(i)
	}
	out := make([]byte, len(in))
	for i, b := range in {
		pos := 0
		for table[pos] != b {
			pos++
		}
		out[i] = byte(pos)
		copy(table[1:pos+1], table[:pos])
		table[0] = b
	}
	return out
}

func mtfDecode(in []byte) []byte {
	var table [256]byte
	for i := range table {
		table[i] = byte(i)
	}
	out := make([]byte, len(in))
	for i, p := range in {
		b := table[p]
		out[i] = b
		copy(table[1:int(p)+1], table[:p])
		table[0] = b
	}
	return out
}

// rle0Encode applies a zero-run-length transform: each run of n zero
// bytes (n>0) is replaced by a single 0 byte followed by a varint run
// length. Every non-zero byte passes through unchanged; a literal 0
// never appears on its own because any 0 byte is always the start of a
// (possibly length-1) run, so 0 is unambiguous as the run marker without
// needing to shift the rest of the alphabet (which would overflow for
// the input byte 255).
func rle0Encode(in []byte) []byte {
	var out []byte
	for i := 0; i < len(in); {
		if in[i] == 0 {
			j := i
			for j < len(in) && in[j] == 0 {
				j++
			}
			out = append(out, 0)
			out = appendUvarintBSC(out, uint64(j-i))
			i = j
			continue
		}
		out = append(out, in[i])
		i++
	}
	return out
}

func rle0Decode(in []byte) []byte {
	var out []byte
	for i := 0; i < len(in); {
		if in[i] == 0 {
			n, sz := readUvarintBSC(in[i+1:])
			out = append(out, make([]byte, n)...)
			i += 1 + sz
			continue
		}
		out = append(out, in[i])
		i++
	}
	return out
}

func appendUvarintBSC(b []byte, v uint64) []byte {
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

func readUvarintBSC(b []byte) (uint64, int) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, 0
	}
	return v, n
}
