// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"fmt"
	"io"

	"github.com/biogo/cram/encoding/itf8"
	"github.com/biogo/cram/encoding/ltf8"
)

// errorReader is a sticky-error io.Reader: once a Read call fails, every
// subsequent Read returns the same error without touching the underlying
// reader. The itf8/ltf8 helpers below rely on this to let a long chain of
// varint reads skip individual error checks and be checked once at the end.
type errorReader struct {
	r   io.Reader
	err error
}

// Read implements the io.Reader interface.
func (r *errorReader) Read(b []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	var n int
	n, r.err = r.r.Read(b)
	return n, r.err
}

// itf8 returns the ITF-8 encoded number at the current reader position.
func (r *errorReader) itf8() int32 {
	var buf [5]byte
	_, r.err = io.ReadFull(r, buf[:1])
	if r.err != nil {
		return 0
	}
	i, n, ok := itf8.Decode(buf[:1])
	if ok {
		return i
	}
	_, r.err = io.ReadFull(r, buf[1:n])
	if r.err != nil {
		return 0
	}
	i, _, ok = itf8.Decode(buf[:n])
	if !ok {
		r.err = fmt.Errorf("cram: failed to decode itf-8 stream %#v", buf[:n])
	}
	return i
}

// itf8slice returns the n[ITF-8] encoded numbers at the current reader
// position where n is an ITF-8 encoded number.
func (r *errorReader) itf8slice() []int32 {
	n := r.itf8()
	if r.err != nil {
		return nil
	}
	if n == 0 {
		return nil
	}
	s := make([]int32, n)
	for i := range s {
		s[i] = r.itf8()
		if r.err != nil {
			return s[:i]
		}
	}
	return s
}

// ltf8 returns the LTF-8 encoded number at the current reader position.
func (r *errorReader) ltf8() int64 {
	var buf [9]byte
	_, r.err = io.ReadFull(r, buf[:1])
	if r.err != nil {
		return 0
	}
	i, n, ok := ltf8.Decode(buf[:1])
	if ok {
		return i
	}
	_, r.err = io.ReadFull(r, buf[1:n])
	if r.err != nil {
		return 0
	}
	i, _, ok = ltf8.Decode(buf[:n])
	if !ok {
		r.err = fmt.Errorf("cram: failed to decode ltf-8 stream %#v", buf[:n])
	}
	return i
}

// writeITF8 appends v to buf in ITF-8 encoding.
func writeITF8(buf *bytes.Buffer, v int32) {
	var b [5]byte
	n := itf8.Encode(b[:], v)
	buf.Write(b[:n])
}

// writeLTF8 appends v to buf in LTF-8 encoding.
func writeLTF8(buf *bytes.Buffer, v int64) {
	var b [9]byte
	n := ltf8.Encode(b[:], v)
	buf.Write(b[:n])
}

// writeITF8Slice appends len(v) as an ITF-8 count followed by each element
// in ITF-8 encoding, mirroring itf8slice's T[] = {itf8, element...} shape.
func writeITF8Slice(buf *bytes.Buffer, v []int32) {
	writeITF8(buf, int32(len(v)))
	for _, x := range v {
		writeITF8(buf, x)
	}
}
