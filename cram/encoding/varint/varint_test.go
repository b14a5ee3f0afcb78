// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varint

import "testing"

func TestUvarintRoundTrip(t *testing.T) {
	b := make([]byte, 10)
	vals := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 32, 1<<64 - 1}
	for _, in := range vals {
		n := EncodeUvarint(b, in)
		if want := UvarintLen(in); want != n {
			t.Errorf("Len mismatch for %d: want=%d got=%d", in, want, n)
		}
		out, outn, ok := DecodeUvarint(b[:n])
		if !ok || out != in || outn != n {
			t.Errorf("round trip failed for %d: got=%d n=%d ok=%v", in, out, outn, ok)
		}
	}
}

func TestVarintRoundTrip(t *testing.T) {
	b := make([]byte, 10)
	vals := []int64{0, 1, -1, 127, -127, 1 << 40, -(1 << 40)}
	for _, in := range vals {
		n := EncodeVarint(b, in)
		out, outn, ok := DecodeVarint(b[:n])
		if !ok || out != in || outn != n {
			t.Errorf("round trip failed for %d: got=%d n=%d ok=%v", in, out, outn, ok)
		}
	}
}

func TestForVersion(t *testing.T) {
	vt3 := ForVersion(3)
	b := make([]byte, 9)
	n := vt3.EncodeInt(b, 12345)
	v, _, ok := vt3.DecodeInt(b[:n])
	if !ok || v != 12345 {
		t.Errorf("v3 vtable round trip failed: got=%d ok=%v", v, ok)
	}

	vt4 := ForVersion(4)
	n = vt4.EncodeInt(b, 12345)
	v, _, ok = vt4.DecodeInt(b[:n])
	if !ok || v != 12345 {
		t.Errorf("v4 vtable round trip failed: got=%d ok=%v", v, ok)
	}
}

func TestCRCReader(t *testing.T) {
	vt := ForVersion(3)
	r := NewCRCReader(vt)
	b := make([]byte, 5)
	n := vt.EncodeUint(b, 42)
	_, _, ok := r.Uint(b[:n])
	if !ok {
		t.Fatal("decode failed")
	}
	if r.CRC == 0 {
		t.Error("expected non-zero CRC after consuming bytes")
	}
}
