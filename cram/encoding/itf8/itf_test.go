// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itf8

import "testing"

func TestRoundTrip(t *testing.T) {
	b := make([]byte, 5)
	for i := uint(0); i < 32; i++ {
		for off := -1; off <= 1; off++ {
			in := int32(1<<i + off)
			n := Encode(b, in)
			if want := Len(in); want != n {
				t.Errorf("disagreement in number of encoded bytes required: want=%d got=%d", want, n)
			}
			out, outn, ok := Decode(b[:n])
			if !ok {
				t.Fatalf("failed to decode ITF-8 bytes: %08b", b[:n])
			}
			if outn != n {
				t.Errorf("disagreement in number of encoded bytes: in=%d out=%d", n, outn)
			}
			if out != in {
				t.Errorf("disagreement in encoded value: in=%d (0x%[1]x) out=%d (0x%[2]x)\nencoding=%08b", in, out, b[:n])
			}
		}
	}
}

func TestKnownValues(t *testing.T) {
	tests := []struct {
		bytes []byte
		want  int32
	}{
		{bytes: []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, want: -1},
		{bytes: []byte{0xe0, 0x45, 0x4f, 0x46}, want: 4542278},
		{bytes: []byte{0x00}, want: 0},
		{bytes: []byte{0x7f}, want: 127},
	}

	for _, test := range tests {
		got, n, ok := Decode(test.bytes)
		if !ok {
			t.Fatalf("failed to decode ITF-8 bytes: %08b", test.bytes)
		}
		if n != len(test.bytes) {
			t.Errorf("disagreement in expected number of encoded bytes: n=%d len(b)=%d", n, len(test.bytes))
		}
		if got != test.want {
			t.Errorf("disagreement in encoded value: got=%d want=%d (0x%[2]x)", got, test.want)
		}
	}
}

func TestDecodeCRC(t *testing.T) {
	b := make([]byte, 5)
	n := Encode(b, 4542278)
	var crc uint32
	_, _, ok := DecodeCRC(b[:n], &crc)
	if !ok {
		t.Fatal("failed to decode ITF-8 bytes with CRC accumulation")
	}
	if crc == 0 {
		t.Error("expected non-zero CRC accumulation")
	}
}

func TestShortInput(t *testing.T) {
	_, n, ok := Decode([]byte{0xf0})
	if ok {
		t.Error("expected failure decoding truncated ITF-8 stream")
	}
	if n != 5 {
		t.Errorf("expected required length 5, got %d", n)
	}
}
