// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package external

import (
	"bytes"
	"math/rand"
	"testing"
)

func roundTrip(t *testing.T, m Method, in []byte) {
	t.Helper()
	out, err := Compress(m, in)
	if err != nil {
		t.Fatalf("%v Compress: %v", m, err)
	}
	got, err := Uncompress(m, out)
	if err != nil {
		t.Fatalf("%v Uncompress: %v", m, err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("%v round trip mismatch: got %v want %v", m, got, in)
	}
}

func TestRoundTripAllMethods(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	text := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	random := make([]byte, 4096)
	r.Read(random)

	for _, m := range []Method{Raw, Gzip, Bzip2, LZMA, Zstd, BSC} {
		roundTrip(t, m, nil)
		roundTrip(t, m, []byte("x"))
		roundTrip(t, m, text)
		roundTrip(t, m, random)
	}
}

func TestMethodString(t *testing.T) {
	cases := map[Method]string{
		Raw: "raw", Gzip: "gzip", Bzip2: "bzip2", LZMA: "lzma", Zstd: "zstd", BSC: "bsc",
	}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Errorf("Method(%d).String() = %q, want %q", m, got, want)
		}
	}
}

func TestBWTRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("a"),
		[]byte("banana"),
		[]byte("abracadabra"),
		bytes.Repeat([]byte("mississippi"), 10),
	}
	for _, in := range cases {
		bwt, idx := bwtForward(in)
		got := bwtInverse(bwt, idx)
		if !bytes.Equal(got, in) {
			t.Errorf("BWT round trip failed for %q: got %q", in, got)
		}
	}
}

func TestMTFRoundTrip(t *testing.T) {
	in := []byte("abcabcabcxyzxyz")
	got := mtfDecode(mtfEncode(in))
	if !bytes.Equal(got, in) {
		t.Errorf("MTF round trip failed: got %q want %q", got, in)
	}
}

func TestRLE0RoundTrip(t *testing.T) {
	in := []byte{0, 0, 0, 5, 0, 0, 1, 1, 1, 0, 0, 0, 0, 0, 255, 255, 0}
	got := rle0Decode(rle0Encode(in))
	if !bytes.Equal(got, in) {
		t.Errorf("RLE0 round trip failed: got %v want %v", got, in)
	}
}
