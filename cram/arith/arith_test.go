// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arith

import (
	"bytes"
	"math/rand"
	"testing"
)

func roundTrip(t *testing.T, in []byte, opts Options) []byte {
	t.Helper()
	out, err := Compress(in, opts)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := Uncompress(out, len(in))
	if err != nil {
		t.Fatalf("Uncompress: %v", err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("round trip mismatch: got %v want %v", got, in)
	}
	return out
}

func TestRoundTripEmpty(t *testing.T) {
	out := roundTrip(t, nil, DefaultOptions(Order0))
	if len(out) != 1 {
		t.Errorf("expected a 1-byte CAT marker for empty input, got %d bytes", len(out))
	}
}

func TestRoundTripOrder0(t *testing.T) {
	in := bytes.Repeat([]byte("ACGTACGTACGT"), 50)
	out := roundTrip(t, in, DefaultOptions(Order0))
	if len(out) >= len(in) {
		t.Errorf("expected compression on a repetitive 4-symbol source, got %d >= %d", len(out), len(in))
	}
}

func TestRoundTripOrder1(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	in := make([]byte, 4000)
	in[0] = byte(r.Intn(4))
	for i := 1; i < len(in); i++ {
		if r.Intn(10) == 0 {
			in[i] = byte(r.Intn(4))
		} else {
			in[i] = in[i-1]
		}
	}
	roundTrip(t, in, DefaultOptions(Order1))
}

func TestRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	in := make([]byte, 8192)
	r.Read(in)
	roundTrip(t, in, DefaultOptions(Order0))
}

func TestRoundTripPackAlphabet(t *testing.T) {
	in := bytes.Repeat([]byte{0, 1, 2, 3}, 200)
	out := roundTrip(t, in, DefaultOptions(Order0))
	if len(out) >= len(in) {
		t.Errorf("expected PACK/entropy to shrink a 4-symbol source, got %d >= %d", len(out), len(in))
	}
}

func TestRoundTripRuns(t *testing.T) {
	var in []byte
	for i := 0; i < 100; i++ {
		in = append(in, bytes.Repeat([]byte{byte('A' + i%5)}, 30)...)
	}
	roundTrip(t, in, DefaultOptions(Order0))
}

func TestRoundTripSingleSymbol(t *testing.T) {
	in := bytes.Repeat([]byte{'Z'}, 50)
	roundTrip(t, in, DefaultOptions(Order0))
	roundTrip(t, in, DefaultOptions(Order1))
}

func Test17DistinctSymbolsSkipsPack(t *testing.T) {
	var in []byte
	for i := 0; i < 17; i++ {
		in = append(in, bytes.Repeat([]byte{byte('A' + i)}, 10)...)
	}
	out, err := Compress(in, DefaultOptions(Order0))
	if err != nil {
		t.Fatal(err)
	}
	if out[0]&packBit != 0 {
		t.Error("PACK should not be chosen for a 17-symbol alphabet")
	}
	got, err := Uncompress(out, len(in))
	if err != nil || !bytes.Equal(got, in) {
		t.Fatalf("round trip failed: got=%v err=%v", got, err)
	}
}
