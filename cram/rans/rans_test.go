// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rans

import (
	"bytes"
	"math/rand"
	"strings"
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
		t.Errorf("expected a 1-byte RAW/CAT marker for empty input, got %d bytes", len(out))
	}
}

func TestRoundTripSingleSymbol(t *testing.T) {
	in := bytes.Repeat([]byte{'A'}, 20)
	roundTrip(t, in, DefaultOptions(Order0))
	roundTrip(t, in, DefaultOptions(Order1))
}

func TestRoundTripSmallAlphabetOrder0(t *testing.T) {
	in := bytes.Repeat([]byte("ACGTACGTACGTACGT"), 64)
	out := roundTrip(t, in, DefaultOptions(Order0))
	if len(out) >= len(in) {
		t.Errorf("expected compression on a 2-bit alphabet, got %d >= %d", len(out), len(in))
	}
}

func TestRoundTripOrder1(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	in := make([]byte, 5000)
	// Biased Markov-ish source: mostly repeats previous symbol.
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
	r := rand.New(rand.NewSource(3))
	in := make([]byte, 65536)
	r.Read(in)
	roundTrip(t, in, DefaultOptions(Order0))
}

func TestRoundTripStripe(t *testing.T) {
	in := bytes.Repeat([]byte("WXYZ"), 64) // len 256, %4==0, >20
	roundTrip(t, in, DefaultOptions(Order0))
}

func TestOrder1ShortInputRoundTrips(t *testing.T) {
	// Inputs shorter than 4 bytes can't support a useful order-1 context
	// table; Compress is expected to fall back internally (to order-0 or
	// CAT) rather than error, and still round trip correctly.
	in := []byte{1, 2}
	roundTrip(t, in, DefaultOptions(Order1))
}

func TestReadName17DistinctSymbols(t *testing.T) {
	// 17 distinct symbols: PACK must not be selected by Compress (the
	// driver's metrics layer is responsible for vetoing it above 16, but
	// Compress itself must still never pick PACK for such an alphabet).
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

func TestNameBatch(t *testing.T) {
	in := []byte(strings.Repeat("r0001\nr0002\nr0003\n", 1000))
	roundTrip(t, in, DefaultOptions(Order1))
}
