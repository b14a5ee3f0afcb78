// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rangecoder

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestModelRoundTrip(t *testing.T) {
	tests := [][]byte{
		nil,
		[]byte("A"),
		[]byte("AAAAAAAAAAAAAAAAAAAA"),
		[]byte("ACGTACGTACGTACGTACGTACGTACGTACGT"),
	}
	r := rand.New(rand.NewSource(1))
	big := make([]byte, 10000)
	for i := range big {
		big[i] = byte(r.Intn(4))
	}
	tests = append(tests, big)

	for _, in := range tests {
		enc := NewEncoder()
		m := NewModel(256)
		for _, b := range in {
			m.EncodeSymbol(enc, uint16(b))
		}
		out := enc.Finish()

		dec := NewDecoder(out)
		dm := NewModel(256)
		got := make([]byte, len(in))
		for i := range got {
			got[i] = byte(dm.DecodeSymbol(dec))
		}
		if !bytes.Equal(got, in) {
			t.Errorf("round trip failed: got %v want %v", got, in)
		}
	}
}

func TestModelNormalize(t *testing.T) {
	enc := NewEncoder()
	m := NewModel(4)
	for i := 0; i < 20000; i++ {
		m.EncodeSymbol(enc, uint16(i%4))
	}
	if m.totFreq > maxFreq {
		t.Errorf("totFreq %d exceeds maxFreq %d after many encodes", m.totFreq, maxFreq)
	}
}
