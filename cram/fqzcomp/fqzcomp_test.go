// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fqzcomp

import (
	"bytes"
	"math/rand"
	"testing"
)

type fakeSlice struct {
	lens     []int
	reversed []bool
}

func (s fakeSlice) NumRecords() int          { return len(s.lens) }
func (s fakeSlice) RecordLen(i int) int      { return s.lens[i] }
func (s fakeSlice) RecordReverse(i int) bool { return i < len(s.reversed) && s.reversed[i] }

func roundTrip(t *testing.T, in []byte, s fakeSlice) []byte {
	t.Helper()
	out, err := Compress(5, s, in)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := Uncompress(s, out, len(in))
	if err != nil {
		t.Fatalf("Uncompress: %v", err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("round trip mismatch: got %v want %v", got, in)
	}
	return out
}

func TestRoundTripEmpty(t *testing.T) {
	roundTrip(t, nil, fakeSlice{})
}

func TestRoundTripSingleRecord(t *testing.T) {
	in := bytes.Repeat([]byte{30, 31, 32, 33, 34, 35}, 20)
	roundTrip(t, in, fakeSlice{lens: []int{len(in)}})
}

func TestRoundTripMultiRecord(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	var in []byte
	var lens []int
	var reversed []bool
	for i := 0; i < 50; i++ {
		n := 50 + r.Intn(50)
		rec := make([]byte, n)
		q := byte(30)
		for j := range rec {
			if r.Intn(3) == 0 {
				q = byte(clip(int(q)+r.Intn(5)-2, 40))
			}
			rec[j] = q
		}
		in = append(in, rec...)
		lens = append(lens, n)
		reversed = append(reversed, i%3 == 0)
	}
	out := roundTrip(t, in, fakeSlice{lens: lens, reversed: reversed})
	if len(out) >= len(in) {
		t.Errorf("expected compression on a low-entropy quality stream, got %d >= %d", len(out), len(in))
	}
}

func TestUncompressIgnoresMismatchedSlice(t *testing.T) {
	in := bytes.Repeat([]byte{10, 20, 30}, 30)
	out, err := Compress(5, fakeSlice{lens: []int{len(in)}}, in)
	if err != nil {
		t.Fatal(err)
	}
	// Uncompress rebuilds record boundaries from the stream and does not
	// consult the slice it is given, so decoding against a different
	// record layout must still succeed.
	_, err = Uncompress(fakeSlice{lens: []int{len(in) / 2, len(in) / 2}}, out, len(in))
	if err != nil {
		t.Fatalf("Uncompress should not error on a mismatched but structurally valid slice: %v", err)
	}
}
