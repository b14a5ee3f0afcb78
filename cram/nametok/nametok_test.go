// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nametok

import (
	"fmt"
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, names []string, sc SubCodec) []byte {
	t.Helper()
	out, err := Compress(names, sc, 5)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := Uncompress(out)
	if err != nil {
		t.Fatalf("Uncompress: %v", err)
	}
	if !reflect.DeepEqual(got, names) {
		t.Fatalf("round trip mismatch:\ngot  %v\nwant %v", got, names)
	}
	return out
}

func TestRoundTripEmpty(t *testing.T) {
	roundTrip(t, nil, Tok3)
}

func TestTokenize(t *testing.T) {
	got := tokenize("read.1:1000:2000/1")
	want := []string{"read", ".", "1", ":", "1000", ":", "2000", "/", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize mismatch: got %v want %v", got, want)
	}
}

func TestRoundTripSimpleNames(t *testing.T) {
	var names []string
	for i := 0; i < 500; i++ {
		names = append(names, fmt.Sprintf("read.%d:1000:%d/1", i, 2000+i))
	}
	roundTrip(t, names, Tok3)
}

func TestRoundTripArithSubCodec(t *testing.T) {
	var names []string
	for i := 0; i < 200; i++ {
		names = append(names, fmt.Sprintf("SRR001.%d", i))
	}
	roundTrip(t, names, TokA)
}

func TestRoundTripVariableColumnCount(t *testing.T) {
	names := []string{"read1", "read2/1", "read3/2:extra", "r4"}
	roundTrip(t, names, Tok3)
}

func TestRoundTripConstantNameCompresses(t *testing.T) {
	var names []string
	for i := 0; i < 1000; i++ {
		names = append(names, "instrument:run:flowcell:lane:tile:x:y")
	}
	out := roundTrip(t, names, Tok3)
	total := 0
	for _, n := range names {
		total += len(n)
	}
	if len(out) >= total {
		t.Errorf("expected match-prior to shrink a constant name stream, got %d >= %d", len(out), total)
	}
}
