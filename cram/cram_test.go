// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/biogo/cram/codec"
	"github.com/biogo/cram/metrics"
)

func TestReadDefinition(t *testing.T) {
	tests := []struct {
		bytes [26]byte
		want  definition
		err   error
	}{
		{
			bytes: [26]byte{
				'C', 'R', 'A', 'M',
				3,
				0,
				's', 'h', 'a', '1', '-', '0',
			},
			want: definition{
				Magic:   [4]byte{'C', 'R', 'A', 'M'},
				Version: [2]byte{3, 0},
				ID:      [20]byte{'s', 'h', 'a', '1', '-', '0'},
			},
			err: nil,
		},
		{
			bytes: [26]byte{
				'B', 'A', 'M', 0x1,
				3,
				0,
				's', 'h', 'a', '1', '-', '0',
			},
			want: definition{
				Magic:   [4]byte{'B', 'A', 'M', 0x1},
				Version: [2]byte{3, 0},
				ID:      [20]byte{'s', 'h', 'a', '1', '-', '0'},
			},
			err: errors.New(`cram: format magic: not a cram file: magic bytes "BAM\x01"`),
		},
	}
	for _, test := range tests {
		var got definition
		err := got.readFrom(bytes.NewReader(test.bytes[:]))
		if fmt.Sprint(err) != fmt.Sprint(test.err) {
			t.Errorf("unexpected error return: got: %q want: %q", err, test.err)
		}

		if got != test.want {
			t.Errorf("unexpected cram definition value:\ngot: %#v\nwant:%#v", got, test.want)
		}
	}
}

func TestReadEOFContainer(t *testing.T) {
	var c Container
	err := c.readFrom(bytes.NewReader(cramEOFmarker))
	if err != nil {
		t.Fatalf("failed to read container: %v\n%#v", err, c)
	}
	var b Block
	err = b.readFrom(c.blockData)
	if err != nil {
		t.Fatalf("failed to read block: %v\n%#v", err, b)
	}

	c.blockData = nil
	wantContainer := Container{
		blockLen:  15,
		refID:     -1,
		start:     4542278,
		span:      0,
		nRec:      0,
		recCount:  0,
		bases:     0,
		blocks:    1,
		landmarks: nil,
		crc32:     0x4fd9bd05,
	}
	if !reflect.DeepEqual(c, wantContainer) {
		t.Errorf("unexpected EOF container value:\ngot: %#v\nwant:%#v", c, wantContainer)
	}

	wantBlock := Block{
		method:    codec.Raw,
		typ:       CompressionHeader,
		contentID: 0,
		compSize:  6,
		rawSize:   6,
		data:      []byte{0x01, 0x00, 0x01, 0x00, 0x01, 0x00},
		crc32:     0x4b0163ee,
	}
	if !reflect.DeepEqual(b, wantBlock) {
		t.Errorf("unexpected EOF block value:\ngot: %#v\nwant:%#v", b, wantBlock)
	}
}

func TestHasEOFOnEmbeddedMarker(t *testing.T) {
	r := bytes.NewReader(append([]byte("not a real container but padding"), cramEOFmarker...))
	hasEOF, err := HasEOF(r)
	if err != nil {
		t.Fatalf("failed to read EOF: %v", err)
	}
	if !hasEOF {
		t.Error("failed to identify known EOF block")
	}
}

func TestHasEOFMissing(t *testing.T) {
	r := bytes.NewReader(bytes.Repeat([]byte{0}, 64))
	hasEOF, err := HasEOF(r)
	if err != nil {
		t.Fatalf("failed to read EOF: %v", err)
	}
	if hasEOF {
		t.Error("expected no EOF marker in arbitrary zero bytes")
	}
}

// TestBlockWriteReadRoundTrip exercises spec.md §8 property 2: block
// framing (header, CRC) survives a write/read cycle.
func TestBlockWriteReadRoundTrip(t *testing.T) {
	b := NewBlock(ExternalData, 5)
	b.data = []byte("hello, cram")
	b.rawSize = int32(len(b.data))
	b.compSize = b.rawSize

	var buf bytes.Buffer
	if err := b.writeTo(&buf); err != nil {
		t.Fatalf("writeTo: %v", err)
	}

	var got Block
	if err := got.readFrom(&buf); err != nil {
		t.Fatalf("readFrom: %v", err)
	}
	if !bytes.Equal(got.data, b.data) {
		t.Errorf("data mismatch: got %q want %q", got.data, b.data)
	}
	if got.method != codec.Raw || got.typ != ExternalData || got.contentID != 5 {
		t.Errorf("unexpected block framing: %#v", got)
	}
}

// TestBlockCompressUncompressRoundTrip exercises spec.md §8 property 1
// for the driver as a whole, across a method mask wide enough to invoke
// the metrics trial/lock path.
func TestBlockCompressUncompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("ACGTACGTACGTACGT"), 64)
	opts := DefaultOptions()
	opts.UseArith = true
	opts.UseTok = false

	m := NewMetrics(opts.MethodMask())
	b := NewBlock(ExternalData, 1)
	b.data = append([]byte(nil), payload...)
	b.rawSize = int32(len(payload))
	b.compSize = b.rawSize
	b.SetMetrics(m)

	if err := b.Compress(opts.MethodMask(), opts.Level, nil); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if b.method == codec.Raw {
		t.Errorf("expected a non-RAW method for a compressible repeating payload, got RAW")
	}

	var buf bytes.Buffer
	if err := b.writeTo(&buf); err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	var got Block
	if err := got.readFrom(&buf); err != nil {
		t.Fatalf("readFrom: %v", err)
	}
	if err := got.Uncompress(nil); err != nil {
		t.Fatalf("Uncompress: %v", err)
	}
	if !bytes.Equal(got.data, payload) {
		t.Errorf("round trip mismatch: got %d bytes want %d bytes", len(got.data), len(payload))
	}
	if got.method != codec.Raw {
		t.Errorf("expected block to be RAW after Uncompress, got %v", got.method)
	}
}

// TestBlockCompressEmptyIsRaw covers spec.md §8's boundary case: an
// empty block always compresses to RAW.
func TestBlockCompressEmptyIsRaw(t *testing.T) {
	b := NewBlock(ExternalData, 2)
	if err := b.Compress(DefaultOptions().MethodMask(), 5, nil); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if b.method != codec.Raw || b.compSize != 0 || b.rawSize != 0 {
		t.Errorf("expected an empty block to stay RAW, got method=%v comp=%d raw=%d", b.method, b.compSize, b.rawSize)
	}
}

func TestResetMetricsWrapsMetricsResetAll(t *testing.T) {
	mask := DefaultOptions().MethodMask() | 1<<codec.Fqz
	a := NewMetrics(mask)
	a.RecordTrial(codec.Rans, 10)
	a.RecordTrial(codec.Fqz, 1000)
	a.Finish(5)

	dropped := true
	for _, c := range a.Candidates(mask) {
		if c == codec.Fqz {
			dropped = false
		}
	}
	if dropped == false {
		t.Skip("fqzcomp was not dropped by the losing trial; nothing for ResetMetrics to restore")
	}

	ResetMetrics(a)
	restored := false
	for _, c := range a.Candidates(mask) {
		if c == codec.Fqz {
			restored = true
		}
	}
	if !restored {
		t.Error("ResetMetrics should restore fqzcomp to the candidate set")
	}
}

var _ = metrics.NTrials // keep the metrics import honest if the test above changes shape

// TestCompressUncompressBlocksBounded exercises the bounded worker pool
// (spec.md §5's scheduling model): many independent blocks compressed and
// then decompressed concurrently must round trip exactly like the serial
// per-block path.
func TestCompressUncompressBlocksBounded(t *testing.T) {
	const n = 12
	blocks := make([]*Block, n)
	want := make([][]byte, n)
	for i := range blocks {
		payload := bytes.Repeat([]byte{byte('A' + i%4)}, 200+i)
		want[i] = append([]byte(nil), payload...)
		b := NewBlock(ExternalData, int32(i))
		b.data = payload
		b.rawSize = int32(len(payload))
		b.compSize = b.rawSize
		blocks[i] = b
	}

	if err := CompressBlocks(blocks, DefaultOptions().MethodMask(), 5, nil, 3); err != nil {
		t.Fatalf("CompressBlocks: %v", err)
	}
	for i, b := range blocks {
		if b.method == codec.Raw && len(want[i]) > 16 {
			t.Errorf("block %d: expected a non-RAW method for a repetitive payload", i)
		}
	}

	if err := UncompressBlocks(blocks, nil, 3); err != nil {
		t.Fatalf("UncompressBlocks: %v", err)
	}
	for i, b := range blocks {
		if !bytes.Equal(b.data, want[i]) {
			t.Errorf("block %d: round trip mismatch: got %d bytes want %d bytes", i, len(b.data), len(want[i]))
		}
		if b.method != codec.Raw {
			t.Errorf("block %d: expected RAW after Uncompress, got %v", i, b.method)
		}
	}
}
