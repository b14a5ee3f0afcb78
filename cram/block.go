// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/biogo/cram/codec"
	"github.com/biogo/cram/metrics"
	"github.com/biogo/cram/sam"
)

// ContentType names the kind of data a Block carries, per CRAM spec
// section 8.
type ContentType byte

const (
	FileHeader ContentType = iota
	CompressionHeader
	MappedSliceHeader
	UnmappedSliceHeader // reserved in the wire format; not emitted
	ExternalData
	CoreData
)

func (t ContentType) String() string {
	switch t {
	case FileHeader:
		return "FILE_HEADER"
	case CompressionHeader:
		return "COMPRESSION_HEADER"
	case MappedSliceHeader:
		return "MAPPED_SLICE_HEADER"
	case UnmappedSliceHeader:
		return "UNMAPPED_SLICE_HEADER"
	case ExternalData:
		return "EXTERNAL"
	case CoreData:
		return "CORE"
	default:
		return fmt.Sprintf("ContentType(%d)", byte(t))
	}
}

// Block is a CRAM block: the atomic compressed unit described by CRAM spec
// section 8. method determines which of compSize/rawSize governs data: for
// codec.Raw they are equal.
type Block struct {
	method    codec.Method
	typ       ContentType
	contentID int32
	compSize  int32
	rawSize   int32
	data      []byte
	crc32     uint32

	metrics *metrics.Metrics
}

// NewBlock returns an empty, RAW block of the given content type and id.
func NewBlock(typ ContentType, contentID int32) *Block {
	return &Block{typ: typ, contentID: contentID, method: codec.Raw}
}

// Method returns the block's current wire method tag.
func (b *Block) Method() codec.Method { return b.method }

// ContentType returns the block's content type.
func (b *Block) ContentType() ContentType { return b.typ }

// ContentID returns the block's content id (data series id, or an aux-tag
// triplet hash).
func (b *Block) ContentID() int32 { return b.contentID }

// Data returns the block's current payload: compressed bytes if Method is
// not RAW, raw bytes otherwise.
func (b *Block) Data() []byte { return b.data }

// SetMetrics installs the column metrics object the driver consults when
// compressing this block, or nil to compress without auto-tuning.
func (b *Block) SetMetrics(m *metrics.Metrics) { b.metrics = m }

// readFrom fills a Block from the given io.Reader, checking that the CRC32
// for the block is correct.
func (b *Block) readFrom(r io.Reader) error {
	crc := crc32.NewIEEE()
	er := errorReader{r: io.TeeReader(r, crc)}
	var buf [4]byte
	io.ReadFull(&er, buf[:2])
	b.method = codec.Method(buf[0])
	b.typ = ContentType(buf[1])
	b.contentID = er.itf8()
	b.compSize = er.itf8()
	b.rawSize = er.itf8()
	if er.err != nil {
		return wrapErr(Io, er.err)
	}
	if b.method == codec.Raw && b.compSize != b.rawSize {
		return wrapErr(FormatFraming, fmt.Errorf("compressed (%d) != raw (%d) size for raw method", b.compSize, b.rawSize))
	}
	// The spec says T[] is {itf8, element...}. This is not true for
	// byte[] according to the EOF block.
	b.data = make([]byte, b.compSize)
	_, err := io.ReadFull(&er, b.data)
	if err != nil {
		return wrapErr(Io, err)
	}
	sum := crc.Sum32()
	_, err = io.ReadFull(&er, buf[:])
	if err != nil {
		return wrapErr(Io, err)
	}
	b.crc32 = binary.LittleEndian.Uint32(buf[:])
	if b.crc32 != sum {
		return wrapErr(CrcMismatch, fmt.Errorf("block crc32 mismatch got:0x%08x want:0x%08x", sum, b.crc32))
	}
	return nil
}

// writeTo frames the block onto w: method/type bytes, itf8-encoded
// content-id/comp-size/raw-size, payload, trailing CRC32 over all of the
// above.
func (b *Block) writeTo(w io.Writer) error {
	var hdr bytes.Buffer
	hdr.WriteByte(byte(b.method))
	hdr.WriteByte(byte(b.typ))
	writeITF8(&hdr, b.contentID)
	writeITF8(&hdr, b.compSize)
	writeITF8(&hdr, b.rawSize)

	crc := crc32.NewIEEE()
	crc.Write(hdr.Bytes())
	crc.Write(b.data)

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return wrapErr(Io, err)
	}
	if _, err := w.Write(b.data); err != nil {
		return wrapErr(Io, err)
	}
	var tail [4]byte
	binary.LittleEndian.PutUint32(tail[:], crc.Sum32())
	if _, err := w.Write(tail[:]); err != nil {
		return wrapErr(Io, err)
	}
	return nil
}

// Compress replaces the block's payload with its compressed form, chosen
// per mask/level (and m, if non-nil) per CRAM spec section 4.11. s carries
// the record-level context some codecs (fqzcomp, the name tokeniser) need;
// it may be nil for columns no registered codec inspects.
func (b *Block) Compress(mask uint32, level int, s codec.Slice) error {
	return compressBlock(b, b.metrics, mask, level, s)
}

// Uncompress decompresses the block in place, converting it to RAW. CRC
// verification already happened in readFrom; Uncompress only checks that
// the decoded size matches the declared rawSize.
func (b *Block) Uncompress(s codec.Slice) error {
	return uncompressBlock(b, s)
}

// Value returns the block's decoded content for the content types this
// package understands natively (the SAM text header and the mapped-slice
// header); for every other content type it decompresses the payload (for
// the widely interoperable general-purpose methods) and returns the block
// itself.
func (b *Block) Value() (interface{}, error) {
	switch b.typ {
	case FileHeader:
		var h sam.Header
		data, err := b.expandBlockdata()
		if err != nil {
			return nil, err
		}
		if len(data) < 4 {
			return nil, wrapErr(FormatFraming, fmt.Errorf("truncated file header block"))
		}
		end := binary.LittleEndian.Uint32(data[:4])
		if uint32(len(data)) < 4+end {
			return nil, wrapErr(FormatFraming, fmt.Errorf("truncated file header text"))
		}
		if err := h.UnmarshalText(data[4 : 4+end]); err != nil {
			return nil, err
		}
		return &h, nil
	case MappedSliceHeader:
		var s Slice
		if err := s.readFrom(bytes.NewReader(b.data)); err != nil {
			return nil, err
		}
		return &s, nil
	default:
		switch b.method {
		case codec.Gzip, codec.Bzip2, codec.LZMA:
			data, err := b.expandBlockdata()
			if err != nil {
				return nil, err
			}
			b.data = data
			b.method = codec.Raw
			b.compSize = b.rawSize
		}
		return b, nil
	}
}

// expandBlockdata decompresses the block's payload using a general-purpose
// method without mutating the block, for callers (Value) that only need a
// peek at the decoded bytes.
func (b *Block) expandBlockdata() ([]byte, error) {
	if b.method == codec.Raw {
		return b.data, nil
	}
	d, ok := codec.Lookup(b.method)
	if !ok {
		return nil, wrapErr(FormatFraming, fmt.Errorf("unknown method: %v", b.method))
	}
	out, err := d.Uncompress(nil, b.data, int(b.rawSize))
	if err != nil {
		return nil, wrapErr(CodecReject, err)
	}
	return out, nil
}
