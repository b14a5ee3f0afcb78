// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package external wraps the general-purpose compressors a CRAM EXTERNAL
// block may carry: gzip, bzip2, LZMA, Zstandard and BSC. Decoders for the
// widely interoperable formats lean on the standard library the way
// github.com/biogo/hts/cram does; encoders and the Zstandard codec reach
// into the third-party libraries the wider example pack uses for them.
package external

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sync"

	bz2 "github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz/lzma"
)

// Method identifies a general-purpose compressor. Raw through LZMA have
// the CRAM block header's method byte values (spec.md §4.2 / §4.9); Zstd
// and BSC are numbered locally and differ from codec.Zstd and codec.Bsc.
type Method byte

const (
	Raw Method = iota
	Gzip
	Bzip2
	LZMA
	Zstd
	BSC
)

func (m Method) String() string {
	switch m {
	case Raw:
		return "raw"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case LZMA:
		return "lzma"
	case Zstd:
		return "zstd"
	case BSC:
		return "bsc"
	default:
		return fmt.Sprintf("external.Method(%d)", m)
	}
}

// Compress encodes in using the named general-purpose method.
func Compress(m Method, in []byte) ([]byte, error) {
	switch m {
	case Raw:
		out := make([]byte, len(in))
		copy(out, in)
		return out, nil
	case Gzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(in); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Bzip2:
		var buf bytes.Buffer
		w, err := bz2.NewWriter(&buf, nil)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(in); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case LZMA:
		var buf bytes.Buffer
		w, err := lzma.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(in); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Zstd:
		return zstdCompress(in)
	case BSC:
		return bscCompress(in)
	default:
		return nil, fmt.Errorf("external: unknown method %v", m)
	}
}

// Uncompress decodes in, produced by Compress with the same method.
func Uncompress(m Method, in []byte) ([]byte, error) {
	switch m {
	case Raw:
		out := make([]byte, len(in))
		copy(out, in)
		return out, nil
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case Bzip2:
		r, err := bz2.NewReader(bytes.NewReader(in), nil)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case LZMA:
		r, err := lzma.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case Zstd:
		return zstdUncompress(in)
	case BSC:
		return bscUncompress(in)
	default:
		return nil, fmt.Errorf("external: unknown method %v", m)
	}
}

// zstdEncoderPool and zstdDecoderPool amortise the warmup cost the
// klauspost/compress/zstd docs call out: encoders and decoders are
// designed to be reused, not constructed per call.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("external: failed to create zstd encoder: %v", err))
		}
		return enc
	},
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("external: failed to create zstd decoder: %v", err))
		}
		return dec
	},
}

func zstdCompress(in []byte) ([]byte, error) {
	enc := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(in, nil), nil
}

func zstdUncompress(in []byte) ([]byte, error) {
	dec := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(dec)
	out, err := dec.DecodeAll(in, nil)
	if err != nil {
		return nil, fmt.Errorf("external: zstd decompression failed: %w", err)
	}
	return out, nil
}
