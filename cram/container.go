// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Reader is a CRAM format reader.
type Reader struct {
	r io.Reader

	d definition
	c *Container

	err error
}

// NewReader returns a new Reader, having already consumed and validated the
// file definition.
func NewReader(r io.Reader) (*Reader, error) {
	cr := Reader{r: r}
	err := cr.d.readFrom(r)
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// Next advances the Reader to the next CRAM container. It returns false
// when the stream ends, either by reaching the end of the stream or
// encountering an error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if r.c != nil {
		io.Copy(io.Discard, r.c.blockData)
	}
	var c Container
	r.err = c.readFrom(r.r)
	r.c = &c
	return r.err == nil
}

// Container returns the current CRAM container. The returned Container is
// only valid after a previous call to Next has returned true.
func (r *Reader) Container() *Container {
	return r.c
}

// Err returns the most recent error.
func (r *Reader) Err() error {
	if errors.Is(r.err, io.EOF) {
		return nil
	}
	return r.err
}

// definition is a CRAM file definition. See CRAM spec section 6.
type definition struct {
	Magic   [4]byte `is:"CRAM"`
	Version [2]byte
	ID      [20]byte
}

// readFrom populates a definition from the given io.Reader. If the magic
// number of the file is not "CRAM" readFrom returns an error.
func (d *definition) readFrom(r io.Reader) error {
	err := binary.Read(r, binary.LittleEndian, d)
	if err != nil {
		return wrapErr(Io, err)
	}
	if d.Magic != [4]byte{'C', 'R', 'A', 'M'} {
		return wrapErr(FormatMagic, fmt.Errorf("not a cram file: magic bytes %q", d.Magic))
	}
	return nil
}

// Container is a CRAM container. See CRAM spec section 7.
type Container struct {
	blockLen  int32
	refID     int32
	start     int32
	span      int32
	nRec      int32
	recCount  int64
	bases     int64
	blocks    int32
	landmarks []int32
	crc32     uint32
	blockData io.Reader

	block *Block
	err   error
}

// readFrom populates a Container from the given io.Reader, checking that
// the CRC32 for the container header is correct.
func (c *Container) readFrom(r io.Reader) error {
	crc := crc32.NewIEEE()
	er := errorReader{r: io.TeeReader(r, crc)}
	var buf [4]byte
	io.ReadFull(&er, buf[:])
	c.blockLen = int32(binary.LittleEndian.Uint32(buf[:]))
	c.refID = er.itf8()
	c.start = er.itf8()
	c.span = er.itf8()
	c.nRec = er.itf8()
	c.recCount = er.ltf8()
	c.bases = er.ltf8()
	c.blocks = er.itf8()
	c.landmarks = er.itf8slice()
	sum := crc.Sum32()
	_, err := io.ReadFull(&er, buf[:])
	if err != nil {
		return wrapErr(Io, err)
	}
	c.crc32 = binary.LittleEndian.Uint32(buf[:])
	if c.crc32 != sum {
		return wrapErr(CrcMismatch, fmt.Errorf("container crc32 mismatch got:0x%08x want:0x%08x", sum, c.crc32))
	}
	if er.err != nil {
		return wrapErr(Io, er.err)
	}
	// The spec says T[] is {itf8, element...}. This is not true for byte[]
	// according to the EOF block.
	c.blockData = &io.LimitedReader{R: r, N: int64(c.blockLen)}
	return nil
}

// writeTo serialises blocks as the container's payload, computing blockLen
// and the header CRC, then writes the header, CRC and payload to w.
func (c *Container) writeTo(w io.Writer, blocks []*Block) error {
	var body bytes.Buffer
	for _, b := range blocks {
		if err := b.writeTo(&body); err != nil {
			return err
		}
	}
	c.blockLen = int32(body.Len())
	c.blocks = int32(len(blocks))

	var hdr bytes.Buffer
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(c.blockLen))
	hdr.Write(lenBuf[:])
	writeITF8(&hdr, c.refID)
	writeITF8(&hdr, c.start)
	writeITF8(&hdr, c.span)
	writeITF8(&hdr, c.nRec)
	writeLTF8(&hdr, c.recCount)
	writeLTF8(&hdr, c.bases)
	writeITF8(&hdr, c.blocks)
	writeITF8Slice(&hdr, c.landmarks)

	crc := crc32.NewIEEE()
	crc.Write(hdr.Bytes())
	c.crc32 = crc.Sum32()

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return wrapErr(Io, err)
	}
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], c.crc32)
	if _, err := w.Write(crcBuf[:]); err != nil {
		return wrapErr(Io, err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return wrapErr(Io, err)
	}
	return nil
}

// Next advances the Container to the next CRAM block. It returns false
// when the data ends, either by reaching the end of the container or
// encountering an error.
func (c *Container) Next() bool {
	if c.err != nil {
		return false
	}
	var b Block
	c.err = b.readFrom(c.blockData)
	if c.err == nil {
		c.block = &b
		return true
	}
	return false
}

// Block returns the current CRAM block. The returned Block is only valid
// after a previous call to Next has returned true.
func (c *Container) Block() *Block {
	return c.block
}

// Err returns the most recent error.
func (c *Container) Err() error {
	if errors.Is(c.err, io.EOF) {
		return nil
	}
	return c.err
}
