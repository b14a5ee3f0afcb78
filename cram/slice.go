// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import "io"

// Slice is a CRAM slice header block. See CRAM spec section 8.5.
//
// This is the on-wire slice header, not the codec.Slice interface that the
// record-level context (read length, strand) flows through: the actual
// per-record metadata backing codec.Slice is owned by the record encoder,
// an external collaborator this package only defines the interface for.
type Slice struct {
	refID         int32
	start         int32
	span          int32
	nRec          int32
	recCount      int64
	blocks        int32
	blockIDs      []int32
	embeddedRefID int32
	md5sum        [16]byte
	tags          []byte
}

// readFrom populates a Slice from the given io.Reader.
func (s *Slice) readFrom(r io.Reader) error {
	er := errorReader{r: r}
	s.refID = er.itf8()
	s.start = er.itf8()
	s.span = er.itf8()
	s.nRec = er.itf8()
	s.recCount = er.ltf8()
	s.blocks = er.itf8()
	s.blockIDs = er.itf8slice()
	s.embeddedRefID = er.itf8()
	_, err := io.ReadFull(&er, s.md5sum[:])
	if err != nil {
		return wrapErr(Io, err)
	}
	s.tags, err = io.ReadAll(&er)
	if err != nil {
		return wrapErr(Io, err)
	}
	return nil
}
