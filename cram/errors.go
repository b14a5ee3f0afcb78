// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import "fmt"

// ErrorKind classifies the failure a *Error reports, so callers can branch
// on the class of problem (via errors.As) instead of matching message text.
//
// See CRAM spec section 9 for the behaviour each kind corresponds to.
type ErrorKind int

const (
	// Io is a short read or write at the byte layer.
	Io ErrorKind = iota
	// FormatMagic is a bad file magic or an incompatible major version.
	FormatMagic
	// FormatFraming is a varint truncation, block-size inconsistency, or a
	// method byte for which no codec is registered.
	FormatFraming
	// CrcMismatch is a block or container CRC failure. It is reported
	// whatever Options.IgnoreMD5 is set to.
	CrcMismatch
	// CodecReject is a codec's decompressor returning short or invalid
	// output (bad rANS frequency table, bad RLE meta-data, and so on).
	CodecReject
	// OutOfMemory is a transient allocation failure, bubbled unchanged.
	OutOfMemory
	// Plugin is a plug-in load error; logged and skipped, never fatal.
	Plugin
)

func (k ErrorKind) String() string {
	switch k {
	case Io:
		return "io"
	case FormatMagic:
		return "format magic"
	case FormatFraming:
		return "format framing"
	case CrcMismatch:
		return "crc mismatch"
	case CodecReject:
		return "codec reject"
	case OutOfMemory:
		return "out of memory"
	case Plugin:
		return "plugin"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a CRAM core error tagged with the ErrorKind that produced it.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cram: %s", e.Kind)
	}
	return fmt.Sprintf("cram: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapErr tags err with kind, or returns nil if err is nil.
func wrapErr(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}
