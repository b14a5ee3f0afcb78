// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sam holds the narrow slice of the SAM header format that the
// cram package needs in order to decode a FILE_HEADER block's embedded
// text: a Header type satisfying encoding.TextUnmarshaler. Record, CIGAR,
// flag, and aux-tag parsing belong to a full SAM reader/writer, which is
// out of scope here — this package only ever sees the header line block
// that precedes the alignment records, never the records themselves.
package sam

import (
	"bytes"
	"errors"
	"fmt"
)

// Header holds the fields of a SAM header (the "@HD", "@SQ", "@RG", "@PG"
// and "@CO" lines at the top of a SAM/CRAM file). Only the identifying tag
// of each @SQ/@RG/@PG line is retained; full per-record field parsing is
// the concern of a SAM record reader, not of block decoding.
type Header struct {
	Version    string
	SortOrder  string
	GroupOrder string

	ReferenceNames []string
	ReadGroupIDs   []string
	ProgramIDs     []string
	Comments       []string
}

var errMalformedHeaderLine = errors.New("sam: malformed header line")

// UnmarshalText implements encoding.TextUnmarshaler. It parses the
// newline-separated "@XX\tTAG:value..." lines of a SAM header, as
// embedded in a CRAM FILE_HEADER block, ignoring line-ending carriage
// returns.
func (h *Header) UnmarshalText(text []byte) error {
	for i, line := range bytes.Split(text, []byte{'\n'}) {
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}
		if line[0] != '@' || len(line) < 3 {
			return errMalformedHeaderLine
		}
		fields := bytes.Split(line, []byte{'\t'})
		var err error
		switch string(line[1:3]) {
		case "HD":
			err = h.unmarshalHD(fields[1:])
		case "SQ":
			err = h.unmarshalTagged(fields[1:], "SN", &h.ReferenceNames)
		case "RG":
			err = h.unmarshalTagged(fields[1:], "ID", &h.ReadGroupIDs)
		case "PG":
			err = h.unmarshalTagged(fields[1:], "ID", &h.ProgramIDs)
		case "CO":
			if len(fields) < 2 {
				return errMalformedHeaderLine
			}
			h.Comments = append(h.Comments, string(fields[1]))
		default:
			return errMalformedHeaderLine
		}
		if err != nil {
			return fmt.Errorf("%v: line %d: %q", err, i+1, line)
		}
	}
	return nil
}

func (h *Header) unmarshalHD(fields [][]byte) error {
	for _, f := range fields {
		if len(f) < 4 || f[2] != ':' {
			return errMalformedHeaderLine
		}
		switch string(f[:2]) {
		case "VN":
			h.Version = string(f[3:])
		case "SO":
			h.SortOrder = string(f[3:])
		case "GO":
			h.GroupOrder = string(f[3:])
		}
	}
	if h.Version == "" {
		return errMalformedHeaderLine
	}
	return nil
}

// unmarshalTagged scans fields for the given identifying tag (e.g. "SN"
// for @SQ, "ID" for @RG/@PG) and appends its value to ids.
func (h *Header) unmarshalTagged(fields [][]byte, idTag string, ids *[]string) error {
	var found bool
	for _, f := range fields {
		if len(f) < 4 || f[2] != ':' {
			return errMalformedHeaderLine
		}
		if string(f[:2]) == idTag {
			*ids = append(*ids, string(f[3:]))
			found = true
		}
	}
	if !found {
		return errMalformedHeaderLine
	}
	return nil
}
