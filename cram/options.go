// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"github.com/biogo/cram/codec"
	"github.com/biogo/cram/metrics"
)

// Options configures which compression methods the driver may choose
// between and how hard it searches, matching the configuration surface of
// CRAM spec section 6.
type Options struct {
	UseBzip2 bool
	UseRANS  bool
	UseBSC   bool
	UseZstd  bool
	UseFQZ   bool
	UseTok   bool
	UseArith bool
	UseLZMA  bool

	Level int // 0-9, default 5

	// Binning selects whether Illumina quality-bin reduction is applied
	// before compression. The bin table itself belongs to the record
	// encoder (out of scope for this package); Options only carries the
	// flag so a caller's driver can consult it.
	Binning bool

	// IgnoreMD5 is carried for callers; no reader in this package consults
	// it, and block and container CRCs are always verified on decode.
	IgnoreMD5 bool
}

// DefaultOptions returns rANS enabled, everything else off, at level 5 -
// the file-version-3-and-later default the CRAM spec describes.
func DefaultOptions() Options {
	return Options{UseRANS: true, Level: 5}
}

// MethodMask composes the boolean feature flags into the bitmask the
// metrics engine and driver use to restrict candidate methods. RAW and
// GZIP are always present: RAW as the universal fallback, GZIP as the
// baseline method used when no metrics object is supplied.
func (o Options) MethodMask() uint32 {
	mask := uint32(1)<<codec.Raw | uint32(1)<<codec.Gzip
	if o.UseBzip2 {
		mask |= 1 << codec.Bzip2
	}
	if o.UseLZMA {
		mask |= 1 << codec.LZMA
	}
	if o.UseRANS {
		mask |= 1<<codec.Rans | 1<<codec.RansPr
	}
	if o.UseArith {
		mask |= 1 << codec.Arith
	}
	if o.UseFQZ {
		mask |= 1 << codec.Fqz
	}
	if o.UseTok {
		mask |= 1 << codec.Tok3
	}
	if o.UseBSC {
		mask |= 1 << codec.Bsc
	}
	if o.UseZstd {
		mask |= 1 << codec.Zstd
	}
	return mask
}

// NewMetrics implements spec.md §6's metrics_new(): it returns a fresh
// per-column auto-tuning object seeded with the given method mask, ready
// to install on a Block via (*Block).SetMetrics.
func NewMetrics(mask uint32) *metrics.Metrics {
	return metrics.New(mask)
}

// ResetMetrics implements spec.md §6's reset_metrics(all_columns). The
// record encoder (out of scope for this package) calls it across every
// column's Metrics object when the fraction of mapped reads crosses 0.5,
// since the symbol distributions shift sharply at that boundary and the
// locked-in methods and failure counters no longer reflect it.
func ResetMetrics(columns ...*metrics.Metrics) {
	metrics.ResetAll(columns...)
}
