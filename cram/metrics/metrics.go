// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics implements the per-column auto-tuning engine described
// in spec.md §4.10: a trial window probes every currently allowed method,
// sizes are rescaled by a level-dependent cost table, the cheapest method
// is locked in for a span of blocks, and chronically bad methods are
// dropped from the candidate set.
package metrics

import (
	"sync"

	"github.com/biogo/cram/codec"
)

// Tuning constants fixed by spec.md §4.10 and §8.
const (
	NTrials   = 3
	TrialSpan = 50
	MaxFails  = 4
	MaxDelta  = 0.20
	tinyBlock = 8 // constant added to trial sizes to avoid over-confidence on tiny blocks
)

// costTable holds the relative cost weight for each canonical method,
// ~1.0 for gzip, matching spec.md §4.7's Codec descriptor cost field.
var costTable = map[codec.Method]float64{
	codec.Raw:    0.1,
	codec.Gzip:   1.0,
	codec.Bzip2:  2.5,
	codec.LZMA:   4.0,
	codec.Rans:   1.2,
	codec.RansPr: 1.4,
	codec.Arith:  1.6,
	codec.Fqz:    1.8,
	codec.Tok3:   1.5,
	codec.Bsc:    3.0,
	codec.Zstd:   1.3,
}

// scaleCost applies spec.md §4.10's level-dependent cost scaling to a
// (method, size) pair, relative to the unscaled byte count.
func scaleCost(size int, cost float64, level int) float64 {
	var factor float64
	switch {
	case level <= 1:
		factor = 1 + 4*(cost-1)
	case level <= 3:
		factor = cost - 1
	case level <= 6:
		factor = (cost - 1) / 2
	case level <= 7:
		factor = (cost - 1) / 3
	default:
		return float64(size)
	}
	return float64(size) * (1 + factor)
}

// Stats tracks the symbol-count statistics the driver consults before
// allowing bit-packing transforms within rANS/arith.
type Stats struct {
	NVals int
}

// AllowPack reports whether the column's alphabet is small enough for
// PACK, per spec.md §4.10: "when nvals > 16, all PACK bits are cleared".
func (s Stats) AllowPack() bool {
	return s.NVals <= 16
}

// maxConsistency caps the consistency multiplier applied to TrialSpan: the
// span can grow to at most 2x its base value as the same method keeps
// winning, per spec.md §4.10 ("scaled by a consistency multiplier up to 2x
// per confirmation").
const maxConsistency = 2.0

// Metrics is one column's auto-tuning state. All fields are
// mutex-guarded; the actual (heavy) compression calls happen outside any
// lock, in the driver, which reports trial sizes back via RecordTrial.
type Metrics struct {
	mu sync.Mutex

	origMask uint32 // the mask New was created with, restored on Reset

	method codec.Method
	strat  int

	trial    int // remaining probes in the current trial window
	spanLeft int // remaining non-trial blocks before the next trial window

	lastWinner codec.Method
	streak     int // consecutive trial windows won by lastWinner

	sz    map[codec.Method]int64
	cnt   map[codec.Method]int
	extra map[codec.Method]float64

	revised uint32 // bitmask of codec.Method bits still allowed
	stats   Stats
}

func methodBit(m codec.Method) uint32 { return 1 << uint(m) }

// New returns a Metrics seeded with the given initial method mask
// (spec.md's method_mask, composed from the library's use_* options) and
// immediately due for its first trial window.
func New(mask uint32) *Metrics {
	return &Metrics{
		origMask: mask,
		method:   codec.Raw,
		trial:    NTrials,
		spanLeft: 0,
		sz:       make(map[codec.Method]int64),
		cnt:      make(map[codec.Method]int),
		extra:    make(map[codec.Method]float64),
		revised:  mask,
	}
}

// Reset forces a fresh trial window and restores every method the column
// was originally allowed to use, discarding accumulated failure counts and
// the consistency streak. Per spec.md §4.10, the driver calls this across
// every column when the mapped/unmapped ratio crosses 0.5, since the
// symbol distribution changes sharply at that boundary and stale
// lock-ins/drops no longer reflect it.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trial = NTrials
	m.spanLeft = 0
	m.streak = 0
	m.lastWinner = codec.Raw
	m.sz = make(map[codec.Method]int64)
	m.cnt = make(map[codec.Method]int)
	m.extra = make(map[codec.Method]float64)
	m.revised = m.origMask
}

// ResetAll implements spec.md §6's reset_metrics(all_columns): the record
// encoder (out of this package's scope) calls this across every column's
// Metrics object at the mapped-to-unmapped transition.
func ResetAll(columns ...*Metrics) {
	for _, m := range columns {
		m.Reset()
	}
}

// SetStats installs the column's current symbol statistics, consulted by
// Candidates and AllowPack.
func (m *Metrics) SetStats(s Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = s
}

// Due reports whether the next block should be a trial probe (every
// currently allowed method attempted) rather than a single locked-in
// compression.
func (m *Metrics) Due() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trial > 0 || m.spanLeft <= 0
}

// Candidates returns the methods the driver should probe this block:
// mask & revised_method, with PACK-dependent methods left to the caller
// to further restrict via AllowPack.
func (m *Metrics) Candidates(mask uint32) []codec.Method {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := mask & m.revised
	var out []codec.Method
	for bit := codec.Raw; bit <= codec.Zstd; bit++ {
		if allowed&methodBit(bit) != 0 {
			out = append(out, bit)
		}
	}
	return out
}

// AllowPack reports whether PACK transforms may be used this block,
// given the column's current symbol statistics.
func (m *Metrics) AllowPack() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.AllowPack()
}

// RecordTrial accumulates a scaled trial size for method during the
// current trial window. Call once per candidate, per trial block.
func (m *Metrics) RecordTrial(method codec.Method, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sz[method] += int64(size + tinyBlock)
}

// Finish concludes a trial window: rescales accumulated sizes by the
// level-dependent cost table, locks in the cheapest method, updates the
// consistency streak and purges chronic losers from revised_method. It
// returns the newly locked method.
func (m *Metrics) Finish(level int) codec.Method {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := codec.Raw
	bestCost := -1.0
	for meth, size := range m.sz {
		cost := costTable[meth]
		scaled := scaleCost(int(size), cost, level)
		if bestCost < 0 || scaled < bestCost {
			bestCost = scaled
			best = meth
		}
	}

	for meth, size := range m.sz {
		if meth == best {
			m.cnt[meth] = 0
			m.extra[meth] = 0
			continue
		}
		cost := costTable[meth]
		scaled := scaleCost(int(size), cost, level)
		if bestCost <= 0 {
			continue
		}
		delta := (scaled - bestCost) / bestCost
		if delta > 0 {
			m.cnt[meth]++
			m.extra[meth] += delta
		} else {
			m.cnt[meth] = 0
			m.extra[meth] = 0
		}
		// fqzcomp is dropped on a single trial loss; every other method
		// needs MaxFails consecutive losses totalling MaxDelta.
		if meth == codec.Fqz && delta > 0 {
			m.revised &^= methodBit(meth)
		} else if m.cnt[meth] >= MaxFails && m.extra[meth] >= MaxDelta {
			m.revised &^= methodBit(meth)
		}
	}

	m.method = best
	m.sz = make(map[codec.Method]int64)

	if m.trial > 0 {
		m.trial--
	}
	if m.trial == 0 {
		if best == m.lastWinner {
			m.streak++
		} else {
			m.streak = 0
		}
		m.lastWinner = best
		m.spanLeft = int(float64(TrialSpan) * m.consistencyFactor())
	}
	return best
}

// consistencyFactor scales TrialSpan by up to maxConsistency as the same
// method keeps winning consecutive trial windows, so a column that has
// settled on a stable method is probed less often.
func (m *Metrics) consistencyFactor() float64 {
	factor := 1.0 + 0.25*float64(m.streak)
	if factor > maxConsistency {
		factor = maxConsistency
	}
	return factor
}

// Tick decrements the non-trial span counter for a single locked-in
// block and reports whether a new trial window has become due.
func (m *Metrics) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.spanLeft > 0 {
		m.spanLeft--
	}
	if m.spanLeft <= 0 {
		m.trial = NTrials / 2
		if m.trial == 0 {
			m.trial = 1
		}
		return true
	}
	return false
}

// Method returns the currently locked-in method.
func (m *Metrics) Method() codec.Method {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.method
}

// Strat returns the current strategy knob (e.g. a gzip strategy
// constant); set via SetStrat by the driver when it adjusts it.
func (m *Metrics) Strat() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strat
}

// SetStrat updates the strategy knob.
func (m *Metrics) SetStrat(s int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strat = s
}
