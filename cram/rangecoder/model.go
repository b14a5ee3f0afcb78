// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rangecoder

// maxFreq bounds the total frequency of a Model before it is rescaled.
// Mirrors the C encoding's (1<<16)-32.
const maxFreq = (1 << 16) - 32

// step is the frequency increment applied to a symbol on every access.
const step = 8

// symFreq pairs a symbol with its running frequency. A sentinel entry
// with Freq == maxFreq sits at index -1 (modelled here as field
// sentinel) so that the "keep approximately sorted" bubble step never
// needs a bounds check at the head of the list.
type symFreq struct {
	freq uint32
	sym  uint16
}

// Model is a context-indexed symbol frequency table, approximately
// sorted by frequency via an occasional single-swap bubble step. It has
// no escape symbol, so it is tailored to stationary-ish sources; periodic
// halving (Normalize) keeps the running totals bounded.
type Model struct {
	totFreq uint32
	bubCnt  uint32
	maxSym  int

	sentinel symFreq
	f        []symFreq // length maxSym+1; f[maxSym].freq == 0 terminates scans
}

// NewModel returns a Model over maxSym symbols (0..maxSym-1), each given
// an initial frequency of 1.
func NewModel(maxSym int) *Model {
	m := &Model{
		maxSym:   maxSym,
		f:        make([]symFreq, maxSym+1),
		sentinel: symFreq{freq: maxFreq, sym: 0},
	}
	m.Reset()
	return m
}

// Reset restores the model to its freshly-initialised state.
func (m *Model) Reset() {
	for i := 0; i < m.maxSym; i++ {
		m.f[i] = symFreq{freq: 1, sym: uint16(i)}
	}
	m.f[m.maxSym] = symFreq{freq: 0}
	m.totFreq = uint32(m.maxSym)
	m.bubCnt = 0
}

func (m *Model) normalize() {
	m.totFreq = 0
	for i := range m.f {
		if m.f[i].freq == 0 {
			break
		}
		m.f[i].freq -= m.f[i].freq >> 1
		m.totFreq += m.f[i].freq
	}
}

// bubble performs the periodic single-swap approximate sort step for the
// entry at index i, using prev as the entry logically preceding it (the
// sentinel when i == 0).
func (m *Model) bubble(i int) uint16 {
	m.bubCnt++
	if m.bubCnt&15 != 0 {
		return m.f[i].sym
	}
	var prevFreq uint32
	if i == 0 {
		prevFreq = m.sentinel.freq
	} else {
		prevFreq = m.f[i-1].freq
	}
	if m.f[i].freq > prevFreq {
		if i == 0 {
			// The sentinel never actually moves (it always stays largest
			// by construction: maxFreq dwarfs any real symbol count), so
			// there is nothing to swap into; this mirrors the original's
			// assumption that index 0 never wins against the sentinel.
			return m.f[i].sym
		}
		m.f[i], m.f[i-1] = m.f[i-1], m.f[i]
		return m.f[i-1].sym
	}
	return m.f[i].sym
}

// EncodeSymbol encodes sym using rc, updating the model's statistics.
func (m *Model) EncodeSymbol(rc *Encoder, sym uint16) {
	i := 0
	var acc uint32
	for m.f[i].sym != sym {
		acc += m.f[i].freq
		i++
	}
	rc.Encode(acc, m.f[i].freq, m.totFreq)
	m.f[i].freq += step
	m.totFreq += step
	if m.totFreq > maxFreq {
		m.normalize()
	}
	m.bubble(i)
}

// DecodeSymbol decodes and returns the next symbol using rc, updating
// the model's statistics.
func (m *Model) DecodeSymbol(rc *Decoder) uint16 {
	freq := rc.GetFreq(m.totFreq)
	var acc uint32
	i := 0
	for acc+m.f[i].freq <= freq {
		acc += m.f[i].freq
		i++
	}
	rc.Decode(acc, m.f[i].freq, m.totFreq)
	m.f[i].freq += step
	m.totFreq += step
	if m.totFreq > maxFreq {
		m.normalize()
	}
	return m.bubble(i)
}
