// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"testing"

	"github.com/biogo/cram/codec"
)

func allMethodsMask() uint32 {
	var mask uint32
	for m := codec.Raw; m <= codec.Zstd; m++ {
		mask |= methodBit(m)
	}
	return mask
}

func TestNewIsDueImmediately(t *testing.T) {
	m := New(allMethodsMask())
	if !m.Due() {
		t.Error("a freshly created Metrics should be due for its first trial")
	}
}

func TestTrialPicksCheapest(t *testing.T) {
	m := New(allMethodsMask())
	m.RecordTrial(codec.Gzip, 1000)
	m.RecordTrial(codec.Rans, 400)
	m.RecordTrial(codec.Bzip2, 1200)
	winner := m.Finish(5)
	if winner != codec.Rans {
		t.Errorf("expected rANS to win on smallest scaled size, got %v", winner)
	}
	if m.Method() != codec.Rans {
		t.Errorf("Method() = %v, want %v", m.Method(), codec.Rans)
	}
}

func TestChronicLoserDropped(t *testing.T) {
	m := New(allMethodsMask())
	for i := 0; i < MaxFails+1; i++ {
		m.RecordTrial(codec.Rans, 100)
		m.RecordTrial(codec.Bzip2, 1000) // always far worse
		m.Finish(5)
	}
	cands := m.Candidates(allMethodsMask())
	for _, c := range cands {
		if c == codec.Bzip2 {
			t.Error("bzip2 should have been dropped from revised_method after chronic losses")
		}
	}
}

func TestFqzDroppedOnSingleLoss(t *testing.T) {
	m := New(allMethodsMask())
	m.RecordTrial(codec.Rans, 100)
	m.RecordTrial(codec.Fqz, 5000)
	m.Finish(5)
	cands := m.Candidates(allMethodsMask())
	for _, c := range cands {
		if c == codec.Fqz {
			t.Error("fqzcomp should be dropped from revised_method after a single trial loss")
		}
	}
}

func TestResetRestoresDroppedMethods(t *testing.T) {
	m := New(allMethodsMask())
	for i := 0; i < MaxFails+1; i++ {
		m.RecordTrial(codec.Rans, 100)
		m.RecordTrial(codec.Bzip2, 1000)
		m.Finish(5)
	}
	cands := m.Candidates(allMethodsMask())
	for _, c := range cands {
		if c == codec.Bzip2 {
			t.Fatal("bzip2 should have been dropped before Reset")
		}
	}

	m.Reset()
	if !m.Due() {
		t.Error("Reset should make a fresh trial window immediately due")
	}
	found := false
	for _, c := range m.Candidates(allMethodsMask()) {
		if c == codec.Bzip2 {
			found = true
		}
	}
	if !found {
		t.Error("Reset should restore previously dropped methods to revised_method")
	}
}

func TestResetAllResetsEveryColumn(t *testing.T) {
	a := New(allMethodsMask())
	b := New(allMethodsMask())
	a.RecordTrial(codec.Fqz, 5000)
	a.RecordTrial(codec.Rans, 100)
	a.Finish(5)
	ResetAll(a, b)
	for _, m := range []*Metrics{a, b} {
		found := false
		for _, c := range m.Candidates(allMethodsMask()) {
			if c == codec.Fqz {
				found = true
			}
		}
		if !found {
			t.Error("ResetAll should restore fqzcomp across every column passed in")
		}
	}
}

func TestConsistencyStreakGrowsSpan(t *testing.T) {
	m := New(allMethodsMask())
	// Complete the initial 3-probe trial window; gzip wins every probe.
	for i := 0; i < NTrials; i++ {
		m.RecordTrial(codec.Gzip, 10)
		m.RecordTrial(codec.Rans, 20)
		m.Finish(5)
	}
	m.mu.Lock()
	firstSpan := m.spanLeft
	m.mu.Unlock()

	// Drain the span to reach the next (half-sized) trial window, which
	// confirms gzip again and should grow spanLeft via the consistency
	// multiplier.
	for {
		if m.Tick() {
			break
		}
	}
	m.RecordTrial(codec.Gzip, 10)
	m.RecordTrial(codec.Rans, 20)
	m.Finish(5)

	m.mu.Lock()
	secondSpan := m.spanLeft
	m.mu.Unlock()
	if secondSpan <= firstSpan {
		t.Errorf("expected consistency scaling to grow spanLeft on repeated confirmation: first=%d second=%d", firstSpan, secondSpan)
	}
}

func TestAllowPack(t *testing.T) {
	m := New(allMethodsMask())
	m.SetStats(Stats{NVals: 4})
	if !m.AllowPack() {
		t.Error("expected PACK to be allowed for a 4-symbol alphabet")
	}
	m.SetStats(Stats{NVals: 17})
	if m.AllowPack() {
		t.Error("expected PACK to be vetoed for a 17-symbol alphabet")
	}
}

func TestTickTriggersNewTrialWindow(t *testing.T) {
	m := New(allMethodsMask())
	m.RecordTrial(codec.Gzip, 10)
	m.Finish(5) // locks in, sets spanLeft = TrialSpan since trial reaches 0 after 3 Finish calls
	m.RecordTrial(codec.Gzip, 10)
	m.Finish(5)
	m.RecordTrial(codec.Gzip, 10)
	m.Finish(5)
	for i := 0; i < TrialSpan-1; i++ {
		if due := m.Tick(); due {
			t.Fatalf("trial window triggered early at tick %d", i)
		}
	}
	if !m.Tick() {
		t.Error("expected a new trial window once the span is exhausted")
	}
}
