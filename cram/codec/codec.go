// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec holds the CRAM block-codec registry: the fixed table
// mapping a wire method byte to a (compress, uncompress) pair, plus a
// dynamic-loading overlay for codecs provided by shared-library
// plug-ins, as described by spec.md §4.9.
package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Method is the canonical wire-visible method byte (spec.md §4.2 / §4.11).
type Method byte

const (
	Raw Method = iota
	Gzip
	Bzip2
	LZMA
	Rans
	RansPr
	Arith
	Fqz
	Tok3
	Bsc
	Zstd
)

func (m Method) String() string {
	switch m {
	case Raw:
		return "RAW"
	case Gzip:
		return "GZIP"
	case Bzip2:
		return "BZIP2"
	case LZMA:
		return "LZMA"
	case Rans:
		return "RANS"
	case RansPr:
		return "RANS_PR"
	case Arith:
		return "ARITH"
	case Fqz:
		return "FQZ"
	case Tok3:
		return "TOK3"
	case Bsc:
		return "BSC"
	case Zstd:
		return "ZSTD"
	default:
		return fmt.Sprintf("Method(%d)", m)
	}
}

// Slice carries the record-level context a codec may need beyond its raw
// byte buffer — fqzcomp-qual needs per-record read length and strand,
// for instance. It is intentionally a minimal, read-only view.
type Slice interface {
	RecordLen(i int) int
	RecordReverse(i int) bool
	NumRecords() int
}

// CompressFunc compresses in at the given level, returning the encoded
// bytes.
type CompressFunc func(level int, s Slice, in []byte) (out []byte, err error)

// UncompressFunc reverses CompressFunc, given the expected decoded size.
type UncompressFunc func(s Slice, in []byte, expectedSize int) (out []byte, err error)

// Descriptor is an immutable codec registration: a method tag, the
// column ids it applies to, a relative cost weight (~1.0 = gzip), a
// human-readable name and its compress/uncompress function pair.
type Descriptor struct {
	Method     Method
	Columns    uint32 // bitmask of applicable column ids; 0 means "all"
	Cost       float64
	Name       string
	Compress   CompressFunc
	Uncompress UncompressFunc
}

// registry is the process-wide method table: a lazily constructed,
// init-once base table plus a plug-in overlay populated at start-up.
// Mirrors spec.md §4.9's "global registry, initialisation idempotent"
// requirement without exposing a mutable singleton to callers — writes
// only ever happen through Register/LoadPlugins.
var (
	mu     sync.RWMutex
	base   = map[Method]Descriptor{}
	aux    = map[uint64]Descriptor{} // re-hashed plug-in methods, keyed by xxhash of the 4-char code
	inited bool
)

// Register installs d in the registry, overwriting any existing
// descriptor for the same method. Duplicate registration is permitted;
// the most recent caller wins, matching spec.md §4.9.
func Register(d Descriptor) {
	mu.Lock()
	defer mu.Unlock()
	base[d.Method] = d
}

// Lookup returns the descriptor registered for m.
func Lookup(m Method) (Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := base[m]
	return d, ok
}

// LookupCode4 resolves a 4-character plug-in method code (re-hashed with
// xxhash since the on-disk method byte is a single octet) to the
// descriptor a plug-in registered for it.
func LookupCode4(code4 string) (Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := aux[xxhash.Sum64String(code4)]
	return d, ok
}

// PluginInit is the symbol every CRAM codec plug-in must export: a
// function returning the descriptor(s) it provides, keyed by the
// 4-character method code used to compute the aux-table hash.
type PluginInit func() map[string]Descriptor

// LoadPlugins scans dir for *.so shared objects, loading each with the
// standard library's plugin package and registering the descriptors its
// "CRAMCodecInit" symbol returns. A plug-in that fails to load or whose
// symbol has the wrong type is skipped, not fatal (spec.md §7's Plugin
// error kind is logged-and-continue, matching the non-fatal treatment
// here).
func LoadPlugins(dir string) []error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []error{fmt.Errorf("codec: reading plug-in directory %q: %w", dir, err)}
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := plugin.Open(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("codec: loading plug-in %q: %w", path, err))
			continue
		}
		sym, err := p.Lookup("CRAMCodecInit")
		if err != nil {
			errs = append(errs, fmt.Errorf("codec: plug-in %q missing CRAMCodecInit: %w", path, err))
			continue
		}
		init, ok := sym.(func() map[string]Descriptor)
		if !ok {
			errs = append(errs, fmt.Errorf("codec: plug-in %q has wrong CRAMCodecInit signature", path))
			continue
		}
		mu.Lock()
		for code4, d := range init() {
			aux[xxhash.Sum64String(code4)] = d
		}
		mu.Unlock()
	}
	return errs
}

// LoadPluginsFromEnv loads plug-ins from every directory named in the
// colon-separated CRAM_CODEC_DIR environment variable, per spec.md §6. A
// missing or empty variable disables plug-in loading entirely.
func LoadPluginsFromEnv() []error {
	env := os.Getenv("CRAM_CODEC_DIR")
	if env == "" {
		return nil
	}
	var errs []error
	for _, dir := range strings.Split(env, ":") {
		if dir == "" {
			continue
		}
		errs = append(errs, LoadPlugins(dir)...)
	}
	return errs
}

func init() {
	registerBuiltins()
}

// registerBuiltins marks the base registry as set up. It registers no
// descriptors itself (see Initialized) and is idempotent.
func registerBuiltins() {
	mu.Lock()
	inited = true
	mu.Unlock()
}

// Initialized reports whether the base registry has completed its
// one-time setup; builtins are wired in by cram.init via Register so
// that cram/codec itself stays free of an import cycle on cram/rans,
// cram/arith, cram/external, cram/fqzcomp and cram/nametok.
func Initialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return inited
}
