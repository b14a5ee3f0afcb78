// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import "testing"

type fakeSlice struct{}

func (fakeSlice) RecordLen(i int) int      { return 0 }
func (fakeSlice) RecordReverse(i int) bool { return false }
func (fakeSlice) NumRecords() int          { return 0 }

func TestRegisterAndLookup(t *testing.T) {
	d := Descriptor{
		Method: Gzip,
		Cost:   1.0,
		Name:   "gzip",
		Compress: func(level int, s Slice, in []byte) ([]byte, error) {
			return append([]byte{}, in...), nil
		},
		Uncompress: func(s Slice, in []byte, expectedSize int) ([]byte, error) {
			return append([]byte{}, in...), nil
		},
	}
	Register(d)

	got, ok := Lookup(Gzip)
	if !ok {
		t.Fatal("expected Gzip to be registered")
	}
	if got.Name != "gzip" {
		t.Errorf("got name %q, want %q", got.Name, "gzip")
	}
	out, err := got.Compress(5, fakeSlice{}, []byte("hello"))
	if err != nil || string(out) != "hello" {
		t.Errorf("Compress round trip failed: out=%q err=%v", out, err)
	}
}

func TestLookupMissing(t *testing.T) {
	if _, ok := Lookup(Method(200)); ok {
		t.Error("expected lookup of an unregistered method to fail")
	}
}

func TestMethodString(t *testing.T) {
	if Rans.String() != "RANS" {
		t.Errorf("Rans.String() = %q, want RANS", Rans.String())
	}
	if Method(250).String() == "" {
		t.Error("unknown method should still stringify to something non-empty")
	}
}

func TestLoadPluginsEmptyDir(t *testing.T) {
	if errs := LoadPlugins(""); errs != nil {
		t.Errorf("LoadPlugins(\"\") should be a no-op, got %v", errs)
	}
}

func TestLoadPluginsMissingDir(t *testing.T) {
	errs := LoadPlugins("/nonexistent/path/for/cram/codec/plugins")
	if len(errs) == 0 {
		t.Error("expected an error for a missing plug-in directory")
	}
}
