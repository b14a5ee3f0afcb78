// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"reflect"
	"testing"
)

func TestHeaderUnmarshalText(t *testing.T) {
	tests := []struct {
		text []byte
		want Header
		err  bool
	}{
		{
			text: []byte("@HD\tVN:1.5\tSO:coordinate\n" +
				"@SQ\tSN:chr1\tLN:100\n" +
				"@SQ\tSN:chr2\tLN:200\n" +
				"@RG\tID:rg0\tSM:sample\n" +
				"@PG\tID:cram\tPN:biogo-cram\n" +
				"@CO\tfree text comment\n"),
			want: Header{
				Version:        "1.5",
				SortOrder:      "coordinate",
				ReferenceNames: []string{"chr1", "chr2"},
				ReadGroupIDs:   []string{"rg0"},
				ProgramIDs:     []string{"cram"},
				Comments:       []string{"free text comment"},
			},
		},
		{
			text: []byte("@HD\tVN:1.5\r\n"),
			want: Header{Version: "1.5"},
		},
		{
			text: nil,
			want: Header{},
		},
		{
			text: []byte("@HD\tSO:coordinate\n"),
			err:  true,
		},
		{
			text: []byte("not a header line\n"),
			err:  true,
		},
		{
			text: []byte("@SQ\tLN:100\n"),
			err:  true,
		},
	}

	for _, test := range tests {
		var got Header
		err := got.UnmarshalText(test.text)
		if test.err {
			if err == nil {
				t.Errorf("expected error unmarshalling %q, got none", test.text)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error unmarshalling %q: %v", test.text, err)
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("unexpected header for %q:\ngot: %#v\nwant:%#v", test.text, got, test.want)
		}
	}
}
