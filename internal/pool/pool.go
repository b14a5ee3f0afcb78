// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pool

import (
	"math/bits"
	"sync"
)

// pool contains size stratified []byte pools. Each pool element i
// returns sized matrices with a slice capped at 1<<i.
var pool [63]sync.Pool

func init() {
	for i := range pool {
		l := 1 << uint(i)
		// Real matrix pools.
		pool[i].New = func() interface{} {
			return make([]byte, l)
		}
	}
}

// GetBuffer returns a []byte of with len size and a cap that is
// less than 2*size.
func GetBuffer(size int) []byte {
	if size == 0 {
		return nil
	}
	b := pool[poolFor(uint(size))].Get().([]byte)
	return b[:size]
}

// PutBuffer replaces a used []byte into the appropriate size
// buffer pool.
func PutBuffer(buf []byte) {
	if buf == nil {
		return
	}
	pool[poolFor(uint(cap(buf)))].Put(buf[:0])
}

// poolFor returns the ceiling of base 2 log of size. It provides an index
// into a pool array to a sync.Pool that will return values able to hold
// size elements.
func poolFor(size uint) int {
	return bits.Len(size - 1)
}

// tablePool caches the order-1 rANS decode scratch backing array: 256
// per-context slot->symbol tables of TOTFREQ_O1 (1<<10) bytes each, the
// same 256*1024-byte footprint as htslib's per-thread sfb_t cache. A
// busy decode worker reuses one of these instead of allocating 256
// fresh slices on every slice it decodes.
var tablePool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 256*1024)
	},
}

// GetDecodeTable returns a scratch []byte of at least the requested
// length, drawn from the shared per-worker table cache.
func GetDecodeTable(n int) []byte {
	t := tablePool.Get().([]byte)
	if cap(t) < n {
		return make([]byte, n)
	}
	return t[:n]
}

// PutDecodeTable returns buf to the table cache for reuse by a later
// decode on this or another worker.
func PutDecodeTable(buf []byte) {
	if buf == nil {
		return
	}
	tablePool.Put(buf[:0])
}
