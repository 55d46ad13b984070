// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
// +build tamago,arm staticcheck

package radio

import (
	"sync/atomic"
	"unsafe"
)

// bufferAddress returns the physical address of buf's backing array, for
// use as PACKETPTR.
func bufferAddress(buf []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(&buf[0])))
}

// barrier is a compiler memory barrier with release ordering: it ensures
// the EVENT register clears issued by the caller above are not reordered
// past the TASK register write that follows (spec 5 "ordering
// guarantees"). Go's memory model gives sync/atomic operations the
// necessary ordering semantics on ARM.
var barrierVar uint32

func barrier() {
	atomic.StoreUint32(&barrierVar, atomic.LoadUint32(&barrierVar)+1)
}
