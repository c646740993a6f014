package shm

import (
	"sync/atomic"
	"unsafe"
)

// Atomic access to uint32 words embedded in a mapped segment. Callers must
// hand in 4-byte aligned addresses; the pool guarantees that for chunk
// headers.

func LoadUint32(p *byte) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(p)))
}

func StoreUint32(p *byte, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(p)), v)
}

func AddUint32(p *byte, delta uint32) uint32 {
	return atomic.AddUint32((*uint32)(unsafe.Pointer(p)), delta)
}

func CompareAndSwapUint32(p *byte, old, new uint32) bool {
	return atomic.CompareAndSwapUint32((*uint32)(unsafe.Pointer(p)), old, new)
}
