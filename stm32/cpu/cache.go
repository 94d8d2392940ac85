// The CPU accesses RAM through a write-back data cache and in general assumes
// that there are no other readers or writers.  The DMA controllers bypass the
// cache, so both must be synced before a buffer is handed over to hardware.
//
// All operations in this package refer to the data cache.  Instruction cache
// won't be affected.
package cpu

import (
	"embedded/mmio"
	"unsafe"

	"github.com/render-se/fcio/debug"
)

const CacheLineSize = 32

// SCB cache maintenance by MVA registers.
var scb = struct {
	dcimvac *mmio.U32 // invalidate line by address
	dccmvac *mmio.U32 // clean line by address
}{
	(*mmio.U32)(unsafe.Pointer(uintptr(0xe000_ef5c))),
	(*mmio.U32)(unsafe.Pointer(uintptr(0xe000_ef68))),
}

// Cache operations always affect a whole cache line.  To avoid invalidating
// unrelated data in a cache line, pad structs with CacheLinePad at the
// beginning and end.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// Writeback causes the cache to be written back to RAM.  Call this before
// requesting another component to read from this address range.  If the
// specified address is currently not cached, this is a no-op.
func Writeback(addr uintptr, length int) {
	mmio.MB()
	for a := addr &^ (CacheLineSize - 1); a < addr+uintptr(length); a += CacheLineSize {
		scb.dccmvac.Store(uint32(a))
	}
	mmio.MB()
}

// Invalidate causes the cache to be read from RAM before next access.  Call
// this before reading an address range that was written by another component.
func Invalidate(addr uintptr, length int) {
	mmio.MB()
	for a := addr &^ (CacheLineSize - 1); a < addr+uintptr(length); a += CacheLineSize {
		scb.dcimvac.Store(uint32(a))
	}
	mmio.MB()
}

// MakePaddedSlice returns a slice that is safe for cache ops.  Its start is
// aligned to CacheLineSize and the end is padded to fill the cache line.  Note
// that using append() might corrupt the padding.
// Aligning the slice start to CacheLineSize has the advantage that runtime
// validation is possible, see IsPadded().
func MakePaddedSlice[T any](size int) []T {
	var t T
	cls := CacheLineSize / int(unsafe.Sizeof(t))
	buf := make([]T, 0, cls+size+cls)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	shift := (CacheLineSize - int(addr)%CacheLineSize) / int(unsafe.Sizeof(t))
	return buf[shift : shift+size]
}

// IsPadded returns true if p is safe for cache ops, i.e. padded and aligned to
// cache.
func IsPadded[T any](p []T) bool {
	var t T
	cls := CacheLineSize / int(unsafe.Sizeof(t))

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	return addr%CacheLineSize == 0 && cap(p)-len(p) >= cls-len(p)%cls
}

func WritebackSlice[T any](buf []T) {
	debug.Assert(IsPadded(buf), "unpadded cache writeback")

	var t T
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	Writeback(addr, len(buf)*int(unsafe.Sizeof(t)))
}

func InvalidateSlice[T any](buf []T) {
	debug.Assert(IsPadded(buf), "unpadded cache invalidate")

	var t T
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	Invalidate(addr, len(buf)*int(unsafe.Sizeof(t)))
}
