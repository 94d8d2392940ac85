package cpu

import "unsafe"

// The CPU's clock speed
const ClockSpeed = 216e6

// Addr represents a physical memory address as seen by the DMA controllers
// and peripherals.
type Addr uint32

// PhysicalAddress returns the physical address of a virtual address.  The
// Cortex-M7 has no MMU, so this is the identity, but keeping the conversion
// explicit marks all places where an address crosses over to the bus side.
func PhysicalAddress(addr uintptr) Addr {
	return Addr(addr)
}

// Same as [PhysicalAddress] but for slices.
func PhysicalAddressSlice(s []byte) Addr {
	return PhysicalAddress(uintptr(unsafe.Pointer(unsafe.SliceData(s))))
}
