package dma

import _ "unsafe" // for linkname

// One vector per stream, all funneled into handle.

//go:linkname dma1Stream0 IRQ11_Handler
//go:interrupthandler
func dma1Stream0() { handle(DMA1, 0) }

//go:linkname dma1Stream1 IRQ12_Handler
//go:interrupthandler
func dma1Stream1() { handle(DMA1, 1) }

//go:linkname dma1Stream2 IRQ13_Handler
//go:interrupthandler
func dma1Stream2() { handle(DMA1, 2) }

//go:linkname dma1Stream3 IRQ14_Handler
//go:interrupthandler
func dma1Stream3() { handle(DMA1, 3) }

//go:linkname dma1Stream4 IRQ15_Handler
//go:interrupthandler
func dma1Stream4() { handle(DMA1, 4) }

//go:linkname dma1Stream5 IRQ16_Handler
//go:interrupthandler
func dma1Stream5() { handle(DMA1, 5) }

//go:linkname dma1Stream6 IRQ17_Handler
//go:interrupthandler
func dma1Stream6() { handle(DMA1, 6) }

//go:linkname dma1Stream7 IRQ47_Handler
//go:interrupthandler
func dma1Stream7() { handle(DMA1, 7) }

//go:linkname dma2Stream0 IRQ56_Handler
//go:interrupthandler
func dma2Stream0() { handle(DMA2, 0) }

//go:linkname dma2Stream1 IRQ57_Handler
//go:interrupthandler
func dma2Stream1() { handle(DMA2, 1) }

//go:linkname dma2Stream2 IRQ58_Handler
//go:interrupthandler
func dma2Stream2() { handle(DMA2, 2) }

//go:linkname dma2Stream3 IRQ59_Handler
//go:interrupthandler
func dma2Stream3() { handle(DMA2, 3) }

//go:linkname dma2Stream4 IRQ60_Handler
//go:interrupthandler
func dma2Stream4() { handle(DMA2, 4) }

//go:linkname dma2Stream5 IRQ68_Handler
//go:interrupthandler
func dma2Stream5() { handle(DMA2, 5) }

//go:linkname dma2Stream6 IRQ69_Handler
//go:interrupthandler
func dma2Stream6() { handle(DMA2, 6) }

//go:linkname dma2Stream7 IRQ70_Handler
//go:interrupthandler
func dma2Stream7() { handle(DMA2, 7) }
