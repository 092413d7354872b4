package gb

// References:
//   https://gbdev.io/pandocs/OAM_DMA_Transfer.html
//   https://gbdev.io/pandocs/CGB_Registers.html#lcd-vram-dma-transfers

// Clocks the CPU is stalled per 16 bytes of VRAM DMA in normal speed.
const hdmaBlockCycles = 32

// hdma is the color mode VRAM DMA. A general purpose transfer copies
// everything at once and stalls the CPU, an h-blank transfer copies 16 bytes
// at the start of every h-blank.
type hdma struct {
	src    uint16
	dst    uint16
	active bool
	// blocks left minus 1, as read from HDMA5
	length byte
}

func (h *hdma) read() byte {
	if h.active {
		return h.length & 0x7F
	}
	return 0x80 | h.length
}

// oamDMA copies 160 bytes from page data to OAM.
// The transfer happens at once, the CPU is not blocked from HRAM either way.
func (b *MemoryBus) oamDMA(data byte) {
	b.dma = data
	src := uint16(data) << 8
	if src >= 0xE000 {
		src -= 0x2000
	}
	for i := uint16(0); i < 0xA0; i++ {
		b.ppu.writeOAM(0xFE00+i, b.read(src+i))
	}
}

// copyBlock moves 16 bytes of VRAM DMA and returns the stall clocks.
func (b *MemoryBus) copyBlock() int {
	for i := 0; i < 0x10; i++ {
		b.ppu.writeVRAM(0x8000|b.hdma.dst&0x1FFF, b.read(b.hdma.src))
		b.hdma.src++
		b.hdma.dst++
	}
	if b.doubleSpeed {
		return hdmaBlockCycles * 2
	}
	return hdmaBlockCycles
}

func (b *MemoryBus) writeHDMA(address uint16, data byte) {
	switch address {
	case 0xFF51:
		b.hdma.src = uint16(data)<<8 | b.hdma.src&0x00F0
	case 0xFF52:
		b.hdma.src = b.hdma.src&0xFF00 | uint16(data&0xF0)
	case 0xFF53:
		b.hdma.dst = uint16(data&0x1F)<<8 | b.hdma.dst&0x00F0
	case 0xFF54:
		b.hdma.dst = b.hdma.dst&0xFF00 | uint16(data&0xF0)
	case 0xFF55:
		if b.hdma.active && data&0x80 == 0 {
			// Stops an h-blank transfer.
			b.hdma.active = false
			return
		}
		b.hdma.length = data & 0x7F
		if data&0x80 != 0 {
			b.hdma.active = true
			return
		}
		for {
			b.stall += b.copyBlock()
			if b.hdma.length == 0 {
				break
			}
			b.hdma.length--
		}
		b.hdma.length = 0x7F
	}
}

// hblank runs one step of an h-blank transfer.
func (b *MemoryBus) hblank() {
	if !b.hdma.active {
		return
	}
	b.stall += b.copyBlock()
	if b.hdma.length == 0 {
		b.hdma.active = false
		b.hdma.length = 0x7F
		return
	}
	b.hdma.length--
}

// takeStall returns the clocks the CPU has to wait for DMA.
func (b *MemoryBus) takeStall() int {
	n := b.stall
	b.stall = 0
	return n
}
