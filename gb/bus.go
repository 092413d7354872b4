package gb

import "github.com/golang/glog"

// MemoryBus routes CPU accesses.
// Memory map
// 0x0000 - 0x3FFF	ROM bank 0
// 0x4000 - 0x7FFF	Switchable ROM bank
// 0x8000 - 0x9FFF	VRAM (2 banks in color mode)
// 0xA000 - 0xBFFF	External RAM
// 0xC000 - 0xCFFF	WRAM bank 0
// 0xD000 - 0xDFFF	WRAM bank 1-7
// 0xE000 - 0xFDFF	Echo of 0xC000 - 0xDDFF
// 0xFE00 - 0xFE9F	OAM
// 0xFEA0 - 0xFEFF	Not usable
// 0xFF00 - 0xFF7F	I/O registers
// 0xFF80 - 0xFFFE	HRAM
// 0xFFFF			IE
// Reference: https://gbdev.io/pandocs/Memory_Map.html
type MemoryBus struct {
	mapper     Mapper
	wram       *WRAM
	hram       *HRAM
	ppu        *PPU
	apu        *APU
	timer      *Timer
	controller *Controller
	serial     *Serial
	ic         *interrupts

	color bool
	// KEY1 speed switch
	speedArmed  bool
	doubleSpeed bool

	dma   byte
	hdma  hdma
	stall int
}

// NewMemoryBus creates a bus.
func NewMemoryBus(mapper Mapper, wram *WRAM, hram *HRAM, ppu *PPU, apu *APU, timer *Timer,
	controller *Controller, serial *Serial, ic *interrupts, color bool) *MemoryBus {
	return &MemoryBus{
		mapper:     mapper,
		wram:       wram,
		hram:       hram,
		ppu:        ppu,
		apu:        apu,
		timer:      timer,
		controller: controller,
		serial:     serial,
		ic:         ic,
		color:      color,
		hdma:       hdma{length: 0x7F},
	}
}

// read reads a byte.
func (b *MemoryBus) read(address uint16) byte {
	switch {
	case address < 0x8000:
		return b.mapper.ReadROM(address)
	case address < 0xA000:
		return b.ppu.readVRAM(address)
	case address < 0xC000:
		return b.mapper.ReadRAM(address)
	case address < 0xE000:
		return b.wram.read(address)
	case address < 0xFE00:
		return b.wram.read(address - 0x2000)
	case address < 0xFEA0:
		return b.ppu.readOAM(address)
	case address < 0xFF00:
		return 0xFF
	case address < 0xFF80:
		return b.readIO(address)
	case address < 0xFFFF:
		return b.hram.read(address)
	}
	return b.ic.readIE()
}

// write writes a byte.
func (b *MemoryBus) write(address uint16, data byte) {
	switch {
	case address < 0x8000:
		b.mapper.WriteROM(address, data)
	case address < 0xA000:
		b.ppu.writeVRAM(address, data)
	case address < 0xC000:
		b.mapper.WriteRAM(address, data)
	case address < 0xE000:
		b.wram.write(address, data)
	case address < 0xFE00:
		b.wram.write(address-0x2000, data)
	case address < 0xFEA0:
		b.ppu.writeOAM(address, data)
	case address < 0xFF00:
	case address < 0xFF80:
		b.writeIO(address, data)
	case address < 0xFFFF:
		b.hram.write(address, data)
	default:
		b.ic.writeIE(data)
	}
}

func (b *MemoryBus) readIO(address uint16) byte {
	switch {
	case address == 0xFF00:
		return b.controller.read()
	case address == 0xFF01, address == 0xFF02:
		return b.serial.read(address)
	case 0xFF04 <= address && address <= 0xFF07:
		return b.timer.read(address)
	case address == 0xFF0F:
		return b.ic.readIF()
	case 0xFF10 <= address && address <= 0xFF3F:
		return b.apu.read(address)
	case address == 0xFF46:
		return b.dma
	case 0xFF40 <= address && address <= 0xFF4B:
		return b.ppu.read(address)
	}
	if !b.color {
		return 0xFF
	}
	switch {
	case address == 0xFF4D:
		ret := byte(0x7E)
		if b.doubleSpeed {
			ret |= 0x80
		}
		if b.speedArmed {
			ret |= 0x01
		}
		return ret
	case address == 0xFF4F, 0xFF68 <= address && address <= 0xFF6B:
		return b.ppu.read(address)
	case address == 0xFF55:
		return b.hdma.read()
	case address == 0xFF70:
		return b.wram.readSVBK()
	}
	return 0xFF
}

func (b *MemoryBus) writeIO(address uint16, data byte) {
	switch {
	case address == 0xFF00:
		b.controller.write(data, b.ic)
		return
	case address == 0xFF01, address == 0xFF02:
		b.serial.write(address, data)
		return
	case 0xFF04 <= address && address <= 0xFF07:
		b.timer.write(address, data)
		return
	case address == 0xFF0F:
		b.ic.writeIF(data)
		return
	case 0xFF10 <= address && address <= 0xFF3F:
		b.apu.write(address, data)
		return
	case address == 0xFF46:
		b.oamDMA(data)
		return
	case 0xFF40 <= address && address <= 0xFF4B:
		b.ppu.write(address, data, b.ic)
		return
	}
	if b.color {
		switch {
		case address == 0xFF4D:
			b.speedArmed = data&0x01 != 0
			return
		case address == 0xFF4F, 0xFF68 <= address && address <= 0xFF6B:
			b.ppu.write(address, data, b.ic)
			return
		case 0xFF51 <= address && address <= 0xFF55:
			b.writeHDMA(address, data)
			return
		case address == 0xFF70:
			b.wram.writeSVBK(data)
			return
		}
	}
	if glog.V(2) {
		glog.Infof("Unmapped I/O write: address=0x%04x, data=0x%02x", address, data)
	}
}

// switchSpeed toggles double speed if KEY1 was armed, it reports whether
// the speed changed.
func (b *MemoryBus) switchSpeed() bool {
	if !b.color || !b.speedArmed {
		return false
	}
	b.speedArmed = false
	b.doubleSpeed = !b.doubleSpeed
	b.timer.setDoubleSpeed(b.doubleSpeed)
	return true
}

// initIO sets the I/O registers the way the boot ROM leaves them.
// Reference: https://gbdev.io/pandocs/Power_Up_Sequence.html#hardware-registers
func (b *MemoryBus) initIO() {
	for _, r := range []struct {
		address uint16
		data    byte
	}{
		{0xFF26, 0xF1}, // the APU has to be powered first
		{0xFF10, 0x80},
		{0xFF11, 0xBF},
		{0xFF12, 0xF3},
		{0xFF14, 0xBF},
		{0xFF16, 0x3F},
		{0xFF17, 0x00},
		{0xFF19, 0xBF},
		{0xFF1A, 0x7F},
		{0xFF1B, 0xFF},
		{0xFF1C, 0x9F},
		{0xFF1E, 0xBF},
		{0xFF20, 0xFF},
		{0xFF21, 0x00},
		{0xFF22, 0x00},
		{0xFF23, 0xBF},
		{0xFF24, 0x77},
		{0xFF25, 0xF3},
		{0xFF40, 0x91},
		{0xFF47, 0xFC},
		{0xFF48, 0xFF},
		{0xFF49, 0xFF},
	} {
		b.write(r.address, r.data)
	}
	b.ic.writeIF(0x01)
}
