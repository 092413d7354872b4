package gb

// mbc2 has 512 half-bytes of RAM built in, mirrored across $A000-$BFFF.
// Bit 8 of the control address selects between RAM enable and ROM bank.
// Reference: https://gbdev.io/pandocs/MBC2.html
type mbc2 struct {
	rom        banks
	ram        [0x200]byte
	ramEnabled bool
	bank       byte
}

func newMBC2(rom banks) *mbc2 {
	return &mbc2{rom: rom, bank: 1}
}

func (m *mbc2) ReadROM(address uint16) byte {
	if address < 0x4000 {
		return m.rom.read(0, address)
	}
	return m.rom.read(int(m.bank), address-0x4000)
}

func (m *mbc2) WriteROM(address uint16, data byte) {
	if address >= 0x4000 {
		return
	}
	if address&0x0100 == 0 {
		m.ramEnabled = data&0x0F == 0x0A
		return
	}
	m.bank = data & 0x0F
	if m.bank == 0 {
		m.bank = 1
	}
}

func (m *mbc2) ReadRAM(address uint16) byte {
	if !m.ramEnabled {
		return 0xFF
	}
	// Only the lower nibble exists.
	return 0xF0 | m.ram[(address-0xA000)&0x01FF]
}

func (m *mbc2) WriteRAM(address uint16, data byte) {
	if !m.ramEnabled {
		return
	}
	m.ram[(address-0xA000)&0x01FF] = data & 0x0F
}

func (m *mbc2) RAM() []byte {
	return m.ram[:]
}
