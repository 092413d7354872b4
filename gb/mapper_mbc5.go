package gb

// mbc5 supports 8 MiB of ROM (9-bit bank number, bank 0 allowed in the
// switchable area) and 128 KiB of RAM.
// Reference: https://gbdev.io/pandocs/MBC5.html
type mbc5 struct {
	rom        banks
	ram        banks
	ramEnabled bool
	romBank    uint16
	ramBank    byte
	rumble     bool
}

func newMBC5(rom, ram banks, rumble bool) *mbc5 {
	return &mbc5{rom: rom, ram: ram, romBank: 1, rumble: rumble}
}

func (m *mbc5) ReadROM(address uint16) byte {
	if address < 0x4000 {
		return m.rom.read(0, address)
	}
	return m.rom.read(int(m.romBank), address-0x4000)
}

func (m *mbc5) WriteROM(address uint16, data byte) {
	switch {
	case address < 0x2000:
		m.ramEnabled = data&0x0F == 0x0A
	case address < 0x3000:
		m.romBank = m.romBank&0x100 | uint16(data)
	case address < 0x4000:
		m.romBank = m.romBank&0x0FF | uint16(data&0x01)<<8
	case address < 0x6000:
		m.ramBank = data & 0x0F
		if m.rumble {
			// Bit 3 drives the rumble motor.
			m.ramBank &= 0x07
		}
	}
}

func (m *mbc5) ReadRAM(address uint16) byte {
	if !m.ramEnabled {
		return 0xFF
	}
	return m.ram.read(int(m.ramBank), address-0xA000)
}

func (m *mbc5) WriteRAM(address uint16, data byte) {
	if !m.ramEnabled {
		return
	}
	m.ram.write(int(m.ramBank), address-0xA000, data)
}

func (m *mbc5) RAM() []byte {
	return m.ram.data
}
