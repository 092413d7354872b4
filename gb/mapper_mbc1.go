package gb

// mbc1 supports up to 2 MiB of ROM and 32 KiB of RAM.
// Reference: https://gbdev.io/pandocs/MBC1.html
type mbc1 struct {
	rom        banks
	ram        banks
	ramEnabled bool
	bank1      byte // 5 bits, 0 is treated as 1
	bank2      byte // 2 bits, upper ROM bits or RAM bank
	mode       byte // banking mode select
}

func newMBC1(rom, ram banks) *mbc1 {
	return &mbc1{rom: rom, ram: ram, bank1: 1}
}

func (m *mbc1) ReadROM(address uint16) byte {
	if address < 0x4000 {
		bank := 0
		if m.mode == 1 {
			bank = int(m.bank2) << 5
		}
		return m.rom.read(bank, address)
	}
	bank := int(m.bank2)<<5 | int(m.bank1)
	return m.rom.read(bank, address-0x4000)
}

func (m *mbc1) WriteROM(address uint16, data byte) {
	switch {
	case address < 0x2000:
		m.ramEnabled = data&0x0F == 0x0A
	case address < 0x4000:
		m.bank1 = data & 0x1F
		if m.bank1 == 0 {
			m.bank1 = 1
		}
	case address < 0x6000:
		m.bank2 = data & 0x03
	default:
		m.mode = data & 0x01
	}
}

func (m *mbc1) ramBank() int {
	if m.mode == 1 {
		return int(m.bank2)
	}
	return 0
}

func (m *mbc1) ReadRAM(address uint16) byte {
	if !m.ramEnabled {
		return 0xFF
	}
	return m.ram.read(m.ramBank(), address-0xA000)
}

func (m *mbc1) WriteRAM(address uint16, data byte) {
	if !m.ramEnabled {
		return
	}
	m.ram.write(m.ramBank(), address-0xA000, data)
}

func (m *mbc1) RAM() []byte {
	return m.ram.data
}
