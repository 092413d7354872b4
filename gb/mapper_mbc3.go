package gb

// mbc3 supports 2 MiB of ROM, 32 KiB of RAM and an optional real time clock.
// Reference: https://gbdev.io/pandocs/MBC3.html
type mbc3 struct {
	rom        banks
	ram        banks
	rtc        *rtc
	ramEnabled bool
	romBank    byte // 7 bits, 0 is treated as 1
	ramBank    byte // $00-$03 RAM, $08-$0C clock registers
}

func newMBC3(rom, ram banks, clock *rtc) *mbc3 {
	return &mbc3{rom: rom, ram: ram, rtc: clock, romBank: 1}
}

func (m *mbc3) ReadROM(address uint16) byte {
	if address < 0x4000 {
		return m.rom.read(0, address)
	}
	return m.rom.read(int(m.romBank), address-0x4000)
}

func (m *mbc3) WriteROM(address uint16, data byte) {
	switch {
	case address < 0x2000:
		m.ramEnabled = data&0x0F == 0x0A
	case address < 0x4000:
		m.romBank = data & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address < 0x6000:
		m.ramBank = data & 0x0F
	default:
		if m.rtc != nil {
			m.rtc.writeLatch(data)
		}
	}
}

func (m *mbc3) ReadRAM(address uint16) byte {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.ramBank >= 0x08 {
		if m.rtc == nil {
			return 0xFF
		}
		return m.rtc.read(m.ramBank)
	}
	return m.ram.read(int(m.ramBank&0x03), address-0xA000)
}

func (m *mbc3) WriteRAM(address uint16, data byte) {
	if !m.ramEnabled {
		return
	}
	if m.ramBank >= 0x08 {
		if m.rtc != nil {
			m.rtc.write(m.ramBank, data)
		}
		return
	}
	m.ram.write(int(m.ramBank&0x03), address-0xA000, data)
}

func (m *mbc3) RAM() []byte {
	return m.ram.data
}

func (m *mbc3) clock() *rtc {
	return m.rtc
}
