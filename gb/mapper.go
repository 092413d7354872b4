package gb

import (
	"fmt"
	"time"
)

// Mapper is the cartridge bank controller.
// ROM reads cover $0000-$7FFF, RAM accesses cover $A000-$BFFF and writes into
// the ROM range are control writes which switch banks.
type Mapper interface {
	ReadROM(address uint16) byte
	WriteROM(address uint16, data byte)
	ReadRAM(address uint16) byte
	WriteRAM(address uint16, data byte)
	// RAM returns the external RAM backing store, nil if none.
	RAM() []byte
}

// clockMapper is implemented by the bank controllers with a real time clock.
type clockMapper interface {
	clock() *rtc
}

// NewMapper creates the bank controller the cartridge header asks for.
func NewMapper(c *Cartridge, now func() time.Time) (Mapper, error) {
	rom := newBanks(c.rom, romBankSize)
	ram := newBanks(make([]byte, c.ramSize), ramBankSize)
	switch c.features.kind {
	case kindROM:
		return &mapperROM{rom: rom, ram: ram}, nil
	case kindMBC1:
		return newMBC1(rom, ram), nil
	case kindMBC2:
		return newMBC2(rom), nil
	case kindMBC3:
		var clock *rtc
		if c.features.rtc {
			clock = newRTC(now)
		}
		return newMBC3(rom, ram, clock), nil
	case kindMBC5:
		return newMBC5(rom, ram, c.features.rumble), nil
	}
	return nil, fmt.Errorf("%w: no bank controller for %s", ErrUnsupportedCartridge, c.features.kind)
}

// banks is a memory split into equally sized switchable banks.
// Every bank index wraps to the number of banks present.
type banks struct {
	data []byte
	size int
}

func newBanks(data []byte, size int) banks {
	return banks{data: data, size: size}
}

func (b banks) count() int {
	n := len(b.data) / b.size
	if n == 0 && len(b.data) > 0 {
		// Smaller than a bank, e.g. 2 KiB of RAM.
		return 1
	}
	return n
}

// read reads offset inside the given bank, 0xFF if the memory is absent.
func (b banks) read(bank int, offset uint16) byte {
	if len(b.data) == 0 {
		return 0xFF
	}
	i := (bank%b.count())*b.size + int(offset)
	return b.data[i%len(b.data)]
}

func (b banks) write(bank int, offset uint16, data byte) {
	if len(b.data) == 0 {
		return
	}
	i := (bank%b.count())*b.size + int(offset)
	b.data[i%len(b.data)] = data
}

// mapperROM has no banking, RAM (if any) is always accessible.
type mapperROM struct {
	rom banks
	ram banks
}

func (m *mapperROM) ReadROM(address uint16) byte {
	return m.rom.read(int(address/0x4000), address%0x4000)
}

func (m *mapperROM) WriteROM(address uint16, data byte) {}

func (m *mapperROM) ReadRAM(address uint16) byte {
	return m.ram.read(0, address-0xA000)
}

func (m *mapperROM) WriteRAM(address uint16, data byte) {
	m.ram.write(0, address-0xA000, data)
}

func (m *mapperROM) RAM() []byte {
	return m.ram.data
}
