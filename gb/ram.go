package gb

// WRAM is the work RAM, 8 banks of 4 KiB. Bank 0 is fixed at $C000-$CFFF,
// $D000-$DFFF shows bank 1, or the bank selected by SVBK in color mode.
type WRAM struct {
	data [8 * 0x1000]byte
	// svbk is the register as written, bank the bank it selects.
	svbk byte
	bank byte
}

// NewWRAM creates a work RAM.
func NewWRAM() *WRAM {
	return &WRAM{bank: 1}
}

// offset maps $C000-$DFFF to the backing store.
func (r *WRAM) offset(address uint16) int {
	a := int(address-0xC000) & 0x1FFF
	if a < 0x1000 {
		return a
	}
	return int(r.bank)*0x1000 + a - 0x1000
}

// read reads data
func (r *WRAM) read(address uint16) byte {
	return r.data[r.offset(address)]
}

// write writes data
func (r *WRAM) write(address uint16, x byte) {
	r.data[r.offset(address)] = x
}

// readSVBK reads the bank register ($FF70).
func (r *WRAM) readSVBK() byte {
	return 0xF8 | r.svbk
}

// writeSVBK selects the bank, 0 selects bank 1.
func (r *WRAM) writeSVBK(data byte) {
	r.svbk = data & 0x07
	r.bank = r.svbk
	if r.bank == 0 {
		r.bank = 1
	}
}

// HRAM is the high RAM at $FF80-$FFFE.
type HRAM struct {
	data [0x7F]byte
}

func (r *HRAM) read(address uint16) byte {
	return r.data[address-0xFF80]
}

func (r *HRAM) write(address uint16, x byte) {
	r.data[address-0xFF80] = x
}
