package gb

// interrupt is a bit in the IE/IF registers.
// Lower bits have higher priority.
type interrupt byte

const (
	interruptVBlank interrupt = 1 << iota
	interruptSTAT
	interruptTimer
	interruptSerial
	interruptJoypad
)

const interruptMask byte = 0x1F

// vectors holds the jump target of each interrupt, indexed by bit position.
var vectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

// interrupts stores IE ($FFFF) and IF ($FF0F).
// The controller only keeps and tests masks, the dispatch is done by the CPU.
// Reference: https://gbdev.io/pandocs/Interrupts.html
type interrupts struct {
	enable byte
	flag   byte
}

func (i *interrupts) request(x interrupt) {
	i.flag |= byte(x)
}

func (i *interrupts) clear(x interrupt) {
	i.flag &^= byte(x)
}

// pending returns the set of interrupts both requested and enabled.
func (i *interrupts) pending() byte {
	return i.enable & i.flag & interruptMask
}

// next returns the highest priority pending interrupt and its vector.
func (i *interrupts) next() (interrupt, uint16, bool) {
	p := i.pending()
	for n := 0; n < 5; n++ {
		if p&(1<<n) != 0 {
			return interrupt(1 << n), vectors[n], true
		}
	}
	return 0, 0, false
}

// readIF reads IF, the upper 3 bits are unused and read as 1.
func (i *interrupts) readIF() byte {
	return 0xE0 | i.flag
}

func (i *interrupts) writeIF(data byte) {
	i.flag = data & interruptMask
}

func (i *interrupts) readIE() byte {
	return i.enable
}

func (i *interrupts) writeIE(data byte) {
	i.enable = data
}
