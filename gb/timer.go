package gb

// Timer emulates DIV, TIMA, TMA and TAC.
//
// DIV is the upper byte of a 16-bit counter incremented every clock. TIMA is
// clocked by the falling edge of one of the counter bits, selected by TAC and
// ANDed with the enable bit, so several register writes cause spurious
// increments exactly like hardware.
// References:
//   https://gbdev.io/pandocs/Timer_and_Divider_Registers.html
//   https://gbdev.io/pandocs/Timer_Obscure_Behaviour.html
type Timer struct {
	counter uint16
	tima    byte
	tma     byte
	tac     byte

	// After an overflow TIMA reads 0x00 for one M-cycle before TMA is loaded.
	reloadPending bool
	// reloaded is true during the M-cycle TMA was copied into TIMA.
	reloaded bool

	// The frame sequencer of the APU is clocked by DIV too.
	doubleSpeed bool
	fsTicks     int
}

// tacBits maps TAC clock select to the counter bit feeding TIMA.
var tacBits = [4]uint16{1 << 9, 1 << 3, 1 << 5, 1 << 7}

func NewTimer() *Timer {
	return &Timer{}
}

// input returns the value of the TIMA clock line for the given counter.
func (t *Timer) input(counter uint16, tac byte) bool {
	return tac&0x04 != 0 && counter&tacBits[tac&0x03] != 0
}

func (t *Timer) frameSequencerBit() uint16 {
	if t.doubleSpeed {
		return 1 << 13
	}
	return 1 << 12
}

func (t *Timer) increment() {
	t.tima++
	if t.tima == 0 {
		t.reloadPending = true
	}
}

// setCounter moves the counter and applies every falling edge it produces.
func (t *Timer) setCounter(counter uint16) {
	if t.input(t.counter, t.tac) && !t.input(counter, t.tac) {
		t.increment()
	}
	fs := t.frameSequencerBit()
	if t.counter&fs != 0 && counter&fs == 0 {
		t.fsTicks++
	}
	t.counter = counter
}

// tick advances the timer by one M-cycle (4 clocks).
func (t *Timer) tick(ic *interrupts) {
	t.reloaded = false
	if t.reloadPending {
		t.reloadPending = false
		t.tima = t.tma
		t.reloaded = true
		ic.request(interruptTimer)
	}
	t.setCounter(t.counter + 4)
}

// step advances the timer by the given clocks and returns how many times the
// APU frame sequencer has to be clocked.
func (t *Timer) step(cycles int, ic *interrupts) int {
	for i := 0; i < cycles; i += 4 {
		t.tick(ic)
	}
	ticks := t.fsTicks
	t.fsTicks = 0
	return ticks
}

func (t *Timer) setDoubleSpeed(enabled bool) {
	t.doubleSpeed = enabled
}

func (t *Timer) read(address uint16) byte {
	switch address {
	case 0xFF04:
		return byte(t.counter >> 8)
	case 0xFF05:
		return t.tima
	case 0xFF06:
		return t.tma
	case 0xFF07:
		return 0xF8 | t.tac
	}
	return 0xFF
}

func (t *Timer) write(address uint16, data byte) {
	switch address {
	case 0xFF04:
		// Any write resets the whole counter.
		t.setCounter(0)
	case 0xFF05:
		// The reload wins over a write in the same cycle.
		if t.reloaded {
			return
		}
		t.tima = data
		t.reloadPending = false
	case 0xFF06:
		t.tma = data
		if t.reloaded {
			t.tima = data
		}
	case 0xFF07:
		old := t.input(t.counter, t.tac)
		t.tac = data & 0x07
		if old && !t.input(t.counter, t.tac) {
			t.increment()
		}
	}
}
