package gb

// References:
//   https://gbdev.io/pandocs/Audio_Registers.html
//   https://gbdev.gg8.se/wiki/articles/Gameboy_sound_hardware

// length silences a channel after a number of frame sequencer length clocks.
type length struct {
	enabled bool
	counter int
	max     int
}

func (l *length) load(data byte) {
	l.counter = l.max - int(data)
}

// clock returns false when the channel has to be disabled.
func (l *length) clock() bool {
	if !l.enabled || l.counter == 0 {
		return true
	}
	l.counter--
	return l.counter != 0
}

func (l *length) trigger() {
	if l.counter == 0 {
		l.counter = l.max
	}
}

// envelope changes the volume every period/64 seconds.
type envelope struct {
	initial  byte
	increase bool
	period   byte
	volume   byte
	timer    byte
}

func (e *envelope) write(data byte) {
	e.initial = data >> 4
	e.increase = data&0x08 != 0
	e.period = data & 0x07
}

func (e *envelope) read() byte {
	ret := e.initial<<4 | e.period
	if e.increase {
		ret |= 0x08
	}
	return ret
}

// dac reports whether the DAC is powered, the upper 5 bits of NRx2 must not
// be all zero.
func (e *envelope) dac() bool {
	return e.initial != 0 || e.increase
}

func (e *envelope) trigger() {
	e.volume = e.initial
	e.timer = e.period
}

func (e *envelope) clock() {
	if e.period == 0 {
		return
	}
	if e.timer > 0 {
		e.timer--
	}
	if e.timer > 0 {
		return
	}
	e.timer = e.period
	if e.increase && e.volume < 15 {
		e.volume++
	} else if !e.increase && e.volume > 0 {
		e.volume--
	}
}

// Waveforms for the duty settings 12.5%, 25%, 50% and 75%.
var dutyTable = [4]byte{0x01, 0x81, 0x87, 0x7E}

// square is channel 1 and 2. Only channel 1 has a sweep unit.
type square struct {
	enabled   bool
	duty      byte
	position  byte
	frequency uint16
	timer     int
	length    length
	envelope  envelope

	hasSweep     bool
	sweepPeriod  byte
	sweepNegate  bool
	sweepShift   byte
	sweepTimer   byte
	sweepEnabled bool
	shadow       uint16
	negated      bool
}

func newSquare(hasSweep bool) *square {
	return &square{hasSweep: hasSweep, length: length{max: 64}}
}

func (s *square) period() int {
	return int(2048-s.frequency) * 4
}

func (s *square) tick() {
	s.timer--
	if s.timer <= 0 {
		s.timer = s.period()
		s.position = (s.position + 1) & 0x07
	}
}

func (s *square) output() byte {
	if !s.enabled || !s.envelope.dac() {
		return 0
	}
	if dutyTable[s.duty]>>(7-s.position)&1 == 0 {
		return 0
	}
	return s.envelope.volume
}

// sweepFrequency computes the next frequency, it disables the channel on
// overflow.
func (s *square) sweepFrequency() uint16 {
	delta := s.shadow >> s.sweepShift
	var f uint16
	if s.sweepNegate {
		f = s.shadow - delta
		s.negated = true
	} else {
		f = s.shadow + delta
	}
	if f > 2047 {
		s.enabled = false
	}
	return f
}

func (s *square) resetSweepTimer() {
	s.sweepTimer = s.sweepPeriod
	if s.sweepTimer == 0 {
		s.sweepTimer = 8
	}
}

func (s *square) clockSweep() {
	if s.sweepTimer > 0 {
		s.sweepTimer--
	}
	if s.sweepTimer > 0 {
		return
	}
	s.resetSweepTimer()
	if !s.sweepEnabled || s.sweepPeriod == 0 {
		return
	}
	f := s.sweepFrequency()
	if f <= 2047 && s.sweepShift != 0 {
		s.shadow = f
		s.frequency = f
		s.sweepFrequency()
	}
}

func (s *square) writeSweep(data byte) {
	s.sweepPeriod = data >> 4 & 0x07
	negate := data&0x08 != 0
	// Clearing negate after a negated calculation disables the channel.
	if s.sweepNegate && !negate && s.negated {
		s.enabled = false
	}
	s.sweepNegate = negate
	s.sweepShift = data & 0x07
}

func (s *square) readSweep() byte {
	ret := s.sweepPeriod<<4 | s.sweepShift
	if s.sweepNegate {
		ret |= 0x08
	}
	return ret
}

func (s *square) trigger() {
	s.enabled = s.envelope.dac()
	s.length.trigger()
	s.timer = s.period()
	s.envelope.trigger()
	if s.hasSweep {
		s.shadow = s.frequency
		s.negated = false
		s.resetSweepTimer()
		s.sweepEnabled = s.sweepPeriod != 0 || s.sweepShift != 0
		if s.sweepShift != 0 {
			s.sweepFrequency()
		}
	}
}

// wave is channel 3, it plays 32 4-bit samples from wave RAM.
type wave struct {
	enabled   bool
	dac       bool
	frequency uint16
	timer     int
	position  byte
	volume    byte
	sample    byte
	length    length
	table     [16]byte
}

func newWave() *wave {
	return &wave{length: length{max: 256}}
}

func (w *wave) period() int {
	return int(2048-w.frequency) * 2
}

func (w *wave) tick() {
	w.timer--
	if w.timer <= 0 {
		w.timer = w.period()
		w.position = (w.position + 1) & 0x1F
		w.sample = w.table[w.position/2]
		if w.position&1 == 0 {
			w.sample >>= 4
		}
		w.sample &= 0x0F
	}
}

// Volume code to right shift, code 0 mutes.
var waveShifts = [4]byte{4, 0, 1, 2}

func (w *wave) output() byte {
	if !w.enabled || !w.dac {
		return 0
	}
	return w.sample >> waveShifts[w.volume]
}

func (w *wave) trigger() {
	w.enabled = w.dac
	w.length.trigger()
	// The first sample is delayed by 6 clocks.
	w.timer = w.period() + 6
	w.position = 0
}

// readTable reads wave RAM, while playing the CPU sees the current byte.
func (w *wave) readTable(i int) byte {
	if w.enabled {
		return w.table[w.position/2]
	}
	return w.table[i]
}

func (w *wave) writeTable(i int, data byte) {
	if w.enabled {
		w.table[w.position/2] = data
		return
	}
	w.table[i] = data
}

// Noise divisors by NR43 bits 0-2.
var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// noise is channel 4, a 15-bit (or 7-bit) linear feedback shift register.
type noise struct {
	enabled  bool
	shift    byte
	width7   bool
	divisor  byte
	timer    int
	lfsr     uint16
	length   length
	envelope envelope
}

func newNoise() *noise {
	return &noise{length: length{max: 64}, lfsr: 0x7FFF}
}

func (n *noise) period() int {
	return noiseDivisors[n.divisor] << n.shift
}

func (n *noise) tick() {
	n.timer--
	if n.timer > 0 {
		return
	}
	n.timer = n.period()
	// Shifts 14 and 15 do not clock the LFSR.
	if n.shift >= 14 {
		return
	}
	x := (n.lfsr ^ n.lfsr>>1) & 1
	n.lfsr = n.lfsr>>1 | x<<14
	if n.width7 {
		n.lfsr = n.lfsr&^(1<<6) | x<<6
	}
}

func (n *noise) output() byte {
	if !n.enabled || !n.envelope.dac() {
		return 0
	}
	if n.lfsr&1 != 0 {
		return 0
	}
	return n.envelope.volume
}

func (n *noise) write(data byte) {
	n.shift = data >> 4
	n.width7 = data&0x08 != 0
	n.divisor = data & 0x07
}

func (n *noise) read() byte {
	ret := n.shift<<4 | n.divisor
	if n.width7 {
		ret |= 0x08
	}
	return ret
}

func (n *noise) trigger() {
	n.enabled = n.envelope.dac()
	n.length.trigger()
	n.timer = n.period()
	n.envelope.trigger()
	n.lfsr = 0x7FFF
}
