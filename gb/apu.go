package gb

// ClockRate is the native clock in Hz, one dot of the PPU.
const ClockRate = 4194304

// Largest mixer output per ear: 4 channels at volume 15, master volume 8.
const mixScale = 4 * 15 * 8

// APU stands for Audio Processing Unit, it mixes 2 square channels, a wave
// channel and a noise channel into a stereo stream.
// The APU is clocked at the native rate and its frame sequencer is clocked by
// the timer's divider, see Timer.
// References:
//   https://gbdev.io/pandocs/Audio.html
//   https://gbdev.gg8.se/wiki/articles/Gameboy_sound_hardware
type APU struct {
	ch1 *square
	ch2 *square
	ch3 *wave
	ch4 *noise

	power bool
	nr50  byte
	nr51  byte
	// next frame sequencer step, 0-7
	sequencer byte

	left      *blip
	right     *blip
	lastLeft  int
	lastRight int
	bufLeft   []float64
	bufRight  []float64
	out       *AudioBuffer
}

// NewAPU creates an APU producing samples at sampleRate into out.
func NewAPU(sampleRate int, out *AudioBuffer) *APU {
	a := &APU{
		ch1:      newSquare(true),
		ch2:      newSquare(false),
		ch3:      newWave(),
		ch4:      newNoise(),
		left:     newBlip(ClockRate, sampleRate),
		right:    newBlip(ClockRate, sampleRate),
		bufLeft:  make([]float64, blipCapacity),
		bufRight: make([]float64, blipCapacity),
		out:      out,
	}
	return a
}

// mix returns the digital output of both ears.
func (a *APU) mix() (int, int) {
	outs := [4]byte{a.ch1.output(), a.ch2.output(), a.ch3.output(), a.ch4.output()}
	var l, r int
	for i, v := range outs {
		if a.nr51&(0x10<<i) != 0 {
			l += int(v)
		}
		if a.nr51&(0x01<<i) != 0 {
			r += int(v)
		}
	}
	l *= int(a.nr50>>4&0x07) + 1
	r *= int(a.nr50&0x07) + 1
	return l, r
}

func (a *APU) clockLength() {
	if !a.ch1.length.clock() {
		a.ch1.enabled = false
	}
	if !a.ch2.length.clock() {
		a.ch2.enabled = false
	}
	if !a.ch3.length.clock() {
		a.ch3.enabled = false
	}
	if !a.ch4.length.clock() {
		a.ch4.enabled = false
	}
}

// clockFrameSequencer runs one 512 Hz step: length on even steps, sweep on
// steps 2 and 6 and envelopes on step 7.
func (a *APU) clockFrameSequencer() {
	switch a.sequencer {
	case 0, 4:
		a.clockLength()
	case 2, 6:
		a.clockLength()
		a.ch1.clockSweep()
	case 7:
		a.ch1.envelope.clock()
		a.ch2.envelope.clock()
		a.ch4.envelope.clock()
	}
	a.sequencer = (a.sequencer + 1) & 0x07
}

// step advances the APU by the given clocks. fsTicks is the number of frame
// sequencer clocks the divider produced meanwhile.
func (a *APU) step(cycles int, fsTicks int) {
	if a.power {
		for i := 0; i < fsTicks; i++ {
			a.clockFrameSequencer()
		}
	}
	for i := 0; i < cycles; i++ {
		if a.power {
			a.ch1.tick()
			a.ch2.tick()
			a.ch3.tick()
			a.ch4.tick()
		}
		l, r := a.mix()
		if l != a.lastLeft {
			a.left.addDelta(i, float64(l-a.lastLeft)/mixScale)
			a.lastLeft = l
		}
		if r != a.lastRight {
			a.right.addDelta(i, float64(r-a.lastRight)/mixScale)
			a.lastRight = r
		}
	}
	a.left.endFrame(cycles)
	a.right.endFrame(cycles)
	if a.left.available() >= 64 {
		a.drain()
	}
}

// drain moves the resampled audio into the output buffer.
func (a *APU) drain() {
	n := a.left.read(a.bufLeft)
	a.right.read(a.bufRight[:n])
	if a.out == nil {
		return
	}
	for i := 0; i < n; i++ {
		a.out.Write(float32(a.bufLeft[i]), float32(a.bufRight[i]))
	}
}

// lengthControl applies the length enable bit of NRx4. Enabling the length
// counter while the next frame sequencer step does not clock lengths clocks
// it once more. It returns false if that disabled the channel.
func (a *APU) lengthControl(l *length, data byte) bool {
	enable := data&0x40 != 0
	extra := a.sequencer&1 == 1
	ok := true
	if extra && !l.enabled && enable && l.counter != 0 {
		l.counter--
		if l.counter == 0 && data&0x80 == 0 {
			ok = false
		}
	}
	l.enabled = enable
	if data&0x80 != 0 && l.counter == 0 {
		l.counter = l.max
		if enable && extra {
			l.counter--
		}
	}
	return ok
}

func (a *APU) powerOff() {
	table := a.ch3.table
	a.ch1 = newSquare(true)
	a.ch2 = newSquare(false)
	a.ch3 = newWave()
	a.ch3.table = table
	a.ch4 = newNoise()
	a.nr50 = 0
	a.nr51 = 0
	a.power = false
}

func boolBit(b bool, bit uint) byte {
	if b {
		return 1 << bit
	}
	return 0
}

func (a *APU) read(address uint16) byte {
	switch address {
	case 0xFF10:
		return 0x80 | a.ch1.readSweep()
	case 0xFF11:
		return 0x3F | a.ch1.duty<<6
	case 0xFF12:
		return a.ch1.envelope.read()
	case 0xFF14:
		return 0xBF | boolBit(a.ch1.length.enabled, 6)
	case 0xFF16:
		return 0x3F | a.ch2.duty<<6
	case 0xFF17:
		return a.ch2.envelope.read()
	case 0xFF19:
		return 0xBF | boolBit(a.ch2.length.enabled, 6)
	case 0xFF1A:
		return 0x7F | boolBit(a.ch3.dac, 7)
	case 0xFF1C:
		return 0x9F | a.ch3.volume<<5
	case 0xFF1E:
		return 0xBF | boolBit(a.ch3.length.enabled, 6)
	case 0xFF21:
		return a.ch4.envelope.read()
	case 0xFF22:
		return a.ch4.read()
	case 0xFF23:
		return 0xBF | boolBit(a.ch4.length.enabled, 6)
	case 0xFF24:
		return a.nr50
	case 0xFF25:
		return a.nr51
	case 0xFF26:
		return 0x70 | boolBit(a.power, 7) |
			boolBit(a.ch1.enabled, 0) | boolBit(a.ch2.enabled, 1) |
			boolBit(a.ch3.enabled, 2) | boolBit(a.ch4.enabled, 3)
	}
	if 0xFF30 <= address && address <= 0xFF3F {
		return a.ch3.readTable(int(address - 0xFF30))
	}
	// Write-only and unused registers.
	return 0xFF
}

func (a *APU) write(address uint16, data byte) {
	if 0xFF30 <= address && address <= 0xFF3F {
		a.ch3.writeTable(int(address-0xFF30), data)
		return
	}
	if address == 0xFF26 {
		switch {
		case data&0x80 == 0 && a.power:
			a.powerOff()
		case data&0x80 != 0 && !a.power:
			a.power = true
			a.sequencer = 0
		}
		return
	}
	if !a.power {
		return
	}
	switch address {
	case 0xFF10:
		a.ch1.writeSweep(data)
	case 0xFF11:
		a.ch1.duty = data >> 6
		a.ch1.length.load(data & 0x3F)
	case 0xFF12:
		a.ch1.envelope.write(data)
		if !a.ch1.envelope.dac() {
			a.ch1.enabled = false
		}
	case 0xFF13:
		a.ch1.frequency = a.ch1.frequency&0x700 | uint16(data)
	case 0xFF14:
		a.ch1.frequency = a.ch1.frequency&0xFF | uint16(data&0x07)<<8
		if !a.lengthControl(&a.ch1.length, data) {
			a.ch1.enabled = false
		}
		if data&0x80 != 0 {
			a.ch1.trigger()
		}
	case 0xFF16:
		a.ch2.duty = data >> 6
		a.ch2.length.load(data & 0x3F)
	case 0xFF17:
		a.ch2.envelope.write(data)
		if !a.ch2.envelope.dac() {
			a.ch2.enabled = false
		}
	case 0xFF18:
		a.ch2.frequency = a.ch2.frequency&0x700 | uint16(data)
	case 0xFF19:
		a.ch2.frequency = a.ch2.frequency&0xFF | uint16(data&0x07)<<8
		if !a.lengthControl(&a.ch2.length, data) {
			a.ch2.enabled = false
		}
		if data&0x80 != 0 {
			a.ch2.trigger()
		}
	case 0xFF1A:
		a.ch3.dac = data&0x80 != 0
		if !a.ch3.dac {
			a.ch3.enabled = false
		}
	case 0xFF1B:
		a.ch3.length.load(data)
	case 0xFF1C:
		a.ch3.volume = data >> 5 & 0x03
	case 0xFF1D:
		a.ch3.frequency = a.ch3.frequency&0x700 | uint16(data)
	case 0xFF1E:
		a.ch3.frequency = a.ch3.frequency&0xFF | uint16(data&0x07)<<8
		if !a.lengthControl(&a.ch3.length, data) {
			a.ch3.enabled = false
		}
		if data&0x80 != 0 {
			a.ch3.trigger()
		}
	case 0xFF20:
		a.ch4.length.load(data & 0x3F)
	case 0xFF21:
		a.ch4.envelope.write(data)
		if !a.ch4.envelope.dac() {
			a.ch4.enabled = false
		}
	case 0xFF22:
		a.ch4.write(data)
	case 0xFF23:
		if !a.lengthControl(&a.ch4.length, data) {
			a.ch4.enabled = false
		}
		if data&0x80 != 0 {
			a.ch4.trigger()
		}
	case 0xFF24:
		a.nr50 = data
	case 0xFF25:
		a.nr51 = data
	}
}
