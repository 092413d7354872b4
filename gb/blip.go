package gb

import "math"

// blip is a band-limited resampler in the manner of blip_buf. The APU does
// not produce samples, it reports amplitude changes at native clock times.
// Each change is added to the output buffer as a band-limited impulse and
// reading integrates the impulses back into a waveform at the host rate,
// so no aliasing is introduced by the 4 MHz square edges.
// Reference: http://www.slack.net/~ant/bl-synth/
type blip struct {
	// output samples per input clock
	ratio float64
	// position of clock 0 of the current frame, in output samples
	offset float64
	buf    []float64
	// integrator
	sum float64
	// DC blocker state
	lastIn  float64
	lastOut float64
}

const (
	blipWidth    = 16
	blipPhases   = 64
	blipCapacity = 1024
	// cutoff relative to the output Nyquist frequency
	blipCutoff = 0.9
	// DC blocker pole, around 20 Hz at 44.1 kHz
	blipHighPass = 0.997
)

var blipKernel = makeBlipKernel()

// makeBlipKernel builds a Hann-windowed sinc for every sub-sample phase,
// each phase normalized to unit gain.
func makeBlipKernel() [blipPhases][blipWidth]float64 {
	var k [blipPhases][blipWidth]float64
	for p := 0; p < blipPhases; p++ {
		center := float64(blipWidth/2-1) + float64(p)/blipPhases
		total := 0.0
		for i := 0; i < blipWidth; i++ {
			x := float64(i) - center
			v := blipCutoff
			if x != 0 {
				v = math.Sin(math.Pi*blipCutoff*x) / (math.Pi * x)
			}
			w := x / (blipWidth / 2)
			if w < -1 || w > 1 {
				v = 0
			} else {
				v *= 0.5 * (1 + math.Cos(math.Pi*w))
			}
			k[p][i] = v
			total += v
		}
		for i := range k[p] {
			k[p][i] /= total
		}
	}
	return k
}

func newBlip(clockRate, sampleRate int) *blip {
	return &blip{
		ratio: float64(sampleRate) / float64(clockRate),
		buf:   make([]float64, blipCapacity+blipWidth),
	}
}

// addDelta adds an amplitude change at the given clock of the current frame.
func (b *blip) addDelta(clock int, delta float64) {
	pos := b.offset + float64(clock)*b.ratio
	i := int(pos)
	if i >= blipCapacity {
		// Overrun, the host did not read in time.
		return
	}
	phase := int((pos - float64(i)) * blipPhases)
	if phase >= blipPhases {
		phase = blipPhases - 1
	}
	k := &blipKernel[phase]
	for j := 0; j < blipWidth; j++ {
		b.buf[i+j] += delta * k[j]
	}
}

// endFrame moves the time origin by the given clocks.
func (b *blip) endFrame(clocks int) {
	b.offset += float64(clocks) * b.ratio
	if b.offset > blipCapacity {
		b.offset = blipCapacity
	}
}

// available returns the number of samples that can be read.
func (b *blip) available() int {
	return int(b.offset)
}

// read moves up to len(out) samples into out and returns how many were read.
func (b *blip) read(out []float64) int {
	n := b.available()
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		b.sum += b.buf[i]
		y := b.sum - b.lastIn + blipHighPass*b.lastOut
		b.lastIn = b.sum
		b.lastOut = y
		out[i] = y
	}
	copy(b.buf, b.buf[n:])
	for i := len(b.buf) - n; i < len(b.buf); i++ {
		b.buf[i] = 0
	}
	b.offset -= float64(n)
	return n
}
