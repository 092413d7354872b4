package gb

import (
	"fmt"
	"image"

	"github.com/golang/glog"
)

// Console is a Game Boy as seen by the host.
type Console interface {
	// Step runs one CPU instruction (or a debugger command) and returns the
	// elapsed clocks.
	Step() (int, error)
	// RunFrame runs until the next frame completes and returns it. The image
	// is owned by the console and is overwritten by the next frame.
	RunFrame() (*image.RGBA, error)
	// Frame returns the last completed frame and whether it is new since the
	// last call.
	Frame() (*image.RGBA, bool)
	// SetButtons sets the state of the 8 buttons, true means pressed.
	SetButtons(buttons [8]bool)
	// Audio returns the stream the APU writes samples to.
	Audio() *AudioBuffer
	// SaveData serializes the external RAM and the real time clock.
	SaveData() []byte
	// LoadSaveData restores SaveData output, on error the RAM is zeroed and
	// the console keeps running.
	LoadSaveData(data []byte) error
	HasBattery() bool
	Title() string
}

// GameBoy is the scheduler, it owns every component and runs them in
// lockstep: after each CPU instruction the other components are advanced by
// the clocks the instruction took, then pending interrupts are dispatched.
type GameBoy struct {
	cfg       *config
	cartridge *Cartridge
	color     bool

	ic         *interrupts
	mapper     Mapper
	cpu        *CPU
	ppu        *PPU
	apu        *APU
	timer      *Timer
	serial     *Serial
	controller *Controller
	bus        *MemoryBus
	audio      *AudioBuffer

	currentFrame uint64
	lastFrame    uint64
	buffer       *image.RGBA
}

// NewConsole creates a console running the given cartridge image. With debug
// the console is driven by commands from stdin, see DebugConsole.
func NewConsole(rom []byte, debug bool, options ...Option) (Console, error) {
	cfg := defaultConfig()
	if err := cfg.setOptions(options...); err != nil {
		return nil, err
	}
	cartridge, err := NewCartridge(rom)
	if err != nil {
		return nil, fmt.Errorf("failed to load the cartridge: %w", err)
	}
	audio, err := NewAudioBuffer(cfg.audioBufferSize)
	if err != nil {
		return nil, err
	}
	g := &GameBoy{
		cfg:       cfg,
		cartridge: cartridge,
		color:     cartridge.SupportsColor() && !cfg.forceDMG,
		audio:     audio,
	}
	if err := g.reset(); err != nil {
		return nil, err
	}
	glog.Infof("Loaded %s, color mode: %v", cartridge, g.color)
	if debug {
		return &DebugConsole{GameBoy: g}, nil
	}
	return g, nil
}

// reset powers the console on, external RAM is lost.
func (g *GameBoy) reset() error {
	mapper, err := NewMapper(g.cartridge, g.cfg.now)
	if err != nil {
		return err
	}
	g.ic = &interrupts{}
	g.mapper = mapper
	g.timer = NewTimer()
	g.ppu = NewPPU(g.color)
	g.apu = NewAPU(g.cfg.sampleRate, g.audio)
	g.serial = NewSerial(g.cfg.serial)
	g.controller = NewController()
	g.bus = NewMemoryBus(mapper, NewWRAM(), &HRAM{}, g.ppu, g.apu, g.timer, g.controller, g.serial, g.ic, g.color)
	g.bus.initIO()
	// DIV as left by the boot ROM.
	g.timer.counter = 0xABCC
	g.cpu = NewCPU(g.bus, g.color)
	g.buffer = g.ppu.screen
	g.currentFrame = 0
	g.lastFrame = 0
	return nil
}

// advance runs every component but the CPU for the given CPU clocks.
func (g *GameBoy) advance(cycles int) {
	fs := g.timer.step(cycles, g.ic)
	g.serial.step(cycles, g.ic)
	// In double speed the CPU, the timer and the serial port run twice as
	// fast, the PPU and the APU do not.
	dots := cycles
	if g.bus.doubleSpeed {
		dots = cycles / 2
	}
	g.ppu.step(dots, g.ic)
	if g.ppu.takeHBlank() {
		g.bus.hblank()
	}
	g.apu.step(dots, fs)
	if g.ppu.takeFrame() {
		g.currentFrame++
	}
	g.cpu.stall += g.bus.takeStall()
}

// step runs one instruction and the interrupt dispatch following it.
func (g *GameBoy) step() int {
	if g.cpu == nil {
		panic("gb: console has no cartridge loaded")
	}
	cycles := g.cpu.Step(g.ic)
	if g.cpu.stopping {
		g.cpu.stopping = false
		g.timer.write(0xFF04, 0)
		if !g.bus.switchSpeed() {
			g.cpu.stopped = true
		}
	}
	g.advance(cycles)
	if n := g.cpu.serviceInterrupts(g.ic); n > 0 {
		g.advance(n)
		cycles += n
	}
	return cycles
}

func (g *GameBoy) Step() (int, error) {
	return g.step(), nil
}

func (g *GameBoy) RunFrame() (*image.RGBA, error) {
	start := g.currentFrame
	for g.currentFrame == start {
		g.step()
	}
	g.lastFrame = g.currentFrame
	return g.buffer, nil
}

func (g *GameBoy) Frame() (*image.RGBA, bool) {
	if g.lastFrame < g.currentFrame {
		g.lastFrame = g.currentFrame
		return g.buffer, true
	}
	return g.buffer, false
}

func (g *GameBoy) SetButtons(buttons [8]bool) {
	g.controller.set(buttons, g.ic)
}

func (g *GameBoy) Audio() *AudioBuffer {
	return g.audio
}

func (g *GameBoy) SaveData() []byte {
	return encodeSaveData(g.mapper)
}

func (g *GameBoy) LoadSaveData(data []byte) error {
	if err := decodeSaveData(g.mapper, data); err != nil {
		ram := g.mapper.RAM()
		for i := range ram {
			ram[i] = 0
		}
		glog.Warningf("Discarded save data: %v", err)
		return err
	}
	glog.Infof("Loaded %d bytes of save data", len(data))
	return nil
}

func (g *GameBoy) HasBattery() bool {
	return g.cartridge.HasBattery()
}

func (g *GameBoy) Title() string {
	return g.cartridge.Title()
}
