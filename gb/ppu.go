package gb

import (
	"image"
	"image/color"
)

// The LCD is 160x144 pixels.
const (
	Width  = 160
	Height = 144
)

const (
	dotsPerLine    = 456
	linesPerFrame  = 154
	DotsPerFrame   = dotsPerLine * linesPerFrame
	oamSearchDots  = 80
	transferDots   = 172
	maxTransferEnd = 80 + 289
	spritesPerLine = 10
)

type ppuMode byte

const (
	modeHBlank ppuMode = iota
	modeVBlank
	modeOAMSearch
	modeTransfer
)

// PPU renders 160x144 pixels, one dot per clock.
// Each visible line spends 80 dots in OAM search, a variable number of dots
// transferring pixels and the rest of its 456 dots in h-blank. Lines
// 144-153 are v-blank, so a frame is always 70224 dots.
//
// Mode 3 length follows the Pan Docs model: 172 dots, plus SCX mod 8, plus 6
// when the window shows on the line, plus 6 per sprite on the line.
// References:
//   https://gbdev.io/pandocs/Rendering.html
//   https://gbdev.io/pandocs/STAT.html
type PPU struct {
	vram     [2][0x2000]byte
	vramBank byte
	oam      [0xA0]byte

	// Registers.
	lcdc byte // $FF40
	stat byte // $FF41, only the interrupt select bits 3-6 are stored
	scy  byte // $FF42
	scx  byte // $FF43
	ly   byte // $FF44
	lyc  byte // $FF45
	bgp  byte // $FF47
	obp0 byte // $FF48
	obp1 byte // $FF49
	wy   byte // $FF4A
	wx   byte // $FF4B

	// Color mode only.
	color      bool
	bgPalette  colorPalette
	objPalette colorPalette

	mode        ppuMode
	dot         int
	transferEnd int
	statLine    bool

	// The window has its own line counter, it only moves on lines where the
	// window was drawn.
	windowLine      int
	windowTriggered bool

	sprites []sprite

	screen     *image.RGBA
	frameReady bool
	hblank     bool
	offDots    int
}

// NewPPU creates a PPU.
func NewPPU(color bool) *PPU {
	p := &PPU{
		color:      color,
		bgPalette:  newColorPalette(),
		objPalette: newColorPalette(),
		screen:     image.NewRGBA(image.Rect(0, 0, Width, Height)),
		sprites:    make([]sprite, 0, spritesPerLine),
	}
	p.clear()
	return p
}

func (p *PPU) enabled() bool {
	return p.lcdc&0x80 != 0
}

// clear paints the screen white, as the LCD does when it is off.
func (p *PPU) clear() {
	white := color.RGBA{0xFF, 0xFF, 0xFF, 255}
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			p.screen.SetRGBA(x, y, white)
		}
	}
}

// updateSTAT requests the STAT interrupt on a rising edge of the ORed
// conditions.
func (p *PPU) updateSTAT(ic *interrupts) {
	line := (p.stat&0x40 != 0 && p.ly == p.lyc) ||
		(p.stat&0x08 != 0 && p.mode == modeHBlank) ||
		(p.stat&0x10 != 0 && p.mode == modeVBlank) ||
		(p.stat&0x20 != 0 && p.mode == modeOAMSearch)
	if line && !p.statLine {
		ic.request(interruptSTAT)
	}
	p.statLine = line
}

func (p *PPU) setMode(mode ppuMode, ic *interrupts) {
	p.mode = mode
	p.updateSTAT(ic)
}

func (p *PPU) windowVisible() bool {
	return p.lcdc&0x20 != 0 && p.windowTriggered && p.wx <= 166 && (p.color || p.lcdc&0x01 != 0)
}

// transferLength returns the number of dots mode 3 lasts on this line.
func (p *PPU) transferLength() int {
	n := transferDots + int(p.scx&0x07) + 6*len(p.sprites)
	if p.windowVisible() {
		n += 6
	}
	if oamSearchDots+n > maxTransferEnd {
		return maxTransferEnd - oamSearchDots
	}
	return n
}

func (p *PPU) startLine(ic *interrupts) {
	if p.ly == p.wy {
		p.windowTriggered = true
	}
	p.searchOAM()
	p.setMode(modeOAMSearch, ic)
}

func (p *PPU) nextLine(ic *interrupts) {
	p.ly++
	switch {
	case p.ly == Height:
		p.setMode(modeVBlank, ic)
		ic.request(interruptVBlank)
		p.frameReady = true
	case p.ly == linesPerFrame:
		p.ly = 0
		p.windowLine = 0
		p.windowTriggered = false
		p.startLine(ic)
	case p.ly < Height:
		p.startLine(ic)
	}
	p.updateSTAT(ic)
}

// tick advances the PPU by one dot.
func (p *PPU) tick(ic *interrupts) {
	if !p.enabled() {
		// The LCD is off, frames still go by for the host.
		p.offDots++
		if p.offDots == DotsPerFrame {
			p.offDots = 0
			p.frameReady = true
		}
		return
	}
	p.dot++
	if p.ly < Height {
		switch {
		case p.dot == oamSearchDots:
			p.transferEnd = oamSearchDots + p.transferLength()
			p.setMode(modeTransfer, ic)
		case p.mode == modeTransfer && p.dot == p.transferEnd:
			p.renderLine()
			p.setMode(modeHBlank, ic)
			p.hblank = true
		}
	}
	if p.dot == dotsPerLine {
		p.dot = 0
		p.nextLine(ic)
	}
}

// step advances the PPU by the given dots.
func (p *PPU) step(dots int, ic *interrupts) {
	for i := 0; i < dots; i++ {
		p.tick(ic)
	}
}

// takeFrame reports whether a frame was completed since the last call.
func (p *PPU) takeFrame() bool {
	ok := p.frameReady
	p.frameReady = false
	return ok
}

// takeHBlank reports whether h-blank was entered since the last call.
func (p *PPU) takeHBlank() bool {
	ok := p.hblank
	p.hblank = false
	return ok
}

func (p *PPU) readVRAM(address uint16) byte {
	return p.vram[p.vramBank][address-0x8000]
}

func (p *PPU) writeVRAM(address uint16, data byte) {
	p.vram[p.vramBank][address-0x8000] = data
}

func (p *PPU) readOAM(address uint16) byte {
	return p.oam[address-0xFE00]
}

func (p *PPU) writeOAM(address uint16, data byte) {
	p.oam[address-0xFE00] = data
}

func (p *PPU) writeLCDC(data byte, ic *interrupts) {
	was := p.enabled()
	p.lcdc = data
	switch {
	case was && !p.enabled():
		p.ly = 0
		p.dot = 0
		p.mode = modeHBlank
		p.statLine = false
		p.offDots = 0
		p.clear()
	case !was && p.enabled():
		p.ly = 0
		p.dot = 0
		p.windowLine = 0
		p.windowTriggered = false
		p.startLine(ic)
	}
}

func (p *PPU) read(address uint16) byte {
	switch address {
	case 0xFF40:
		return p.lcdc
	case 0xFF41:
		ret := 0x80 | p.stat
		if p.ly == p.lyc {
			ret |= 0x04
		}
		if p.enabled() {
			ret |= byte(p.mode)
		}
		return ret
	case 0xFF42:
		return p.scy
	case 0xFF43:
		return p.scx
	case 0xFF44:
		return p.ly
	case 0xFF45:
		return p.lyc
	case 0xFF47:
		return p.bgp
	case 0xFF48:
		return p.obp0
	case 0xFF49:
		return p.obp1
	case 0xFF4A:
		return p.wy
	case 0xFF4B:
		return p.wx
	}
	if !p.color {
		return 0xFF
	}
	switch address {
	case 0xFF4F:
		return 0xFE | p.vramBank
	case 0xFF68:
		return p.bgPalette.readIndex()
	case 0xFF69:
		return p.bgPalette.readData()
	case 0xFF6A:
		return p.objPalette.readIndex()
	case 0xFF6B:
		return p.objPalette.readData()
	}
	return 0xFF
}

func (p *PPU) write(address uint16, data byte, ic *interrupts) {
	switch address {
	case 0xFF40:
		p.writeLCDC(data, ic)
	case 0xFF41:
		p.stat = data & 0x78
		if p.enabled() {
			p.updateSTAT(ic)
		}
	case 0xFF42:
		p.scy = data
	case 0xFF43:
		p.scx = data
	case 0xFF44:
		// LY is read only.
	case 0xFF45:
		p.lyc = data
		if p.enabled() {
			p.updateSTAT(ic)
		}
	case 0xFF47:
		p.bgp = data
	case 0xFF48:
		p.obp0 = data
	case 0xFF49:
		p.obp1 = data
	case 0xFF4A:
		p.wy = data
	case 0xFF4B:
		p.wx = data
	}
	if !p.color {
		return
	}
	switch address {
	case 0xFF4F:
		p.vramBank = data & 0x01
	case 0xFF68:
		p.bgPalette.writeIndex(data)
	case 0xFF69:
		p.bgPalette.writeData(data)
	case 0xFF6A:
		p.objPalette.writeIndex(data)
	case 0xFF6B:
		p.objPalette.writeData(data)
	}
}
