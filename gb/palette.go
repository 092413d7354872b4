package gb

import "image/color"

// Monochrome shades, index 0 is the lightest.
var shades = [4]color.RGBA{
	{0xFF, 0xFF, 0xFF, 255},
	{0xC0, 0xC0, 0xC0, 255},
	{0x60, 0x60, 0x60, 255},
	{0x00, 0x00, 0x00, 255},
}

// shade applies a monochrome palette register (BGP, OBP0, OBP1) to a color
// index.
func shade(palette byte, index byte) color.RGBA {
	return shades[(palette>>(index*2))&0x03]
}

// colorPalette is the color mode palette memory, 8 palettes of 4 colors in
// little endian RGB555, accessed through an index register with optional
// auto increment (BCPS/BCPD, OCPS/OCPD).
// Reference: https://gbdev.io/pandocs/Palettes.html#lcd-color-palettes-cgb-only
type colorPalette struct {
	data          [64]byte
	index         byte
	autoIncrement bool
}

func newColorPalette() colorPalette {
	p := colorPalette{}
	// Power up palettes are white.
	for i := range p.data {
		p.data[i] = 0xFF
	}
	return p
}

func (p *colorPalette) readIndex() byte {
	ret := 0x40 | p.index
	if p.autoIncrement {
		ret |= 0x80
	}
	return ret
}

func (p *colorPalette) writeIndex(data byte) {
	p.index = data & 0x3F
	p.autoIncrement = data&0x80 != 0
}

func (p *colorPalette) readData() byte {
	return p.data[p.index]
}

func (p *colorPalette) writeData(data byte) {
	p.data[p.index] = data
	if p.autoIncrement {
		p.index = (p.index + 1) & 0x3F
	}
}

// scale5 expands a 5-bit channel to 8 bits.
func scale5(x uint16) uint8 {
	x &= 0x1F
	return uint8(x<<3 | x>>2)
}

func (p *colorPalette) color(palette byte, index byte) color.RGBA {
	i := int(palette&0x07)*8 + int(index)*2
	v := uint16(p.data[i]) | uint16(p.data[i+1])<<8
	return color.RGBA{scale5(v), scale5(v >> 5), scale5(v >> 10), 255}
}
