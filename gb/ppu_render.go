package gb

import (
	"image/color"
	"sort"
)

// sprite is an OAM entry selected for the current line.
// Reference: https://gbdev.io/pandocs/OAM.html
type sprite struct {
	y     int
	x     int
	tile  byte
	attr  byte
	index int
}

func (s *sprite) behindBackground() bool { return s.attr&0x80 != 0 }
func (s *sprite) yFlip() bool            { return s.attr&0x40 != 0 }
func (s *sprite) xFlip() bool            { return s.attr&0x20 != 0 }

func (p *PPU) spriteHeight() int {
	if p.lcdc&0x04 != 0 {
		return 16
	}
	return 8
}

// searchOAM selects the first 10 sprites in OAM order that cover LY.
func (p *PPU) searchOAM() {
	p.sprites = p.sprites[:0]
	if p.lcdc&0x02 == 0 {
		return
	}
	h := p.spriteHeight()
	ly := int(p.ly)
	for i := 0; i < 40 && len(p.sprites) < spritesPerLine; i++ {
		y := int(p.oam[i*4]) - 16
		if ly < y || ly >= y+h {
			continue
		}
		p.sprites = append(p.sprites, sprite{
			y:     y,
			x:     int(p.oam[i*4+1]) - 8,
			tile:  p.oam[i*4+2],
			attr:  p.oam[i*4+3],
			index: i,
		})
	}
	if !p.color {
		// The smaller X wins, OAM order breaks ties.
		sort.SliceStable(p.sprites, func(i, j int) bool {
			return p.sprites[i].x < p.sprites[j].x
		})
	}
}

// tilePixel returns the 2-bit color index of a pixel in a tile row.
func (p *PPU) tilePixel(bank int, address uint16, x int, xFlip bool) byte {
	lo := p.vram[bank][address-0x8000]
	hi := p.vram[bank][address+1-0x8000]
	bit := 7 - uint(x)
	if xFlip {
		bit = uint(x)
	}
	return (hi>>bit&1)<<1 | lo>>bit&1
}

// tileAddress returns the address of a background or window tile's data.
func (p *PPU) tileAddress(tile byte) uint16 {
	if p.lcdc&0x10 != 0 {
		return 0x8000 + uint16(tile)*16
	}
	return uint16(0x9000 + int(int8(tile))*16)
}

// backgroundPixel fetches one background or window pixel from a 32x32 tile
// map. It returns the color index, the color and the tile's priority bit.
func (p *PPU) backgroundPixel(tileMap uint16, x, y int) (byte, color.RGBA, bool) {
	offset := tileMap + uint16(y/8)*32 + uint16(x/8) - 0x8000
	tile := p.vram[0][offset]
	row := y % 8
	if !p.color {
		i := p.tilePixel(0, p.tileAddress(tile)+uint16(row)*2, x%8, false)
		return i, shade(p.bgp, i), false
	}
	attr := p.vram[1][offset]
	bank := int(attr>>3) & 1
	if attr&0x40 != 0 {
		row = 7 - row
	}
	i := p.tilePixel(bank, p.tileAddress(tile)+uint16(row)*2, x%8, attr&0x20 != 0)
	return i, p.bgPalette.color(attr&0x07, i), attr&0x80 != 0
}

// spritePixel returns the first opaque sprite pixel at x, if any.
func (p *PPU) spritePixel(x int) (*sprite, color.RGBA, bool) {
	h := p.spriteHeight()
	for i := range p.sprites {
		s := &p.sprites[i]
		if x < s.x || x >= s.x+8 {
			continue
		}
		row := int(p.ly) - s.y
		if s.yFlip() {
			row = h - 1 - row
		}
		tile := s.tile
		if h == 16 {
			tile &= 0xFE
		}
		bank := 0
		if p.color {
			bank = int(s.attr>>3) & 1
		}
		i := p.tilePixel(bank, 0x8000+uint16(tile)*16+uint16(row)*2, x-s.x, s.xFlip())
		if i == 0 {
			continue
		}
		if p.color {
			return s, p.objPalette.color(s.attr&0x07, i), true
		}
		palette := p.obp0
		if s.attr&0x10 != 0 {
			palette = p.obp1
		}
		return s, shade(palette, i), true
	}
	return nil, color.RGBA{}, false
}

// renderLine composites background, window and sprites into row LY.
func (p *PPU) renderLine() {
	ly := int(p.ly)
	// In monochrome mode LCDC bit 0 blanks background and window, in color
	// mode it only takes priority away from them.
	bgEnabled := p.color || p.lcdc&0x01 != 0
	bgMap := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		bgMap = 0x9C00
	}
	winMap := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		winMap = 0x9C00
	}
	window := p.windowVisible()
	wx := int(p.wx) - 7
	drewWindow := false

	for x := 0; x < Width; x++ {
		var (
			index    byte
			c        = shades[0]
			priority bool
		)
		switch {
		case window && x >= wx:
			index, c, priority = p.backgroundPixel(winMap, x-wx, p.windowLine)
			drewWindow = true
		case bgEnabled:
			index, c, priority = p.backgroundPixel(bgMap,
				(x+int(p.scx))&0xFF, (ly+int(p.scy))&0xFF)
		}
		if s, sc, ok := p.spritePixel(x); ok {
			top := true
			if index != 0 {
				switch {
				case p.color && p.lcdc&0x01 == 0:
				case priority, s.behindBackground():
					top = false
				}
			}
			if top {
				c = sc
			}
		}
		p.screen.SetRGBA(x, ly, c)
	}
	if drewWindow {
		p.windowLine++
	}
}
