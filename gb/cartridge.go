package gb

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/glog"
)

const (
	romBankSize     int = 0x4000 // 16 KiB
	ramBankSize     int = 0x2000 // 8 KiB
	headerEndOffset int = 0x0150 // The cartridge header ends at $014F
)

var (
	// ErrInvalidImage is returned when the image is too short to hold a header.
	ErrInvalidImage = errors.New("invalid cartridge image")
	// ErrUnsupportedCartridge is returned for an unknown cartridge type byte.
	ErrUnsupportedCartridge = errors.New("unsupported cartridge type")
	// ErrSizeMismatch is returned when the header disagrees with the image length.
	ErrSizeMismatch = errors.New("cartridge size mismatch")
)

// cartridgeKind selects the bank controller.
type cartridgeKind int

const (
	kindROM cartridgeKind = iota
	kindMBC1
	kindMBC2
	kindMBC3
	kindMBC5
)

func (k cartridgeKind) String() string {
	switch k {
	case kindROM:
		return "ROM"
	case kindMBC1:
		return "MBC1"
	case kindMBC2:
		return "MBC2"
	case kindMBC3:
		return "MBC3"
	case kindMBC5:
		return "MBC5"
	}
	return "unknown"
}

type cartridgeFeatures struct {
	kind    cartridgeKind
	ram     bool
	battery bool
	rtc     bool
	rumble  bool
}

// https://gbdev.io/pandocs/The_Cartridge_Header.html#0147--cartridge-type
var cartridgeTypes = map[byte]cartridgeFeatures{
	0x00: {kind: kindROM},
	0x01: {kind: kindMBC1},
	0x02: {kind: kindMBC1, ram: true},
	0x03: {kind: kindMBC1, ram: true, battery: true},
	0x05: {kind: kindMBC2, ram: true},
	0x06: {kind: kindMBC2, ram: true, battery: true},
	0x08: {kind: kindROM, ram: true},
	0x09: {kind: kindROM, ram: true, battery: true},
	0x0F: {kind: kindMBC3, battery: true, rtc: true},
	0x10: {kind: kindMBC3, ram: true, battery: true, rtc: true},
	0x11: {kind: kindMBC3},
	0x12: {kind: kindMBC3, ram: true},
	0x13: {kind: kindMBC3, ram: true, battery: true},
	0x19: {kind: kindMBC5},
	0x1A: {kind: kindMBC5, ram: true},
	0x1B: {kind: kindMBC5, ram: true, battery: true},
	0x1C: {kind: kindMBC5, rumble: true},
	0x1D: {kind: kindMBC5, ram: true, rumble: true},
	0x1E: {kind: kindMBC5, ram: true, battery: true, rumble: true},
	// HuC1 behaves like MBC1 as far as banking goes.
	0xFF: {kind: kindMBC1, ram: true, battery: true},
}

// ramSizes maps the RAM size code at $0149 to bytes.
var ramSizes = map[byte]int{
	0x00: 0,
	0x01: 0x800,
	0x02: 0x2000,
	0x03: 0x8000,
	0x04: 0x20000,
	0x05: 0x10000,
}

// https://gbdev.io/pandocs/The_Cartridge_Header.html
type Cartridge struct {
	rom      []byte
	title    string
	cgb      byte // $0143
	typ      byte // $0147
	romSize  int  // $0148 decoded
	ramSize  int  // $0149 decoded
	checksum byte // $014D
	features cartridgeFeatures
}

// romSizeOf decodes the ROM size code at $0148.
func romSizeOf(code byte) (int, bool) {
	switch {
	case code <= 0x08:
		return 0x8000 << code, true
	case code == 0x52:
		return 72 * romBankSize, true
	case code == 0x53:
		return 80 * romBankSize, true
	case code == 0x54:
		return 96 * romBankSize, true
	}
	return 0, false
}

// readTitle reads the upper case ASCII title, which is shorter on color carts.
func readTitle(data []byte) string {
	end := 0x0144
	if data[0x0143]&0x80 != 0 {
		end = 0x013F
	}
	var b strings.Builder
	for _, c := range data[0x0134:end] {
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// headerLogo is the bitmap at $0104-$0133 the boot ROM scrolls and compares.
var headerLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// hasLogo reports whether the header carries the logo, real hardware locks up
// without it.
func hasLogo(data []byte) bool {
	return bytes.Equal(data[0x0104:0x0134], headerLogo[:])
}

// headerChecksum computes the checksum the boot ROM verifies.
func headerChecksum(data []byte) byte {
	var x byte
	for i := 0x0134; i <= 0x014C; i++ {
		x = x - data[i] - 1
	}
	return x
}

// NewCartridge parses and validates a cartridge image.
func NewCartridge(data []byte) (*Cartridge, error) {
	if len(data) < headerEndOffset {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidImage, len(data))
	}
	c := &Cartridge{
		title:    readTitle(data),
		cgb:      data[0x0143],
		typ:      data[0x0147],
		checksum: data[0x014D],
	}
	features, ok := cartridgeTypes[c.typ]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedCartridge, c.typ)
	}
	c.features = features
	romSize, ok := romSizeOf(data[0x0148])
	if !ok {
		return nil, fmt.Errorf("%w: unknown ROM size code 0x%02x", ErrInvalidImage, data[0x0148])
	}
	if romSize != len(data) {
		return nil, fmt.Errorf("%w: header declares %d bytes of ROM, image has %d", ErrSizeMismatch, romSize, len(data))
	}
	c.romSize = romSize
	ramSize, ok := ramSizes[data[0x0149]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown RAM size code 0x%02x", ErrInvalidImage, data[0x0149])
	}
	switch {
	case features.kind == kindMBC2:
		// MBC2 has 512 half-bytes built in, the header says 0.
		ramSize = 0x200
	case !features.ram && ramSize != 0:
		glog.Warningf("Cartridge type 0x%02x has no RAM but declares %d bytes, ignoring", c.typ, ramSize)
		ramSize = 0
	}
	c.ramSize = ramSize
	if !hasLogo(data) {
		glog.Warning("Header logo mismatch, the cartridge would not boot on hardware")
	}
	if sum := headerChecksum(data); sum != c.checksum {
		glog.Warningf("Header checksum mismatch: got=0x%02x, want=0x%02x", sum, c.checksum)
	}
	c.rom = data
	return c, nil
}

// Title returns the game title stored in the header.
func (c *Cartridge) Title() string {
	return c.title
}

// SupportsColor reports whether the cartridge enables color mode.
func (c *Cartridge) SupportsColor() bool {
	return c.cgb&0x80 != 0
}

// HasBattery reports whether the external RAM is meant to be saved.
func (c *Cartridge) HasBattery() bool {
	return c.features.battery
}

func (c *Cartridge) String() string {
	return fmt.Sprintf("title=%q type=0x%02x (%s) rom=%d ram=%d color=%t",
		c.title, c.typ, c.features.kind, c.romSize, c.ramSize, c.SupportsColor())
}
