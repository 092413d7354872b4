package gb

import "testing"

// flatBus is 64KiB of RAM without any mapping.
type flatBus struct {
	memory [0x10000]byte
}

func (b *flatBus) read(address uint16) byte        { return b.memory[address] }
func (b *flatBus) write(address uint16, data byte) { b.memory[address] = data }

// newTestCPU loads the program at 0x0100 where execution starts.
func newTestCPU(program ...byte) (*CPU, *flatBus, *interrupts) {
	bus := &flatBus{}
	copy(bus.memory[0x0100:], program)
	cpu := NewCPU(bus, false)
	cpu.sp = 0xD000
	return cpu, bus, &interrupts{}
}

func run(cpu *CPU, ic *interrupts, n int) int {
	cycles := 0
	for i := 0; i < n; i++ {
		cycles += cpu.Step(ic)
	}
	return cycles
}

func TestInitialRegisters(t *testing.T) {
	cpu := NewCPU(&flatBus{}, false)
	if cpu.af() != 0x01B0 || cpu.bc() != 0x0013 || cpu.de() != 0x00D8 || cpu.hl() != 0x014D {
		t.Errorf("DMG registers: got %s", cpu)
	}
	if cpu.sp != 0xFFFE || cpu.pc != 0x0100 {
		t.Errorf("DMG SP/PC: got SP=0x%04x PC=0x%04x", cpu.sp, cpu.pc)
	}
	cpu = NewCPU(&flatBus{}, true)
	if cpu.a != 0x11 {
		t.Errorf("color A: got 0x%02x, want 0x11", cpu.a)
	}
}

func TestInstructions(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		steps   int
		setup   func(*CPU, *flatBus)
		check   func(*testing.T, *CPU, *flatBus)
	}{
		{
			name:    "LD B,d8; LD A,B",
			program: []byte{0x06, 0x42, 0x78},
			steps:   2,
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.a != 0x42 {
					t.Errorf("A: got 0x%02x, want 0x42", c.a)
				}
			},
		},
		{
			name:    "ADD A,d8 half carry",
			program: []byte{0xC6, 0x0F},
			steps:   1,
			setup:   func(c *CPU, _ *flatBus) { c.a = 0x01 },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.a != 0x10 || c.f != (flags{h: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "SUB d8 borrow",
			program: []byte{0xD6, 0x01},
			steps:   1,
			setup:   func(c *CPU, _ *flatBus) { c.a = 0x00 },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.a != 0xFF || c.f != (flags{n: true, h: true, c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "CP d8 keeps A",
			program: []byte{0xFE, 0x42},
			steps:   1,
			setup:   func(c *CPU, _ *flatBus) { c.a = 0x42 },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.a != 0x42 || !c.f.z || !c.f.n {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "ADC A,d8 with carry",
			program: []byte{0x37, 0xCE, 0x01},
			steps:   2,
			setup:   func(c *CPU, _ *flatBus) { c.a = 0xFE },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.a != 0x00 || c.f != (flags{z: true, h: true, c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "DAA after ADD",
			program: []byte{0xC6, 0x38, 0x27},
			steps:   2,
			setup:   func(c *CPU, _ *flatBus) { c.a = 0x45 },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.a != 0x83 || c.f.c {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "PUSH BC; POP DE",
			program: []byte{0xC5, 0xD1},
			steps:   2,
			setup:   func(c *CPU, _ *flatBus) { c.setBC(0x1234) },
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.de() != 0x1234 || c.sp != 0xD000 {
					t.Errorf("got DE=0x%04x SP=0x%04x", c.de(), c.sp)
				}
				if b.memory[0xCFFF] != 0x12 || b.memory[0xCFFE] != 0x34 {
					t.Errorf("stack: got %02x %02x", b.memory[0xCFFF], b.memory[0xCFFE])
				}
			},
		},
		{
			name:    "POP AF clears the low nibble",
			program: []byte{0xC5, 0xF1},
			steps:   2,
			setup:   func(c *CPU, _ *flatBus) { c.setBC(0x12FF) },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.af() != 0x12F0 {
					t.Errorf("AF: got 0x%04x, want 0x12f0", c.af())
				}
			},
		},
		{
			name:    "LD HL,SP+r8 flags from the low byte",
			program: []byte{0x31, 0xF8, 0xFF, 0xF8, 0x08},
			steps:   2,
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.hl() != 0x0000 || c.f != (flags{h: true, c: true}) {
					t.Errorf("got HL=0x%04x F=%+v", c.hl(), c.f)
				}
			},
		},
		{
			name:    "ADD SP,r8 negative",
			program: []byte{0xE8, 0xFF},
			steps:   1,
			setup:   func(c *CPU, _ *flatBus) { c.sp = 0x0000 },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.sp != 0xFFFF || c.f != (flags{}) {
					t.Errorf("got SP=0x%04x F=%+v", c.sp, c.f)
				}
			},
		},
		{
			name:    "ADD HL,DE keeps Z",
			program: []byte{0x19},
			steps:   1,
			setup: func(c *CPU, _ *flatBus) {
				c.setHL(0x0FFF)
				c.setDE(0x0001)
				c.f.z = true
			},
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.hl() != 0x1000 || c.f != (flags{z: true, h: true}) {
					t.Errorf("got HL=0x%04x F=%+v", c.hl(), c.f)
				}
			},
		},
		{
			name:    "INC (HL) keeps C",
			program: []byte{0x37, 0x34},
			steps:   2,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0xFF
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x00 || c.f != (flags{z: true, h: true, c: true}) {
					t.Errorf("got (HL)=0x%02x F=%+v", b.memory[0xC000], c.f)
				}
			},
		},
		{
			name:    "LD (HL+),A; LD A,(HL-)",
			program: []byte{0x22, 0x3A},
			steps:   2,
			setup: func(c *CPU, _ *flatBus) {
				c.a = 0x99
				c.setHL(0xC000)
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x99 || c.hl() != 0xC000 {
					t.Errorf("got (C000)=0x%02x HL=0x%04x", b.memory[0xC000], c.hl())
				}
			},
		},
		{
			name:    "LD (a16),SP",
			program: []byte{0x08, 0x00, 0xC1},
			steps:   1,
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC100] != 0x00 || b.memory[0xC101] != 0xD0 {
					t.Errorf("got %02x %02x", b.memory[0xC100], b.memory[0xC101])
				}
			},
		},
		{
			name:    "RLCA clears Z",
			program: []byte{0x07},
			steps:   1,
			setup:   func(c *CPU, _ *flatBus) { c.a = 0x00; c.f.z = true },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.f.z {
					t.Errorf("Z is set")
				}
			},
		},
		{
			name:    "RLC B sets Z",
			program: []byte{0xCB, 0x00},
			steps:   1,
			setup:   func(c *CPU, _ *flatBus) { c.b = 0x00 },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if !c.f.z {
					t.Errorf("Z is not set")
				}
			},
		},
		{
			name:    "SWAP A",
			program: []byte{0xCB, 0x37},
			steps:   1,
			setup:   func(c *CPU, _ *flatBus) { c.a = 0xAB },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.a != 0xBA {
					t.Errorf("A: got 0x%02x, want 0xba", c.a)
				}
			},
		},
		{
			name:    "BIT 7,H keeps C",
			program: []byte{0x37, 0xCB, 0x7C},
			steps:   2,
			setup:   func(c *CPU, _ *flatBus) { c.h = 0x7F },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.f != (flags{z: true, h: true, c: true}) {
					t.Errorf("F: got %+v", c.f)
				}
			},
		},
		{
			name:    "SET 3,(HL); RES 0,(HL)",
			program: []byte{0xCB, 0xDE, 0xCB, 0x86},
			steps:   2,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0x01
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x08 {
					t.Errorf("(HL): got 0x%02x, want 0x08", b.memory[0xC000])
				}
			},
		},
		{
			name:    "SRA keeps bit 7",
			program: []byte{0xCB, 0x2F},
			steps:   1,
			setup:   func(c *CPU, _ *flatBus) { c.a = 0x81 },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.a != 0xC0 || !c.f.c {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "JR backwards",
			program: []byte{0x00, 0x18, 0xFD},
			steps:   2,
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.pc != 0x0100 {
					t.Errorf("PC: got 0x%04x, want 0x0100", c.pc)
				}
			},
		},
		{
			name:    "CALL; RET",
			program: []byte{0xCD, 0x00, 0x02},
			steps:   2,
			setup:   func(_ *CPU, b *flatBus) { b.memory[0x0200] = 0xC9 },
			check: func(t *testing.T, c *CPU, _ *flatBus) {
				if c.pc != 0x0103 || c.sp != 0xD000 {
					t.Errorf("got PC=0x%04x SP=0x%04x", c.pc, c.sp)
				}
			},
		},
		{
			name:    "RST 38H",
			program: []byte{0xFF},
			steps:   1,
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.pc != 0x0038 || b.memory[0xCFFE] != 0x01 || b.memory[0xCFFF] != 0x01 {
					t.Errorf("got PC=0x%04x", c.pc)
				}
			},
		},
		{
			name:    "LDH (a8),A; LD A,(C)",
			program: []byte{0xE0, 0x80, 0x3E, 0x00, 0xF2},
			steps:   3,
			setup: func(c *CPU, _ *flatBus) {
				c.a = 0x5A
				c.c = 0x80
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xFF80] != 0x5A || c.a != 0x5A {
					t.Errorf("got (FF80)=0x%02x A=0x%02x", b.memory[0xFF80], c.a)
				}
			},
		},
		{
			name:    "SBC A,d8 borrow in",
			program: []byte{0xDE, 0x00},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x00
				c.f.c = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0xFF || c.f != (flags{n: true, h: true, c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "SBC A,B borrow in to zero",
			program: []byte{0x98},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x10
				c.b = 0x0F
				c.f.c = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x00 || c.f != (flags{z: true, n: true, h: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "ADC A,(HL) half carry from carry in",
			program: []byte{0x8E},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x0F
				c.setHL(0xC000)
				c.f.c = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x10 || c.f != (flags{h: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "DAA after SUB",
			program: []byte{0xD6, 0x15, 0x27},
			steps:   2,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x42
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x27 || c.f != (flags{n: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "DAA after SUB with borrow",
			program: []byte{0xD6, 0x42, 0x27},
			steps:   2,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x15
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x73 || c.f != (flags{n: true, c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "CPL keeps Z and C",
			program: []byte{0x2F},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x35
				c.f = flags{z: true, c: true}
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0xCA || c.f != (flags{z: true, n: true, h: true, c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "SCF clears N and H",
			program: []byte{0x37},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.f = flags{z: true, n: true, h: true}
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.f != (flags{z: true, c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "CCF clears C",
			program: []byte{0x3F},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.f = flags{n: true, h: true, c: true}
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.f != (flags{}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "CCF sets C",
			program: []byte{0x3F},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.f = flags{z: true}
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.f != (flags{z: true, c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "RL (HL) through carry",
			program: []byte{0xCB, 0x16},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0x80
				c.f.c = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x01 || c.f != (flags{c: true}) {
					t.Errorf("got (HL)=0x%02x F=%+v", b.memory[0xC000], c.f)
				}
			},
		},
		{
			name:    "RR (HL) to zero",
			program: []byte{0xCB, 0x1E},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0x01
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x00 || c.f != (flags{z: true, c: true}) {
					t.Errorf("got (HL)=0x%02x F=%+v", b.memory[0xC000], c.f)
				}
			},
		},
		{
			name:    "SLA (HL)",
			program: []byte{0xCB, 0x26},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0x80
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x00 || c.f != (flags{z: true, c: true}) {
					t.Errorf("got (HL)=0x%02x F=%+v", b.memory[0xC000], c.f)
				}
			},
		},
		{
			name:    "SWAP (HL) clears C",
			program: []byte{0xCB, 0x36},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0xF0
				c.f.c = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x0F || c.f != (flags{}) {
					t.Errorf("got (HL)=0x%02x F=%+v", b.memory[0xC000], c.f)
				}
			},
		},
		{
			name:    "SRL (HL)",
			program: []byte{0xCB, 0x3E},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0x81
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x40 || c.f != (flags{c: true}) {
					t.Errorf("got (HL)=0x%02x F=%+v", b.memory[0xC000], c.f)
				}
			},
		},
		{
			name:    "BIT 0,(HL)",
			program: []byte{0xCB, 0x46},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0x01
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0x01 || c.f != (flags{h: true}) {
					t.Errorf("got (HL)=0x%02x F=%+v", b.memory[0xC000], c.f)
				}
			},
		},
		{
			name:    "DEC (HL) half borrow",
			program: []byte{0x35},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0x00
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC000] != 0xFF || c.f != (flags{n: true, h: true}) {
					t.Errorf("got (HL)=0x%02x F=%+v", b.memory[0xC000], c.f)
				}
			},
		},
		{
			name:    "RRC A",
			program: []byte{0xCB, 0x0F},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x01
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x80 || c.f != (flags{c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "RLA through carry",
			program: []byte{0x17},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x80
				c.f.c = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x01 || c.f != (flags{c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "RRA clears Z",
			program: []byte{0x1F},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x01
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x00 || c.f != (flags{c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "AND d8 sets H",
			program: []byte{0xE6, 0x0F},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0xF0
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x00 || c.f != (flags{z: true, h: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "OR d8 clears C",
			program: []byte{0xF6, 0x0F},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0xF0
				c.f.c = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0xFF || c.f != (flags{}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "XOR A",
			program: []byte{0xAF},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x5A
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x00 || c.f != (flags{z: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "CP d8 borrow",
			program: []byte{0xFE, 0x20},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x10
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x10 || c.f != (flags{n: true, c: true}) {
					t.Errorf("got A=0x%02x F=%+v", c.a, c.f)
				}
			},
		},
		{
			name:    "DEC B half borrow",
			program: []byte{0x05},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.b = 0x10
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.b != 0x0F || c.f != (flags{n: true, h: true}) {
					t.Errorf("got B=0x%02x F=%+v", c.b, c.f)
				}
			},
		},
		{
			name:    "DEC B to zero keeps C",
			program: []byte{0x05},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.b = 0x01
				c.f.c = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.b != 0x00 || c.f != (flags{z: true, n: true, c: true}) {
					t.Errorf("got B=0x%02x F=%+v", c.b, c.f)
				}
			},
		},
		{
			name:    "INC BC keeps flags",
			program: []byte{0x03},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setBC(0xFFFF)
				c.f.z = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.bc() != 0x0000 || c.f != (flags{z: true}) {
					t.Errorf("got BC=0x%04x F=%+v", c.bc(), c.f)
				}
			},
		},
		{
			name:    "ADD SP,r8 half carry",
			program: []byte{0xE8, 0x01},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.sp = 0x000F
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.sp != 0x0010 || c.f != (flags{h: true}) {
					t.Errorf("got SP=0x%04x F=%+v", c.sp, c.f)
				}
			},
		},
		{
			name:    "ADD SP,r8 carry clears Z",
			program: []byte{0xE8, 0x01},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.sp = 0x00FF
				c.f.z = true
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.sp != 0x0100 || c.f != (flags{h: true, c: true}) {
					t.Errorf("got SP=0x%04x F=%+v", c.sp, c.f)
				}
			},
		},
		{
			name:    "LD HL,SP+r8 half carry",
			program: []byte{0xF8, 0x01},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.sp = 0xD00F
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.hl() != 0xD010 || c.f != (flags{h: true}) {
					t.Errorf("got HL=0x%04x F=%+v", c.hl(), c.f)
				}
			},
		},
		{
			name:    "LD HL,SP+r8 negative without carry",
			program: []byte{0xF8, 0xFF},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.sp = 0xD000
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.hl() != 0xCFFF || c.f != (flags{}) {
					t.Errorf("got HL=0x%04x F=%+v", c.hl(), c.f)
				}
			},
		},
		{
			name:    "ADD HL,SP carry",
			program: []byte{0x39},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0x8000)
				c.sp = 0x8000
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.hl() != 0x0000 || c.f != (flags{c: true}) {
					t.Errorf("got HL=0x%04x F=%+v", c.hl(), c.f)
				}
			},
		},
		{
			name:    "JP HL",
			program: []byte{0xE9},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0x1234)
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.pc != 0x1234 {
					t.Errorf("got PC=0x%04x", c.pc)
				}
			},
		},
		{
			name:    "LD SP,HL",
			program: []byte{0xF9},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC123)
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.sp != 0xC123 {
					t.Errorf("got SP=0x%04x", c.sp)
				}
			},
		},
		{
			name:    "LD (a16),A; XOR A; LD A,(DE)",
			program: []byte{0xEA, 0x00, 0xC0, 0xAF, 0x1A},
			steps:   3,
			setup: func(c *CPU, b *flatBus) {
				c.a = 0x77
				c.setDE(0xC000)
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.a != 0x77 || b.memory[0xC000] != 0x77 {
					t.Errorf("got A=0x%02x (C000)=0x%02x", c.a, b.memory[0xC000])
				}
			},
		},
		{
			name:    "LD B,(HL); INC HL; LD (HL),B",
			program: []byte{0x46, 0x23, 0x70},
			steps:   3,
			setup: func(c *CPU, b *flatBus) {
				c.setHL(0xC000)
				b.memory[0xC000] = 0x3C
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if b.memory[0xC001] != 0x3C || c.hl() != 0xC001 {
					t.Errorf("got (C001)=0x%02x HL=0x%04x", b.memory[0xC001], c.hl())
				}
			},
		},
		{
			name:    "RETI enables IME",
			program: []byte{0xD9},
			steps:   1,
			setup: func(c *CPU, b *flatBus) {
				b.memory[0xD000] = 0x00
				b.memory[0xD001] = 0x02
			},
			check: func(t *testing.T, c *CPU, b *flatBus) {
				if c.pc != 0x0200 || c.sp != 0xD002 || !c.ime {
					t.Errorf("got PC=0x%04x SP=0x%04x IME=%v", c.pc, c.sp, c.ime)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, bus, ic := newTestCPU(tt.program...)
			cpu.f = flags{}
			if tt.setup != nil {
				tt.setup(cpu, bus)
			}
			run(cpu, ic, tt.steps)
			tt.check(t, cpu, bus)
		})
	}
}

// cycleTable holds the clocks of every primary opcode, conditional branches
// are listed with the cost when the branch is not taken. Illegal opcodes lock
// the CPU and report 4, 0xCB is covered by cbCycleTable.
var cycleTable = [256]int{
	// x0 x1  x2  x3  x4  x5  x6  x7  x8  x9  xA  xB  xC  xD  xE  xF
	4, 12, 8, 8, 4, 4, 8, 4, 20, 8, 8, 8, 4, 4, 8, 4, // 0x
	4, 12, 8, 8, 4, 4, 8, 4, 12, 8, 8, 8, 4, 4, 8, 4, // 1x
	8, 12, 8, 8, 4, 4, 8, 4, 8, 8, 8, 8, 4, 4, 8, 4, // 2x
	8, 12, 8, 8, 12, 12, 12, 4, 8, 8, 8, 8, 4, 4, 8, 4, // 3x
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4, // 4x
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4, // 5x
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4, // 6x
	8, 8, 8, 8, 8, 8, 4, 8, 4, 4, 4, 4, 4, 4, 8, 4, // 7x
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4, // 8x
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4, // 9x
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4, // Ax
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4, // Bx
	8, 12, 12, 16, 12, 16, 8, 16, 8, 16, 12, 0, 12, 24, 8, 16, // Cx
	8, 12, 12, 4, 12, 16, 8, 16, 8, 16, 12, 4, 12, 4, 8, 16, // Dx
	12, 12, 8, 4, 4, 16, 8, 16, 16, 4, 16, 4, 4, 4, 8, 16, // Ex
	12, 12, 8, 4, 4, 16, 8, 16, 12, 8, 16, 4, 4, 4, 8, 16, // Fx
}

// takenCycles holds the cost of conditional branches when taken.
var takenCycles = map[byte]int{
	0x20: 12, 0x28: 12, 0x30: 12, 0x38: 12, // JR cc
	0xC2: 16, 0xCA: 16, 0xD2: 16, 0xDA: 16, // JP cc
	0xC4: 24, 0xCC: 24, 0xD4: 24, 0xDC: 24, // CALL cc
	0xC0: 20, 0xC8: 20, 0xD0: 20, 0xD8: 20, // RET cc
}

// cbCycleTable holds the clocks of every 0xCB opcode, prefix included.
var cbCycleTable = [256]int{
	// x0 x1  x2  x3  x4  x5  x6  x7  x8  x9  xA  xB  xC  xD  xE  xF
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // 0x RLC RRC
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // 1x RL RR
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // 2x SLA SRA
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // 3x SWAP SRL
	8, 8, 8, 8, 8, 8, 12, 8, 8, 8, 8, 8, 8, 8, 12, 8, // 4x BIT
	8, 8, 8, 8, 8, 8, 12, 8, 8, 8, 8, 8, 8, 8, 12, 8, // 5x
	8, 8, 8, 8, 8, 8, 12, 8, 8, 8, 8, 8, 8, 8, 12, 8, // 6x
	8, 8, 8, 8, 8, 8, 12, 8, 8, 8, 8, 8, 8, 8, 12, 8, // 7x
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // 8x RES
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // 9x
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // Ax
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // Bx
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // Cx SET
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // Dx
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // Ex
	8, 8, 8, 8, 8, 8, 16, 8, 8, 8, 8, 8, 8, 8, 16, 8, // Fx
}

// branchFlags returns flags for which the condition encoded in bits 3-4 of a
// conditional opcode holds or not.
func branchFlags(op byte, holds bool) flags {
	var f flags
	switch op >> 3 & 0x03 {
	case 0: // NZ
		f.z = !holds
	case 1: // Z
		f.z = holds
	case 2: // NC
		f.c = !holds
	case 3: // C
		f.c = holds
	}
	return f
}

func stepOpcode(program []byte, f flags) int {
	cpu, _, ic := newTestCPU(program...)
	cpu.f = f
	cpu.setHL(0xC000)
	return cpu.Step(ic)
}

func TestCycles(t *testing.T) {
	for op := 0; op < 256; op++ {
		if op == 0xCB {
			continue
		}
		program := []byte{byte(op), 0x00, 0x00}
		_, conditional := takenCycles[byte(op)]
		f := flags{}
		if conditional {
			f = branchFlags(byte(op), false)
		}
		if got := stepOpcode(program, f); got != cycleTable[op] {
			t.Errorf("opcode 0x%02x: got %d cycles, want %d", op, got, cycleTable[op])
		}
	}
}

func TestBranchTakenCycles(t *testing.T) {
	for op, want := range takenCycles {
		program := []byte{op, 0x00, 0x00}
		if got := stepOpcode(program, branchFlags(op, true)); got != want {
			t.Errorf("opcode 0x%02x taken: got %d cycles, want %d", op, got, want)
		}
	}
}

func TestCBCycles(t *testing.T) {
	for op := 0; op < 256; op++ {
		if got := stepOpcode([]byte{0xCB, byte(op)}, flags{}); got != cbCycleTable[op] {
			t.Errorf("opcode CB 0x%02x: got %d cycles, want %d", op, got, cbCycleTable[op])
		}
	}
}

func TestConditionalBranches(t *testing.T) {
	tests := []struct {
		name    string
		ops     []byte
		program []byte
		// PC and SP when the branch is taken and when it is not.
		takenPC, takenSP uint16
		skipPC, skipSP   uint16
	}{
		{"JR cc", []byte{0x20, 0x28, 0x30, 0x38}, []byte{0x05}, 0x0107, 0xD000, 0x0102, 0xD000},
		{"JP cc", []byte{0xC2, 0xCA, 0xD2, 0xDA}, []byte{0x00, 0x02}, 0x0200, 0xD000, 0x0103, 0xD000},
		{"CALL cc", []byte{0xC4, 0xCC, 0xD4, 0xDC}, []byte{0x00, 0x02}, 0x0200, 0xCFFE, 0x0103, 0xD000},
		{"RET cc", []byte{0xC0, 0xC8, 0xD0, 0xD8}, nil, 0x1234, 0xD002, 0x0101, 0xD000},
	}
	for _, tt := range tests {
		for _, op := range tt.ops {
			for _, holds := range []bool{true, false} {
				cpu, bus, ic := newTestCPU(append([]byte{op}, tt.program...)...)
				bus.memory[0xD000] = 0x34
				bus.memory[0xD001] = 0x12
				cpu.f = branchFlags(op, holds)
				cpu.Step(ic)
				wantPC, wantSP := tt.skipPC, tt.skipSP
				if holds {
					wantPC, wantSP = tt.takenPC, tt.takenSP
				}
				if cpu.pc != wantPC || cpu.sp != wantSP {
					t.Errorf("%s 0x%02x (condition %v): got PC=0x%04x SP=0x%04x, want PC=0x%04x SP=0x%04x",
						tt.name, op, holds, cpu.pc, cpu.sp, wantPC, wantSP)
				}
			}
		}
	}
	cpu, bus, ic := newTestCPU(0xC4, 0x00, 0x02)
	cpu.f = flags{}
	cpu.Step(ic)
	if bus.memory[0xCFFF] != 0x01 || bus.memory[0xCFFE] != 0x03 {
		t.Errorf("CALL NZ return address: got %02x%02x, want 0103", bus.memory[0xCFFF], bus.memory[0xCFFE])
	}
}

func TestOpcodeTables(t *testing.T) {
	cpu, _, _ := newTestCPU()
	illegal := map[int]bool{
		0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true, 0xEB: true,
		0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true,
	}
	if len(cpu.instructions) != 256 || len(cpu.cbInstructions) != 256 {
		t.Fatalf("table sizes: got %d and %d", len(cpu.instructions), len(cpu.cbInstructions))
	}
	for op, inst := range cpu.instructions {
		if op == 0xCB {
			continue
		}
		if illegal[op] {
			if inst.execute != nil {
				t.Errorf("0x%02x should be illegal", op)
			}
			continue
		}
		if inst.execute == nil || inst.cycles == 0 || inst.cycles%4 != 0 {
			t.Errorf("0x%02x %q: bad entry", op, inst.mnemonic)
		}
	}
	for op, inst := range cpu.cbInstructions {
		if inst.execute == nil || inst.cycles%4 != 0 {
			t.Errorf("CB 0x%02x %q: bad entry", op, inst.mnemonic)
		}
	}
}

func TestInterruptPriority(t *testing.T) {
	cpu, bus, ic := newTestCPU()
	cpu.ime = true
	ic.writeIE(0x1F)
	ic.writeIF(byte(interruptSTAT | interruptTimer))
	if got := cpu.serviceInterrupts(ic); got != 20 {
		t.Errorf("dispatch: got %d cycles, want 20", got)
	}
	if cpu.pc != 0x0048 {
		t.Errorf("PC: got 0x%04x, want 0x0048", cpu.pc)
	}
	if ic.flag != byte(interruptTimer) {
		t.Errorf("IF: got 0x%02x, want only timer", ic.flag)
	}
	if cpu.ime {
		t.Error("IME is still set")
	}
	if bus.memory[0xCFFF] != 0x01 || bus.memory[0xCFFE] != 0x00 {
		t.Errorf("return address: got %02x%02x", bus.memory[0xCFFF], bus.memory[0xCFFE])
	}
	if got := cpu.serviceInterrupts(ic); got != 0 {
		t.Errorf("IME=0: got %d cycles, want 0", got)
	}
}

func TestEIDelay(t *testing.T) {
	cpu, bus, ic := newTestCPU(0xFB, 0x00, 0x00)
	ic.writeIE(0x01)
	ic.request(interruptVBlank)
	cpu.Step(ic)
	if got := cpu.serviceInterrupts(ic); got != 0 {
		t.Fatal("dispatched right after EI")
	}
	cpu.Step(ic)
	if got := cpu.serviceInterrupts(ic); got != 20 {
		t.Fatal("not dispatched after the instruction following EI")
	}
	if bus.memory[0xCFFE] != 0x02 {
		t.Errorf("return address low: got 0x%02x, want 0x02", bus.memory[0xCFFE])
	}
}

func TestEIThenDI(t *testing.T) {
	cpu, _, ic := newTestCPU(0xFB, 0xF3, 0x00)
	run(cpu, ic, 3)
	if cpu.ime {
		t.Error("IME set after EI; DI")
	}
}

func TestHaltWithIME(t *testing.T) {
	cpu, bus, ic := newTestCPU(0x76, 0x00)
	cpu.ime = true
	ic.writeIE(0x04)
	cpu.Step(ic)
	if !cpu.halted {
		t.Fatal("not halted")
	}
	for i := 0; i < 10; i++ {
		if got := cpu.Step(ic); got != 4 {
			t.Fatalf("halted step: got %d cycles, want 4", got)
		}
	}
	ic.request(interruptTimer)
	cpu.serviceInterrupts(ic)
	if cpu.halted || cpu.pc != 0x0050 {
		t.Errorf("got halted=%v PC=0x%04x", cpu.halted, cpu.pc)
	}
	if bus.memory[0xCFFE] != 0x01 {
		t.Errorf("return address low: got 0x%02x, want 0x01", bus.memory[0xCFFE])
	}
}

func TestHaltWithoutIME(t *testing.T) {
	cpu, _, ic := newTestCPU(0x76, 0x00, 0x00)
	ic.writeIE(0x01)
	cpu.Step(ic)
	if !cpu.halted {
		t.Fatal("not halted")
	}
	ic.request(interruptVBlank)
	cpu.Step(ic)
	if cpu.halted || cpu.pc != 0x0102 {
		t.Errorf("got halted=%v PC=0x%04x", cpu.halted, cpu.pc)
	}
	if got := cpu.serviceInterrupts(ic); got != 0 {
		t.Error("dispatched with IME=0")
	}
}

func TestHaltBug(t *testing.T) {
	cpu, _, ic := newTestCPU(0x76, 0x3C, 0x00)
	cpu.a = 0x01
	ic.writeIE(0x01)
	ic.request(interruptVBlank)
	run(cpu, ic, 3)
	if cpu.a != 0x03 {
		t.Errorf("A: got 0x%02x, want 0x03", cpu.a)
	}
	if cpu.pc != 0x0102 {
		t.Errorf("PC: got 0x%04x, want 0x0102", cpu.pc)
	}
}

func TestIllegalOpcodeFreezes(t *testing.T) {
	cpu, _, ic := newTestCPU(0xD3)
	cpu.ime = true
	for i := 0; i < 3; i++ {
		if got := cpu.Step(ic); got != 4 {
			t.Errorf("step %d: got %d cycles, want 4", i, got)
		}
	}
	if !cpu.frozen || cpu.pc != 0x0100 {
		t.Errorf("got frozen=%v PC=0x%04x", cpu.frozen, cpu.pc)
	}
	ic.writeIE(0x01)
	ic.request(interruptVBlank)
	if got := cpu.serviceInterrupts(ic); got != 0 {
		t.Error("a frozen CPU dispatched an interrupt")
	}
}

func TestStop(t *testing.T) {
	cpu, _, ic := newTestCPU(0x10, 0x00)
	cpu.Step(ic)
	if !cpu.stopping || cpu.pc != 0x0102 {
		t.Errorf("got stopping=%v PC=0x%04x", cpu.stopping, cpu.pc)
	}
	cpu.stopping = false
	cpu.stopped = true
	if got := cpu.Step(ic); got != 4 || cpu.pc != 0x0102 {
		t.Errorf("stopped step: got %d cycles, PC=0x%04x", got, cpu.pc)
	}
	ic.request(interruptJoypad)
	cpu.Step(ic)
	if cpu.stopped {
		t.Error("joypad did not wake the CPU")
	}
}

func TestStall(t *testing.T) {
	cpu, _, ic := newTestCPU(0x00)
	cpu.stall = 64
	if got := cpu.Step(ic); got != 64 || cpu.pc != 0x0100 {
		t.Errorf("got %d cycles, PC=0x%04x", got, cpu.pc)
	}
	if got := cpu.Step(ic); got != 4 || cpu.pc != 0x0101 {
		t.Errorf("got %d cycles, PC=0x%04x", got, cpu.pc)
	}
}
