package gb

import (
	"fmt"

	"github.com/golang/glog"
)

// CPU emulates the Sharp SM83 (LR35902), a Z80-like core.
// Cycles are counted in clocks (T-cycles), every instruction takes a multiple
// of 4.
// References:
//   https://gbdev.io/pandocs/CPU_Registers_and_Flags.html
//   https://gbdev.io/gb-opcodes/optables/
//   https://rgbds.gbdev.io/docs/gbz80.7

// Bus is the CPU view of the address space.
type Bus interface {
	read(address uint16) byte
	write(address uint16, data byte)
}

type flags struct {
	z bool // zero
	n bool // subtract
	h bool // half carry
	c bool // carry
}

// encode encodes the flags to F, the lower nibble is always 0.
func (f *flags) encode() byte {
	var res byte
	if f.z {
		res |= (1 << 7)
	}
	if f.n {
		res |= (1 << 6)
	}
	if f.h {
		res |= (1 << 5)
	}
	if f.c {
		res |= (1 << 4)
	}
	return res
}

// decodeFrom decodes F to the flags.
func (f *flags) decodeFrom(data byte) {
	f.z = (data>>7)&1 == 1
	f.n = (data>>6)&1 == 1
	f.h = (data>>5)&1 == 1
	f.c = (data>>4)&1 == 1
}

type CPU struct {
	a  byte
	f  flags
	b  byte
	c  byte
	d  byte
	e  byte
	h  byte
	l  byte
	sp uint16
	pc uint16

	// Interrupt master enable.
	ime bool
	// EI enables interrupts after the next instruction, counts down to 0.
	eiDelay int

	halted  bool
	halting bool
	// The byte after HALT is read twice when HALT is executed with IME=0 and
	// an interrupt pending.
	haltBug bool
	// STOP was executed, the scheduler decides between a speed switch and
	// entering stop mode.
	stopping bool
	stopped  bool
	// An illegal opcode locks up the CPU until power off.
	frozen bool

	// set by conditional instructions when the condition holds
	branched bool
	// Stall cycles from general purpose DMA.
	stall int

	lastPC     uint16
	lastOpcode uint16
	cycles     uint64

	bus            Bus
	instructions   []instruction
	cbInstructions []instruction
}

type instruction struct {
	mnemonic string
	execute  func()
	// cycles is the cost, taken is the cost when a condition holds.
	cycles int
	taken  int
}

// NewCPU creates a CPU in the state the boot ROM leaves it.
// Reference: https://gbdev.io/pandocs/Power_Up_Sequence.html#cpu-registers
func NewCPU(bus Bus, color bool) *CPU {
	c := &CPU{bus: bus}
	c.instructions = c.createInstructions()
	c.cbInstructions = c.createCBInstructions()
	if color {
		c.a = 0x11
		c.f.decodeFrom(0x80)
		c.setBC(0x0000)
		c.setDE(0xFF56)
		c.setHL(0x000D)
	} else {
		c.a = 0x01
		c.f.decodeFrom(0xB0)
		c.setBC(0x0013)
		c.setDE(0x00D8)
		c.setHL(0x014D)
	}
	c.sp = 0xFFFE
	c.pc = 0x0100
	return c
}

func (c *CPU) af() uint16 { return uint16(c.a)<<8 | uint16(c.f.encode()) }
func (c *CPU) bc() uint16 { return uint16(c.b)<<8 | uint16(c.c) }
func (c *CPU) de() uint16 { return uint16(c.d)<<8 | uint16(c.e) }
func (c *CPU) hl() uint16 { return uint16(c.h)<<8 | uint16(c.l) }

func (c *CPU) setAF(x uint16) { c.a = byte(x >> 8); c.f.decodeFrom(byte(x)) }
func (c *CPU) setBC(x uint16) { c.b = byte(x >> 8); c.c = byte(x) }
func (c *CPU) setDE(x uint16) { c.d = byte(x >> 8); c.e = byte(x) }
func (c *CPU) setHL(x uint16) { c.h = byte(x >> 8); c.l = byte(x) }

// fetch reads the byte at PC and increments PC.
func (c *CPU) fetch() byte {
	x := c.bus.read(c.pc)
	c.pc++
	return x
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch()
	hi := c.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) write16(address uint16, x uint16) {
	c.bus.write(address, byte(x))
	c.bus.write(address+1, byte(x>>8))
}

// push pushes data to the stack, the stack grows downward.
func (c *CPU) push(x uint16) {
	c.sp--
	c.bus.write(c.sp, byte(x>>8))
	c.sp--
	c.bus.write(c.sp, byte(x))
}

// pop pops data from the stack.
func (c *CPU) pop() uint16 {
	lo := c.bus.read(c.sp)
	c.sp++
	hi := c.bus.read(c.sp)
	c.sp++
	return uint16(hi)<<8 | uint16(lo)
}

// reg reads an 8-bit operand by its encoding in the opcode:
// B, C, D, E, H, L, (HL), A.
func (c *CPU) reg(i byte) byte {
	switch i & 0x07 {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case 6:
		return c.bus.read(c.hl())
	}
	return c.a
}

func (c *CPU) setReg(i byte, x byte) {
	switch i & 0x07 {
	case 0:
		c.b = x
	case 1:
		c.c = x
	case 2:
		c.d = x
	case 3:
		c.e = x
	case 4:
		c.h = x
	case 5:
		c.l = x
	case 6:
		c.bus.write(c.hl(), x)
	case 7:
		c.a = x
	}
}

var regNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// Step executes one instruction and returns the elapsed clocks.
func (c *CPU) Step(ic *interrupts) int {
	if 0 < c.stall {
		n := c.stall
		c.stall = 0
		return n
	}
	if c.frozen {
		return 4
	}
	if c.stopped {
		if ic.flag&byte(interruptJoypad) == 0 {
			return 4
		}
		c.stopped = false
	}
	if c.halted {
		if ic.pending() == 0 {
			return 4
		}
		c.halted = false
	}

	c.lastPC = c.pc
	opcode := c.bus.read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	inst := &c.instructions[opcode]
	c.lastOpcode = uint16(opcode)
	if opcode == 0xCB {
		cb := c.fetch()
		inst = &c.cbInstructions[cb]
		c.lastOpcode = 0xCB00 | uint16(cb)
	}
	if inst.execute == nil {
		glog.Warningf("Illegal opcode 0x%02x at 0x%04x, CPU locked up", opcode, c.lastPC)
		c.pc = c.lastPC
		c.frozen = true
		return 4
	}

	c.branched = false
	inst.execute()
	cycles := inst.cycles
	if c.branched {
		cycles = inst.taken
	}

	if c.halting {
		c.halting = false
		if !c.ime && c.eiDelay == 0 && ic.pending() != 0 {
			c.haltBug = true
		} else {
			c.halted = true
		}
	}
	if 0 < c.eiDelay {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.ime = true
		}
	}
	c.cycles += uint64(cycles)
	return cycles
}

// serviceInterrupts dispatches the highest priority pending interrupt and
// returns the elapsed clocks.
// Reference: https://gbdev.io/pandocs/Interrupts.html#interrupt-handling
func (c *CPU) serviceInterrupts(ic *interrupts) int {
	if !c.ime || c.frozen {
		return 0
	}
	in, vector, ok := ic.next()
	if !ok {
		return 0
	}
	c.ime = false
	c.halted = false
	ic.clear(in)
	c.push(c.pc)
	c.pc = vector
	c.cycles += 20
	return 20
}

// lastExecution describes the last executed instruction, for debug.
func (c *CPU) lastExecution() string {
	var mnemonic string
	if c.lastOpcode > 0xFF {
		mnemonic = c.cbInstructions[c.lastOpcode&0xFF].mnemonic
	} else {
		mnemonic = c.instructions[c.lastOpcode].mnemonic
	}
	return fmt.Sprintf("0x%04x: %-12s (0x%02x) %s", c.lastPC, mnemonic, c.lastOpcode, c)
}

func (c *CPU) String() string {
	return fmt.Sprintf("A=0x%02x F=0x%02x B=0x%02x C=0x%02x D=0x%02x E=0x%02x H=0x%02x L=0x%02x SP=0x%04x PC=0x%04x IME=%v CYC=%d",
		c.a, c.f.encode(), c.b, c.c, c.d, c.e, c.h, c.l, c.sp, c.pc, c.ime, c.cycles)
}
