package gb

import "fmt"

func (c *CPU) jr(cond bool) {
	offset := int8(c.fetch())
	if cond {
		c.pc = uint16(int(c.pc) + int(offset))
		c.branched = true
	}
}

func (c *CPU) jp(cond bool) {
	address := c.fetch16()
	if cond {
		c.pc = address
		c.branched = true
	}
}

func (c *CPU) call(cond bool) {
	address := c.fetch16()
	if cond {
		c.push(c.pc)
		c.pc = address
		c.branched = true
	}
}

func (c *CPU) ret(cond bool) {
	if cond {
		c.pc = c.pop()
		c.branched = true
	}
}

func (c *CPU) rst(vector uint16) func() {
	return func() {
		c.push(c.pc)
		c.pc = vector
	}
}

// The accumulator rotates always clear Z.
func (c *CPU) rlca() { c.a = c.rlc(c.a); c.f.z = false }
func (c *CPU) rrca() { c.a = c.rrc(c.a); c.f.z = false }
func (c *CPU) rla()  { c.a = c.rl(c.a); c.f.z = false }
func (c *CPU) rra()  { c.a = c.rr(c.a); c.f.z = false }

func (c *CPU) stop() {
	// STOP is followed by a padding byte.
	c.fetch()
	c.stopping = true
}

func (c *CPU) halt() {
	c.halting = true
}

func (c *CPU) di() {
	c.ime = false
	c.eiDelay = 0
}

func (c *CPU) ei() {
	if !c.ime && c.eiDelay == 0 {
		c.eiDelay = 2
	}
}

func (c *CPU) reti() {
	c.pc = c.pop()
	c.ime = true
}

// loadOrALU builds the regular block 0x40-0xBF: LD r,r' and ALU A,r.
func (c *CPU) loadOrALU(op byte) instruction {
	src := op & 0x07
	dst := op >> 3 & 0x07
	cycles := 4
	if src == 6 || (op < 0x80 && dst == 6) {
		cycles = 8
	}
	if op == 0x76 {
		return instruction{"HALT", c.halt, 4, 0}
	}
	if op < 0x80 {
		return instruction{
			fmt.Sprintf("LD %s,%s", regNames[dst], regNames[src]),
			func() { c.setReg(dst, c.reg(src)) },
			cycles, 0,
		}
	}
	return instruction{
		aluNames[dst] + regNames[src],
		func() { c.alu(dst, c.reg(src)) },
		cycles, 0,
	}
}

func (c *CPU) createInstructions() []instruction {
	ins := []instruction{
		{"NOP", func() {}, 4, 0},                                              // 0x00
		{"LD BC,d16", func() { c.setBC(c.fetch16()) }, 12, 0},                 // 0x01
		{"LD (BC),A", func() { c.bus.write(c.bc(), c.a) }, 8, 0},              // 0x02
		{"INC BC", func() { c.setBC(c.bc() + 1) }, 8, 0},                      // 0x03
		{"INC B", func() { c.b = c.inc(c.b) }, 4, 0},                          // 0x04
		{"DEC B", func() { c.b = c.dec(c.b) }, 4, 0},                          // 0x05
		{"LD B,d8", func() { c.b = c.fetch() }, 8, 0},                         // 0x06
		{"RLCA", c.rlca, 4, 0},                                                // 0x07
		{"LD (a16),SP", func() { c.write16(c.fetch16(), c.sp) }, 20, 0},       // 0x08
		{"ADD HL,BC", func() { c.addHL(c.bc()) }, 8, 0},                       // 0x09
		{"LD A,(BC)", func() { c.a = c.bus.read(c.bc()) }, 8, 0},              // 0x0A
		{"DEC BC", func() { c.setBC(c.bc() - 1) }, 8, 0},                      // 0x0B
		{"INC C", func() { c.c = c.inc(c.c) }, 4, 0},                          // 0x0C
		{"DEC C", func() { c.c = c.dec(c.c) }, 4, 0},                          // 0x0D
		{"LD C,d8", func() { c.c = c.fetch() }, 8, 0},                         // 0x0E
		{"RRCA", c.rrca, 4, 0},                                                // 0x0F
		{"STOP", c.stop, 4, 0},                                                // 0x10
		{"LD DE,d16", func() { c.setDE(c.fetch16()) }, 12, 0},                 // 0x11
		{"LD (DE),A", func() { c.bus.write(c.de(), c.a) }, 8, 0},              // 0x12
		{"INC DE", func() { c.setDE(c.de() + 1) }, 8, 0},                      // 0x13
		{"INC D", func() { c.d = c.inc(c.d) }, 4, 0},                          // 0x14
		{"DEC D", func() { c.d = c.dec(c.d) }, 4, 0},                          // 0x15
		{"LD D,d8", func() { c.d = c.fetch() }, 8, 0},                         // 0x16
		{"RLA", c.rla, 4, 0},                                                  // 0x17
		{"JR r8", func() { c.jr(true) }, 12, 12},                              // 0x18
		{"ADD HL,DE", func() { c.addHL(c.de()) }, 8, 0},                       // 0x19
		{"LD A,(DE)", func() { c.a = c.bus.read(c.de()) }, 8, 0},              // 0x1A
		{"DEC DE", func() { c.setDE(c.de() - 1) }, 8, 0},                      // 0x1B
		{"INC E", func() { c.e = c.inc(c.e) }, 4, 0},                          // 0x1C
		{"DEC E", func() { c.e = c.dec(c.e) }, 4, 0},                          // 0x1D
		{"LD E,d8", func() { c.e = c.fetch() }, 8, 0},                         // 0x1E
		{"RRA", c.rra, 4, 0},                                                  // 0x1F
		{"JR NZ,r8", func() { c.jr(!c.f.z) }, 8, 12},                          // 0x20
		{"LD HL,d16", func() { c.setHL(c.fetch16()) }, 12, 0},                 // 0x21
		{"LD (HL+),A", func() { c.bus.write(c.hl(), c.a); c.setHL(c.hl() + 1) }, 8, 0}, // 0x22
		{"INC HL", func() { c.setHL(c.hl() + 1) }, 8, 0},                      // 0x23
		{"INC H", func() { c.h = c.inc(c.h) }, 4, 0},                          // 0x24
		{"DEC H", func() { c.h = c.dec(c.h) }, 4, 0},                          // 0x25
		{"LD H,d8", func() { c.h = c.fetch() }, 8, 0},                         // 0x26
		{"DAA", c.daa, 4, 0},                                                  // 0x27
		{"JR Z,r8", func() { c.jr(c.f.z) }, 8, 12},                            // 0x28
		{"ADD HL,HL", func() { c.addHL(c.hl()) }, 8, 0},                       // 0x29
		{"LD A,(HL+)", func() { c.a = c.bus.read(c.hl()); c.setHL(c.hl() + 1) }, 8, 0}, // 0x2A
		{"DEC HL", func() { c.setHL(c.hl() - 1) }, 8, 0},                      // 0x2B
		{"INC L", func() { c.l = c.inc(c.l) }, 4, 0},                          // 0x2C
		{"DEC L", func() { c.l = c.dec(c.l) }, 4, 0},                          // 0x2D
		{"LD L,d8", func() { c.l = c.fetch() }, 8, 0},                         // 0x2E
		{"CPL", func() { c.a = ^c.a; c.f.n = true; c.f.h = true }, 4, 0},      // 0x2F
		{"JR NC,r8", func() { c.jr(!c.f.c) }, 8, 12},                          // 0x30
		{"LD SP,d16", func() { c.sp = c.fetch16() }, 12, 0},                   // 0x31
		{"LD (HL-),A", func() { c.bus.write(c.hl(), c.a); c.setHL(c.hl() - 1) }, 8, 0}, // 0x32
		{"INC SP", func() { c.sp++ }, 8, 0},                                   // 0x33
		{"INC (HL)", func() { c.bus.write(c.hl(), c.inc(c.bus.read(c.hl()))) }, 12, 0}, // 0x34
		{"DEC (HL)", func() { c.bus.write(c.hl(), c.dec(c.bus.read(c.hl()))) }, 12, 0}, // 0x35
		{"LD (HL),d8", func() { c.bus.write(c.hl(), c.fetch()) }, 12, 0},      // 0x36
		{"SCF", func() { c.f.n = false; c.f.h = false; c.f.c = true }, 4, 0},  // 0x37
		{"JR C,r8", func() { c.jr(c.f.c) }, 8, 12},                            // 0x38
		{"ADD HL,SP", func() { c.addHL(c.sp) }, 8, 0},                         // 0x39
		{"LD A,(HL-)", func() { c.a = c.bus.read(c.hl()); c.setHL(c.hl() - 1) }, 8, 0}, // 0x3A
		{"DEC SP", func() { c.sp-- }, 8, 0},                                   // 0x3B
		{"INC A", func() { c.a = c.inc(c.a) }, 4, 0},                          // 0x3C
		{"DEC A", func() { c.a = c.dec(c.a) }, 4, 0},                          // 0x3D
		{"LD A,d8", func() { c.a = c.fetch() }, 8, 0},                         // 0x3E
		{"CCF", func() { c.f.n = false; c.f.h = false; c.f.c = !c.f.c }, 4, 0}, // 0x3F
	}
	for op := 0x40; op < 0xC0; op++ {
		ins = append(ins, c.loadOrALU(byte(op)))
	}
	return append(ins, []instruction{
		{"RET NZ", func() { c.ret(!c.f.z) }, 8, 20},                           // 0xC0
		{"POP BC", func() { c.setBC(c.pop()) }, 12, 0},                        // 0xC1
		{"JP NZ,a16", func() { c.jp(!c.f.z) }, 12, 16},                        // 0xC2
		{"JP a16", func() { c.jp(true) }, 16, 16},                             // 0xC3
		{"CALL NZ,a16", func() { c.call(!c.f.z) }, 12, 24},                    // 0xC4
		{"PUSH BC", func() { c.push(c.bc()) }, 16, 0},                         // 0xC5
		{"ADD A,d8", func() { c.add(c.fetch(), false) }, 8, 0},                // 0xC6
		{"RST 00H", c.rst(0x00), 16, 0},                                       // 0xC7
		{"RET Z", func() { c.ret(c.f.z) }, 8, 20},                             // 0xC8
		{"RET", func() { c.ret(true) }, 16, 16},                               // 0xC9
		{"JP Z,a16", func() { c.jp(c.f.z) }, 12, 16},                          // 0xCA
		{"PREFIX CB", nil, 0, 0},                                              // 0xCB
		{"CALL Z,a16", func() { c.call(c.f.z) }, 12, 24},                      // 0xCC
		{"CALL a16", func() { c.call(true) }, 24, 24},                         // 0xCD
		{"ADC A,d8", func() { c.add(c.fetch(), true) }, 8, 0},                 // 0xCE
		{"RST 08H", c.rst(0x08), 16, 0},                                       // 0xCF
		{"RET NC", func() { c.ret(!c.f.c) }, 8, 20},                           // 0xD0
		{"POP DE", func() { c.setDE(c.pop()) }, 12, 0},                        // 0xD1
		{"JP NC,a16", func() { c.jp(!c.f.c) }, 12, 16},                        // 0xD2
		{},                                                                    // 0xD3
		{"CALL NC,a16", func() { c.call(!c.f.c) }, 12, 24},                    // 0xD4
		{"PUSH DE", func() { c.push(c.de()) }, 16, 0},                         // 0xD5
		{"SUB d8", func() { c.a = c.sub(c.fetch(), false) }, 8, 0},            // 0xD6
		{"RST 10H", c.rst(0x10), 16, 0},                                       // 0xD7
		{"RET C", func() { c.ret(c.f.c) }, 8, 20},                             // 0xD8
		{"RETI", c.reti, 16, 0},                                               // 0xD9
		{"JP C,a16", func() { c.jp(c.f.c) }, 12, 16},                          // 0xDA
		{},                                                                    // 0xDB
		{"CALL C,a16", func() { c.call(c.f.c) }, 12, 24},                      // 0xDC
		{},                                                                    // 0xDD
		{"SBC A,d8", func() { c.a = c.sub(c.fetch(), true) }, 8, 0},           // 0xDE
		{"RST 18H", c.rst(0x18), 16, 0},                                       // 0xDF
		{"LDH (a8),A", func() { c.bus.write(0xFF00|uint16(c.fetch()), c.a) }, 12, 0}, // 0xE0
		{"POP HL", func() { c.setHL(c.pop()) }, 12, 0},                        // 0xE1
		{"LD (C),A", func() { c.bus.write(0xFF00|uint16(c.c), c.a) }, 8, 0},   // 0xE2
		{},                                                                    // 0xE3
		{},                                                                    // 0xE4
		{"PUSH HL", func() { c.push(c.hl()) }, 16, 0},                         // 0xE5
		{"AND d8", func() { c.and(c.fetch()) }, 8, 0},                         // 0xE6
		{"RST 20H", c.rst(0x20), 16, 0},                                       // 0xE7
		{"ADD SP,r8", func() { c.sp = c.addSP(c.fetch()) }, 16, 0},            // 0xE8
		{"JP (HL)", func() { c.pc = c.hl() }, 4, 0},                           // 0xE9
		{"LD (a16),A", func() { c.bus.write(c.fetch16(), c.a) }, 16, 0},       // 0xEA
		{},                                                                    // 0xEB
		{},                                                                    // 0xEC
		{},                                                                    // 0xED
		{"XOR d8", func() { c.xor(c.fetch()) }, 8, 0},                         // 0xEE
		{"RST 28H", c.rst(0x28), 16, 0},                                       // 0xEF
		{"LDH A,(a8)", func() { c.a = c.bus.read(0xFF00 | uint16(c.fetch())) }, 12, 0}, // 0xF0
		{"POP AF", func() { c.setAF(c.pop()) }, 12, 0},                        // 0xF1
		{"LD A,(C)", func() { c.a = c.bus.read(0xFF00 | uint16(c.c)) }, 8, 0}, // 0xF2
		{"DI", c.di, 4, 0},                                                    // 0xF3
		{},                                                                    // 0xF4
		{"PUSH AF", func() { c.push(c.af()) }, 16, 0},                         // 0xF5
		{"OR d8", func() { c.or(c.fetch()) }, 8, 0},                           // 0xF6
		{"RST 30H", c.rst(0x30), 16, 0},                                       // 0xF7
		{"LD HL,SP+r8", func() { c.setHL(c.addSP(c.fetch())) }, 12, 0},        // 0xF8
		{"LD SP,HL", func() { c.sp = c.hl() }, 8, 0},                          // 0xF9
		{"LD A,(a16)", func() { c.a = c.bus.read(c.fetch16()) }, 16, 0},       // 0xFA
		{"EI", c.ei, 4, 0},                                                    // 0xFB
		{},                                                                    // 0xFC
		{},                                                                    // 0xFD
		{"CP d8", func() { c.sub(c.fetch(), false) }, 8, 0},                   // 0xFE
		{"RST 38H", c.rst(0x38), 16, 0},                                       // 0xFF
	}...)
}

// createCBInstructions builds the 0xCB table, the opcode encodes the
// operation in bits 3-7 and the operand in bits 0-2.
func (c *CPU) createCBInstructions() []instruction {
	shifts := [8]struct {
		name string
		f    func(byte) byte
	}{
		{"RLC", c.rlc}, {"RRC", c.rrc}, {"RL", c.rl}, {"RR", c.rr},
		{"SLA", c.sla}, {"SRA", c.sra}, {"SWAP", c.swap}, {"SRL", c.srl},
	}
	ins := make([]instruction, 256)
	for op := 0; op < 256; op++ {
		r := byte(op) & 0x07
		n := byte(op) >> 3 & 0x07
		cycles := 8
		if r == 6 {
			cycles = 16
		}
		switch op >> 6 {
		case 0:
			shift := shifts[n]
			ins[op] = instruction{
				fmt.Sprintf("%s %s", shift.name, regNames[r]),
				func() { c.setReg(r, shift.f(c.reg(r))) },
				cycles, 0,
			}
		case 1:
			if r == 6 {
				cycles = 12
			}
			ins[op] = instruction{
				fmt.Sprintf("BIT %d,%s", n, regNames[r]),
				func() { c.bit(n, c.reg(r)) },
				cycles, 0,
			}
		case 2:
			ins[op] = instruction{
				fmt.Sprintf("RES %d,%s", n, regNames[r]),
				func() { c.setReg(r, c.reg(r)&^(1<<n)) },
				cycles, 0,
			}
		case 3:
			ins[op] = instruction{
				fmt.Sprintf("SET %d,%s", n, regNames[r]),
				func() { c.setReg(r, c.reg(r)|1<<n) },
				cycles, 0,
			}
		}
	}
	return ins
}
