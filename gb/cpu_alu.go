package gb

// 8-bit arithmetic on A.

func (c *CPU) add(x byte, carry bool) {
	var cin byte
	if carry && c.f.c {
		cin = 1
	}
	r := uint16(c.a) + uint16(x) + uint16(cin)
	c.f.h = (c.a&0x0F)+(x&0x0F)+cin > 0x0F
	c.f.c = r > 0xFF
	c.a = byte(r)
	c.f.z = c.a == 0
	c.f.n = false
}

// sub computes A - x (- carry) and sets flags, it returns the result without
// storing it so CP can share it.
func (c *CPU) sub(x byte, carry bool) byte {
	var cin byte
	if carry && c.f.c {
		cin = 1
	}
	r := int(c.a) - int(x) - int(cin)
	c.f.h = int(c.a&0x0F)-int(x&0x0F)-int(cin) < 0
	c.f.c = r < 0
	c.f.z = byte(r) == 0
	c.f.n = true
	return byte(r)
}

func (c *CPU) and(x byte) {
	c.a &= x
	c.f = flags{z: c.a == 0, h: true}
}

func (c *CPU) xor(x byte) {
	c.a ^= x
	c.f = flags{z: c.a == 0}
}

func (c *CPU) or(x byte) {
	c.a |= x
	c.f = flags{z: c.a == 0}
}

// alu runs the operation selected by bits 3-5 of ALU opcodes.
func (c *CPU) alu(op byte, x byte) {
	switch op & 0x07 {
	case 0:
		c.add(x, false)
	case 1:
		c.add(x, true)
	case 2:
		c.a = c.sub(x, false)
	case 3:
		c.a = c.sub(x, true)
	case 4:
		c.and(x)
	case 5:
		c.xor(x)
	case 6:
		c.or(x)
	case 7:
		c.sub(x, false)
	}
}

var aluNames = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}

// inc and dec keep the carry flag.
func (c *CPU) inc(x byte) byte {
	r := x + 1
	c.f.z = r == 0
	c.f.n = false
	c.f.h = x&0x0F == 0x0F
	return r
}

func (c *CPU) dec(x byte) byte {
	r := x - 1
	c.f.z = r == 0
	c.f.n = true
	c.f.h = x&0x0F == 0
	return r
}

// addHL adds to HL, Z is kept.
func (c *CPU) addHL(x uint16) {
	hl := c.hl()
	r := uint32(hl) + uint32(x)
	c.f.n = false
	c.f.h = (hl&0x0FFF)+(x&0x0FFF) > 0x0FFF
	c.f.c = r > 0xFFFF
	c.setHL(uint16(r))
}

// addSP returns SP plus a signed offset, flags come from the low byte.
func (c *CPU) addSP(offset byte) uint16 {
	r := c.sp + uint16(int8(offset))
	c.f.z = false
	c.f.n = false
	c.f.h = (c.sp&0x0F)+uint16(offset&0x0F) > 0x0F
	c.f.c = (c.sp&0xFF)+uint16(offset) > 0xFF
	return r
}

// daa adjusts A to BCD after an addition or a subtraction.
// Reference: https://ehaskins.com/2018-01-30%20Z80%20DAA/
func (c *CPU) daa() {
	a := c.a
	var adjust byte
	carry := c.f.c
	if c.f.h || (!c.f.n && a&0x0F > 0x09) {
		adjust |= 0x06
	}
	if c.f.c || (!c.f.n && a > 0x99) {
		adjust |= 0x60
		carry = true
	}
	if c.f.n {
		a -= adjust
	} else {
		a += adjust
	}
	c.a = a
	c.f.z = a == 0
	c.f.h = false
	c.f.c = carry
}

// Rotates and shifts, as used by the 0xCB table.

func (c *CPU) rlc(x byte) byte {
	r := x<<1 | x>>7
	c.f = flags{z: r == 0, c: x&0x80 != 0}
	return r
}

func (c *CPU) rrc(x byte) byte {
	r := x>>1 | x<<7
	c.f = flags{z: r == 0, c: x&0x01 != 0}
	return r
}

func (c *CPU) rl(x byte) byte {
	r := x << 1
	if c.f.c {
		r |= 0x01
	}
	c.f = flags{z: r == 0, c: x&0x80 != 0}
	return r
}

func (c *CPU) rr(x byte) byte {
	r := x >> 1
	if c.f.c {
		r |= 0x80
	}
	c.f = flags{z: r == 0, c: x&0x01 != 0}
	return r
}

func (c *CPU) sla(x byte) byte {
	r := x << 1
	c.f = flags{z: r == 0, c: x&0x80 != 0}
	return r
}

func (c *CPU) sra(x byte) byte {
	r := x>>1 | x&0x80
	c.f = flags{z: r == 0, c: x&0x01 != 0}
	return r
}

func (c *CPU) swap(x byte) byte {
	r := x<<4 | x>>4
	c.f = flags{z: r == 0}
	return r
}

func (c *CPU) srl(x byte) byte {
	r := x >> 1
	c.f = flags{z: r == 0, c: x&0x01 != 0}
	return r
}

// bit tests bit n of x, C is kept.
func (c *CPU) bit(n byte, x byte) {
	c.f.z = x&(1<<n) == 0
	c.f.n = false
	c.f.h = true
}
