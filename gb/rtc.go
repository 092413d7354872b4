package gb

import (
	"encoding/binary"
	"time"
)

// rtcSnapshotSize is the size of the clock appended to save data, in the
// layout most emulators share: 5 current registers, 5 latched registers
// (each as a little endian uint32) and a 64-bit unix timestamp.
const rtcSnapshotSize = 48

const (
	rtcHalt  byte = 0x40
	rtcCarry byte = 0x80
)

// rtcRegisters are S, M, H, DL, DH selected with RAM bank $08-$0C.
type rtcRegisters [5]byte

func (r *rtcRegisters) days() int {
	return int(r[3]) | int(r[4]&0x01)<<8
}

// advance adds elapsed seconds, overflowing the 9-bit day counter into carry.
func (r *rtcRegisters) advance(seconds int64) {
	if seconds <= 0 {
		return
	}
	total := int64(r[0]) + int64(r[1])*60 + int64(r[2])*3600 + int64(r.days())*86400 + seconds
	r[0] = byte(total % 60)
	r[1] = byte(total / 60 % 60)
	r[2] = byte(total / 3600 % 24)
	days := total / 86400
	if days > 0x1FF {
		r[4] |= rtcCarry
		days &= 0x1FF
	}
	r[3] = byte(days)
	r[4] = r[4]&^0x01 | byte(days>>8)&0x01
}

// rtc is the MBC3 real time clock. Time is read from a host clock so the
// emulation stays deterministic when the clock is fixed.
// Reference: https://gbdev.io/pandocs/MBC3.html#the-clock-counter-registers
type rtc struct {
	now     func() time.Time
	current rtcRegisters
	latched rtcRegisters
	last    int64 // unix seconds of the last update
	latch   byte  // last value written to the latch register
}

func newRTC(now func() time.Time) *rtc {
	if now == nil {
		now = time.Now
	}
	return &rtc{now: now, last: now().Unix(), latch: 0xFF}
}

func (r *rtc) update() {
	t := r.now().Unix()
	if r.current[4]&rtcHalt == 0 {
		r.current.advance(t - r.last)
	}
	r.last = t
}

// writeLatch latches the clock on a 0 -> 1 sequence.
func (r *rtc) writeLatch(data byte) {
	if r.latch == 0x00 && data == 0x01 {
		r.update()
		r.latched = r.current
	}
	r.latch = data
}

func (r *rtc) read(register byte) byte {
	i := int(register - 0x08)
	if i < 0 || i >= len(r.latched) {
		return 0xFF
	}
	return r.latched[i]
}

func (r *rtc) write(register byte, data byte) {
	i := int(register - 0x08)
	if i < 0 || i >= len(r.current) {
		return
	}
	r.update()
	r.current[i] = data
}

func (r *rtc) snapshot() []byte {
	r.update()
	b := make([]byte, rtcSnapshotSize)
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(r.current[i]))
		binary.LittleEndian.PutUint32(b[20+i*4:], uint32(r.latched[i]))
	}
	binary.LittleEndian.PutUint64(b[40:], uint64(r.last))
	return b
}

// restore loads a snapshot and catches up with the time passed since.
func (r *rtc) restore(b []byte) {
	for i := 0; i < 5; i++ {
		r.current[i] = byte(binary.LittleEndian.Uint32(b[i*4:]))
		r.latched[i] = byte(binary.LittleEndian.Uint32(b[20+i*4:]))
	}
	r.last = int64(binary.LittleEndian.Uint64(b[40:]))
	r.update()
}
