package gb

import (
	"io"

	"github.com/golang/glog"
)

// serialTransferCycles is the length of an 8-bit transfer at 8192 Hz.
const serialTransferCycles = 8 * 512

// Serial is the link port. Nothing is ever connected, a transfer started
// with the internal clock shifts in 0xFF and completes with an interrupt.
// Bytes sent are copied to out, test ROMs print their results this way.
// Reference: https://gbdev.io/pandocs/Serial_Data_Transfer_(Link_Cable).html
type Serial struct {
	sb        byte
	sc        byte
	remaining int
	out       io.Writer
}

func NewSerial(out io.Writer) *Serial {
	return &Serial{out: out}
}

func (s *Serial) read(address uint16) byte {
	if address == 0xFF01 {
		return s.sb
	}
	return 0x7E | s.sc
}

func (s *Serial) write(address uint16, data byte) {
	if address == 0xFF01 {
		s.sb = data
		return
	}
	s.sc = data & 0x81
	if s.sc == 0x81 {
		if s.out != nil {
			if _, err := s.out.Write([]byte{s.sb}); err != nil {
				glog.Warningf("Failed to write serial output, disabling it: %v", err)
				s.out = nil
			}
		}
		s.remaining = serialTransferCycles
	}
}

func (s *Serial) step(cycles int, ic *interrupts) {
	if s.remaining <= 0 {
		return
	}
	s.remaining -= cycles
	if s.remaining <= 0 {
		s.sb = 0xFF
		s.sc &^= 0x80
		ic.request(interruptSerial)
	}
}
