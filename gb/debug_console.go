package gb

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/bradleyjkemp/memviz"
)

// DebugConsole a Game Boy for debugging, you can execute some commands through stdio.
// commands:
//   s [n|nd|nf]:
//     execute n step(s), d prints every step, f runs n frames.
//   p [cpu|ppu|apu|timer|cartridge|controller|io|hram]:
//     print.
//   x 0xADDR [n]:
//     dump memory.
//   br 0xADDR:
//     set a break point.
//   g file:
//     write the console state as a Graphviz graph.
//   q:
//     quit, Step and RunFrame return ErrQuit.
//   r:
//     reset.
type DebugConsole struct {
	*GameBoy
	in          *bufio.Reader
	out         io.Writer
	breakpoints []uint16
}

// ErrQuit is returned once the debugger is told to quit.
var ErrQuit = errors.New("debugger quit")

var stepRe = regexp.MustCompile("^([0-9]+)([a-z]?)$")

func (c *DebugConsole) input() *bufio.Reader {
	if c.in == nil {
		c.in = bufio.NewReader(os.Stdin)
	}
	return c.in
}

func (c *DebugConsole) output() io.Writer {
	if c.out == nil {
		c.out = os.Stdout
	}
	return c.out
}

func (c *DebugConsole) basePrint() {
	w := c.output()
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Executed cycles: %d\n", c.cpu.cycles)
	fmt.Fprintf(w, "Rendered frame: %d\n", c.currentFrame)
	fmt.Fprintln(w, "Last: "+c.cpu.lastExecution())
	fmt.Fprintf(w, "CPU: %s\n", c.cpu)
	fmt.Fprintf(w, "PPU: LY=%d, dot=%d, mode=%d, LCDC=0x%02x, STAT=0x%02x\n",
		c.ppu.ly, c.ppu.dot, c.ppu.mode, c.ppu.lcdc, c.ppu.read(0xFF41))
	fmt.Fprintf(w, "Interrupts: IE=0x%02x, IF=0x%02x\n", c.ic.readIE(), c.ic.readIF())
}

func (c *DebugConsole) printCommand(args []string) {
	w := c.output()
	if len(args) < 2 {
		c.basePrint()
		return
	}
	switch args[1] {
	case "c", "cpu":
		fmt.Fprintln(w, c.cpu)
	case "p", "ppu":
		fmt.Fprintf(w, "LCDC=0x%02x SCY=%d SCX=%d LY=%d LYC=%d WY=%d WX=%d BGP=0x%02x OBP0=0x%02x OBP1=0x%02x VBK=%d sprites=%d\n",
			c.ppu.lcdc, c.ppu.scy, c.ppu.scx, c.ppu.ly, c.ppu.lyc, c.ppu.wy, c.ppu.wx,
			c.ppu.bgp, c.ppu.obp0, c.ppu.obp1, c.ppu.vramBank, len(c.ppu.sprites))
	case "a", "apu":
		for address := uint16(0xFF10); address <= 0xFF26; address++ {
			fmt.Fprintf(w, "0x%04x: 0x%02x\n", address, c.apu.read(address))
		}
	case "t", "timer":
		fmt.Fprintf(w, "%+v\n", *c.timer)
	case "ca", "cartridge":
		fmt.Fprintln(w, c.cartridge)
	case "ct", "controller":
		fmt.Fprintf(w, "%+v\n", *c.controller)
	case "io":
		c.dump(0xFF00, 0x80)
	case "hr", "hram":
		c.dump(0xFF80, 0x7F)
	}
}

func (c *DebugConsole) dump(start uint16, n int) {
	w := c.output()
	for i := 0; i < n; i++ {
		address := start + uint16(i)
		if i%16 == 0 {
			fmt.Fprintf(w, "0x%04x:", address)
		}
		fmt.Fprintf(w, " %02x", c.bus.read(address))
		if i%16 == 15 || i == n-1 {
			fmt.Fprintln(w)
		}
	}
}

func (c *DebugConsole) examineCommand(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: x 0xADDR [n]")
	}
	var address uint16
	if _, err := fmt.Sscanf(args[1], "0x%x", &address); err != nil {
		return fmt.Errorf("invalid address %q: %w", args[1], err)
	}
	n := 16
	if len(args) > 2 {
		v, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid length %q: %w", args[2], err)
		}
		n = v
	}
	c.dump(address, n)
	return nil
}

func (c *DebugConsole) checkBreak() bool {
	for i := 0; i < len(c.breakpoints); i++ {
		if c.breakpoints[i] == c.cpu.pc {
			fmt.Fprintf(c.output(), "Break at: 0x%04x\n", c.breakpoints[i])
			return true
		}
	}
	return false
}

func (c *DebugConsole) stepCommand(args []string) int {
	if len(args) < 2 {
		return c.step()
	}
	m := stepRe.FindStringSubmatch(args[1])
	if m == nil {
		return 0
	}
	num, _ := strconv.Atoi(m[1])
	cycles := 0
	switch m[2] {
	case "f":
		// frames
		target := c.currentFrame + uint64(num)
		for c.currentFrame < target {
			cycles += c.step()
			if c.checkBreak() {
				return cycles
			}
		}
	case "d":
		// debug -> steps with debug messages.
		for i := 0; i < num; i++ {
			cycles += c.step()
			c.basePrint()
			if c.checkBreak() {
				return cycles
			}
		}
	default:
		for i := 0; i < num; i++ {
			cycles += c.step()
			if c.checkBreak() {
				return cycles
			}
		}
	}
	return cycles
}

func (c *DebugConsole) breakPointCommand(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: br 0xADDR")
	}
	var address uint16
	if _, err := fmt.Sscanf(args[1], "0x%x", &address); err != nil {
		return fmt.Errorf("invalid address %q: %w", args[1], err)
	}
	c.breakpoints = append(c.breakpoints, address)
	return nil
}

// graphCommand writes the component graph in DOT format.
func (c *DebugConsole) graphCommand(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: g file.dot")
	}
	f, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[1], err)
	}
	defer f.Close()
	memviz.Map(f, c.cpu, c.timer, c.ic, c.controller)
	fmt.Fprintf(c.output(), "Wrote %s\n", args[1])
	return nil
}

func (c *DebugConsole) quitCommand() error {
	fmt.Fprintln(c.output(), "Quitting.")
	return ErrQuit
}

func (c *DebugConsole) Step() (int, error) {
	fmt.Fprintf(c.output(), "Debugger mode, 'q' to quit \n>> ")
	line, err := c.input().ReadString('\n')
	if err != nil {
		return 0, err
	}
	args := strings.Fields(line)
	if len(args) == 0 {
		return 0, nil
	}
	switch args[0] {
	case "p", "print":
		c.printCommand(args)
	case "x":
		return 0, c.examineCommand(args)
	case "s", "step":
		cycles := c.stepCommand(args)
		c.basePrint()
		fmt.Fprintf(c.output(), "Executed %d clocks.\n", cycles)
		return cycles, nil
	case "br", "breakpoint":
		return 0, c.breakPointCommand(args)
	case "g", "graph":
		return 0, c.graphCommand(args)
	case "r", "reset":
		save := c.SaveData()
		if err := c.reset(); err != nil {
			return 0, err
		}
		return 0, c.LoadSaveData(save)
	case "q", "quit":
		return 0, c.quitCommand()
	default:
		return 0, fmt.Errorf("unknown command %s", args[0])
	}
	// step command was not executed.
	return 0, nil
}

// RunFrame reads commands until a frame completes.
func (c *DebugConsole) RunFrame() (*image.RGBA, error) {
	for {
		if _, err := c.Step(); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrQuit) {
				return nil, err
			}
			fmt.Fprintln(c.output(), err)
		}
		if f, ok := c.Frame(); ok {
			return f, nil
		}
	}
}
