package gb

// Reference:
//   https://gbdev.io/pandocs/Joypad_Input.html

type button int

// Button indexes for SetButtons, true means pressed.
// The register itself is active-low, 0 means pressed.
const (
	ButtonA button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// P1 bit of each button in its group.
var (
	actionBits    = [4]button{ButtonA, ButtonB, ButtonSelect, ButtonStart}
	directionBits = [4]button{ButtonRight, ButtonLeft, ButtonUp, ButtonDown}
)

type Controller struct {
	buttons [8]bool
	// P1 bits 4 (directions) and 5 (actions), a 0 selects the group.
	selection byte
}

func NewController() *Controller {
	return &Controller{selection: 0x30}
}

// set updates the button states. The joypad interrupt is requested when a
// line of a selected group goes low.
func (c *Controller) set(buttons [8]bool, ic *interrupts) {
	before := c.lines()
	c.buttons = buttons
	if c.lines()&^before != 0 {
		ic.request(interruptJoypad)
	}
}

func (c *Controller) group(bits [4]button) byte {
	var ret byte
	for i, b := range bits {
		if c.buttons[b] {
			ret |= 1 << i
		}
	}
	return ret
}

// lines returns the P1 input lines pulled low, a set bit means pressed.
func (c *Controller) lines() byte {
	var pressed byte
	if c.selection&0x10 == 0 {
		pressed |= c.group(directionBits)
	}
	if c.selection&0x20 == 0 {
		pressed |= c.group(actionBits)
	}
	return pressed
}

// read reads P1 ($FF00).
func (c *Controller) read() byte {
	return 0xC0 | c.selection | (^c.lines() & 0x0F)
}

// write writes the group selection, the lower nibble is read only. Selecting
// a group with a held button pulls its line low as well.
func (c *Controller) write(data byte, ic *interrupts) {
	before := c.lines()
	c.selection = data & 0x30
	if c.lines()&^before != 0 {
		ic.request(interruptJoypad)
	}
}
