package indicator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// DefaultGPIOChip carries the 40 pin header on a Raspberry Pi.
const DefaultGPIOChip = "gpiochip0"

// gpioLine is the part of *gpiocdev.Line that GPIO uses.
type gpioLine interface {
	SetValue(value int) error
	Close() error
}

// requestLine requests "offset" on "chip" as an output that starts low.
// Tests replace it.
var requestLine = func(chip string, offset int) (gpioLine, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(tlog.ProgramName))
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GPIO drives an LED attached to a GPIO line through the character device
// (/dev/gpiochipN). Line offsets equal BCM pin numbers on a Raspberry Pi.
type GPIO struct {
	chip string
	pin  int
	line gpioLine
}

// NewGPIO requests "pin" on "chip" as an output.
func NewGPIO(chip string, pin int) (*GPIO, error) {
	if pin < 0 {
		return nil, fmt.Errorf("invalid gpio pin %d", pin)
	}
	if chip == "" {
		chip = DefaultGPIOChip
	}
	l, err := requestLine(chip, pin)
	if err != nil {
		return nil, fmt.Errorf("requesting gpio %s:%d: %w", chip, pin, err)
	}
	tlog.Debug.Printf("indicator: using gpio %s:%d", chip, pin)
	return &GPIO{chip: chip, pin: pin, line: l}, nil
}

func (g *GPIO) On() error {
	return g.line.SetValue(1)
}

func (g *GPIO) Off() error {
	return g.line.SetValue(0)
}

// Close switches the LED off and releases the line.
func (g *GPIO) Close() error {
	err := g.Off()
	err2 := g.line.Close()
	if err != nil {
		return err
	}
	return err2
}
