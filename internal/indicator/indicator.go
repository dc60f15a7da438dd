// Package indicator drives the status light. The hardware is abstracted
// behind the Indicator interface, the blink patterns live in Controller.
package indicator

import (
	"fmt"
)

// Indicator is a light that can be switched on and off.
type Indicator interface {
	On() error
	Off() error
	// Close switches the light off and releases the hardware.
	Close() error
}

// Driver names accepted by New.
const (
	DriverNone = "none"
	DriverGPIO = "gpio"
	DriverLED  = "led"
)

// Config selects and configures a driver.
type Config struct {
	Driver string
	// GPIOChip is the gpiochip name or path for DriverGPIO.
	GPIOChip string
	// GPIOPin is the line offset for DriverGPIO, the BCM pin number on a
	// Raspberry Pi.
	GPIOPin int
	// LEDName is the entry below /sys/class/leds for DriverLED.
	LEDName string
	// SysfsRoot overrides "/sys/class" for DriverLED.
	SysfsRoot string
}

// New returns the driver selected by "cfg".
func New(cfg Config) (Indicator, error) {
	root := cfg.SysfsRoot
	if root == "" {
		root = DefaultSysfsRoot
	}
	switch cfg.Driver {
	case DriverNone, "":
		return NoOp{}, nil
	case DriverGPIO:
		return NewGPIO(cfg.GPIOChip, cfg.GPIOPin)
	case DriverLED:
		return NewSysfsLED(root, cfg.LEDName)
	}
	return nil, fmt.Errorf("unknown indicator driver %q", cfg.Driver)
}

// NoOp is used on machines without a status light.
type NoOp struct{}

func (NoOp) On() error    { return nil }
func (NoOp) Off() error   { return nil }
func (NoOp) Close() error { return nil }
