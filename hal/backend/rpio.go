package backend

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// spiClockHz is divider 32 off the 250 MHz core clock, the rate the
// reference configuration runs the on-chip SPI controller at.
const spiClockHz = 7812500

// RPIO drives the GPIO block directly through /dev/gpiomem and uses the
// on-chip SPI controller. It is the primary backend: opening it fails on
// hosts without the BCM register layout or without gpiomem access, which
// is what triggers the sysfs fallback.
type RPIO struct {
	open bool
}

// compile-time check that RPIO satisfies the Backend interface
var _ Backend = &RPIO{}

func NewRPIO() *RPIO {
	return &RPIO{}
}

func (r *RPIO) Kind() Kind          { return DirectRegister }
func (r *RPIO) SysfsNumbered() bool { return false }

func (r *RPIO) Open(pins Pins) error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("unable to map gpio registers: %w", err)
	}

	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return fmt.Errorf("unable to claim spi0: %w", err)
	}
	rpio.SpiChipSelect(0)
	rpio.SpiSpeed(spiClockHz)
	// CPOL=0, CPHA=1
	rpio.SpiMode(0, 1)

	r.open = true
	return nil
}

func (r *RPIO) Close() error {
	if !r.open {
		return nil
	}
	rpio.SpiEnd(rpio.Spi0)
	r.open = false
	return rpio.Close()
}

func (r *RPIO) DigitalWrite(pin int, level Level) error {
	p := rpio.Pin(pin)
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPIO) DigitalRead(pin int) (Level, error) {
	return rpio.Pin(pin).Read() == rpio.High, nil
}

func (r *RPIO) SetPinMode(pin int, mode PinMode) error {
	p := rpio.Pin(pin)
	if mode == Input {
		p.Input()
	} else {
		p.Output()
	}
	return nil
}

func (r *RPIO) TransferByte(value byte) (byte, error) {
	buf := []byte{value}
	rpio.SpiExchange(buf)
	return buf[0], nil
}

func (r *RPIO) Delay(ms int) {
	sleepMillis(ms)
}
