package backend

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Periph provides pins and SPI through the periph.io pin-multiplexing
// library. Pins are addressed by their BCM numbers, so no sysfs offset
// applies.
type Periph struct {
	// SPIPort selects the spireg port; empty means the first available.
	SPIPort string

	port spi.PortCloser
	conn spi.Conn
	pins map[int]gpio.PinIO
}

var _ Backend = &Periph{}

func NewPeriph() *Periph {
	return &Periph{pins: make(map[int]gpio.PinIO)}
}

func (b *Periph) Kind() Kind          { return PinMuxLibrary }
func (b *Periph) SysfsNumbered() bool { return false }

func (b *Periph) Open(pins Pins) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("unable to initialize periph host: %w", err)
	}

	port, err := spireg.Open(b.SPIPort)
	if err != nil {
		return fmt.Errorf("unable to open spi port %q: %w", b.SPIPort, err)
	}

	conn, err := port.Connect(physic.MegaHertz, spi.Mode1, 8)
	if err != nil {
		port.Close()
		return fmt.Errorf("unable to configure spi port: %w", err)
	}

	b.port = port
	b.conn = conn
	return nil
}

func (b *Periph) Close() error {
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	b.conn = nil
	return err
}

func (b *Periph) resolve(pin int) (gpio.PinIO, error) {
	if p, ok := b.pins[pin]; ok {
		return p, nil
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, fmt.Errorf("pin GPIO%d not present on this host", pin)
	}
	b.pins[pin] = p
	return p, nil
}

func (b *Periph) DigitalWrite(pin int, level Level) error {
	p, err := b.resolve(pin)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.Level(level)); err != nil {
		return fmt.Errorf("unable to write GPIO%d: %w", pin, err)
	}
	return nil
}

func (b *Periph) DigitalRead(pin int) (Level, error) {
	p, err := b.resolve(pin)
	if err != nil {
		return Low, err
	}
	return Level(p.Read() == gpio.High), nil
}

func (b *Periph) SetPinMode(pin int, mode PinMode) error {
	p, err := b.resolve(pin)
	if err != nil {
		return err
	}
	if mode == Input {
		if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return fmt.Errorf("unable to set GPIO%d as input: %w", pin, err)
		}
		return nil
	}
	if err := p.Out(gpio.Low); err != nil {
		return fmt.Errorf("unable to set GPIO%d as output: %w", pin, err)
	}
	return nil
}

func (b *Periph) TransferByte(value byte) (byte, error) {
	if b.conn == nil {
		return 0, fmt.Errorf("spi port is not open")
	}
	rx := make([]byte, 1)
	if err := b.conn.Tx([]byte{value}, rx); err != nil {
		return 0, fmt.Errorf("spi transfer failed: %w", err)
	}
	return rx[0], nil
}

func (b *Periph) Delay(ms int) {
	sleepMillis(ms)
}
