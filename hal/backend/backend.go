package backend

import "time"

// Level describes the binary state of a GPIO pin: either LOW or HIGH.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode describes the direction a GPIO pin is configured for.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Kind identifies which capability provider is active.
type Kind int

const (
	// Unselected means no backend has been chosen yet.
	Unselected Kind = iota
	// DirectRegister drives pins through the memory-mapped GPIO registers.
	DirectRegister
	// SysfsFallback drives pins through /sys/class/gpio and SPI through
	// the spidev character device.
	SysfsFallback
	// PinMuxLibrary drives pins through a pin-multiplexing library.
	PinMuxLibrary
	// SpidevDirect is the sysfs/spidev combination selected up front
	// rather than as a fallback.
	SpidevDirect
)

func (k Kind) String() string {
	switch k {
	case DirectRegister:
		return "direct-register"
	case SysfsFallback:
		return "sysfs-fallback"
	case PinMuxLibrary:
		return "pinmux-library"
	case SpidevDirect:
		return "spidev-direct"
	default:
		return "unselected"
	}
}

// Pins holds the three control pins of the AD HAT, in the numbering scheme
// of whichever backend is active.
type Pins struct {
	Reset      int
	ChipSelect int
	DataReady  int
}

// DefaultPins are the BCM numbers the Waveshare AD HAT is wired to.
func DefaultPins() Pins {
	return Pins{Reset: 18, ChipSelect: 22, DataReady: 17}
}

// Shift returns a copy of p with every pin moved by offset. Used when the
// sysfs GPIO base of the board differs from the BCM numbering.
func (p Pins) Shift(offset int) Pins {
	return Pins{
		Reset:      p.Reset + offset,
		ChipSelect: p.ChipSelect + offset,
		DataReady:  p.DataReady + offset,
	}
}

// Backend is a capability provider for pin and SPI primitives. Exactly one
// backend is opened by the lifecycle manager; all facade operations forward
// to it.
type Backend interface {
	// Kind reports which provider this is.
	Kind() Kind

	// SysfsNumbered reports whether the backend addresses pins by kernel
	// sysfs GPIO numbers, which shift on boards with a non-zero GPIO base.
	SysfsNumbered() bool

	// Open acquires the backend's resources and configures its SPI bus.
	Open(pins Pins) error

	// Close releases everything Open acquired.
	Close() error

	DigitalWrite(pin int, level Level) error
	DigitalRead(pin int) (Level, error)

	// SetPinMode configures the direction of a pin.
	SetPinMode(pin int, mode PinMode) error

	// TransferByte writes one byte on the SPI bus and returns the byte
	// shifted in during the same clock cycles.
	TransferByte(value byte) (byte, error)

	// Delay blocks for the given number of milliseconds.
	Delay(ms int)
}

// sleepMillis is the delay used by backends without a native millisecond
// primitive: a loop of 1000 µs sleeps, matching the reference timing model.
func sleepMillis(ms int) {
	for i := 0; i < ms; i++ {
		time.Sleep(1000 * time.Microsecond)
	}
}
