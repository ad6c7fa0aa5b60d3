package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/io/spi"
)

const (
	// DefaultSPIPath is the spidev node the AD HAT sits behind.
	DefaultSPIPath = "/dev/spidev0.0"
	// DefaultGPIORoot is the kernel sysfs GPIO tree.
	DefaultGPIORoot = "/sys/class/gpio"

	spidevSpeedHz = 1000000
)

// Sysfs drives GPIO through the kernel sysfs interface and SPI through the
// spidev character device. It serves two roles: the fallback activated when
// the direct-register backend can't initialize, and the spidev-direct
// configuration where it is the only provider.
type Sysfs struct {
	// GPIORoot and SPIPath default to the real kernel paths; tests point
	// them at a simulated tree.
	GPIORoot string
	SPIPath  string

	direct   bool
	dev      *spi.Device
	exported []int
}

var _ Backend = &Sysfs{}

// NewSysfs returns the fallback sysfs/spidev backend.
func NewSysfs() *Sysfs {
	return &Sysfs{GPIORoot: DefaultGPIORoot, SPIPath: DefaultSPIPath}
}

// NewSpidevDirect returns the same provider tagged as a first-choice
// backend rather than a fallback.
func NewSpidevDirect() *Sysfs {
	s := NewSysfs()
	s.direct = true
	return s
}

func (s *Sysfs) Kind() Kind {
	if s.direct {
		return SpidevDirect
	}
	return SysfsFallback
}

func (s *Sysfs) SysfsNumbered() bool { return true }

func (s *Sysfs) Open(pins Pins) error {
	dev, err := spi.Open(&spi.Devfs{
		Dev:      s.SPIPath,
		Mode:     spi.Mode1,
		MaxSpeed: spidevSpeedHz,
	})
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", s.SPIPath, err)
	}
	if err := dev.SetBitOrder(spi.MSBFirst); err != nil {
		dev.Close()
		return fmt.Errorf("unable to set spi bit order: %w", err)
	}

	s.dev = dev
	return nil
}

func (s *Sysfs) Close() error {
	for _, pin := range s.exported {
		s.unexport(pin)
	}
	s.exported = nil

	if s.dev == nil {
		return nil
	}
	err := s.dev.Close()
	s.dev = nil
	return err
}

func (s *Sysfs) DigitalWrite(pin int, level Level) error {
	v := "0"
	if level == High {
		v = "1"
	}
	path := filepath.Join(s.GPIORoot, fmt.Sprintf("gpio%d", pin), "value")
	if err := os.WriteFile(path, []byte(v), 0644); err != nil {
		return fmt.Errorf("unable to write gpio%d value: %w", pin, err)
	}
	return nil
}

func (s *Sysfs) DigitalRead(pin int) (Level, error) {
	path := filepath.Join(s.GPIORoot, fmt.Sprintf("gpio%d", pin), "value")
	raw, err := os.ReadFile(path)
	if err != nil {
		return Low, fmt.Errorf("unable to read gpio%d value: %w", pin, err)
	}
	return strings.TrimSpace(string(raw)) == "1", nil
}

func (s *Sysfs) SetPinMode(pin int, mode PinMode) error {
	if err := s.export(pin); err != nil {
		return err
	}

	dir := "out"
	if mode == Input {
		dir = "in"
	}
	path := filepath.Join(s.GPIORoot, fmt.Sprintf("gpio%d", pin), "direction")
	if err := os.WriteFile(path, []byte(dir), 0644); err != nil {
		return fmt.Errorf("unable to set gpio%d direction: %w", pin, err)
	}
	return nil
}

func (s *Sysfs) TransferByte(value byte) (byte, error) {
	if s.dev == nil {
		return 0, fmt.Errorf("spi device is not open")
	}
	rx := make([]byte, 1)
	if err := s.dev.Tx([]byte{value}, rx); err != nil {
		return 0, fmt.Errorf("spi transfer failed: %w", err)
	}
	return rx[0], nil
}

func (s *Sysfs) Delay(ms int) {
	sleepMillis(ms)
}

// export makes a pin visible under the sysfs tree. An already-exported pin
// makes the kernel report EBUSY, which is not a failure here.
func (s *Sysfs) export(pin int) error {
	gpioDir := filepath.Join(s.GPIORoot, fmt.Sprintf("gpio%d", pin))
	if _, err := os.Stat(gpioDir); err == nil {
		s.remember(pin)
		return nil
	}

	path := filepath.Join(s.GPIORoot, "export")
	if err := os.WriteFile(path, []byte(strconv.Itoa(pin)), 0644); err != nil {
		return fmt.Errorf("unable to export gpio%d: %w", pin, err)
	}

	// The gpio node's attribute files appear shortly after the export
	// write returns.
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(gpioDir); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.remember(pin)
	return nil
}

func (s *Sysfs) unexport(pin int) {
	path := filepath.Join(s.GPIORoot, "unexport")
	os.WriteFile(path, []byte(strconv.Itoa(pin)), 0644)
}

func (s *Sysfs) remember(pin int) {
	for _, p := range s.exported {
		if p == pin {
			return
		}
	}
	s.exported = append(s.exported, pin)
}
