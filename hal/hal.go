// Package hal presents a uniform set of pin and SPI primitives for the
// High-Precision AD HAT and picks the low-level backend that actually works
// on the host: the direct-register path first, the sysfs/spidev fallback
// when that fails. The choice is made once, at Init, and held for the
// process lifetime.
package hal

import (
	"fmt"
	"time"

	"github.com/jimimatt/High-Pricision-AD-HAT/hal/backend"
	"github.com/sirupsen/logrus"
)

// Config configures a HAL. The zero value of every field has a sensible
// default applied by New.
type Config struct {
	// Pins are the board pin assignments before any offset is applied.
	Pins backend.Pins

	// Candidates are the backends to attempt, in order. Defaults to the
	// direct-register backend with the sysfs/spidev fallback behind it.
	Candidates []backend.Backend

	// IssuePath and ChipLabelPath override the probed host files.
	IssuePath     string
	ChipLabelPath string

	Logger *logrus.Logger
}

// HAL owns the backend selection and forwards every I/O primitive to
// whichever backend Init activated.
type HAL struct {
	logger        *logrus.Logger
	issuePath     string
	chipLabelPath string
	basePins      backend.Pins
	candidates    []backend.Backend

	active      backend.Backend
	state       backend.Kind
	pins        backend.Pins
	fingerprint string
	ready       bool
}

func New(config Config) *HAL {
	if config.Pins == (backend.Pins{}) {
		config.Pins = backend.DefaultPins()
	}
	if len(config.Candidates) == 0 {
		config.Candidates = []backend.Backend{backend.NewRPIO(), backend.NewSysfs()}
	}
	if config.IssuePath == "" {
		config.IssuePath = DefaultIssuePath
	}
	if config.ChipLabelPath == "" {
		config.ChipLabelPath = DefaultChipLabelPath
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	return &HAL{
		logger:        config.Logger,
		issuePath:     config.IssuePath,
		chipLabelPath: config.ChipLabelPath,
		basePins:      config.Pins,
		candidates:    config.Candidates,
		state:         backend.Unselected,
	}
}

// Init probes the environment and activates the first candidate backend
// that opens. From the second candidate on, sysfs-numbered backends get the
// detected board offset added to every pin first. A second call on a ready
// HAL is a no-op.
func (h *HAL) Init() error {
	if h.ready {
		return nil
	}

	fingerprint, err := probeEnvironment(h.issuePath, h.logger)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEnvironmentUnreadable, err)
	}
	h.fingerprint = fingerprint

	if fingerprint == "" {
		h.logger.Warn("environment is unrecognizable")
	} else if !fingerprintRecognized(fingerprint) {
		h.logger.Warnf("OS is %q (not Raspbian), continuing anyway", fingerprint)
	}

	offset := -1
	var lastErr error
	for i, candidate := range h.candidates {
		pins := h.basePins
		if i > 0 && candidate.SysfsNumbered() {
			if offset < 0 {
				offset = detectBoardOffset(h.chipLabelPath, h.logger)
				if offset > 0 {
					h.logger.Infof("shifted GPIO base detected, using offset %d", offset)
				}
			}
			pins = pins.Shift(offset)
		}

		if err := candidate.Open(pins); err != nil {
			h.logger.WithField("backend", candidate.Kind().String()).
				Warnf("backend init failed: %s", err)
			lastErr = err
			continue
		}

		if err := h.configurePins(candidate, pins); err != nil {
			candidate.Close()
			lastErr = err
			continue
		}

		h.active = candidate
		h.state = candidate.Kind()
		h.pins = pins
		h.ready = true

		h.logger.WithField("backend", h.state.String()).Info("hal ready")
		h.logger.Infof("gpio pins: RST=%d CS=%d DRDY=%d",
			pins.Reset, pins.ChipSelect, pins.DataReady)
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %s", ErrNoBackendAvailable, lastErr)
	}
	return ErrNoBackendAvailable
}

// configurePins puts the control pins in their resting configuration:
// Reset and ChipSelect as outputs, DataReady as input, ChipSelect high
// (inactive).
func (h *HAL) configurePins(b backend.Backend, pins backend.Pins) error {
	if err := b.SetPinMode(pins.Reset, backend.Output); err != nil {
		return fmt.Errorf("unable to configure reset pin: %w", err)
	}
	if err := b.SetPinMode(pins.ChipSelect, backend.Output); err != nil {
		return fmt.Errorf("unable to configure chip-select pin: %w", err)
	}
	if err := b.SetPinMode(pins.DataReady, backend.Input); err != nil {
		return fmt.Errorf("unable to configure data-ready pin: %w", err)
	}
	return b.DigitalWrite(pins.ChipSelect, backend.High)
}

// Exit drives the control pins to their inactive level and releases the
// active backend. Calling it when nothing is active is a no-op.
func (h *HAL) Exit() error {
	if !h.ready {
		return nil
	}

	if err := h.active.DigitalWrite(h.pins.Reset, backend.Low); err != nil {
		h.logger.Warnf("unable to drive reset low on exit: %s", err)
	}
	if err := h.active.DigitalWrite(h.pins.ChipSelect, backend.Low); err != nil {
		h.logger.Warnf("unable to drive chip-select low on exit: %s", err)
	}

	err := h.active.Close()
	h.active = nil
	h.state = backend.Unselected
	h.ready = false
	return err
}

// State reports which backend is active, or Unselected before Init and
// after Exit.
func (h *HAL) State() backend.Kind { return h.state }

// Pins returns the pin assignment the active backend uses, offset included.
func (h *HAL) Pins() backend.Pins { return h.pins }

// Fingerprint returns the OS identity token read during Init.
func (h *HAL) Fingerprint() string { return h.fingerprint }

func (h *HAL) DigitalWrite(pin int, level backend.Level) error {
	if !h.ready {
		return ErrNotReady
	}
	return h.active.DigitalWrite(pin, level)
}

func (h *HAL) DigitalRead(pin int) (backend.Level, error) {
	if !h.ready {
		return backend.Low, ErrNotReady
	}
	return h.active.DigitalRead(pin)
}

func (h *HAL) SetPinMode(pin int, mode backend.PinMode) error {
	if !h.ready {
		return ErrNotReady
	}
	return h.active.SetPinMode(pin, mode)
}

// TransferByte performs a full-duplex single-byte SPI transfer.
func (h *HAL) TransferByte(value byte) (byte, error) {
	if !h.ready {
		return 0, ErrNotReady
	}
	return h.active.TransferByte(value)
}

// ReadByte reads one byte off the SPI bus by clocking out a zero.
func (h *HAL) ReadByte() (byte, error) {
	return h.TransferByte(0x00)
}

// Delay blocks for the given number of milliseconds.
func (h *HAL) Delay(ms int) {
	if h.ready {
		h.active.Delay(ms)
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// SetReset drives the reset pin.
func (h *HAL) SetReset(high bool) error {
	if !h.ready {
		return ErrNotReady
	}
	return h.active.DigitalWrite(h.pins.Reset, backend.Level(high))
}

// SetChipSelect drives the chip-select pin. High is inactive.
func (h *HAL) SetChipSelect(high bool) error {
	if !h.ready {
		return ErrNotReady
	}
	return h.active.DigitalWrite(h.pins.ChipSelect, backend.Level(high))
}

// DataReady reads the data-ready pin. The converter pulls it low when a
// conversion result is available.
func (h *HAL) DataReady() (bool, error) {
	if !h.ready {
		return false, ErrNotReady
	}
	level, err := h.active.DigitalRead(h.pins.DataReady)
	return level == backend.High, err
}

// WaitDataReady polls the data-ready pin until it goes low or the timeout
// elapses.
func (h *HAL) WaitDataReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		busy, err := h.DataReady()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrDataReadyTimeout, timeout)
		}
		time.Sleep(10 * time.Microsecond)
	}
}
