// Package ads1263 drives the TI ADS1263 32-bit delta-sigma ADC found on the
// High-Precision AD HAT. It speaks to the chip through the hal package's
// pin and SPI primitives.
package ads1263

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// HAL is the slice of the hardware layer the driver needs. *hal.HAL
// satisfies it; tests use a fake.
type HAL interface {
	SetReset(high bool) error
	SetChipSelect(high bool) error
	DataReady() (bool, error)
	WaitDataReady(timeout time.Duration) error
	TransferByte(value byte) (byte, error)
	ReadByte() (byte, error)
	Delay(ms int)
}

// ErrInvalidChipID means the device on the bus did not identify as an
// ADS1263.
var ErrInvalidChipID = errors.New("chip id is not an ADS1263")

// drdyTimeout bounds the wait for a conversion result.
const drdyTimeout = 5 * time.Second

// ADS1263 is the converter driver. It is not safe for concurrent use; the
// HAT is driven from a single control loop.
type ADS1263 struct {
	hal    HAL
	logger *logrus.Logger
	mode   InputMode
}

func New(h HAL, logger *logrus.Logger) *ADS1263 {
	if logger == nil {
		logger = logrus.New()
	}
	return &ADS1263{hal: h, logger: logger, mode: SingleEnded}
}

// SetInputMode selects single-ended or differential channel mapping for
// subsequent reads.
func (a *ADS1263) SetInputMode(mode InputMode) {
	a.mode = mode
	a.logger.Infof("input mode set to %s", mode)
}

func (a *ADS1263) InputMode() InputMode { return a.mode }

// Reset performs a full hardware reset cycle on the RST pin.
func (a *ADS1263) Reset() error {
	if err := a.hal.SetReset(true); err != nil {
		return err
	}
	a.hal.Delay(300)
	if err := a.hal.SetReset(false); err != nil {
		return err
	}
	a.hal.Delay(300)
	if err := a.hal.SetReset(true); err != nil {
		return err
	}
	a.hal.Delay(300)
	return nil
}

func (a *ADS1263) writeCmd(cmd Command) error {
	if err := a.hal.SetChipSelect(false); err != nil {
		return err
	}
	if _, err := a.hal.TransferByte(byte(cmd)); err != nil {
		return err
	}
	return a.hal.SetChipSelect(true)
}

func (a *ADS1263) writeReg(reg Register, data byte) error {
	if err := a.hal.SetChipSelect(false); err != nil {
		return err
	}
	if _, err := a.hal.TransferByte(byte(CmdWReg) | byte(reg)); err != nil {
		return err
	}
	// register count minus one
	if _, err := a.hal.TransferByte(0x00); err != nil {
		return err
	}
	if _, err := a.hal.TransferByte(data); err != nil {
		return err
	}
	return a.hal.SetChipSelect(true)
}

func (a *ADS1263) readReg(reg Register) (byte, error) {
	if err := a.hal.SetChipSelect(false); err != nil {
		return 0, err
	}
	if _, err := a.hal.TransferByte(byte(CmdRReg) | byte(reg)); err != nil {
		return 0, err
	}
	if _, err := a.hal.TransferByte(0x00); err != nil {
		return 0, err
	}
	data, err := a.hal.ReadByte()
	if err != nil {
		return 0, err
	}
	return data, a.hal.SetChipSelect(true)
}

// writeRegVerify writes a register and reads it back. A mismatch is only a
// warning: some bits read back differently by design and the reference
// implementation carries on regardless.
func (a *ADS1263) writeRegVerify(reg Register, data byte, name string) error {
	if err := a.writeReg(reg, data); err != nil {
		return err
	}
	a.hal.Delay(1)

	readBack, err := a.readReg(reg)
	if err != nil {
		return err
	}
	if readBack == data {
		a.logger.Debugf("%s configured (0x%02X)", name, data)
	} else {
		a.logger.Warnf("%s mismatch: wrote 0x%02X, read 0x%02X", name, data, readBack)
	}
	return nil
}

// checksum validates the additive CRC the chip appends to each data read:
// the byte-wise sum of the value plus the 0x9B constant.
func checksum(val uint32, crc byte) bool {
	var sum byte
	for v := val; v != 0; v >>= 8 {
		sum += byte(v & 0xFF)
	}
	return sum+0x9B == crc
}

// ChipID reads the device identity. An ADS1263 reports 1.
func (a *ADS1263) ChipID() (byte, error) {
	id, err := a.readReg(RegID)
	if err != nil {
		return 0, err
	}
	return id >> 5, nil
}

func (a *ADS1263) verifyChipID() error {
	id, err := a.ChipID()
	if err != nil {
		return err
	}
	if id != 1 {
		return fmt.Errorf("%w: got %d, want 1", ErrInvalidChipID, id)
	}
	a.logger.Debugf("chip id verified: %d", id)
	return nil
}

// InitADC1 resets the device, checks its identity and configures the
// primary 32-bit converter at the given rate.
func (a *ADS1263) InitADC1(rate DataRate) error {
	if err := a.Reset(); err != nil {
		return fmt.Errorf("unable to reset device: %w", err)
	}
	if err := a.verifyChipID(); err != nil {
		return err
	}

	if err := a.writeCmd(CmdStop1); err != nil {
		return err
	}
	if err := a.configADC1(Gain1, rate, Delay35us); err != nil {
		return err
	}
	if err := a.writeCmd(CmdStart1); err != nil {
		return err
	}

	a.logger.WithField("rate", rate).Info("adc1 initialized")
	return nil
}

func (a *ADS1263) configADC1(gain Gain, rate DataRate, delay ConvDelay) error {
	// MODE2: PGA bypassed | gain | data rate
	mode2 := 0x80 | (byte(gain) << 4) | byte(rate)
	if err := a.writeRegVerify(RegMode2, mode2, "REG_MODE2"); err != nil {
		return err
	}
	if err := a.writeRegVerify(RegRefMux, byte(RefAVDDAVSS), "REG_REFMUX"); err != nil {
		return err
	}
	if err := a.writeRegVerify(RegMode0, byte(delay), "REG_MODE0"); err != nil {
		return err
	}
	return a.writeRegVerify(RegMode1, byte(FilterFIR), "REG_MODE1")
}

// InitADC2 resets the device, checks its identity and configures the
// auxiliary 24-bit converter at the given rate.
func (a *ADS1263) InitADC2(rate ADC2DataRate) error {
	if err := a.Reset(); err != nil {
		return fmt.Errorf("unable to reset device: %w", err)
	}
	if err := a.verifyChipID(); err != nil {
		return err
	}

	if err := a.writeCmd(CmdStop2); err != nil {
		return err
	}
	if err := a.configADC2(ADC2Gain1, rate, Delay35us); err != nil {
		return err
	}

	a.logger.WithField("rate", rate).Info("adc2 initialized")
	return nil
}

func (a *ADS1263) configADC2(gain ADC2Gain, rate ADC2DataRate, delay ConvDelay) error {
	// ADC2CFG: AVDD/AVSS reference | data rate | gain
	cfg := 0x20 | (byte(rate) << 6) | byte(gain)
	if err := a.writeRegVerify(RegADC2Cfg, cfg, "REG_ADC2CFG"); err != nil {
		return err
	}
	return a.writeRegVerify(RegMode0, byte(delay), "REG_MODE0")
}

func (a *ADS1263) setChannel(channel int) error {
	if channel < 0 || channel > 10 {
		return fmt.Errorf("invalid channel %d (max 10)", channel)
	}
	// channel as positive input, VCOM as negative
	return a.writeReg(RegInpMux, byte(channel)<<4|0x0A)
}

func diffInpMux(channel int) (byte, error) {
	switch channel {
	case 0:
		return 0<<4 | 1, nil
	case 1:
		return 2<<4 | 3, nil
	case 2:
		return 4<<4 | 5, nil
	case 3:
		return 6<<4 | 7, nil
	case 4:
		return 8<<4 | 9, nil
	default:
		return 0, fmt.Errorf("invalid channel %d (max 4)", channel)
	}
}

func (a *ADS1263) setDiffChannel(channel int) error {
	mux, err := diffInpMux(channel)
	if err != nil {
		return err
	}
	return a.writeReg(RegInpMux, mux)
}

func (a *ADS1263) setChannelADC2(channel int) error {
	if channel < 0 || channel > 10 {
		return fmt.Errorf("invalid channel %d (max 10)", channel)
	}
	return a.writeReg(RegADC2Mux, byte(channel)<<4|0x0A)
}

func (a *ADS1263) setDiffChannelADC2(channel int) error {
	mux, err := diffInpMux(channel)
	if err != nil {
		return err
	}
	return a.writeReg(RegADC2Mux, mux)
}

// readADC1Data reads a 32-bit conversion result plus its CRC byte.
func (a *ADS1263) readADC1Data() (uint32, error) {
	if err := a.hal.SetChipSelect(false); err != nil {
		return 0, err
	}
	defer a.hal.SetChipSelect(true)

	// poll the status byte until the ADC1 data-valid bit is set
	for {
		if _, err := a.hal.TransferByte(byte(CmdRData1)); err != nil {
			return 0, err
		}
		status, err := a.hal.ReadByte()
		if err != nil {
			return 0, err
		}
		if status&0x40 != 0 {
			break
		}
	}

	var buf [5]byte
	for i := range buf {
		b, err := a.hal.ReadByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}

	data := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	if !checksum(data, buf[4]) {
		a.logger.Warnf("adc1 checksum error: data=0x%08X crc=0x%02X", data, buf[4])
	}
	return data, nil
}

// readADC2Data reads a 24-bit conversion result, a padding byte and the CRC.
func (a *ADS1263) readADC2Data() (uint32, error) {
	if err := a.hal.SetChipSelect(false); err != nil {
		return 0, err
	}
	defer a.hal.SetChipSelect(true)

	for {
		if _, err := a.hal.TransferByte(byte(CmdRData2)); err != nil {
			return 0, err
		}
		status, err := a.hal.ReadByte()
		if err != nil {
			return 0, err
		}
		if status&0x80 != 0 {
			break
		}
	}

	var buf [5]byte
	for i := range buf {
		b, err := a.hal.ReadByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}

	data := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	if !checksum(data, buf[4]) {
		a.logger.Warnf("adc2 checksum error: data=0x%06X crc=0x%02X", data, buf[4])
	}
	return data, nil
}

// ChannelValue selects a channel on ADC1, waits for the conversion and
// returns the raw 32-bit result.
func (a *ADS1263) ChannelValue(channel int) (uint32, error) {
	var err error
	if a.mode == Differential {
		err = a.setDiffChannel(channel)
	} else {
		err = a.setChannel(channel)
	}
	if err != nil {
		return 0, err
	}

	if err := a.hal.WaitDataReady(drdyTimeout); err != nil {
		return 0, err
	}
	return a.readADC1Data()
}

// ChannelValues reads several ADC1 channels in order.
func (a *ADS1263) ChannelValues(channels []int) ([]uint32, error) {
	values := make([]uint32, 0, len(channels))
	for _, ch := range channels {
		v, err := a.ChannelValue(ch)
		if err != nil {
			return nil, fmt.Errorf("unable to read channel %d: %w", ch, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// ADC2Value selects a channel on the auxiliary converter, starts a
// conversion and returns the raw 24-bit result.
func (a *ADS1263) ADC2Value(channel int) (uint32, error) {
	var err error
	if a.mode == Differential {
		err = a.setDiffChannelADC2(channel)
	} else {
		err = a.setChannelADC2(channel)
	}
	if err != nil {
		return 0, err
	}

	if err := a.writeCmd(CmdStart2); err != nil {
		return 0, err
	}
	return a.readADC2Data()
}

// AllADC2Values reads all ten single-ended channels from ADC2.
func (a *ADS1263) AllADC2Values() ([10]uint32, error) {
	var values [10]uint32
	for i := range values {
		v, err := a.ADC2Value(i)
		if err != nil {
			return values, fmt.Errorf("unable to read adc2 channel %d: %w", i, err)
		}
		values[i] = v
		if err := a.writeCmd(CmdStop2); err != nil {
			return values, err
		}
	}
	return values, nil
}

// RawToVoltage converts a raw 32-bit ADC1 reading to volts against the
// given reference. Readings with the sign bit set come out negative.
func RawToVoltage(raw uint32, reference float64) float64 {
	if raw>>31 == 1 {
		return -(reference*2 - float64(raw)/2147483648.0*reference)
	}
	return float64(raw) / 2147483647.0 * reference
}

// ADC2RawToVoltage converts a raw 24-bit ADC2 reading to volts.
func ADC2RawToVoltage(raw uint32, reference float64) float64 {
	if raw>>23 == 1 {
		return -(reference*2 - float64(raw)/8388608.0*reference)
	}
	return float64(raw) / 8388607.0 * reference
}

// ReadRTD configures the excitation current sources and muxes for an RTD
// wired to the HAT's RTD terminals and returns one raw conversion.
func (a *ADS1263) ReadRTD(delay ConvDelay, gain Gain, rate DataRate) (uint32, error) {
	// MODE0, chop off
	if err := a.writeReg(RegMode0, byte(delay)); err != nil {
		return 0, err
	}
	a.hal.Delay(1)

	// IDACMUX: IDAC2 to AINCOM, IDAC1 to AIN3
	if err := a.writeReg(RegIDACMux, 0x0A<<4|0x03); err != nil {
		return 0, err
	}
	a.hal.Delay(1)

	// IDACMAG: both sources at 250 µA
	if err := a.writeReg(RegIDACMag, 0x03<<4|0x03); err != nil {
		return 0, err
	}
	a.hal.Delay(1)

	if err := a.writeReg(RegMode2, byte(gain)<<4|byte(rate)); err != nil {
		return 0, err
	}
	a.hal.Delay(1)

	// INPMUX: AIN7 against AIN6
	if err := a.writeReg(RegInpMux, 0x07<<4|0x06); err != nil {
		return 0, err
	}
	a.hal.Delay(1)

	// REFMUX: reference across AIN4/AIN5
	if err := a.writeReg(RegRefMux, 0x03<<3|0x03); err != nil {
		return 0, err
	}
	a.hal.Delay(1)

	if err := a.writeCmd(CmdStart1); err != nil {
		return 0, err
	}
	a.hal.Delay(10)
	if err := a.hal.WaitDataReady(drdyTimeout); err != nil {
		return 0, err
	}
	value, err := a.readADC1Data()
	if err != nil {
		return 0, err
	}
	return value, a.writeCmd(CmdStop1)
}

// RTDToResistance converts a raw RTD reading to ohms given the reference
// resistor value. The factor of two reflects the doubled excitation
// current through the reference.
func RTDToResistance(raw uint32, refResistor float64) float64 {
	return float64(raw) / 2147483647.0 * 2 * refResistor
}

// PT100ToCelsius converts a PT100 resistance to temperature using the
// linear alpha = 0.00385 approximation.
func PT100ToCelsius(resistance float64) float64 {
	return (resistance/100.0 - 1.0) / 0.00385
}

// SetDAC drives one of the two sensor-bias DAC outputs: the positive DAC
// feeds AIN6, the negative one AIN7.
func (a *ADS1263) SetDAC(voltage DACVoltage, positive, enable bool) error {
	reg := RegTDACN
	if positive {
		reg = RegTDACP
	}

	var value byte
	if enable {
		value = byte(voltage) | 0x80
	}

	if err := a.writeReg(reg, value); err != nil {
		return err
	}
	a.logger.Debugf("dac positive=%t enable=%t value=0x%02X", positive, enable, value)
	return nil
}

// StartADC1 starts primary converter conversions.
func (a *ADS1263) StartADC1() error { return a.writeCmd(CmdStart1) }

// StopADC1 stops primary converter conversions.
func (a *ADS1263) StopADC1() error { return a.writeCmd(CmdStop1) }

// StartADC2 starts auxiliary converter conversions.
func (a *ADS1263) StartADC2() error { return a.writeCmd(CmdStart2) }

// StopADC2 stops auxiliary converter conversions.
func (a *ADS1263) StopADC2() error { return a.writeCmd(CmdStop2) }
