package ads1263

// Register is an ADS1263 register address.
type Register byte

const (
	RegID Register = iota
	RegPower
	RegInterface
	RegMode0
	RegMode1
	RegMode2
	RegInpMux
	RegOfCal0
	RegOfCal1
	RegOfCal2
	RegFsCal0
	RegFsCal1
	RegFsCal2
	RegIDACMux
	RegIDACMag
	RegRefMux
	RegTDACP
	RegTDACN
	RegGPIOCon
	RegGPIODir
	RegGPIODat
	RegADC2Cfg
	RegADC2Mux
	RegADC2OfC0
	RegADC2OfC1
	RegADC2FsC0
	RegADC2FsC1
)

// Command is an ADS1263 command code.
type Command byte

const (
	CmdReset     Command = 0x06
	CmdStart1    Command = 0x08
	CmdStop1     Command = 0x0A
	CmdStart2    Command = 0x0C
	CmdStop2     Command = 0x0E
	CmdRData1    Command = 0x12
	CmdRData2    Command = 0x14
	CmdSysOCal1  Command = 0x16
	CmdSysGCal1  Command = 0x17
	CmdSelfOCal1 Command = 0x19
	CmdSysOCal2  Command = 0x1B
	CmdSysGCal2  Command = 0x1C
	CmdSelfOCal2 Command = 0x1E
	CmdRReg      Command = 0x20
	CmdWReg      Command = 0x40
)

// Gain is an ADC1 programmable-gain-amplifier setting.
type Gain byte

const (
	Gain1 Gain = iota
	Gain2
	Gain4
	Gain8
	Gain16
	Gain32
	Gain64
)

// DataRate is an ADC1 sample-rate setting.
type DataRate byte

const (
	SPS2_5 DataRate = iota
	SPS5
	SPS10
	SPS16_6
	SPS20
	SPS50
	SPS60
	SPS100
	SPS400
	SPS1200
	SPS2400
	SPS4800
	SPS7200
	SPS14400
	SPS19200
	SPS38400
)

// ConvDelay is a conversion-delay setting for MODE0.
type ConvDelay byte

const (
	Delay0 ConvDelay = iota
	Delay8_7us
	Delay17us
	Delay35us
	Delay169us
	Delay139us
	Delay278us
	Delay555us
	Delay1_1ms
	Delay2_2ms
	Delay4_4ms
	Delay8_8ms
)

// ADC2Gain is the auxiliary converter's gain setting.
type ADC2Gain byte

const (
	ADC2Gain1 ADC2Gain = iota
	ADC2Gain2
	ADC2Gain4
	ADC2Gain8
	ADC2Gain16
	ADC2Gain32
	ADC2Gain64
	ADC2Gain128
)

// ADC2DataRate is the auxiliary converter's sample-rate setting.
type ADC2DataRate byte

const (
	ADC2SPS10 ADC2DataRate = iota
	ADC2SPS100
	ADC2SPS400
	ADC2SPS800
)

// DigitalFilter selects the ADC1 digital filter in MODE1.
type DigitalFilter byte

const (
	FilterSinc1 DigitalFilter = 0x04
	FilterSinc2 DigitalFilter = 0x24
	FilterSinc3 DigitalFilter = 0x44
	FilterSinc4 DigitalFilter = 0x64
	// FilterFIR gives the best 50/60 Hz rejection.
	FilterFIR DigitalFilter = 0x84
)

// ReferenceSource selects the ADC1 voltage reference in REFMUX.
type ReferenceSource byte

const (
	RefInternal2V5   ReferenceSource = 0x00
	RefExternalAIN01 ReferenceSource = 0x09
	RefExternalAIN23 ReferenceSource = 0x12
	RefExternalAIN45 ReferenceSource = 0x1B
	RefAVDDAVSS      ReferenceSource = 0x24
)

// DACVoltage is an output level for the two sensor-bias DACs.
type DACVoltage byte

const (
	DAC4V5        DACVoltage = 0b01001
	DAC3V5        DACVoltage = 0b01000
	DAC3V         DACVoltage = 0b00111
	DAC2V75       DACVoltage = 0b00110
	DAC2V625      DACVoltage = 0b00101
	DAC2V5625     DACVoltage = 0b00100
	DAC2V53125    DACVoltage = 0b00011
	DAC2V515625   DACVoltage = 0b00010
	DAC2V5078125  DACVoltage = 0b00001
	DAC2V5        DACVoltage = 0b00000
	DAC2V4921875  DACVoltage = 0b10001
	DAC2V484375   DACVoltage = 0b10010
	DAC2V46875    DACVoltage = 0b10011
	DAC2V4375     DACVoltage = 0b10100
	DAC2V375      DACVoltage = 0b10101
	DAC2V25       DACVoltage = 0b10110
	DAC2V         DACVoltage = 0b10111
	DAC1V5        DACVoltage = 0b11000
	DAC0V5        DACVoltage = 0b11001
)

// InputMode selects how the analog inputs are paired.
type InputMode int

const (
	// SingleEnded measures AIN0..AIN9 each against AINCOM.
	SingleEnded InputMode = iota
	// Differential measures the five AINx/AINx+1 pairs.
	Differential
)

func (m InputMode) String() string {
	if m == Differential {
		return "differential"
	}
	return "single-ended"
}
