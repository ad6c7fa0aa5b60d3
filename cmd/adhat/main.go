package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jimimatt/High-Pricision-AD-HAT/ads1263"
	"github.com/jimimatt/High-Pricision-AD-HAT/hal"
	"github.com/sirupsen/logrus"
)

func main() {
	mode := flag.String("mode", "adc1", "demo mode: adc1, adc2, rtd or rate")
	channels := flag.Int("channels", 5, "number of ADC1 channels to scan")
	reference := flag.Float64("ref", 5.08, "reference voltage in volts")
	flag.Parse()

	logger := logrus.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *mode, *channels, *reference, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context, mode string, channels int, reference float64, logger *logrus.Logger) error {
	h := hal.New(hal.Config{Logger: logger})
	if err := h.Init(); err != nil {
		return err
	}
	defer h.Exit()

	adc := ads1263.New(h, logger)
	adc.SetInputMode(ads1263.SingleEnded)

	switch mode {
	case "adc1":
		return scanADC1(ctx, adc, channels, reference)
	case "adc2":
		return scanADC2(ctx, adc, reference)
	case "rtd":
		return readRTD(adc)
	case "rate":
		return measureRate(adc)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// scanADC1 continuously reads the first n primary-converter channels,
// redrawing the values in place until interrupted.
func scanADC1(ctx context.Context, adc *ads1263.ADS1263, n int, reference float64) error {
	if err := adc.InitADC1(ads1263.SPS400); err != nil {
		return err
	}

	scan := make([]int, n)
	for i := range scan {
		scan[i] = i
	}

	for ctx.Err() == nil {
		values, err := adc.ChannelValues(scan)
		if err != nil {
			return err
		}

		for i, raw := range values {
			fmt.Printf("IN%d is %9.6f V\n", scan[i], ads1263.RawToVoltage(raw, reference))
		}
		cursorUp(len(values))
	}

	fmt.Print("\n")
	return nil
}

// scanADC2 continuously reads all ten auxiliary-converter channels.
func scanADC2(ctx context.Context, adc *ads1263.ADS1263, reference float64) error {
	if err := adc.InitADC2(ads1263.ADC2SPS100); err != nil {
		return err
	}

	for ctx.Err() == nil {
		values, err := adc.AllADC2Values()
		if err != nil {
			return err
		}

		for i, raw := range values {
			fmt.Printf("IN%d is %9.6f V\n", i, ads1263.ADC2RawToVoltage(raw, reference))
		}
		cursorUp(len(values))
	}

	fmt.Print("\n")
	return nil
}

// readRTD takes one RTD measurement and reports resistance and the PT100
// temperature.
func readRTD(adc *ads1263.ADS1263) error {
	if err := adc.InitADC1(ads1263.SPS20); err != nil {
		return err
	}

	raw, err := adc.ReadRTD(ads1263.Delay8_8ms, ads1263.Gain1, ads1263.SPS20)
	if err != nil {
		return err
	}

	// 2 kΩ reference resistor on the HAT's RTD input
	resistance := ads1263.RTDToResistance(raw, 2000.0)
	fmt.Printf("Resistance: %.2f ohm\n", resistance)
	fmt.Printf("Temperature: %.2f C\n", ads1263.PT100ToCelsius(resistance))
	return nil
}

// measureRate times single-channel reads to report the effective sample
// rate.
func measureRate(adc *ads1263.ADS1263) error {
	if err := adc.InitADC1(ads1263.SPS400); err != nil {
		return err
	}

	const iterations = 10000
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if _, err := adc.ChannelValue(0); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	ms := float64(elapsed.Microseconds()) / 1000.0
	fmt.Printf("%.2f ms\n", ms)
	fmt.Printf("single channel: %.2f kHz\n", iterations/ms)
	return nil
}

func cursorUp(lines int) {
	for i := 0; i < lines; i++ {
		fmt.Print("\x1b[1A")
	}
}
