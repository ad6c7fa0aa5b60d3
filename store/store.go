package store

import (
	"io"
	"time"
)

// AcquisitionConfig describes what the acquisition loop reads and how often.
type AcquisitionConfig struct {
	// Channels are the ADC1 inputs to scan, in order.
	Channels []int `json:"channels"`

	// Reference is the reference voltage in volts used to scale raw
	// readings.
	Reference float64 `json:"reference"`

	// PeriodMS is the delay between scans in milliseconds.
	PeriodMS int `json:"periodMS"`
}

// Reading is one channel's result within a sample.
type Reading struct {
	Channel int     `json:"channel"`
	Raw     uint32  `json:"raw"`
	Voltage float64 `json:"voltage"`
}

// Sample is one full scan of the configured channels.
type Sample struct {
	Time     time.Time `json:"time"`
	Readings []Reading `json:"readings"`
}

// Store describes a persistent storage engine for acquisition configuration
// and recorded samples.
type Store interface {
	AcquisitionConfig() (AcquisitionConfig, error)
	PutAcquisitionConfig(c AcquisitionConfig) error

	PutSample(s Sample) error
	RecentSamples(n int) ([]Sample, error)

	io.Closer
}
