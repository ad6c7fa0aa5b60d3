// Package server exposes the AD HAT over HTTP: current channel readings,
// backend status and the acquisition configuration. It also owns the
// background loop that scans the configured channels and records samples.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jimimatt/High-Pricision-AD-HAT/ads1263"
	"github.com/jimimatt/High-Pricision-AD-HAT/hal"
	"github.com/jimimatt/High-Pricision-AD-HAT/store"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// defaultConfig is used until a config is stored: the first five
// single-ended channels against the HAT's nominal 5.08 V reference, one
// scan per second.
var defaultConfig = store.AcquisitionConfig{
	Channels:  []int{0, 1, 2, 3, 4},
	Reference: 5.08,
	PeriodMS:  1000,
}

type Server struct {
	Addr string

	HAL    *hal.HAL
	ADC    *ads1263.ADS1263
	Store  store.Store
	Logger *logrus.Logger

	readingsManager *readingsManager
	configManager   *configManager
}

func (s *Server) Run(ctx context.Context) error {
	if err := s.init(); err != nil {
		return fmt.Errorf("unable to initialize: %w", err)
	}

	mux := httprouter.New()

	mux.HandlerFunc(http.MethodGet, "/status", s.getStatus)
	mux.HandlerFunc(http.MethodGet, "/channels", s.getChannels)
	mux.HandlerFunc(http.MethodGet, "/channels/:channel", s.getChannel)
	mux.HandlerFunc(http.MethodGet, "/config", s.getConfig)
	mux.HandlerFunc(http.MethodPut, "/config", s.putConfig)
	mux.HandlerFunc(http.MethodGet, "/samples", s.getSamples)

	httpServer := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadTimeout:       time.Second * 15,
		ReadHeaderTimeout: time.Second * 15,
		IdleTimeout:       time.Second * 30,
		MaxHeaderBytes:    4096,
	}

	listenErrs := make(chan error)
	go func() {
		s.Logger.WithField("addr", s.Addr).Info("serving http")
		listenErrs <- httpServer.ListenAndServe()
	}()

	acquireCtx, cancelAcquire := context.WithCancel(ctx)
	defer cancelAcquire()

	acquireErrs := make(chan error)
	go func() {
		s.Logger.Info("starting acquisition loop")
		acquireErrs <- s.runAcquisition(acquireCtx)
	}()

	select {
	case err := <-listenErrs:
		return err
	case err := <-acquireErrs:
		httpServer.Shutdown(ctx)
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}
}

// init sets up the managers, seeding the acquisition config from the store
// when one has been saved.
func (s *Server) init() error {
	s.readingsManager = &readingsManager{mu: new(sync.RWMutex)}
	s.configManager = &configManager{mu: new(sync.RWMutex), config: defaultConfig}

	config, err := s.Store.AcquisitionConfig()
	if err == nil {
		s.configManager.Set(config)
	} else {
		s.Logger.Warnf("no acquisition config found, using defaults: %s", err)
	}

	return nil
}

func (s *Server) runAcquisition(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			config := s.configManager.Config()

			values, err := s.ADC.ChannelValues(config.Channels)
			if err != nil {
				return fmt.Errorf("unable to scan channels: %w", err)
			}

			sample := store.Sample{
				Time:     time.Now(),
				Readings: make([]store.Reading, 0, len(values)),
			}
			for i, raw := range values {
				sample.Readings = append(sample.Readings, store.Reading{
					Channel: config.Channels[i],
					Raw:     raw,
					Voltage: ads1263.RawToVoltage(raw, config.Reference),
				})
			}

			s.readingsManager.Set(sample)
			if err := s.Store.PutSample(sample); err != nil {
				s.Logger.Warnf("unable to record sample: %s", err)
			}

			time.Sleep(time.Duration(config.PeriodMS) * time.Millisecond)
		}
	}
}
