package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jimimatt/High-Pricision-AD-HAT/ads1263"
	"github.com/jimimatt/High-Pricision-AD-HAT/hal"
	"github.com/jimimatt/High-Pricision-AD-HAT/server"
	"github.com/jimimatt/High-Pricision-AD-HAT/store"
	"github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("addr", ":8080", "address to serve http on")
	dbPath := flag.String("db", "adhat.db", "path to the sample database")
	flag.Parse()

	logger := logrus.New()
	if err := run(*addr, *dbPath, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(addr, dbPath string, logger *logrus.Logger) error {
	st, err := store.OpenBBolt(dbPath, 0666, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	h := hal.New(hal.Config{Logger: logger})
	if err := h.Init(); err != nil {
		return err
	}
	defer h.Exit()

	adc := ads1263.New(h, logger)
	adc.SetInputMode(ads1263.SingleEnded)
	if err := adc.InitADC1(ads1263.SPS400); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{
		Addr:   addr,
		HAL:    h,
		ADC:    adc,
		Store:  st,
		Logger: logger,
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
