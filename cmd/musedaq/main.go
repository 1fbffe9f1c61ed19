package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/velka/musedaq/internal/api"
	"codeberg.org/velka/musedaq/internal/config"
	"codeberg.org/velka/musedaq/internal/device"
	"codeberg.org/velka/musedaq/internal/logger"
	"codeberg.org/velka/musedaq/internal/pid"
	"codeberg.org/velka/musedaq/internal/recorder"
	"codeberg.org/velka/musedaq/internal/stream"
	"codeberg.org/velka/musedaq/internal/telemetry"
)

const shutdownGrace = 5 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	if err := run(); err != nil {
		logger.Error().Err(err).Msg("service failed")
		os.Exit(1)
	}
}

func run() error {
	board, err := device.Open(cfg.Device, cfg.SerialPort)
	if err != nil {
		return err
	}

	collector, err := telemetry.NewService(telemetry.Config{
		Enabled: cfg.Telemetry,
		DBPath:  cfg.TelemetryDB,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close telemetry collector")
		}
	}()

	session := stream.New(board, device.DefaultLayout(), stream.Options{
		WindowSeconds: cfg.WindowSeconds,
		PollInterval:  time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		StaleAfter:    time.Duration(cfg.StaleAfterSec) * time.Second,
		Collector:     collector,
	})
	if err := session.Start(); err != nil {
		return err
	}
	defer func() {
		stopTimeout := time.Duration(cfg.StopTimeoutSec) * time.Second
		if err := session.Stop(stopTimeout); err != nil {
			logger.Error().Err(err).Msg("acquisition loop did not stop cleanly")
		}
	}()

	rec := recorder.New(session, recorder.Config{
		ReadyTimeout: time.Duration(cfg.ReadyTimeoutSec) * time.Second,
		Dir:          cfg.RecordingsDir,
	})

	controller := api.NewController(session, rec, cfg.WindowSeconds)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		serverErr <- controller.Start(cfg.ListenAddr)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := controller.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	return nil
}
