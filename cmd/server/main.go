// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/telemetryreplay/internal/api"
	"github.com/ZSC714725/telemetryreplay/internal/config"
	"github.com/ZSC714725/telemetryreplay/internal/logger"
	"github.com/ZSC714725/telemetryreplay/internal/session"
	"github.com/ZSC714725/telemetryreplay/internal/source"
	"github.com/ZSC714725/telemetryreplay/internal/sysstat"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	bind := flag.String("bind", "", "Bind address (overrides config)")
	logFile := flag.String("log", "", "Telemetry log file served and replayed (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Load config: %v", err)
		}
	}
	if err := cfg.ParseEnv(); err != nil {
		log.Fatalf("Load config: %v", err)
	}

	if *bind != "" {
		cfg.Server.Bind = *bind
	}
	if *logFile != "" {
		cfg.Source.LogFile = *logFile
	}

	logOpts := logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	l := logger.New("telemetryreplay", logOpts)

	validator, err := source.NewValidator(cfg.Source.Allow, cfg.Source.Block)
	if err != nil {
		log.Fatalf("Source validator: %v", err)
	}

	var archive source.Source
	if cfg.Source.SQLitePath != "" {
		archive = source.SQLite{Path: cfg.Source.SQLitePath, Validator: validator}
	}

	store := session.NewStore(session.StoreConfig{
		Defaults: session.Config{
			Autoplay:       &cfg.Playback.Autoplay,
			WindowSize:     cfg.Playback.WindowSize,
			JournalLines:   cfg.Playback.JournalLines,
			MinDelayMs:     cfg.Playback.MinDelayMs,
			MaxDelayMs:     cfg.Playback.MaxDelayMs,
			NominalDelayMs: cfg.Playback.NominalDelayMs,
		},
		LogFrames: cfg.Log.Frames,
		Logger:    logger.New("session", logOpts),
	})
	defer store.Close()

	system, err := sysstat.Self()
	if err != nil {
		l.Warn("process stats unavailable: %s", err)
		system = sysstat.NewSampler()
	}

	handler := api.NewHandler(api.HandlerConfig{
		Store:    store,
		Readings: source.File{Path: cfg.Source.LogFile, Validator: validator},
		Archive:  archive,
		System:   system,
		Logger:   logger.New("api", logOpts),
	})

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(handler, cfg.Server.AllowOrigins)

	srv := &http.Server{Addr: cfg.Server.Bind, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// closes the event streams, otherwise Shutdown waits on them
		store.Close()
		if err := srv.Shutdown(shutdown); err != nil {
			l.Error("shutdown: %s", err)
		}
	}()

	l.Info("TelemetryReplay listening on %s (log file %s)", cfg.Server.Bind, cfg.Source.LogFile)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server: %s", err)
		os.Exit(1)
	}
}
