package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aniwag2/Listen/internal/artifact"
	"github.com/aniwag2/Listen/internal/capture"
	"github.com/aniwag2/Listen/internal/config"
	"github.com/aniwag2/Listen/internal/delivery"
	"github.com/aniwag2/Listen/internal/listener"
	"github.com/aniwag2/Listen/internal/metrics"
	"github.com/aniwag2/Listen/internal/server"
	"github.com/aniwag2/Listen/internal/source"
	"github.com/aniwag2/Listen/internal/wakeword"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "listen"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("audio_backend", cfg.Audio.Backend),
		slog.String("trigger_backend", cfg.Trigger.Backend),
		slog.String("model_path", cfg.Trigger.ModelPath),
		slog.Float64("recording_duration", cfg.Capture.RecordingDuration),
		slog.String("storage_directory", cfg.Storage.Directory),
		slog.String("smtp_host", cfg.Delivery.SMTPHost),
		slog.Int("smtp_port", cfg.Delivery.SMTPPort),
		slog.String("recipient", cfg.Delivery.Recipient),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize wake word detector
	detector, err := wakeword.New(wakeword.Config{
		Backend:     cfg.Trigger.Backend,
		AccessKey:   cfg.Trigger.AccessKey,
		ModelPath:   cfg.Trigger.ModelPath,
		Sensitivity: cfg.Trigger.Sensitivity,
		Energy: wakeword.EnergyConfig{
			FrameLength:       cfg.Audio.FrameLength,
			SampleRate:        cfg.Audio.SampleRate,
			Threshold:         cfg.Trigger.Energy.Threshold,
			ConsecutiveFrames: cfg.Trigger.Energy.ConsecutiveFrames,
			RefractoryFrames:  cfg.Trigger.Energy.RefractoryFrames,
		},
	})
	if err != nil {
		logger.Error("Failed to create wake word detector", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Wake word detector initialized",
		slog.String("backend", cfg.Trigger.Backend),
		slog.Int("frame_length", detector.FrameLength()),
		slog.Int("sample_rate", detector.SampleRate()),
	)

	// The detector dictates the frame geometry the source must deliver
	src, err := source.New(source.Config{
		Backend:        cfg.Audio.Backend,
		SampleRate:     detector.SampleRate(),
		FrameLength:    detector.FrameLength(),
		DeviceIndex:    cfg.Audio.DeviceIndex,
		BufferedFrames: cfg.Audio.BufferedFrames,
		UDP: source.UDPConfig{
			BindAddress: cfg.Audio.UDP.BindAddress,
			Port:        cfg.Audio.UDP.Port,
			QueueSize:   cfg.Audio.UDP.QueueSize,
		},
	}, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create audio source", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Audio source initialized", slog.String("backend", cfg.Audio.Backend))

	// Capture state machine
	machine := capture.NewMachine(capture.Config{
		RecordingDuration: cfg.Capture.GetRecordingDuration(),
		SampleRate:        detector.SampleRate(),
	}, logger)

	// Artifact storage and retention on the OS filesystem
	fs := afero.NewOsFs()
	writer := artifact.NewWriter(artifact.Config{Directory: cfg.Storage.Directory}, fs, logger, appMetrics)
	retention := artifact.NewRetention(fs, logger, appMetrics)

	// Mail dispatcher
	dispatcher, err := delivery.NewDispatcher(delivery.Config{
		SMTPHost:  cfg.Delivery.SMTPHost,
		SMTPPort:  cfg.Delivery.SMTPPort,
		Sender:    cfg.Delivery.Sender,
		Password:  cfg.Delivery.Password,
		Recipient: cfg.Delivery.Recipient,
		Timeout:   cfg.Delivery.GetTimeoutDuration(),
	}, fs, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create mail dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Wire the pipeline
	pipeline, err := listener.New(logger, appMetrics, src, detector, machine, writer, dispatcher, retention)
	if err != nil {
		logger.Error("Failed to create listener", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpConfig := server.HTTPServerConfig{
			Port:    cfg.HTTP.Port,
			Address: cfg.HTTP.Address,
			Enabled: cfg.HTTP.Enabled,
		}
		httpServer = server.NewHTTPServer(httpConfig, logger, cfg, pipeline, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start the pipeline
	if err := pipeline.Start(); err != nil {
		logger.Error("Failed to start listener", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for wake word...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the pipeline (discards any open recording window and
	// releases the engine and source)
	pipeline.Stop()

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output io.Writer
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// File path with size-based rotation
		output = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
