// Command keyfeeld runs the keystroke feedback engine.
//
// It opens the built-in trackpad actuator, installs a listen-only global
// keyboard monitor (requesting input-monitoring authorization when
// missing), and fires a haptic pulse on every key-down.
//
// Usage:
//
//	keyfeeld [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-settings string    Settings file path (default: user config dir)
//	-fallback string    Fallback device table path (YAML)
//	-capture string     Event capture file path (.flog)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-interactive        Enable the interactive console
//
// Examples:
//
//	# Run with defaults
//	keyfeeld
//
//	# Run with event capture and console
//	keyfeeld -capture /tmp/keyfeel.flog -interactive -log-level debug
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/keyfeel/keyfeel-go/cmd/keyfeeld/interactive"
	"github.com/keyfeel/keyfeel-go/pkg/discovery"
	"github.com/keyfeel/keyfeel-go/pkg/log"
	"github.com/keyfeel/keyfeel-go/pkg/native"
	"github.com/keyfeel/keyfeel-go/pkg/persistence"
	"github.com/keyfeel/keyfeel-go/pkg/service"
)

func init() {
	// The native run loop must run on the main thread.
	runtime.LockOSThread()
}

// Config holds the daemon configuration.
type Config struct {
	ConfigFile   string
	SettingsPath string
	FallbackPath string
	CapturePath  string
	LogLevel     string
	Interactive  bool
}

// fileConfig mirrors Config for the YAML configuration file.
type fileConfig struct {
	SettingsPath string `yaml:"settings_path"`
	FallbackPath string `yaml:"fallback_table"`
	CapturePath  string `yaml:"capture_log"`
	LogLevel     string `yaml:"log_level"`
}

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&config.SettingsPath, "settings", "", "Settings file path")
	flag.StringVar(&config.FallbackPath, "fallback", "", "Fallback device table path (YAML)")
	flag.StringVar(&config.CapturePath, "capture", "", "Event capture file path")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.Interactive, "interactive", false, "Enable the interactive console")
}

func main() {
	flag.Parse()

	if config.ConfigFile != "" {
		if err := applyFileConfig(config.ConfigFile, &config); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	logger := newLogger(config.LogLevel)
	slog.SetDefault(logger)

	platform, err := native.Load()
	if err != nil {
		logger.Error("native bindings unavailable", "error", err)
		os.Exit(1)
	}

	settingsPath := config.SettingsPath
	if settingsPath == "" {
		settingsPath = defaultSettingsPath()
	}
	store := persistence.NewSettingsStore(settingsPath)
	settings, err := store.Load()
	if err != nil {
		logger.Warn("failed to load settings, using defaults", "error", err)
	}
	if settings == nil {
		settings = persistence.DefaultSettings()
	}

	fallback := discovery.DefaultFallbackTable()
	if config.FallbackPath != "" {
		fallback, err = discovery.LoadFallbackTable(config.FallbackPath)
		if err != nil {
			logger.Error("failed to load fallback device table", "error", err)
			os.Exit(1)
		}
	}

	capture, closeCapture, err := newCapture(logger)
	if err != nil {
		logger.Error("failed to open capture log", "error", err)
		os.Exit(1)
	}
	defer closeCapture()

	svc := service.New(service.Config{
		Registry: platform.Registry,
		Actuator: platform.Actuator,
		TapAPI:   platform.Tap,
		TrustAPI: platform.Trust,
		Fallback: fallback,
		Settings: settings,
		Store:    store,
		Logger:   logger,
		Capture:  capture,
	})

	if err := svc.Start(); err != nil {
		logger.Error("failed to start service", "error", err)
		os.Exit(1)
	}
	logger.Info("keyfeel running", "run_id", svc.RunID(), "settings", settingsPath)

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			svc.Stop()
			platform.Loop.Stop()
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		shutdown()
	}()

	if config.Interactive {
		console, err := interactive.New(svc)
		if err != nil {
			logger.Error("failed to start console", "error", err)
			os.Exit(1)
		}
		go func() {
			console.Run()
			shutdown()
		}()
	}

	// Blocks until shutdown stops the loop. The tap's run-loop source
	// lives on this thread's loop.
	platform.Loop.Run()
	svc.Stop()
}

// applyFileConfig fills unset Config fields from a YAML file.
// Flags take precedence over the file.
func applyFileConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = fc.SettingsPath
	}
	if cfg.FallbackPath == "" {
		cfg.FallbackPath = fc.FallbackPath
	}
	if cfg.CapturePath == "" {
		cfg.CapturePath = fc.CapturePath
	}
	if cfg.LogLevel == "info" && fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newCapture builds the capture logger from the configuration: a CBOR
// file when -capture is set, plus console output at debug level.
func newCapture(logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if config.CapturePath != "" {
		fl, err := log.NewFileLogger(config.CapturePath)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fl)
		closeFn = func() { _ = fl.Close() }
	}
	if config.LogLevel == "debug" {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "keyfeel-settings.json"
	}
	return filepath.Join(dir, "keyfeel", "settings.json")
}
