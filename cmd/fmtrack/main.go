package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wardlem/findmy-tracker/internal/devices"
	"github.com/wardlem/findmy-tracker/internal/export"
	"github.com/wardlem/findmy-tracker/internal/history"
	"github.com/wardlem/findmy-tracker/internal/service_registry"
	"github.com/wardlem/findmy-tracker/internal/services"
	"github.com/wardlem/findmy-tracker/internal/utils"
	"github.com/wardlem/findmy-tracker/internal/web"
	"github.com/wardlem/findmy-tracker/pkg/file"
	"github.com/wardlem/findmy-tracker/pkg/mqtt"
	"github.com/wardlem/findmy-tracker/pkg/snapshot"
)

const usage = `Usage: fmtrack <command> [options] [name]

Commands:
  dump   Dump all item data to a CSV once.
  track  Track a specific item to a CSV file.
  serve  Serve a live web map for a specific item.
`

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	fileClient := file.NewFileService()

	switch os.Args[1] {
	case "dump":
		runDump(os.Args[2:], fileClient, logger)
	case "track":
		runTrack(os.Args[2:], fileClient, logger)
	case "serve":
		runServe(os.Args[2:], fileClient, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// loadConfig reads the configuration file when present and falls back to
// built-in defaults otherwise.
func loadConfig(path string, fileClient file.FileOperations, logger zerolog.Logger) *utils.Config {
	exists, err := fileClient.IsFileExists(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("Failed to check configuration file")
	}
	if !exists {
		logger.Debug().Str("path", path).Msg("No configuration file found, using defaults")
		return utils.DefaultConfig()
	}

	config, err := utils.LoadConfig(path, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
	}
	return config
}

// leveled applies the configured log level to the logger.
func leveled(logger zerolog.Logger, levelName string) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		logger.Warn().Str("level", levelName).Msg("Unknown log level, keeping info")
		return logger
	}
	return logger.Level(level)
}

// buildProvider constructs the configured snapshot provider. A failure here
// is fatal for the command: without a data source there is nothing to poll.
func buildProvider(config *utils.Config, deviceName string, fileClient file.FileOperations,
	logger zerolog.Logger) (snapshot.Provider, error) {
	switch config.Source.Provider {
	case "serial":
		return snapshot.NewSerialGPSProvider(deviceName, config.Source.GPSDevicePort, config.Source.GPSDeviceBaudRate), nil
	case "geolocate":
		return snapshot.NewGeolocationProvider(deviceName, config.Source.MapsAPIKey)
	default:
		return snapshot.NewFindMyProvider(config.Source.ItemsPath, fileClient, logger)
	}
}

func runDump(args []string, fileClient file.FileOperations, logger zerolog.Logger) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	output := fs.String("o", "all_items.csv", "output CSV file name")
	configPath := fs.String("config", "configs/config.yaml", "path to the configuration file")
	fs.Parse(args)

	config := loadConfig(*configPath, fileClient, logger)
	logger = leveled(logger, config.LogLevel)

	provider, err := buildProvider(config, config.Tracker.DeviceName, fileClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not set up the snapshot provider")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := provider.Fetch(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not retrieve item data")
	}

	if err := export.WriteInventory(*output, records); err != nil {
		logger.Fatal().Err(err).Str("output", *output).Msg("Failed to write inventory dump")
	}
	logger.Info().Int("devices", len(records)).Str("output", *output).Msg("Inventory dump complete")
}

func runTrack(args []string, fileClient file.FileOperations, logger zerolog.Logger) {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	output := fs.String("o", "", "output CSV file name for the log")
	interval := fs.Int("i", 0, "time interval between checks, in seconds")
	configPath := fs.String("config", "configs/config.yaml", "path to the configuration file")
	fs.Parse(args)

	config := loadConfig(*configPath, fileClient, logger)
	logger = leveled(logger, config.LogLevel)
	applyOverrides(config, "", *output, *interval, 0)

	name := fs.Arg(0)
	if name == "" {
		name = config.Tracker.DeviceName
	}
	if name == "" {
		logger.Fatal().Msg("The exact name of the device to track is required")
	}

	logFile := config.Tracker.LogFile
	if logFile == "" {
		logFile = "tracking_log.csv"
	}

	provider, err := buildProvider(config, name, fileClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not set up the snapshot provider")
	}

	journal, records, err := history.OpenJournal(logFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", logFile).Msg("Failed to open tracking journal")
	}

	store := history.NewStore(logger)
	store.Restore(records)

	poller := services.NewPollerService(name, time.Duration(config.Tracker.Interval)*time.Second,
		provider, store, journal, nil, nil, "", 0, logger)

	serviceRegistry := service_registry.NewServiceRegistry(logger)
	serviceRegistry.RegisterService("poller", poller)
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}

	logger.Info().Str("device", name).Str("journal", logFile).
		Int("interval_seconds", config.Tracker.Interval).
		Msg("Tracking started, press Ctrl+C to stop")
	waitForShutdown(logger)

	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Error while stopping services")
	}
	if err := journal.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close tracking journal")
	}
}

func runServe(args []string, fileClient file.FileOperations, logger zerolog.Logger) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	output := fs.String("o", "", "log file for persistent tracking history")
	interval := fs.Int("i", 0, "time interval for background checks, in seconds")
	host := fs.String("host", "", "host for the web server")
	port := fs.Int("port", 0, "port for the web server")
	configPath := fs.String("config", "configs/config.yaml", "path to the configuration file")
	fs.Parse(args)

	config := loadConfig(*configPath, fileClient, logger)
	logger = leveled(logger, config.LogLevel)
	applyOverrides(config, *host, *output, *interval, *port)

	name := fs.Arg(0)
	if name == "" {
		name = config.Tracker.DeviceName
	}
	if name == "" {
		logger.Fatal().Msg("The exact name of the device to display on the map is required")
	}

	logFile := config.Tracker.LogFile
	if logFile == "" {
		logFile = strings.ReplaceAll(name, " ", "_") + "_live_log.csv"
	}

	provider, err := buildProvider(config, name, fileClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not set up the snapshot provider")
	}

	journal, records, err := history.OpenJournal(logFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", logFile).Msg("Failed to open tracking journal")
	}

	// Reload happens before the poller or any handler starts, so no
	// concurrent access exists yet.
	store := history.NewStore(logger)
	store.Restore(records)

	deviceRegistry := devices.NewRegistry()

	var publisher services.PositionPublisher
	var mqttClient *mqtt.MqttService
	if config.MQTT.Enabled {
		mqttClient = mqtt.NewMqttService(fileClient)
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		publisher = mqttClient
	}

	pollInterval := time.Duration(config.Tracker.Interval) * time.Second
	poller := services.NewPollerService(name, pollInterval, provider, store, journal,
		deviceRegistry, publisher, config.MQTT.Topic, config.MQTT.QOS, logger)

	handler, err := web.NewHandler(name, pollInterval, store, deviceRegistry, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up web handler")
	}

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	webService := services.NewWebService(addr, handler, logger)

	serviceRegistry := service_registry.NewServiceRegistry(logger)
	serviceRegistry.RegisterService("poller", poller)
	serviceRegistry.RegisterService("web", webService)
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}

	logger.Info().Str("device", name).Str("addr", "http://"+addr).Msg("Live map available")
	waitForShutdown(logger)

	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Error while stopping services")
	}
	if err := journal.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close tracking journal")
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}

// applyOverrides lets CLI flags take precedence over file configuration.
func applyOverrides(config *utils.Config, host, output string, interval, port int) {
	if host != "" {
		config.Server.Host = host
	}
	if output != "" {
		config.Tracker.LogFile = output
	}
	if interval > 0 {
		config.Tracker.Interval = interval
	}
	if port > 0 {
		config.Server.Port = port
	}
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown(logger zerolog.Logger) {
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh
	logger.Info().Msg("Shutting down gracefully...")
}
