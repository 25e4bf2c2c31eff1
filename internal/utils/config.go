package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/wardlem/findmy-tracker/pkg/file"
)

// Config represents the structure of the configuration file. CLI flags
// override individual values after loading.
type Config struct {
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`

	Source struct {
		Provider          string `yaml:"provider" validate:"omitempty,oneof=findmy serial geolocate"` // Snapshot provider backend
		ItemsPath         string `yaml:"items_path"`                                                  // Explicit Items.data path; empty enables auto-discovery
		GPSDevicePort     string `yaml:"gps_device_port"`                                             // Serial port for the serial provider
		GPSDeviceBaudRate int    `yaml:"gps_baud_rate"`                                               // Baud rate for the serial provider
		MapsAPIKey        string `yaml:"maps_api_key"`                                                // Google Maps API key for the geolocate provider
	} `yaml:"source"`

	Tracker struct {
		DeviceName string `yaml:"device_name"`                          // Default tracked device name
		Interval   int    `yaml:"interval" validate:"omitempty,min=1"`  // Seconds between snapshot fetches
		LogFile    string `yaml:"log_file"`                             // Default journal path
	} `yaml:"tracker"`

	Server struct {
		Host string `yaml:"host"`                                            // Bind host for the web server
		Port int    `yaml:"port" validate:"omitempty,min=1,max=65535"`       // Bind port for the web server
	} `yaml:"server"`

	MQTT struct {
		Enabled       bool   `yaml:"enabled"`                                    // Enable/disable position publishing
		Broker        string `yaml:"broker" validate:"required_if=Enabled true"` // MQTT broker address
		ClientID      string `yaml:"client_id"`                                  // MQTT client ID
		Topic         string `yaml:"topic"`                                      // Topic accepted positions are published to
		QOS           int    `yaml:"qos" validate:"min=0,max=2"`                 // MQTT QoS level for position messages
		CACertificate string `yaml:"ca_certificate"`                             // Path to the CA certificate; empty disables TLS
	} `yaml:"mqtt"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

// LoadConfig loads and validates the YAML configuration from the specified
// file, filling in defaults for unset values.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Source.Provider == "" {
		c.Source.Provider = "findmy"
	}
	if c.Source.GPSDeviceBaudRate == 0 {
		c.Source.GPSDeviceBaudRate = 9600
	}
	if c.Tracker.Interval == 0 {
		c.Tracker.Interval = 30
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "fmtrack"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "findmy/position"
	}
}
