package snapshot

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
	"github.com/wardlem/findmy-tracker/internal/models"
)

// SerialGPSProvider retrieves the position of a GPS receiver connected via
// serial port and exposes it as a one-record snapshot carrying the tracked
// device's name.
type SerialGPSProvider struct {
	deviceName string // Name reported for the single record in the snapshot
	port       string // Serial port to which the GPS device is connected
	baudRate   int    // Baud rate for the serial communication
}

// NewSerialGPSProvider creates a new SerialGPSProvider for the specified
// device name, port and baud rate.
func NewSerialGPSProvider(deviceName, port string, baudRate int) *SerialGPSProvider {
	return &SerialGPSProvider{
		deviceName: deviceName,
		port:       port,
		baudRate:   baudRate,
	}
}

// Fetch reads NMEA sentences from the device until a GGA fix is seen and
// returns it as a single-record snapshot.
func (d *SerialGPSProvider) Fetch(ctx context.Context) ([]models.DeviceRecord, error) {
	c := &serial.Config{Name: d.port, Baud: d.baudRate}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, err
	}
	defer s.Close() // Ensure the port is closed when done

	// Create a scanner to read lines from the serial port
	scanner := bufio.NewScanner(s)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()                 // Read a line from the GPS output
		if strings.HasPrefix(line, "$GPGGA") { // Check for GGA sentences
			sentence, err := nmea.Parse(line) // Parse the NMEA sentence
			if err != nil {
				return nil, err
			}

			if gga, ok := sentence.(nmea.GGA); ok {
				return []models.DeviceRecord{{
					Name: d.deviceName,
					Location: &models.Location{
						Latitude:  gga.Latitude,
						Longitude: gga.Longitude,
						SampledAt: time.Now(),
					},
				}}, nil
			}
		}
	}

	// Check for any scanner errors
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return nil, errors.New("no valid GPS data found")
}
