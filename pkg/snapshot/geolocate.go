package snapshot

import (
	"context"
	"time"

	"github.com/wardlem/findmy-tracker/internal/models"
	"googlemaps.github.io/maps"
)

// GeolocationProvider uses the Google Maps Geolocation API to locate the
// host machine itself, exposed as a one-record snapshot. Useful for
// tracking the machine the tracker runs on rather than a Find My item.
type GeolocationProvider struct {
	deviceName string
	client     *maps.Client // Maps API client for making geolocation requests
}

// NewGeolocationProvider creates a new GeolocationProvider instance.
func NewGeolocationProvider(deviceName, apiKey string) (*GeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GeolocationProvider{
		deviceName: deviceName,
		client:     c,
	}, nil
}

// Fetch resolves the host's position via the Geolocation API and returns it
// as a single-record snapshot.
func (g *GeolocationProvider) Fetch(ctx context.Context) ([]models.DeviceRecord, error) {
	req := &maps.GeolocationRequest{
		ConsiderIP: true,
	}

	resp, err := g.client.Geolocate(ctx, req) // Send the geolocation request
	if err != nil {
		return nil, err
	}

	return []models.DeviceRecord{{
		Name: g.deviceName,
		Location: &models.Location{
			Latitude:  resp.Location.Lat,
			Longitude: resp.Location.Lng,
			SampledAt: time.Now(),
		},
	}}, nil
}
