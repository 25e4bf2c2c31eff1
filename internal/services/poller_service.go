package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/wardlem/findmy-tracker/internal/devices"
	"github.com/wardlem/findmy-tracker/internal/history"
	"github.com/wardlem/findmy-tracker/internal/models"
	"github.com/wardlem/findmy-tracker/pkg/snapshot"
)

// fetchTimeout bounds a single snapshot provider call. Not strictly needed
// for the Find My cache, but keeps a wedged plutil or API call from
// stalling the loop past one iteration.
const fetchTimeout = 30 * time.Second

// PositionPublisher publishes accepted positions to an MQTT topic.
type PositionPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// PollerService samples the snapshot provider on a fixed interval, extracts
// the tracked device's record and feeds accepted positions into the history
// store and its journal. All per-iteration failures are logged and skipped;
// the loop only ends on Stop.
type PollerService struct {
	// Configuration fields
	deviceName string
	interval   time.Duration
	topic      string
	qos        int

	// Dependencies
	provider  snapshot.Provider
	store     *history.Store
	journal   *history.Journal
	registry  *devices.Registry
	publisher PositionPublisher
	logger    zerolog.Logger

	// Internal state management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewPollerService creates a new PollerService. The device registry and the
// publisher may be nil; the corresponding steps are then skipped.
func NewPollerService(deviceName string, interval time.Duration, provider snapshot.Provider,
	store *history.Store, journal *history.Journal, registry *devices.Registry,
	publisher PositionPublisher, topic string, qos int, logger zerolog.Logger) *PollerService {
	return &PollerService{
		deviceName: deviceName,
		interval:   interval,
		topic:      topic,
		qos:        qos,
		provider:   provider,
		store:      store,
		journal:    journal,
		registry:   registry,
		publisher:  publisher,
		logger:     logger,
		running:    false,
	}
}

// Start initiates the PollerService, sampling once immediately and then on
// every interval tick.
func (p *PollerService) Start() error {
	if p.running {
		p.logger.Warn().Msg("PollerService is already running")
		return errors.New("poller service is already running")
	}

	// Initialize context and cancel function
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.pollOnce()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.pollOnce()
			case <-p.ctx.Done():
				p.logger.Info().Msg("PollerService is stopping")
				p.running = false
				return
			}
		}
	}()

	p.logger.Info().
		Str("device", p.deviceName).
		Dur("interval", p.interval).
		Msg("PollerService started")
	return nil
}

// Stop gracefully stops the PollerService. The journal write belonging to
// an accepted append happens inside the iteration, so no acknowledged
// sample is lost by stopping.
func (p *PollerService) Stop() error {
	if !p.running {
		p.logger.Warn().Msg("PollerService is not running")
		return errors.New("poller service is not running")
	}

	// Signal cancellation and wait for the goroutine to exit
	p.cancel()
	p.wg.Wait()

	p.running = false
	p.logger.Info().Msg("PollerService stopped")
	return nil
}

// pollOnce runs a single fetch-extract-append iteration. Every failure is
// confined to this iteration.
func (p *PollerService) pollOnce() {
	ctx, cancel := context.WithTimeout(p.ctx, fetchTimeout)
	defer cancel()

	records, err := p.provider.Fetch(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Skipping this cycle, snapshot could not be read")
		return
	}

	if p.registry != nil {
		p.registry.Update(records)
	}

	record, found := findDevice(records, p.deviceName)
	if !found {
		p.logger.Warn().
			Str("device", p.deviceName).
			Int("snapshot_size", len(records)).
			Msg("Searching... device not present in snapshot")
		return
	}

	if record.Location == nil {
		p.logger.Info().
			Str("device", p.deviceName).
			Msg("Device found, but it has no current location data")
		return
	}

	coord := models.Coordinate{
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
		Timestamp: record.Location.SampledAt.Format(models.TimestampLayout),
	}

	if !p.store.Append(coord) {
		p.logger.Debug().
			Str("timestamp", coord.Timestamp).
			Msg("Duplicate sample, not recorded")
		return
	}

	if err := p.journal.Append(coord); err != nil {
		// The in-memory history stays authoritative for this process; only
		// the journaled copy of this row is lost.
		p.logger.Error().Err(err).Msg("Failed to journal accepted position")
	}

	p.logger.Info().
		Str("timestamp", coord.Timestamp).
		Float64("lat", coord.Latitude).
		Float64("lon", coord.Longitude).
		Str("address", record.Address.Format()).
		Msg("New location recorded")

	if p.publisher != nil {
		p.publishPosition(coord)
	}
}

// publishPosition forwards an accepted coordinate to the MQTT position
// topic. Publish failures never affect the history or the journal.
func (p *PollerService) publishPosition(coord models.Coordinate) {
	position := models.Position{
		Device:    p.deviceName,
		Timestamp: coord.Timestamp,
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
	}

	payload, err := json.Marshal(position)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to serialize position message")
		return
	}

	token := p.publisher.Publish(p.topic, byte(p.qos), false, payload)
	if token.Wait() && token.Error() != nil {
		p.logger.Error().
			Err(token.Error()).
			Str("topic", p.topic).
			Msg("Failed to publish position message to MQTT")
	}
}

// findDevice searches the snapshot for an exact, case-sensitive name match.
func findDevice(records []models.DeviceRecord, name string) (models.DeviceRecord, bool) {
	for _, record := range records {
		if record.Name == name {
			return record, true
		}
	}
	return models.DeviceRecord{}, false
}
