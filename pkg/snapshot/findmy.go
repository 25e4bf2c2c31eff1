package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/wardlem/findmy-tracker/internal/models"
	"github.com/wardlem/findmy-tracker/pkg/file"
)

// ErrSourceUnavailable is returned when no Items.data cache can be located.
// The Find My app must have been run at least once for the cache to exist.
var ErrSourceUnavailable = errors.New("could not find the Items.data file")

// itemsDataPaths lists the known locations of the Find My item cache,
// relative to the user's home directory.
var itemsDataPaths = []string{
	"Library/Caches/com.apple.findmy.fmipcore/Items.data",
	"Library/Application Support/com.apple.findmy/Items.data",
}

// FindMyProvider retrieves device snapshots from the binary plist cache
// maintained by the Find My app, converting it to JSON with plutil.
type FindMyProvider struct {
	sourcePath string
	fileClient file.FileOperations
	logger     zerolog.Logger
}

// NewFindMyProvider creates a FindMyProvider for the given source path. An
// empty path triggers auto-discovery of the cache under the home directory;
// ErrSourceUnavailable is returned when no candidate exists.
func NewFindMyProvider(sourcePath string, fileClient file.FileOperations, logger zerolog.Logger) (*FindMyProvider, error) {
	if sourcePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		for _, p := range itemsDataPaths {
			candidate := filepath.Join(home, p)
			exists, err := fileClient.IsFileExists(candidate)
			if err != nil {
				return nil, err
			}
			if exists {
				sourcePath = candidate
				break
			}
		}
		if sourcePath == "" {
			return nil, ErrSourceUnavailable
		}
	} else {
		exists, err := fileClient.IsFileExists(sourcePath)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrSourceUnavailable
		}
	}

	logger.Info().Str("path", sourcePath).Msg("Found Find My data file")
	return &FindMyProvider{
		sourcePath: sourcePath,
		fileClient: fileClient,
		logger:     logger,
	}, nil
}

// SourcePath returns the resolved location of the Items.data cache.
func (p *FindMyProvider) SourcePath() string {
	return p.sourcePath
}

// Fetch converts the current Items.data cache to JSON and decodes it into
// device records. Conversion and decode failures are transient; the caller
// is expected to retry on the next poll.
func (p *FindMyProvider) Fetch(ctx context.Context) ([]models.DeviceRecord, error) {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("items_%d.json", time.Now().UnixNano()))
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, "plutil", "-convert", "json", "-o", tmpPath, "--", p.sourcePath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("plutil conversion failed: %w: %s", err, string(output))
	}

	var items []rawItem
	if err := p.fileClient.ReadJsonFile(tmpPath, &items); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	records := make([]models.DeviceRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.toRecord())
	}
	return records, nil
}

// rawItem mirrors the dynamic shape of one entry in the converted
// Items.data JSON. Optional fields are pointers so that absent location or
// address data is distinguishable from zero values.
type rawItem struct {
	Name          string      `json:"name"`
	SerialNumber  string      `json:"serialNumber"`
	BatteryStatus json.Number `json:"batteryStatus"`
	ProductType   struct {
		Type string `json:"type"`
	} `json:"productType"`
	Location *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		TimeStamp int64    `json:"timeStamp"`
		IsOld     bool     `json:"isOld"`
	} `json:"location"`
	Address *struct {
		StreetAddress string `json:"streetAddress"`
		Locality      string `json:"locality"`
		StateCode     string `json:"stateCode"`
		Country       string `json:"country"`
	} `json:"address"`
}

// toRecord validates the raw item at the provider boundary and converts it
// into a structured DeviceRecord. A location is kept only when both
// coordinates are present; the timestamp is reported in milliseconds.
func (r rawItem) toRecord() models.DeviceRecord {
	rec := models.DeviceRecord{
		Name:          r.Name,
		SerialNumber:  r.SerialNumber,
		Model:         r.ProductType.Type,
		BatteryStatus: r.BatteryStatus.String(),
	}
	if r.Location != nil && r.Location.Latitude != nil && r.Location.Longitude != nil {
		loc := &models.Location{
			Latitude:  *r.Location.Latitude,
			Longitude: *r.Location.Longitude,
			IsOld:     r.Location.IsOld,
		}
		if r.Location.TimeStamp > 0 {
			loc.SampledAt = time.UnixMilli(r.Location.TimeStamp)
		}
		rec.Location = loc
	}
	if r.Address != nil {
		rec.Address = &models.Address{
			Street:    r.Address.StreetAddress,
			Locality:  r.Address.Locality,
			StateCode: r.Address.StateCode,
			Country:   r.Address.Country,
		}
	}
	return rec
}
