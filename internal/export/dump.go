package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/wardlem/findmy-tracker/internal/models"
)

// inventoryHeader matches the column layout of the one-shot inventory dump.
var inventoryHeader = []string{
	"name", "serialNumber", "model", "batteryStatus",
	"latitude", "longitude", "timestamp", "address", "isOld",
}

// WriteInventory writes every device in the snapshot to a CSV file at path.
// Devices without location data get N/A placeholders rather than being
// dropped from the dump.
func WriteInventory(path string, records []models.DeviceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(inventoryHeader); err != nil {
		f.Close()
		return err
	}

	for _, record := range records {
		lat, lon, ts, isOld := "N/A", "N/A", "N/A", "N/A"
		if record.Location != nil {
			lat = strconv.FormatFloat(record.Location.Latitude, 'f', -1, 64)
			lon = strconv.FormatFloat(record.Location.Longitude, 'f', -1, 64)
			isOld = strconv.FormatBool(record.Location.IsOld)
			if !record.Location.SampledAt.IsZero() {
				ts = record.Location.SampledAt.Format(models.TimestampLayout)
			}
		}
		row := []string{
			record.Name,
			record.SerialNumber,
			record.Model,
			record.BatteryStatus,
			lat, lon, ts,
			record.Address.Format(),
			isOld,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
