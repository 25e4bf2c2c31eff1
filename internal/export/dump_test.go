package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardlem/findmy-tracker/internal/models"
)

// TestWriteInventory verifies the one-shot dump layout, including N/A
// placeholders for devices without location data.
func TestWriteInventory(t *testing.T) {
	sampledAt, err := time.Parse(models.TimestampLayout, "2024-01-01 10:00:00")
	require.NoError(t, err)

	records := []models.DeviceRecord{
		{
			Name:          "My Keys",
			SerialNumber:  "C02XyZ",
			Model:         "AirTag",
			BatteryStatus: "1",
			Location: &models.Location{
				Latitude:  52.52,
				Longitude: 13.405,
				SampledAt: sampledAt,
				IsOld:     false,
			},
			Address: &models.Address{
				Street:   "Unter den Linden 1",
				Locality: "Berlin",
				Country:  "DE",
			},
		},
		{Name: "Wallet"},
	}

	path := filepath.Join(t.TempDir(), "all_items.csv")
	require.NoError(t, WriteInventory(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "name", rows[0][0])
	assert.Equal(t, []string{
		"My Keys", "C02XyZ", "AirTag", "1",
		"52.52", "13.405", "2024-01-01 10:00:00",
		"Unter den Linden 1, Berlin,  DE", "false",
	}, rows[1])
	assert.Equal(t, "Wallet", rows[2][0])
	assert.Equal(t, "N/A", rows[2][4])
	assert.Equal(t, "N/A", rows[2][6])
	assert.Equal(t, "N/A", rows[2][8])
}
