package devices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardlem/findmy-tracker/internal/models"
)

// TestRegistry_UpdateAndList verifies devices are kept by name, updated in
// place and listed sorted.
func TestRegistry_UpdateAndList(t *testing.T) {
	registry := NewRegistry()

	registry.Update([]models.DeviceRecord{
		{Name: "Wallet", BatteryStatus: "1"},
		{Name: "Backpack"},
		{Name: ""}, // unnamed records are ignored
	})
	registry.Update([]models.DeviceRecord{
		{Name: "Wallet", BatteryStatus: "2"},
	})

	assert.Equal(t, 2, registry.Count())

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Backpack", list[0].Name)
	assert.Equal(t, "Wallet", list[1].Name)
	assert.Equal(t, "2", list[1].BatteryStatus)
}
