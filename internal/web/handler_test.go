package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardlem/findmy-tracker/internal/devices"
	"github.com/wardlem/findmy-tracker/internal/history"
	"github.com/wardlem/findmy-tracker/internal/models"
)

func newTestServer(t *testing.T) (*httptest.Server, *history.Store, *devices.Registry) {
	t.Helper()
	store := history.NewStore(zerolog.Nop())
	registry := devices.NewRegistry()

	handler, err := NewHandler("My Keys", 30*time.Second, store, registry, zerolog.Nop())
	require.NoError(t, err)

	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return server, store, registry
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

// TestHandleData_EmptyHistory verifies an empty history yields 200 with an
// empty JSON array, never an error status.
func TestHandleData_EmptyHistory(t *testing.T) {
	server, _, _ := newTestServer(t)

	var coordinates []models.Coordinate
	resp := getJSON(t, server.URL+"/api/data", &coordinates)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotNil(t, coordinates)
	assert.Empty(t, coordinates)
}

// TestHandleData_ReturnsHistoryInOrder verifies the API reflects the store
// contents in append order with the lat/lon/ts field names.
func TestHandleData_ReturnsHistoryInOrder(t *testing.T) {
	server, store, _ := newTestServer(t)

	store.Append(models.Coordinate{Timestamp: "2024-01-01 00:00:00", Latitude: 1.0, Longitude: 2.0})
	store.Append(models.Coordinate{Timestamp: "2024-01-01 00:01:00", Latitude: 1.1, Longitude: 2.1})

	resp, err := http.Get(server.URL + "/api/data")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload, 2)
	assert.Equal(t, "2024-01-01 00:00:00", payload[0]["ts"])
	assert.InDelta(t, 1.0, payload[0]["lat"].(float64), 1e-9)
	assert.InDelta(t, 2.1, payload[1]["lon"].(float64), 1e-9)
}

// TestHandleDevices verifies the last-seen registry is served sorted by name.
func TestHandleDevices(t *testing.T) {
	server, _, registry := newTestServer(t)

	registry.Update([]models.DeviceRecord{
		{Name: "Wallet"},
		{Name: "Backpack"},
	})

	var records []models.DeviceRecord
	resp := getJSON(t, server.URL+"/api/devices", &records)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, records, 2)
	assert.Equal(t, "Backpack", records[0].Name)
	assert.Equal(t, "Wallet", records[1].Name)
}

// TestHandleStatus verifies the runtime status report.
func TestHandleStatus(t *testing.T) {
	server, store, registry := newTestServer(t)

	store.Append(models.Coordinate{Timestamp: "t1", Latitude: 1, Longitude: 2})
	registry.Update([]models.DeviceRecord{{Name: "My Keys"}})

	var status map[string]any
	resp := getJSON(t, server.URL+"/api/status", &status)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "My Keys", status["device"])
	assert.EqualValues(t, 1, status["sample_count"])
	assert.EqualValues(t, 1, status["known_devices"])
	assert.EqualValues(t, 30, status["poll_interval_seconds"])
}

// TestHandleIndex verifies the map page renders with the device name.
func TestHandleIndex(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Tracking My Keys")
}
