package devices

import (
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/wardlem/findmy-tracker/internal/models"
)

// Registry holds the most recently observed record for every device seen in
// a snapshot, keyed by device name. The poller refreshes it after each
// successful fetch while request handlers read it concurrently.
type Registry struct {
	devices cmap.ConcurrentMap[string, models.DeviceRecord]
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{devices: cmap.New[models.DeviceRecord]()}
}

// Update stores the latest record for each named device in the snapshot.
func (r *Registry) Update(records []models.DeviceRecord) {
	for _, record := range records {
		if record.Name == "" {
			continue
		}
		r.devices.Set(record.Name, record)
	}
}

// List returns all known devices sorted by name.
func (r *Registry) List() []models.DeviceRecord {
	out := make([]models.DeviceRecord, 0, r.devices.Count())
	for item := range r.devices.IterBuffered() {
		out = append(out, item.Val)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count reports the number of known devices.
func (r *Registry) Count() int {
	return r.devices.Count()
}
