package snapshot

import (
	"context"

	"github.com/wardlem/findmy-tracker/internal/models"
)

// Provider interface defines the methods for snapshot providers. A snapshot
// is the point-in-time state of every device the backing source knows about.
type Provider interface {
	Fetch(ctx context.Context) ([]models.DeviceRecord, error)
}
