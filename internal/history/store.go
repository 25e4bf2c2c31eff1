package history

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/wardlem/findmy-tracker/internal/models"
)

// Store owns the ordered, deduplicated sequence of positions recorded for
// the tracked device. One writer (the poller) appends; any number of
// request handlers read snapshots concurrently.
type Store struct {
	mu      sync.Mutex
	records []models.Coordinate
	logger  zerolog.Logger
}

// NewStore creates an empty history store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{logger: logger}
}

// Append adds a coordinate to the end of the history. It returns false and
// leaves the history unchanged when the coordinate's timestamp equals that
// of the most recent entry. Deduplication is only against the immediately
// preceding entry; a device returning to an earlier timestamp is recorded.
func (s *Store) Append(record models.Coordinate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.records); n > 0 && s.records[n-1].Timestamp == record.Timestamp {
		return false
	}
	s.records = append(s.records, record)
	return true
}

// Snapshot returns a copy of the current history. The critical section is
// limited to the copy so that serialization never blocks the writer.
func (s *Store) Snapshot() []models.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Coordinate, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports the number of recorded positions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Restore bulk-loads previously journaled coordinates. It is called once at
// startup, before the poller or any handler runs, and trusts the journal as
// already deduplicated. Entries without a timestamp are skipped with a
// warning rather than aborting the reload.
func (s *Store) Restore(records []models.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		if record.Timestamp == "" {
			s.logger.Warn().
				Float64("lat", record.Latitude).
				Float64("lon", record.Longitude).
				Msg("Skipping journaled entry without timestamp")
			continue
		}
		s.records = append(s.records, record)
	}
	s.logger.Info().Int("count", len(s.records)).Msg("Restored location history")
}
