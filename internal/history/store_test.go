package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardlem/findmy-tracker/internal/models"
)

func coord(ts string, lat, lon float64) models.Coordinate {
	return models.Coordinate{Timestamp: ts, Latitude: lat, Longitude: lon}
}

// TestStore_Append_DeduplicatesAdjacentTimestamps verifies that a sample
// with the same timestamp as the most recent entry is discarded.
func TestStore_Append_DeduplicatesAdjacentTimestamps(t *testing.T) {
	store := NewStore(zerolog.Nop())

	assert.True(t, store.Append(coord("2024-01-01 00:00:00", 1.0, 2.0)))
	assert.False(t, store.Append(coord("2024-01-01 00:00:00", 9.0, 9.0)))
	assert.Equal(t, 1, store.Len())

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, 1.0, snapshot[0].Latitude)
}

// TestStore_Append_AllowsNonAdjacentRepeats verifies that dedup only looks
// at the immediately preceding entry.
func TestStore_Append_AllowsNonAdjacentRepeats(t *testing.T) {
	store := NewStore(zerolog.Nop())

	assert.True(t, store.Append(coord("t1", 1.0, 1.0)))
	assert.True(t, store.Append(coord("t2", 2.0, 2.0)))
	assert.True(t, store.Append(coord("t1", 3.0, 3.0)))

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "t1", snapshot[0].Timestamp)
	assert.Equal(t, "t2", snapshot[1].Timestamp)
	assert.Equal(t, "t1", snapshot[2].Timestamp)
}

// TestStore_Snapshot_Empty verifies a fresh store yields an empty, non-nil
// snapshot.
func TestStore_Snapshot_Empty(t *testing.T) {
	store := NewStore(zerolog.Nop())

	snapshot := store.Snapshot()
	assert.NotNil(t, snapshot)
	assert.Empty(t, snapshot)
}

// TestStore_Snapshot_IsACopy verifies mutating a returned snapshot does not
// affect the store.
func TestStore_Snapshot_IsACopy(t *testing.T) {
	store := NewStore(zerolog.Nop())
	store.Append(coord("t1", 1.0, 1.0))

	snapshot := store.Snapshot()
	snapshot[0].Latitude = 99.0

	assert.Equal(t, 1.0, store.Snapshot()[0].Latitude)
}

// TestStore_Restore_PreservesOrder covers reconstruction at startup: the
// journaled rows appear in the snapshot in file order before any new poll.
func TestStore_Restore_PreservesOrder(t *testing.T) {
	store := NewStore(zerolog.Nop())
	store.Restore([]models.Coordinate{
		coord("2024-01-01 00:00:00", 1.0, 2.0),
		coord("2024-01-01 00:01:00", 1.1, 2.1),
	})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "2024-01-01 00:00:00", snapshot[0].Timestamp)
	assert.Equal(t, "2024-01-01 00:01:00", snapshot[1].Timestamp)
	assert.InDelta(t, 1.1, snapshot[1].Latitude, 1e-9)
}

// TestStore_Restore_SkipsMalformedEntries verifies an entry without a
// timestamp is skipped without aborting the reload.
func TestStore_Restore_SkipsMalformedEntries(t *testing.T) {
	store := NewStore(zerolog.Nop())
	store.Restore([]models.Coordinate{
		coord("t1", 1.0, 1.0),
		coord("", 2.0, 2.0),
		coord("t2", 3.0, 3.0),
	})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "t1", snapshot[0].Timestamp)
	assert.Equal(t, "t2", snapshot[1].Timestamp)
}

// TestStore_ConcurrentSnapshots stresses one writer against many readers.
// Readers must only ever observe prefix-consistent, non-shrinking views.
func TestStore_ConcurrentSnapshots(t *testing.T) {
	const appends = 500
	const readers = 8

	store := NewStore(zerolog.Nop())

	var wg sync.WaitGroup
	done := make(chan struct{})

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lastLen := 0
			for {
				select {
				case <-done:
					return
				default:
				}
				snapshot := store.Snapshot()
				if len(snapshot) < lastLen {
					t.Errorf("history shrank from %d to %d", lastLen, len(snapshot))
					return
				}
				lastLen = len(snapshot)
				// Every observed entry must match the deterministic
				// append sequence, i.e. no torn or reordered records.
				for i, c := range snapshot {
					if c.Timestamp != fmt.Sprintf("t%04d", i) {
						t.Errorf("torn record at %d: %q", i, c.Timestamp)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < appends; i++ {
		store.Append(coord(fmt.Sprintf("t%04d", i), float64(i), float64(-i)))
	}
	close(done)
	wg.Wait()

	assert.Equal(t, appends, store.Len())
}
