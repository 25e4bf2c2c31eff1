package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/wardlem/findmy-tracker/internal/models"
)

// journalHeader is the header row of the persisted CSV log.
var journalHeader = []string{"timestamp", "latitude", "longitude"}

// Journal is the durable append-only CSV log backing the history store. It
// is written only by the poller; the single reconstruction read happens in
// OpenJournal before any concurrent access begins.
type Journal struct {
	path   string
	file   *os.File
	writer *csv.Writer
	logger zerolog.Logger
}

// OpenJournal opens the CSV journal at path, creating it with a header row
// when absent. For an existing file it reloads all parseable rows, skipping
// malformed ones individually, and returns them in file order.
func OpenJournal(path string, logger zerolog.Logger) (*Journal, []models.Coordinate, error) {
	var records []models.Coordinate

	_, err := os.Stat(path)
	switch {
	case err == nil:
		records = reloadJournal(path, logger)
	case errors.Is(err, os.ErrNotExist):
		// Fresh journal, header written below.
	default:
		return nil, nil, fmt.Errorf("failed to stat journal %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	j := &Journal{
		path:   path,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger,
	}

	if records == nil {
		if err := j.writer.Write(journalHeader); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("failed to write journal header: %w", err)
		}
		j.writer.Flush()
		if err := j.writer.Error(); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("failed to write journal header: %w", err)
		}
		records = []models.Coordinate{}
	}

	return j, records, nil
}

// reloadJournal parses the existing journal row by row. A malformed row is
// skipped with a warning and parsing continues; one bad row must not abort
// the whole reload.
func reloadJournal(path string, logger zerolog.Logger) []models.Coordinate {
	records := []models.Coordinate{}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Could not read existing journal")
		return records
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Skip the header row.
	if _, err := reader.Read(); err != nil {
		if err != io.EOF {
			logger.Warn().Err(err).Str("path", path).Msg("Could not read journal header")
		}
		return records
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("Skipping unreadable journal row")
			continue
		}
		if len(row) < 3 {
			logger.Warn().Int("line", line).Int("columns", len(row)).Msg("Skipping journal row with missing columns")
			continue
		}
		lat, latErr := strconv.ParseFloat(row[1], 64)
		lon, lonErr := strconv.ParseFloat(row[2], 64)
		if latErr != nil || lonErr != nil {
			logger.Warn().Int("line", line).Str("latitude", row[1]).Str("longitude", row[2]).
				Msg("Skipping journal row with non-numeric coordinates")
			continue
		}
		records = append(records, models.Coordinate{
			Timestamp: row[0],
			Latitude:  lat,
			Longitude: lon,
		})
	}

	logger.Info().Int("count", len(records)).Str("path", path).Msg("Loaded previous locations from journal")
	return records
}

// Append writes one coordinate row and flushes it to the file before
// returning, so the on-disk journal never lags the in-memory history by
// more than the row currently being written.
func (j *Journal) Append(record models.Coordinate) error {
	row := []string{
		record.Timestamp,
		strconv.FormatFloat(record.Latitude, 'f', -1, 64),
		strconv.FormatFloat(record.Longitude, 'f', -1, 64),
	}
	if err := j.writer.Write(row); err != nil {
		return err
	}
	j.writer.Flush()
	return j.writer.Error()
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Close flushes any buffered rows and closes the journal file.
func (j *Journal) Close() error {
	j.writer.Flush()
	writeErr := j.writer.Error()
	closeErr := j.file.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}
