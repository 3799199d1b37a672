package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/corey/trustcheck/internal/ports"
)

// ErrMalformedImport is returned when an import payload has no records array.
var ErrMalformedImport = errors.New("malformed import: records must be an array")

// Export returns a deep copy of the store: stats, records, export time.
func (s *Store) Export() *ports.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &ports.Snapshot{
		Stats:      s.stats,
		Records:    cloneAll(s.records),
		ExportedAt: s.now(),
	}
}

// Import replaces every stored record with the snapshot's records.
// Returns false without touching the store if the snapshot has no records
// sequence. An empty (non-nil) sequence is valid and clears the store.
// Stats are recomputed; the snapshot's own stats are ignored.
func (s *Store) Import(snap *ports.Snapshot) bool {
	if snap == nil || snap.Records == nil {
		return false
	}
	recs := cloneAll(snap.Records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = recs
	s.refreshStatsLocked()
	return true
}

// DecodeSnapshot parses a JSON export payload. Only the records array is
// required; stats and exportedAt are informational and ignored, so exports
// from older dataset versions (date-only lastUpdated) still import.
func DecodeSnapshot(data []byte) (*ports.Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}

	recsJSON, ok := raw["records"]
	if !ok {
		return nil, fmt.Errorf("%w: missing records", ErrMalformedImport)
	}
	recsJSON = bytes.TrimSpace(recsJSON)
	if len(recsJSON) == 0 || recsJSON[0] != '[' {
		return nil, ErrMalformedImport
	}

	recs := []ports.TrustRecord{}
	if err := json.Unmarshal(recsJSON, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	return &ports.Snapshot{Records: recs}, nil
}
