// Package records holds the trust record collection and its lookup,
// filter, and bulk import/export operations.
//
// A Store is constructed once at process start and passed by reference to
// whatever needs it. All methods are safe for concurrent use; returned
// records are copies and may be modified freely by the caller.
package records

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/ports"
)

// DefaultScore is assigned to records added without a score.
const DefaultScore = 50

// maxIDAttempts bounds the retry loop when a generated ID collides.
const maxIDAttempts = 16

var (
	// ErrDuplicateID is returned by Add when an explicit ID is already stored.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrInvalidLevel is returned by Add for a level outside the known set.
	ErrInvalidLevel = errors.New("invalid level")
)

// Store is the in-memory trust record collection. Storage order is
// insertion order and is preserved by every query.
type Store struct {
	mu      sync.RWMutex
	records []ports.TrustRecord
	stats   ports.Stats

	version string
	now     func() time.Time
	newID   func(now time.Time) string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source (stats and LastUpdated stamps).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithVersion overrides the dataset version reported by Stats.
func WithVersion(v string) Option {
	return func(s *Store) { s.version = v }
}

// WithIDGenerator overrides generated record IDs.
func WithIDGenerator(gen func(now time.Time) string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates a store holding copies of seed.
func New(seed []ports.TrustRecord, opts ...Option) *Store {
	s := &Store{
		version: DatasetVersion,
		now:     time.Now,
		newID:   generateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.records = cloneAll(seed)
	s.refreshStatsLocked()
	return s
}

// generateID returns REC_<unix millis>_<12 hex chars of a random UUID>.
func generateID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("REC_%d_%s", now.UnixMilli(), suffix)
}

// FindByID returns the first record with the given ID.
func (s *Store) FindByID(id string) (ports.TrustRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.records[i].Clone(), true
	}
	return ports.TrustRecord{}, false
}

// FindByLevel returns records stored with the given level.
func (s *Store) FindByLevel(level ports.Level) []ports.TrustRecord {
	return s.filter(func(r *ports.TrustRecord) bool {
		return r.Level == level
	})
}

// FindByPhone returns records whose primary phone equals phone or whose
// known phones include it.
func (s *Store) FindByPhone(phone string) []ports.TrustRecord {
	return s.filter(func(r *ports.TrustRecord) bool {
		return r.Phone == phone || slices.Contains(r.Phones, phone)
	})
}

// FindByBank returns records whose primary bank equals bank or whose
// known banks include it.
func (s *Store) FindByBank(bank string) []ports.TrustRecord {
	return s.filter(func(r *ports.TrustRecord) bool {
		return r.Bank == bank || slices.Contains(r.Banks, bank)
	})
}

// Search returns every record with a field containing the trimmed,
// lowercased query: phone, phones, account, accounts, name, aliases, bank,
// or location. A blank query matches nothing.
func (s *Store) Search(query string) []ports.TrustRecord {
	term := scoring.Fold(strings.TrimSpace(query))
	if term == "" {
		return nil
	}
	return s.filter(func(r *ports.TrustRecord) bool {
		return matchesTerm(r, term)
	})
}

func matchesTerm(r *ports.TrustRecord, term string) bool {
	if containsFold(r.Phone, term) || anyContainsFold(r.Phones, term) {
		return true
	}
	if containsFold(r.Account, term) || anyContainsFold(r.Accounts, term) {
		return true
	}
	if containsFold(r.Name, term) || anyContainsFold(r.Aliases, term) {
		return true
	}
	return containsFold(r.Bank, term) || containsFold(r.Location, term)
}

// containsFold reports whether the folded field contains term. term must
// already be folded with scoring.Fold.
func containsFold(field, term string) bool {
	return field != "" && strings.Contains(scoring.Fold(field), term)
}

func anyContainsFold(fields []string, term string) bool {
	for _, f := range fields {
		if containsFold(f, term) {
			return true
		}
	}
	return false
}

// Each calls fn for every record in storage order until fn returns false.
// fn receives a pointer into the store and must not retain or modify it;
// the read lock is held for the duration of the walk.
func (s *Store) Each(fn func(r *ports.TrustRecord) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if !fn(&s.records[i]) {
			return
		}
	}
}

// All returns a copy of every record in storage order.
func (s *Store) All() []ports.TrustRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.records)
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Add appends rec and returns its ID.
//
// A missing ID is generated and guaranteed unused. A zero score becomes
// DefaultScore whatever the level; with no level as well the record is
// LevelNeutral. A record with a score but no level gets
// scoring.LevelFor(score). LastUpdated is stamped with today's date.
func (s *Store) Add(rec ports.TrustRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if rec.ID == "" {
		id, err := s.uniqueIDLocked(now)
		if err != nil {
			return "", err
		}
		rec.ID = id
	} else if s.indexLocked(rec.ID) >= 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}

	if rec.Level != "" && !rec.Level.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, rec.Level)
	}
	switch {
	case rec.Score == 0 && rec.Level == "":
		rec.Score = DefaultScore
		rec.Level = ports.LevelNeutral
	case rec.Score == 0:
		rec.Score = DefaultScore
	case rec.Level == "":
		rec.Level = scoring.LevelFor(rec.Score)
	}

	rec.LastUpdated = now.Format(ports.DateLayout)
	s.records = append(s.records, rec.Clone())
	s.refreshStatsLocked()
	return rec.ID, nil
}

func (s *Store) uniqueIDLocked(now time.Time) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID(now)
		if id != "" && s.indexLocked(id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique record id after %d attempts", maxIDAttempts)
}

// Stats returns the aggregate statistics as of the last mutation.
func (s *Store) Stats() ports.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) refreshStatsLocked() {
	s.stats = ports.Stats{
		TotalRecords: len(s.records),
		LastUpdated:  s.now(),
		Version:      s.version,
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) filter(keep func(r *ports.TrustRecord) bool) []ports.TrustRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ports.TrustRecord
	for i := range s.records {
		if keep(&s.records[i]) {
			out = append(out, s.records[i].Clone())
		}
	}
	return out
}

func cloneAll(recs []ports.TrustRecord) []ports.TrustRecord {
	out := make([]ports.TrustRecord, len(recs))
	for i := range recs {
		out[i] = recs[i].Clone()
	}
	return out
}
