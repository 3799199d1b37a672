// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import "errors"

// ErrSnapshotNotFound is returned by SnapshotArchive.Load for unknown names.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotArchive keeps named export snapshots (backups) of the record store.
// The live store itself stays in memory; the archive is only written when a
// user asks for a backup and only read on an explicit restore.
//
// Save must be transactional: a crash mid-write must not corrupt previously
// committed snapshots.
type SnapshotArchive interface {
	// Save stores snap under name, overwriting any prior snapshot of that name.
	Save(name string, snap *Snapshot) error

	// Load retrieves the snapshot stored under name.
	// Returns ErrSnapshotNotFound if no such snapshot exists.
	Load(name string) (*Snapshot, error)

	// List returns the stored snapshots sorted by name.
	List() ([]SnapshotInfo, error)

	// Delete removes a snapshot. Idempotent: deleting a nonexistent
	// snapshot is not an error.
	Delete(name string) error
}

// SnapshotInfo describes one archived snapshot without loading its records.
type SnapshotInfo struct {
	Name         string `json:"name"`
	TotalRecords int    `json:"total_records"`
	SavedAt      int64  `json:"saved_at"` // unix seconds
}
