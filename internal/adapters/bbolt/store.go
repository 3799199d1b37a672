// Package bbolt implements ports.SnapshotArchive using bbolt (embedded B+ tree).
// Each named snapshot gets its own sub-bucket under "snapshots" holding the
// JSON export payload and a small binary header, so List never has to
// decode records. Writes are transactional; a crash mid-write cannot
// corrupt previously committed snapshots.
package bbolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/trustcheck/internal/ports"
)

// Bucket keys
var (
	bucketSnapshots = []byte("snapshots")
	keyPayload      = []byte("payload")
	keyHeader       = []byte("header")
)

// maxNameLen bounds snapshot names (bbolt keys must be < 32KB; names are
// user-typed so keep them short).
const maxNameLen = 128

// Archive implements ports.SnapshotArchive backed by bbolt.
type Archive struct {
	db  *bolt.DB
	now func() time.Time
}

var _ ports.SnapshotArchive = (*Archive)(nil)

// Open opens (or creates) a bbolt database at the given path.
func Open(path string) (*Archive, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Archive{db: db, now: time.Now}, nil
}

// Close closes the underlying bbolt database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func validName(name string) error {
	if name == "" {
		return errors.New("snapshot name is empty")
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("snapshot name too long: %d bytes (max %d)", len(name), maxNameLen)
	}
	return nil
}

// Save stores snap under name, replacing any existing snapshot of that name.
func (a *Archive) Save(name string, snap *ports.Snapshot) error {
	if err := validName(name); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	header := encodeHeader(snapshotHeader{
		TotalRecords: uint32(len(snap.Records)),
		SavedAt:      a.now().Unix(),
	})

	return a.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		if err != nil {
			return err
		}
		sb, err := root.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		if err := sb.Put(keyPayload, payload); err != nil {
			return err
		}
		return sb.Put(keyHeader, header)
	})
}

// Load retrieves the snapshot stored under name.
func (a *Archive) Load(name string) (*ports.Snapshot, error) {
	var payload []byte

	err := a.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketSnapshots)
		if root == nil {
			return nil
		}
		sb := root.Bucket([]byte(name))
		if sb == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := sb.Get(keyPayload); v != nil {
			payload = make([]byte, len(v))
			copy(payload, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrSnapshotNotFound, name)
	}

	var snap ports.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %q: %w", name, err)
	}
	if snap.Records == nil {
		snap.Records = []ports.TrustRecord{}
	}
	return &snap, nil
}

// List returns every stored snapshot sorted by name (bbolt key order).
func (a *Archive) List() ([]ports.SnapshotInfo, error) {
	var out []ports.SnapshotInfo

	err := a.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketSnapshots)
		if root == nil {
			return nil
		}
		return root.ForEachBucket(func(k []byte) error {
			sb := root.Bucket(k)
			h, err := decodeHeader(sb.Get(keyHeader))
			if err != nil {
				return fmt.Errorf("snapshot %q header: %w", k, err)
			}
			out = append(out, ports.SnapshotInfo{
				Name:         string(k),
				TotalRecords: int(h.TotalRecords),
				SavedAt:      h.SavedAt,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a snapshot. Idempotent: deleting a nonexistent snapshot
// is not an error.
func (a *Archive) Delete(name string) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketSnapshots)
		if root == nil {
			return nil
		}
		if err := root.DeleteBucket([]byte(name)); errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // idempotent
		} else {
			return err
		}
	})
}
