// Package socket implements a JSON-over-Unix-socket protocol for the trustcheck daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/corey/trustcheck/internal/domain/card"
	"github.com/corey/trustcheck/internal/domain/insight"
	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/ports"
)

// SocketPath returns the Unix socket path for a given data directory.
// Format: /tmp/trustcheck-{first12hex}.sock
func SocketPath(dataDir string) string {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		abs = dataDir
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/trustcheck-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodCheck        = "check"
	MethodSearch       = "search"
	MethodGet          = "get"
	MethodList         = "list"
	MethodAdd          = "add"
	MethodAnalyze      = "analyze"
	MethodStats        = "stats"
	MethodExport       = "export"
	MethodImport       = "import"
	MethodBackup       = "backup"
	MethodRestore      = "restore"
	MethodBackups      = "backups"
	MethodBackupDelete = "backup_delete"
	MethodHealth       = "health"
	MethodShutdown     = "shutdown"
)

// AppQueries is what the socket and web servers need from the app.
// Thread safety is the implementor's responsibility.
type AppQueries interface {
	Check(ctx context.Context, query string) (CheckResult, error)
	Search(query string) RecordsResult
	Get(id string) (ports.TrustRecord, bool)
	List(filter ListParams) RecordsResult
	Add(rec ports.TrustRecord) (string, error)
	Analyze(note string) scoring.Assessment
	Stats() StatsResult
	Export() *ports.Snapshot
	Import(snap *ports.Snapshot) (ImportResult, error)
	Backup(name string) (ports.SnapshotInfo, error)
	Restore(name string) (ImportResult, error)
	Backups() (BackupsResult, error)
	DeleteBackup(name string) error
	Health() HealthResult
}

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"` // error kind, see errors.go
}

// QueryParams carries a raw user query (check, search).
type QueryParams struct {
	Query string `json:"query"`
}

// IDParams selects one record.
type IDParams struct {
	ID string `json:"id"`
}

// ListParams filters the record list. Empty fields don't filter; at most
// one is expected to be set.
type ListParams struct {
	Level string `json:"level,omitempty"`
	Phone string `json:"phone,omitempty"`
	Bank  string `json:"bank,omitempty"`
}

// AddParams carries a record to add.
type AddParams struct {
	Record ports.TrustRecord `json:"record"`
}

// AnalyzeParams carries a free-text note.
type AnalyzeParams struct {
	Note string `json:"note"`
}

// ImportParams carries a raw export payload, validated server-side.
type ImportParams struct {
	Payload json.RawMessage `json:"payload"`
}

// NameParams names a backup.
type NameParams struct {
	Name string `json:"name"`
}

// CheckResult is the outcome of a check request.
type CheckResult struct {
	Query     string             `json:"query"`
	Found     bool               `json:"found"`
	Tier      string             `json:"tier"`
	Record    *ports.TrustRecord `json:"record,omitempty"`
	Insights  []insight.Insight  `json:"insights,omitempty"`
	Card      card.Card          `json:"card"`
	CheckedAt time.Time          `json:"checked_at"`
}

// RecordsResult is a list of records (search, list).
type RecordsResult struct {
	Records []ports.TrustRecord `json:"records"`
	Count   int                 `json:"count"`
}

// AddResult returns the stored record's ID.
type AddResult struct {
	ID string `json:"id"`
}

// StatsResult is the result of a stats request.
type StatsResult struct {
	Stats    ports.Stats    `json:"stats"`
	ByLevel  map[string]int `json:"by_level"`
	Keywords int            `json:"keywords"`
	Groups   int            `json:"groups"`
	Warnings int            `json:"warnings"`
}

// ImportResult reports how many records replaced the store.
type ImportResult struct {
	Imported int `json:"imported"`
	Warnings int `json:"warnings"`
}

// BackupsResult lists archived snapshots.
type BackupsResult struct {
	Backups []ports.SnapshotInfo `json:"backups"`
	Count   int                  `json:"count"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status   string `json:"status"`
	Records  int    `json:"records"`
	Keywords int    `json:"keywords"`
	Lexicon  string `json:"lexicon"`
	Skin     string `json:"skin"`
	Uptime   string `json:"uptime"`
}

// decodeParams re-marshals the generic params into a typed struct.
func decodeParams(req Request, into interface{}) error {
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramsJSON, into)
}
