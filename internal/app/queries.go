package app

import (
	"context"
	"fmt"
	"time"

	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/metrics"
	"github.com/corey/trustcheck/internal/ports"
)

// App implements socket.AppQueries for both the socket and HTTP servers.
var _ socket.AppQueries = (*App)(nil)

// Check runs a lookup and converts its outcome for the wire.
func (a *App) Check(ctx context.Context, query string) (socket.CheckResult, error) {
	out, err := a.Lookup.Check(ctx, query)
	if err != nil {
		return socket.CheckResult{}, err
	}
	return socket.CheckResult{
		Query:     out.Query,
		Found:     out.Found,
		Tier:      out.Tier.String(),
		Record:    out.Record,
		Insights:  out.Insights,
		Card:      out.Card,
		CheckedAt: out.CheckedAt,
	}, nil
}

func (a *App) Search(query string) socket.RecordsResult {
	return recordsResult(a.Store.Search(query))
}

func (a *App) Get(id string) (ports.TrustRecord, bool) {
	return a.Store.FindByID(id)
}

// List filters by level, then phone, then bank; the first non-empty filter
// wins. An unknown level matches nothing.
func (a *App) List(filter socket.ListParams) socket.RecordsResult {
	switch {
	case filter.Level != "":
		level, ok := ports.ParseLevel(filter.Level)
		if !ok {
			return recordsResult(nil)
		}
		return recordsResult(a.Store.FindByLevel(level))
	case filter.Phone != "":
		return recordsResult(a.Store.FindByPhone(filter.Phone))
	case filter.Bank != "":
		return recordsResult(a.Store.FindByBank(filter.Bank))
	default:
		return recordsResult(a.Store.All())
	}
}

func (a *App) Add(rec ports.TrustRecord) (string, error) {
	id, err := a.Store.Add(rec)
	if err != nil {
		return "", err
	}
	metrics.StoreMutationsTotal.WithLabelValues("add").Inc()
	a.log.Info("record added", "id", id)
	a.checkRecords("add", func(w records.Warning) bool { return w.RecordID == id })
	return id, nil
}

func (a *App) Analyze(note string) scoring.Assessment {
	res := a.Engine.Evaluate(note)
	metrics.ScoringAnalysesTotal.Inc()
	metrics.ScoringScore.Observe(float64(res.Score))
	return res
}

func (a *App) Stats() socket.StatsResult {
	byLevel := make(map[string]int)
	a.Store.Each(func(r *ports.TrustRecord) bool {
		byLevel[string(r.Level)]++
		return true
	})
	lex := a.Engine.Lexicon()
	return socket.StatsResult{
		Stats:    a.Store.Stats(),
		ByLevel:  byLevel,
		Keywords: len(lex.Keywords()),
		Groups:   len(lex.Groups),
		Warnings: int(a.warnings.Load()),
	}
}

func (a *App) Export() *ports.Snapshot {
	return a.Store.Export()
}

// Import replaces the store with snap. Stats in the payload are ignored and
// recomputed.
func (a *App) Import(snap *ports.Snapshot) (socket.ImportResult, error) {
	return a.importSnapshot(snap, "import")
}

func (a *App) importSnapshot(snap *ports.Snapshot, kind string) (socket.ImportResult, error) {
	if !a.Store.Import(snap) {
		return socket.ImportResult{}, records.ErrMalformedImport
	}
	metrics.StoreMutationsTotal.WithLabelValues(kind).Inc()
	warnings := a.revalidate(kind)
	n := a.Store.Len()
	a.log.Info("store replaced", "source", kind, "records", n, "warnings", warnings)
	return socket.ImportResult{Imported: n, Warnings: warnings}, nil
}

// Backup saves the current store under name in the archive.
func (a *App) Backup(name string) (ports.SnapshotInfo, error) {
	arc, err := a.snapshotArchive()
	if err != nil {
		return ports.SnapshotInfo{}, err
	}
	snap := a.Store.Export()
	if err := arc.Save(name, snap); err != nil {
		return ports.SnapshotInfo{}, fmt.Errorf("save backup %q: %w", name, err)
	}
	a.log.Info("backup saved", "name", name, "records", len(snap.Records))
	return ports.SnapshotInfo{
		Name:         name,
		TotalRecords: len(snap.Records),
		SavedAt:      time.Now().Unix(),
	}, nil
}

// Restore replaces the store with a named backup.
func (a *App) Restore(name string) (socket.ImportResult, error) {
	arc, err := a.snapshotArchive()
	if err != nil {
		return socket.ImportResult{}, err
	}
	snap, err := arc.Load(name)
	if err != nil {
		return socket.ImportResult{}, err
	}
	return a.importSnapshot(snap, "restore")
}

func (a *App) Backups() (socket.BackupsResult, error) {
	arc, err := a.snapshotArchive()
	if err != nil {
		return socket.BackupsResult{}, err
	}
	list, err := arc.List()
	if err != nil {
		return socket.BackupsResult{}, err
	}
	return socket.BackupsResult{Backups: list, Count: len(list)}, nil
}

func (a *App) DeleteBackup(name string) error {
	arc, err := a.snapshotArchive()
	if err != nil {
		return err
	}
	return arc.Delete(name)
}

func (a *App) Health() socket.HealthResult {
	src := a.cfg.Lexicon.Path
	if src == "" {
		src = embeddedLexicon
	}
	return socket.HealthResult{
		Status:   "ok",
		Records:  a.Store.Len(),
		Keywords: len(a.Engine.Lexicon().Keywords()),
		Lexicon:  src,
		Skin:     string(a.skin),
		Uptime:   time.Since(a.started).Round(time.Second).String(),
	}
}

func recordsResult(recs []ports.TrustRecord) socket.RecordsResult {
	if recs == nil {
		recs = []ports.TrustRecord{}
	}
	return socket.RecordsResult{Records: recs, Count: len(recs)}
}
