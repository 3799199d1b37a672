package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/config"
	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/ports"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Lookup.Delay = 0
	cfg.HTTP.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

const customLexicon = `
- id: custom
  label: Custom
  weight: -30
  keywords: [uy tín]
`

func TestNew_SeedAndWarnings(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	assert.Equal(t, 4, a.Store.Len())
	stats := a.Stats()
	assert.Equal(t, 4, stats.Stats.TotalRecords)
	assert.Equal(t, records.DatasetVersion, stats.Stats.Version)
	assert.Equal(t, map[string]int{"safe": 2, "warn": 1, "danger": 1}, stats.ByLevel)
	assert.Equal(t, 1, stats.Warnings, "RISK_001 score is out of range")
	assert.Positive(t, stats.Keywords)
	assert.Positive(t, stats.Groups)
}

func TestNew_BadLexiconPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lexicon.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load lexicon")
}

func TestApp_CheckAndSearch(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	res, err := a.Check(context.Background(), "66668888")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "exact", res.Tier)
	assert.Equal(t, "RISK_001", res.Record.ID)

	_, err = a.Check(context.Background(), " ")
	assert.ErrorIs(t, err, ports.ErrEmptyQuery)

	found := a.Search("MB BANK")
	assert.Equal(t, 2, found.Count)

	empty := a.Search("")
	assert.NotNil(t, empty.Records)
	assert.Equal(t, 0, empty.Count)
}

func TestApp_List(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	tests := []struct {
		name   string
		filter socket.ListParams
		want   int
	}{
		{"all", socket.ListParams{}, 4},
		{"level", socket.ListParams{Level: "safe"}, 2},
		{"level case", socket.ListParams{Level: "DANGER"}, 1},
		{"unknown level", socket.ListParams{Level: "purple"}, 0},
		{"phone", socket.ListParams{Phone: "2000"}, 1},
		{"bank", socket.ListParams{Bank: "MB Bank"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.List(tt.filter).Count)
		})
	}
}

func TestApp_AddAndAnalyze(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	id, err := a.Add(ports.TrustRecord{Phone: "0911000111", Name: "Mới", Score: 20})
	require.NoError(t, err)
	rec, ok := a.Get(id)
	require.True(t, ok)
	assert.Equal(t, ports.LevelDanger, rec.Level)
	assert.Equal(t, 5, a.Stats().Stats.TotalRecords)

	_, err = a.Add(ports.TrustRecord{ID: id})
	assert.ErrorIs(t, err, records.ErrDuplicateID)

	res := a.Analyze("Lừa đảo, không trả tiền")
	assert.Equal(t, 20, res.Score)
	assert.Equal(t, ports.LevelDanger, res.Level)
}

func TestApp_AddReportsOutOfRangeScore(t *testing.T) {
	var buf bytes.Buffer
	a, err := New(testConfig(t), slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	require.Equal(t, 1, a.Stats().Warnings)
	buf.Reset()

	id, err := a.Add(ports.TrustRecord{Phone: "0911000222", Score: 500})
	require.NoError(t, err)

	rec, ok := a.Get(id)
	require.True(t, ok)
	assert.Equal(t, 500, rec.Score, "out-of-range score is kept, not clamped")
	assert.Equal(t, ports.LevelSafe, rec.Level)
	assert.Equal(t, 2, a.Stats().Warnings)

	logged := buf.String()
	assert.Contains(t, logged, "record validation")
	assert.Contains(t, logged, "source=add")
	assert.Contains(t, logged, id)
	assert.NotContains(t, logged, "RISK_001", "only the new record's warnings are logged")
}

func TestApp_ImportRecomputesStats(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	result, err := a.Import(&ports.Snapshot{
		Stats:   ports.Stats{TotalRecords: 999},
		Records: []ports.TrustRecord{{ID: "A", Score: 80, Level: ports.LevelSafe}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 0, result.Warnings)
	assert.Equal(t, 1, a.Stats().Stats.TotalRecords)

	_, err = a.Import(&ports.Snapshot{})
	assert.ErrorIs(t, err, records.ErrMalformedImport)
	assert.Equal(t, 1, a.Store.Len(), "failed import leaves the store untouched")
}

func TestApp_BackupRestore(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	info, err := a.Backup("seed")
	require.NoError(t, err)
	assert.Equal(t, "seed", info.Name)
	assert.Equal(t, 4, info.TotalRecords)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "archive.db"))

	_, err = a.Import(&ports.Snapshot{Records: []ports.TrustRecord{}})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Store.Len())

	restored, err := a.Restore("seed")
	require.NoError(t, err)
	assert.Equal(t, 4, restored.Imported)
	assert.Equal(t, 1, restored.Warnings)

	list, err := a.Backups()
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "seed", list.Backups[0].Name)

	require.NoError(t, a.DeleteBackup("seed"))
	_, err = a.Restore("seed")
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)
}

func TestApp_Health(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lookup.Skin = "classic"
	a := newTestApp(t, cfg)

	h := a.Health()
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 4, h.Records)
	assert.Equal(t, embeddedLexicon, h.Lexicon)
	assert.Equal(t, "classic", h.Skin)
	assert.Positive(t, h.Keywords)
}

func TestApp_ReloadLexicon(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	dir := t.TempDir()

	before := a.Analyze("uy tín")

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(customLexicon), 0644))
	require.NoError(t, a.ReloadLexicon(good))
	after := a.Analyze("uy tín")
	assert.Less(t, after.Score, before.Score)
	assert.Equal(t, 1, a.Stats().Groups)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- id: [\n"), 0644))
	require.Error(t, a.ReloadLexicon(bad))
	assert.Equal(t, after.Score, a.Analyze("uy tín").Score, "bad file keeps the active lexicon")
}

func TestApp_StartStopWatchesLexicon(t *testing.T) {
	cfg := testConfig(t)
	lexPath := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(lexPath, []byte(customLexicon), 0644))
	cfg.Lexicon.Path = lexPath
	cfg.Lexicon.Watch = true

	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Stop()

	health, err := socket.NewClient(socket.SocketPath(cfg.DataDir)).Health()
	require.NoError(t, err)
	assert.Equal(t, lexPath, health.Lexicon)
	assert.Equal(t, 1, a.Stats().Groups)

	updated := customLexicon + `
- id: extra
  label: Extra
  weight: 5
  keywords: [đúng hẹn]
`
	require.NoError(t, os.WriteFile(lexPath, []byte(updated), 0644))

	assert.Eventually(t, func() bool {
		return a.Stats().Groups == 2
	}, 3*time.Second, 20*time.Millisecond, "watcher should hot-reload the lexicon")
}

func TestApp_StopRemovesEphemeral(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Start())

	sock := socket.SocketPath(cfg.DataDir)
	_, err = os.Stat(sock)
	require.NoError(t, err)

	require.NoError(t, a.Stop())
	_, err = os.Stat(sock)
	assert.True(t, os.IsNotExist(err))
}
