package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/trustcheck/internal/adapters/ahocorasick"
	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/domain/card"
	"github.com/corey/trustcheck/internal/domain/insight"
	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/domain/resolver"
	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/ports"
	"github.com/corey/trustcheck/lexicon"
)

// mockQueries implements socket.AppQueries over the seed dataset.
type mockQueries struct {
	store    *records.Store
	engine   *scoring.Engine
	res      *resolver.Resolver
	checkErr error
}

func newMockQueries(t *testing.T) *mockQueries {
	t.Helper()
	lex, err := scoring.LoadLexiconFromFS(lexicon.FS, "v1")
	require.NoError(t, err)
	m, err := ahocorasick.New(nil)
	require.NoError(t, err)
	eng, err := scoring.NewEngine(lex, m)
	require.NoError(t, err)
	store := records.New(records.Seed())
	return &mockQueries{store: store, engine: eng, res: resolver.New(store)}
}

func (m *mockQueries) Check(ctx context.Context, query string) (socket.CheckResult, error) {
	if m.checkErr != nil {
		return socket.CheckResult{}, m.checkErr
	}
	if strings.TrimSpace(query) == "" {
		return socket.CheckResult{}, ports.ErrEmptyQuery
	}
	rec, tier := m.res.ResolveWithTier(query)
	if tier == resolver.TierNone {
		return socket.CheckResult{Query: query, Tier: tier.String(), Card: card.NotFound(query, card.SkinDetailed)}, nil
	}
	ins := insight.New(0).Insights(&rec)
	return socket.CheckResult{
		Query:    query,
		Found:    true,
		Tier:     tier.String(),
		Record:   &rec,
		Insights: ins,
		Card:     card.Build(&rec, query, ins, card.SkinDetailed),
	}, nil
}

func (m *mockQueries) Search(query string) socket.RecordsResult {
	recs := m.store.Search(query)
	return socket.RecordsResult{Records: recs, Count: len(recs)}
}

func (m *mockQueries) Get(id string) (ports.TrustRecord, bool) { return m.store.FindByID(id) }

func (m *mockQueries) List(p socket.ListParams) socket.RecordsResult {
	recs := m.store.All()
	switch {
	case p.Level != "":
		recs = m.store.FindByLevel(ports.Level(p.Level))
	case p.Bank != "":
		recs = m.store.FindByBank(p.Bank)
	}
	return socket.RecordsResult{Records: recs, Count: len(recs)}
}

func (m *mockQueries) Add(rec ports.TrustRecord) (string, error) { return m.store.Add(rec) }

func (m *mockQueries) Analyze(note string) scoring.Assessment { return m.engine.Evaluate(note) }

func (m *mockQueries) Stats() socket.StatsResult {
	return socket.StatsResult{Stats: m.store.Stats(), Keywords: len(m.engine.Lexicon().Keywords())}
}

func (m *mockQueries) Export() *ports.Snapshot { return m.store.Export() }

func (m *mockQueries) Import(snap *ports.Snapshot) (socket.ImportResult, error) {
	if !m.store.Import(snap) {
		return socket.ImportResult{}, records.ErrMalformedImport
	}
	return socket.ImportResult{Imported: m.store.Len()}, nil
}

func (m *mockQueries) Backup(name string) (ports.SnapshotInfo, error) {
	return ports.SnapshotInfo{Name: name}, nil
}

func (m *mockQueries) Restore(name string) (socket.ImportResult, error) {
	return socket.ImportResult{}, ports.ErrSnapshotNotFound
}

func (m *mockQueries) Backups() (socket.BackupsResult, error) { return socket.BackupsResult{}, nil }

func (m *mockQueries) DeleteBackup(name string) error { return nil }

func (m *mockQueries) Health() socket.HealthResult {
	return socket.HealthResult{Status: "ok", Records: m.store.Len(), Skin: "detailed", Uptime: "1s"}
}

func setupTestServer(t *testing.T, opts ...Option) (*httptest.Server, *mockQueries) {
	t.Helper()
	q := newMockQueries(t)
	srv := NewServer(q, "", opts...)
	t.Cleanup(srv.Stop)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, q
}

func getJSON(t *testing.T, url string, into interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	var result socket.HealthResult
	resp := getJSON(t, ts.URL+"/api/health", &result)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 4, result.Records)
}

func TestCheckEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	var found socket.CheckResult
	resp := getJSON(t, ts.URL+"/api/check?q=0868748858", &found)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, found.Found)
	assert.Equal(t, "exact", found.Tier)
	assert.Equal(t, card.KindRecord, found.Card.Kind)

	var missing socket.CheckResult
	resp = getJSON(t, ts.URL+"/api/check?q=0000000000", &missing)
	assert.Equal(t, 200, resp.StatusCode, "not found is not an error")
	assert.False(t, missing.Found)
	assert.Equal(t, card.KindNotFound, missing.Card.Kind)
	assert.NotEmpty(t, missing.Card.Samples)
}

func TestCheckEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty", ports.ErrEmptyQuery, http.StatusBadRequest},
		{"superseded", ports.ErrSuperseded, http.StatusConflict},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"failed", fmt.Errorf("resolve: %w", ports.ErrLookupFailed), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, q := setupTestServer(t)
			q.checkErr = tt.err

			resp, err := http.Get(ts.URL + "/api/check?q=x")
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestCheckEndpoint_FailureCard(t *testing.T) {
	ts, q := setupTestServer(t)
	q.checkErr = ports.ErrLookupFailed

	var result socket.CheckResult
	resp := getJSON(t, ts.URL+"/api/check?q=0868748858", &result)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, card.KindFailure, result.Card.Kind)
	assert.Equal(t, card.DefaultFailureMessage, result.Card.Message)
	assert.NotContains(t, result.Card.Message, ports.ErrLookupFailed.Error())
	assert.False(t, result.Found)
}

func TestCheckEndpoint_BlankQuery(t *testing.T) {
	ts, _ := setupTestServer(t)

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/check?q=%20%20", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "empty query")
}

func TestSearchEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	var result socket.RecordsResult
	getJSON(t, ts.URL+"/api/search?q=vinh", &result)
	assert.Equal(t, 2, result.Count)

	var blank socket.RecordsResult
	getJSON(t, ts.URL+"/api/search?q=", &blank)
	assert.Equal(t, 0, blank.Count)
}

func TestRecordsEndpoints(t *testing.T) {
	ts, _ := setupTestServer(t)

	var rec ports.TrustRecord
	resp := getJSON(t, ts.URL+"/api/records/RISK_001", &rec)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, ports.LevelDanger, rec.Level)

	resp = getJSON(t, ts.URL+"/api/records/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var list socket.RecordsResult
	getJSON(t, ts.URL+"/api/records?level=safe", &list)
	assert.Equal(t, 2, list.Count)

	var all socket.RecordsResult
	getJSON(t, ts.URL+"/api/records", &all)
	assert.Equal(t, 4, all.Count)
}

func TestAddEndpoint(t *testing.T) {
	ts, q := setupTestServer(t)

	body := `{"phone": "0911000111", "name": "Mới", "score": 85}`
	resp, err := http.Post(ts.URL+"/api/records", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var added socket.AddResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	rec, ok := q.store.FindByID(added.ID)
	require.True(t, ok)
	assert.Equal(t, ports.LevelSafe, rec.Level)

	dup, err := http.Post(ts.URL+"/api/records", "application/json", strings.NewReader(`{"id": "UYTIN_001"}`))
	require.NoError(t, err)
	dup.Body.Close()
	assert.Equal(t, http.StatusConflict, dup.StatusCode)

	bad, err := http.Post(ts.URL+"/api/records", "application/json", strings.NewReader(`{"level": "purple"}`))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	var result socket.StatsResult
	resp := getJSON(t, ts.URL+"/api/stats", &result)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 4, result.Stats.TotalRecords)
	assert.Positive(t, result.Keywords)
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Post(ts.URL+"/api/analyze", "application/json",
		strings.NewReader(`{"note": "Lừa đảo, không trả tiền"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	var a scoring.Assessment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
	assert.Equal(t, 20, a.Score)
	assert.Equal(t, ports.LevelDanger, a.Level)

	bad, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestExportImportEndpoints(t *testing.T) {
	ts, q := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/export")
	require.NoError(t, err)
	exported, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	require.True(t, q.store.Import(&ports.Snapshot{Records: []ports.TrustRecord{}}))
	assert.Equal(t, 0, q.store.Len())

	imp, err := http.Post(ts.URL+"/api/import", "application/json", bytes.NewReader(exported))
	require.NoError(t, err)
	defer imp.Body.Close()
	assert.Equal(t, 200, imp.StatusCode)

	var result socket.ImportResult
	require.NoError(t, json.NewDecoder(imp.Body).Decode(&result))
	assert.Equal(t, 4, result.Imported)
	assert.Equal(t, 4, q.store.Len())
}

func TestImportEndpoint_Malformed(t *testing.T) {
	ts, q := setupTestServer(t)

	for _, body := range []string{`not json`, `{"records": "nope"}`, `{"stats": {}}`} {
		resp, err := http.Post(ts.URL+"/api/import", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Equal(t, 4, q.store.Len(), "store untouched after rejected imports")
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	getJSON(t, ts.URL+"/api/health", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "trustcheck_http_requests_total")
	assert.Contains(t, string(body), `route="GET /api/health"`)
}

func TestLookupPageHTML(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	ct := resp.Header.Get("Content-Type")
	assert.True(t, strings.HasPrefix(ct, "text/html"), "content-type should be text/html, got %s", ct)
}

func TestServer_StartStop(t *testing.T) {
	portFile := filepath.Join(t.TempDir(), "http.port")
	srv := NewServer(newMockQueries(t), portFile)
	require.NoError(t, srv.Start(0))

	data, err := os.ReadFile(portFile)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(srv.Port()), string(data))
	assert.Equal(t, fmt.Sprintf("http://localhost:%d", srv.Port()), srv.URL())

	resp, err := http.Get(srv.URL() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	srv.Stop()
	srv.Stop()
	_, err = os.Stat(portFile)
	assert.True(t, os.IsNotExist(err), "port file removed on stop")
}

func TestDefaultPort(t *testing.T) {
	port := DefaultPort("/var/lib/trustcheck")
	assert.GreaterOrEqual(t, port, 19000)
	assert.Less(t, port, 20000)

	// Same path should give same port
	assert.Equal(t, port, DefaultPort("/var/lib/trustcheck"))

	port3 := DefaultPort("/var/lib/other")
	assert.GreaterOrEqual(t, port3, 19000)
	assert.Less(t, port3, 20000)
}
