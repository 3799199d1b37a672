package web

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/domain/card"
	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/metrics"
	"github.com/corey/trustcheck/internal/ports"
)

// maxBodyBytes bounds POST bodies (notes, imports, new records).
const maxBodyBytes = 1 << 20

// Server serves the lookup page and JSON API over HTTP.
type Server struct {
	queries  socket.AppQueries
	log      *slog.Logger
	limits   Limits
	limiter  *rateLimiter
	listener net.Listener
	httpSrv  *http.Server
	port     int
	stopOnce sync.Once

	// ctx is cancelled on Stop so in-flight checks abandon their delay.
	ctx    context.Context
	cancel context.CancelFunc

	portFilePath string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLimits sets the API rate limits.
func WithLimits(l Limits) Option {
	return func(s *Server) { s.limits = l }
}

// NewServer creates an HTTP server for the lookup API.
// The portFilePath is where the bound port is written for discovery.
func NewServer(queries socket.AppQueries, portFilePath string, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		queries:      queries,
		log:          slog.New(slog.DiscardHandler),
		limits:       DefaultLimits,
		ctx:          ctx,
		cancel:       cancel,
		portFilePath: portFilePath,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = newRateLimiter(s.limits, s.log)
	return s
}

// DefaultPort computes a data-dir-specific port: 19000 + (hash(abs_path) % 1000).
func DefaultPort(dataDir string) int {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		abs = dataDir
	}
	h := sha256.Sum256([]byte(abs))
	n := uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
	return 19000 + int(n%1000)
}

// Handler returns the full route tree wrapped in rate limiting and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	page, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	mux.Handle("GET /", http.FileServerFS(page))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/check", s.handleCheck)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/records", s.handleList)
	mux.HandleFunc("POST /api/records", s.handleAdd)
	mux.HandleFunc("GET /api/records/{id}", s.handleGet)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	return s.instrument(s.limiter.wrap(mux))
}

// Start begins listening on the preferred port and writes the port file.
func (s *Server) Start(preferredPort int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", preferredPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.portFilePath != "" {
		if err := os.WriteFile(s.portFilePath, []byte(strconv.Itoa(s.port)), 0644); err != nil {
			s.log.Warn("write port file", "path", s.portFilePath, "error", err)
		}
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http serve", "error", err)
		}
	}()
	s.log.Info("http listening", "url", s.URL())
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.limiter.stop()
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the page URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queries.Health())
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := mergeDone(r.Context(), s.ctx)
	defer cancel()

	result, err := s.queries.Check(ctx, r.URL.Query().Get("q"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, ports.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, socket.CheckResult{
			Query: r.URL.Query().Get("q"),
			Card:  card.Failure(card.DefaultFailureMessage),
		})
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queries.Search(r.URL.Query().Get("q")))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.queries.List(socket.ListParams{
		Level: q.Get("level"),
		Phone: q.Get("phone"),
		Bank:  q.Get("bank"),
	}))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := s.queries.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "record not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var rec ports.TrustRecord
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid record JSON")
		return
	}
	id, err := s.queries.Add(rec)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, socket.AddResult{ID: id})
	case errors.Is(err, records.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, records.ErrInvalidLevel):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queries.Stats())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var params socket.AnalyzeParams
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid analyze JSON")
		return
	}
	writeJSON(w, http.StatusOK, s.queries.Analyze(params.Note))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="trustcheck-export.json"`)
	writeJSON(w, http.StatusOK, s.queries.Export())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	snap, err := records.DecodeSnapshot(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.queries.Import(snap)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, records.ErrMalformedImport) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by matched route pattern and status code.
// The mux sets r.Pattern while routing, so it is read after the call.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		if strings.HasPrefix(r.URL.Path, "/api/") {
			s.log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.code,
				"elapsed", time.Since(start),
			)
		}
	})
}

// mergeDone returns a context cancelled when either parent is done.
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
