package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/metrics"
)

// Server is the daemon that listens on a Unix socket and serves trust lookups.
type Server struct {
	queries  AppQueries
	log      *slog.Logger
	listener net.Listener
	sockPath string

	// ctx is cancelled on Stop so in-flight checks abandon their delay.
	ctx    context.Context
	cancel context.CancelFunc

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by queries. A nil logger
// discards.
func NewServer(queries AppQueries, sockPath string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		queries:    queries,
		log:        log,
		sockPath:   sockPath,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first; if the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info("socket listening", "path", s.sockPath)
	return nil
}

// Stop gracefully shuts down the server, closing the listener and removing the socket file.
// Idempotent; safe to call multiple times (e.g., after remote shutdown + signal).
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the scanner when the server stops.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-s.done:
			conn.SetReadDeadline(time.Now())
		case <-connDone:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB max message

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	start := time.Now()
	resp := s.dispatch(req)
	if resp.Error != "" {
		metrics.SocketRequestsTotal.WithLabelValues(req.Method, "error").Inc()
		s.log.Warn("request failed", "method", req.Method, "error", resp.Error)
	} else {
		metrics.SocketRequestsTotal.WithLabelValues(req.Method, "ok").Inc()
		s.log.Debug("request served", "method", req.Method, "elapsed", time.Since(start))
	}
	return resp
}

func (s *Server) dispatch(req Request) Response {
	switch req.Method {
	case MethodCheck:
		return s.handleCheck(req)
	case MethodSearch:
		return s.handleSearch(req)
	case MethodGet:
		return s.handleGet(req)
	case MethodList:
		return s.handleList(req)
	case MethodAdd:
		return s.handleAdd(req)
	case MethodAnalyze:
		return s.handleAnalyze(req)
	case MethodStats:
		return Response{ID: req.ID, Result: s.queries.Stats()}
	case MethodExport:
		return Response{ID: req.ID, Result: s.queries.Export()}
	case MethodImport:
		return s.handleImport(req)
	case MethodBackup:
		return s.handleBackup(req)
	case MethodRestore:
		return s.handleRestore(req)
	case MethodBackups:
		return s.handleBackups(req)
	case MethodBackupDelete:
		return s.handleBackupDelete(req)
	case MethodHealth:
		return Response{ID: req.ID, Result: s.queries.Health()}
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func (s *Server) handleCheck(req Request) Response {
	var params QueryParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid check params"}
	}
	result, err := s.queries.Check(s.ctx, params.Query)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleSearch(req Request) Response {
	var params QueryParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid search params"}
	}
	return Response{ID: req.ID, Result: s.queries.Search(params.Query)}
}

func (s *Server) handleGet(req Request) Response {
	var params IDParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid get params"}
	}
	rec, ok := s.queries.Get(params.ID)
	if !ok {
		return Response{ID: req.ID, Error: fmt.Sprintf("record not found: %s", params.ID)}
	}
	return Response{ID: req.ID, Result: rec}
}

func (s *Server) handleList(req Request) Response {
	var params ListParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid list params"}
	}
	return Response{ID: req.ID, Result: s.queries.List(params)}
}

func (s *Server) handleAdd(req Request) Response {
	var params AddParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid add params"}
	}
	id, err := s.queries.Add(params.Record)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: AddResult{ID: id}}
}

func (s *Server) handleAnalyze(req Request) Response {
	var params AnalyzeParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid analyze params"}
	}
	return Response{ID: req.ID, Result: s.queries.Analyze(params.Note)}
}

func (s *Server) handleImport(req Request) Response {
	var params ImportParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid import params"}
	}
	snap, err := records.DecodeSnapshot(params.Payload)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	result, err := s.queries.Import(snap)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleBackup(req Request) Response {
	name, errResp, ok := s.backupName(req)
	if !ok {
		return errResp
	}
	info, err := s.queries.Backup(name)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: info}
}

func (s *Server) handleRestore(req Request) Response {
	name, errResp, ok := s.backupName(req)
	if !ok {
		return errResp
	}
	result, err := s.queries.Restore(name)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleBackups(req Request) Response {
	result, err := s.queries.Backups()
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleBackupDelete(req Request) Response {
	name, errResp, ok := s.backupName(req)
	if !ok {
		return errResp
	}
	if err := s.queries.DeleteBackup(name); err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: struct{}{}}
}

func (s *Server) backupName(req Request) (string, Response, bool) {
	var params NameParams
	if err := decodeParams(req, &params); err != nil {
		return "", Response{ID: req.ID, Error: "invalid backup params"}, false
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return "", Response{ID: req.ID, Error: "backup name is required"}, false
	}
	return name, Response{}, true
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", "method_id", resp.ID, "error", err)
		data, _ = json.Marshal(Response{ID: resp.ID, Error: "internal error"})
	}
	data = append(data, '\n')
	conn.Write(data)
}
