// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the trustcheck daemon: create, start, stop.
package app

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corey/trustcheck/internal/adapters/ahocorasick"
	"github.com/corey/trustcheck/internal/adapters/bbolt"
	fsw "github.com/corey/trustcheck/internal/adapters/fsnotify"
	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/adapters/web"
	"github.com/corey/trustcheck/internal/config"
	"github.com/corey/trustcheck/internal/domain/card"
	"github.com/corey/trustcheck/internal/domain/insight"
	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/domain/resolver"
	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/metrics"
	"github.com/corey/trustcheck/internal/ports"
	"github.com/corey/trustcheck/lexicon"
)

// embeddedLexicon names the compiled-in lexicon in health output.
const embeddedLexicon = "embedded:v1"

// App is the top-level container wiring all components together.
type App struct {
	Paths    *Paths
	Store    *records.Store
	Engine   *scoring.Engine
	Insights *insight.Generator
	Resolver *resolver.Resolver
	Lookup   *Lookup

	Server    *socket.Server
	WebServer *web.Server

	cfg      config.Config
	log      *slog.Logger
	skin     card.Skin
	started  time.Time
	warnings atomic.Int64 // validation warnings at last load/import

	watcher *fsw.Watcher

	archiveMu   sync.Mutex
	archive     *bbolt.Archive // opened on first backup operation
	archivePath string
}

// New creates an App with all dependencies wired. Does not start services
// and does not touch the filesystem except to read an override lexicon, so
// the CLI can use it in-process for one-shot commands.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	skin, ok := card.ParseSkin(cfg.Lookup.Skin)
	if !ok {
		log.Warn("unknown card skin, using detailed", "skin", cfg.Lookup.Skin)
	}

	lex, err := loadLexicon(cfg.Lexicon.Path)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	matcher, err := ahocorasick.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create matcher: %w", err)
	}
	engine, err := scoring.NewEngine(lex, matcher)
	if err != nil {
		return nil, fmt.Errorf("create scoring engine: %w", err)
	}

	store := records.New(records.Seed())
	gen := insight.New(cfg.Lookup.AgeThresholdYears)
	res := resolver.New(store)

	a := &App{
		Paths:       NewPaths(cfg.DataDir),
		Store:       store,
		Engine:      engine,
		Insights:    gen,
		Resolver:    res,
		Lookup:      NewLookup(res, gen, skin, cfg.Lookup.Delay, log.With("component", "lookup")),
		cfg:         cfg,
		log:         log,
		skin:        skin,
		started:     time.Now(),
		archivePath: cfg.ArchivePath(),
	}
	a.revalidate("seed")

	a.Server = socket.NewServer(a, socket.SocketPath(cfg.DataDir), log.With("component", "socket"))
	a.WebServer = web.NewServer(a, a.Paths.PortFile,
		web.WithLogger(log.With("component", "http")),
		web.WithLimits(web.Limits{
			RPS:             cfg.HTTP.RateRPS,
			Burst:           cfg.HTTP.RateBurst,
			ImportPerMinute: cfg.HTTP.ImportPerMinute,
		}),
	)
	return a, nil
}

func loadLexicon(path string) (*scoring.Lexicon, error) {
	if path == "" {
		return scoring.LoadLexiconFromFS(lexicon.FS, "v1")
	}
	return scoring.LoadLexiconFile(path)
}

// Start begins the daemon (socket server + HTTP server + lexicon watcher).
func (a *App) Start() error {
	a.started = time.Now()
	if err := a.Paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	// HTTP is non-fatal if the port is unavailable.
	if a.cfg.HTTP.Enabled {
		port := a.cfg.HTTP.Port
		if port == 0 {
			port = web.DefaultPort(a.cfg.DataDir)
		}
		if err := a.WebServer.Start(port); err != nil {
			a.log.Warn("http api unavailable", "error", err)
		}
	}

	if a.cfg.Lexicon.Path != "" && a.cfg.Lexicon.Watch {
		if err := a.watchLexicon(); err != nil {
			a.log.Warn("lexicon watcher unavailable", "path", a.cfg.Lexicon.Path, "error", err)
		}
	}

	a.log.Info("daemon started",
		"records", a.Store.Len(),
		"keywords", len(a.Engine.Lexicon().Keywords()),
		"skin", a.skin,
	)
	return nil
}

// Stop gracefully shuts down all services and closes the archive.
func (a *App) Stop() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.WebServer.Stop()
	a.Server.Stop()
	a.closeArchive()
	a.Paths.CleanEphemeral()
	return nil
}

// Close releases resources held by an App that was never started.
func (a *App) Close() error {
	a.WebServer.Stop()
	a.closeArchive()
	return nil
}

func (a *App) watchLexicon() error {
	w, err := fsw.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Watch(a.cfg.Lexicon.Path, a.onLexiconChanged); err != nil {
		w.Stop()
		return err
	}
	a.watcher = w
	return nil
}

// onLexiconChanged reloads the lexicon file. A bad file keeps the previous
// lexicon active.
func (a *App) onLexiconChanged(path string) {
	if err := a.ReloadLexicon(path); err != nil {
		a.log.Warn("lexicon reload failed", "path", path, "error", err)
		return
	}
	a.log.Info("lexicon reloaded", "path", path, "keywords", len(a.Engine.Lexicon().Keywords()))
}

// ReloadLexicon parses path and swaps it into the scoring engine.
func (a *App) ReloadLexicon(path string) error {
	lex, err := scoring.LoadLexiconFile(path)
	if err == nil {
		err = a.Engine.Reload(lex)
	}
	if err != nil {
		metrics.LexiconReloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.LexiconReloadsTotal.WithLabelValues("ok").Inc()
	return nil
}

// revalidate logs data-quality warnings for the current store contents.
// Records are never altered.
func (a *App) revalidate(source string) int {
	return a.checkRecords(source, nil)
}

// checkRecords validates the whole store and refreshes the warning count.
// Only warnings accepted by show are logged; nil logs them all.
func (a *App) checkRecords(source string, show func(records.Warning) bool) int {
	warnings := records.Validate(a.Store.All())
	for _, w := range warnings {
		if show != nil && !show(w) {
			continue
		}
		a.log.Warn("record validation", "source", source, "record", w.RecordID, "field", w.Field, "problem", w.Message)
	}
	a.warnings.Store(int64(len(warnings)))
	metrics.StoreValidationWarnings.Set(float64(len(warnings)))
	metrics.StoreRecords.Set(float64(a.Store.Len()))
	return len(warnings)
}

// snapshotArchive opens the bbolt archive on first use. The daemon keeps it
// open; one-shot CLI commands open and close it per process.
func (a *App) snapshotArchive() (ports.SnapshotArchive, error) {
	a.archiveMu.Lock()
	defer a.archiveMu.Unlock()
	if a.archive != nil {
		return a.archive, nil
	}
	if err := a.Paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	arc, err := bbolt.Open(a.archivePath)
	if err != nil {
		return nil, err
	}
	a.archive = arc
	return arc, nil
}

func (a *App) closeArchive() {
	a.archiveMu.Lock()
	defer a.archiveMu.Unlock()
	if a.archive != nil {
		a.archive.Close()
		a.archive = nil
	}
}

// ShutdownCh is closed when a client asks the daemon to stop.
func (a *App) ShutdownCh() <-chan struct{} {
	return a.Server.ShutdownCh()
}

// HTTPURL returns the HTTP API URL, or "" when it isn't serving.
func (a *App) HTTPURL() string {
	if a.WebServer.Port() == 0 {
		return ""
	}
	return a.WebServer.URL()
}
