package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/app"
	"github.com/corey/trustcheck/internal/config"
	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/domain/scoring"
	"github.com/corey/trustcheck/internal/ports"
)

// backend is what commands call. The socket client satisfies it directly;
// localBackend adapts an in-process App when no daemon is running.
type backend interface {
	Check(query string) (*socket.CheckResult, error)
	Search(query string) (*socket.RecordsResult, error)
	Get(id string) (*ports.TrustRecord, error)
	List(filter socket.ListParams) (*socket.RecordsResult, error)
	Add(rec ports.TrustRecord) (string, error)
	Analyze(note string) (*scoring.Assessment, error)
	Stats() (*socket.StatsResult, error)
	Export() (*ports.Snapshot, error)
	Import(payload []byte) (*socket.ImportResult, error)
	Backup(name string) (*ports.SnapshotInfo, error)
	Restore(name string) (*socket.ImportResult, error)
	Backups() (*socket.BackupsResult, error)
	DeleteBackup(name string) error
	Health() (*socket.HealthResult, error)
}

var _ backend = (*socket.Client)(nil)

// errNeedsDaemon is returned for commands whose effect would vanish with an
// in-process store.
var errNeedsDaemon = errors.New("daemon is not running; start it with: trustcheck daemon start")

// access says whether a command may run without the daemon.
type access int

const (
	// accessLocal commands fall back to an in-process engine over the seed data.
	accessLocal access = iota
	// accessDaemon commands change the live store and need the daemon.
	accessDaemon
)

// openBackend connects to the daemon, or builds an in-process App when the
// command allows it. The returned close func must always be called.
func openBackend(mode access) (backend, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	client := socket.NewClient(socket.SocketPath(cfg.DataDir))
	if client.Ping() {
		return client, func() {}, nil
	}
	if mode == accessDaemon {
		return nil, nil, errNeedsDaemon
	}

	lb, err := newLocalBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	return lb, func() { lb.app.Close() }, nil
}

// localBackend serves commands from an App that is never started. The
// lookup delay is skipped; it only models a remote round trip.
type localBackend struct {
	app *app.App
	cfg config.Config
}

func newLocalBackend(cfg config.Config) (*localBackend, error) {
	cfg.Lookup.Delay = 0
	a, err := app.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return &localBackend{app: a, cfg: cfg}, nil
}

func (l *localBackend) Check(query string) (*socket.CheckResult, error) {
	res, err := l.app.Check(context.Background(), query)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (l *localBackend) Search(query string) (*socket.RecordsResult, error) {
	res := l.app.Search(query)
	return &res, nil
}

func (l *localBackend) Get(id string) (*ports.TrustRecord, error) {
	rec, ok := l.app.Get(id)
	if !ok {
		return nil, fmt.Errorf("record not found: %s", id)
	}
	return &rec, nil
}

func (l *localBackend) List(filter socket.ListParams) (*socket.RecordsResult, error) {
	res := l.app.List(filter)
	return &res, nil
}

func (l *localBackend) Add(rec ports.TrustRecord) (string, error) {
	return "", errNeedsDaemon
}

func (l *localBackend) Analyze(note string) (*scoring.Assessment, error) {
	res := l.app.Analyze(note)
	return &res, nil
}

func (l *localBackend) Stats() (*socket.StatsResult, error) {
	res := l.app.Stats()
	return &res, nil
}

func (l *localBackend) Export() (*ports.Snapshot, error) {
	return l.app.Export(), nil
}

// Import validates the payload without a daemon; nothing is kept.
func (l *localBackend) Import(payload []byte) (*socket.ImportResult, error) {
	if _, err := records.DecodeSnapshot(payload); err != nil {
		return nil, err
	}
	return nil, errNeedsDaemon
}

func (l *localBackend) Backup(name string) (*ports.SnapshotInfo, error) {
	return nil, errNeedsDaemon
}

func (l *localBackend) Restore(name string) (*socket.ImportResult, error) {
	return nil, errNeedsDaemon
}

func (l *localBackend) Backups() (*socket.BackupsResult, error) {
	res, err := l.app.Backups()
	if err != nil {
		return nil, l.archiveErr(err)
	}
	return &res, nil
}

func (l *localBackend) DeleteBackup(name string) error {
	return l.archiveErr(l.app.DeleteBackup(name))
}

func (l *localBackend) Health() (*socket.HealthResult, error) {
	res := l.app.Health()
	res.Status = "local"
	return &res, nil
}

func (l *localBackend) archiveErr(err error) error {
	if isDBLockError(err) {
		return fmt.Errorf("%w\n%s", err, diagnoseDBLock(l.cfg.DataDir))
	}
	return err
}
