package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths under the data directory.
type Paths struct {
	Root string // <data>/

	LogDir    string // <data>/log/
	DaemonLog string // <data>/log/daemon.log

	RunDir   string // <data>/run/
	PIDFile  string // <data>/run/daemon.pid
	PortFile string // <data>/run/http.port
}

// NewPaths constructs all resolved paths from a data directory.
func NewPaths(dataDir string) *Paths {
	return &Paths{
		Root: dataDir,

		LogDir:    filepath.Join(dataDir, "log"),
		DaemonLog: filepath.Join(dataDir, "log", "daemon.log"),

		RunDir:   filepath.Join(dataDir, "run"),
		PIDFile:  filepath.Join(dataDir, "run", "daemon.pid"),
		PortFile: filepath.Join(dataDir, "run", "http.port"),
	}
}

// EnsureDirs creates all subdirectories of the data dir. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes ephemeral runtime files (PID file and port file).
// Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
