package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/corey/trustcheck/internal/adapters/socket"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock checks the daemon state and returns actionable guidance
// when the backup archive is locked. It distinguishes a live daemon, a
// stale socket, and an unknown lock holder.
func diagnoseDBLock(dataDir string) string {
	sockPath := socket.SocketPath(dataDir)
	client := socket.NewClient(sockPath)

	if client.Ping() {
		return "backup archive is locked by the running daemon\n" +
			"  → retry the command; it will go through the daemon"
	}

	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Sprintf("backup archive is locked — daemon socket exists but is not responding\n"+
			"  → a previous daemon may have crashed\n"+
			"  → find the process:  ps aux | grep 'trustcheck daemon'\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", sockPath)
	}

	return "backup archive is locked by another process\n" +
		"  → find the process:  ps aux | grep trustcheck\n" +
		"  → kill it:           kill <PID>\n" +
		"  → then retry your command"
}
