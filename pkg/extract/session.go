package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
)

const (
	sessionPrefix  = "avpack-"
	stagingSuffix  = ".staging"
	pidMarkerName  = ".avpack.pid"
	dirPerms       = 0o700
	filePerms      = 0o644
)

// DefaultRoot is where extraction sessions live: AVPACK_TMP_ROOT when set,
// otherwise an avpack directory under the OS temp dir.
func DefaultRoot() string {
	if root := os.Getenv("AVPACK_TMP_ROOT"); root != "" {
		return root
	}
	return filepath.Join(os.TempDir(), "avpack")
}

// isProcessRunning checks PID liveness. Signal 0 probes without delivering.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// writePIDMarker records the owning process inside a session directory so
// later launches can tell live sessions from leftovers.
func writePIDMarker(dir string) error {
	marker := filepath.Join(dir, pidMarkerName)
	return os.WriteFile(marker, []byte(fmt.Sprintf("%d\n", os.Getpid())), filePerms)
}

// sweepStale removes session and staging directories whose owning process
// is gone. Unreadable or unparseable markers count as stale; a directory
// without any marker is left alone, it is not ours to judge.
func sweepStale(root string, logger hclog.Logger) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), sessionPrefix) {
			continue
		}
		dir := filepath.Join(root, entry.Name())

		data, err := os.ReadFile(filepath.Join(dir, pidMarkerName))
		if err != nil {
			if strings.HasSuffix(entry.Name(), stagingSuffix) {
				// Staging without a marker is an aborted extraction.
				logger.Debug("🧹 removing markerless staging directory", "path", dir)
				os.RemoveAll(dir)
			}
			continue
		}

		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil || !isProcessRunning(pid) {
			logger.Info("🧹 sweeping stale session from dead process", "path", dir, "pid", pid)
			if err := os.RemoveAll(dir); err != nil {
				logger.Debug("⚠️ stale sweep failed", "path", dir, "error", err)
			}
		}
	}
}
