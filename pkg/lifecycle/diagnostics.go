package lifecycle

import (
	"os"
	"strings"

	"github.com/marmos91/lifecycled/internal/logger"
)

// DebugEnvVar enables the pending-task sweep after shutdown when set to a
// value other than "" or "0".
const DebugEnvVar = "LIFECYCLED_DEBUG"

// DebugEnabled reports whether DebugEnvVar is set.
func DebugEnabled() bool {
	v := os.Getenv(DebugEnvVar)
	return v != "" && v != "0"
}

// Sweep logs a warning for every task still pending on t, ignoring the
// run loop itself, completion waits and the file watcher loop. It returns
// the reported tasks.
func Sweep(t *Tracker) []TaskInfo {
	if t == nil {
		return nil
	}

	var leaked []TaskInfo
	for _, task := range t.Pending() {
		if isInternalTask(task.Function) {
			continue
		}
		leaked = append(leaked, task)
		logger.Warn("task has not been awaited",
			logger.KeyTaskFunction, task.Function,
			logger.KeyTaskFile, task.File,
			"line", task.Line,
		)
	}
	return leaked
}

func isInternalTask(name string) bool {
	switch {
	case strings.HasSuffix(name, "lifecycle.(*Orchestrator).Run"):
		return true
	case strings.Contains(name, "lifecycle.(*Signal[") && strings.HasSuffix(name, ").Wait"):
		return true
	case strings.HasSuffix(name, "watcher.(*Watcher).loop"):
		return true
	default:
		return false
	}
}
