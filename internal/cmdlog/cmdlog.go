package cmdlog

import (
	"time"

	"mentiongraph/internal/logging"
	"mentiongraph/internal/metrics"
)

// Run executes f under cmd's name, counting runs and failures and logging the outcome.
func Run(cmd string, f func() error) error {
	start := time.Now()
	metrics.IncCommandRun(cmd)
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error()})
	} else {
		logging.Info(cmd+"_ok", map[string]any{"elapsed_ms": time.Since(start).Milliseconds()})
	}
	return err
}
