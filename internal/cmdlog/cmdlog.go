package cmdlog

import (
	"time"

	"tweetminer/internal/logging"
	"tweetminer/internal/metrics"
)

// Run executes one CLI command, counting runs and failures and logging the
// outcome with its duration.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	took := time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error(), "took": took})
	} else {
		logging.Info(cmd+"_ok", map[string]any{"took": took})
	}
	return err
}
