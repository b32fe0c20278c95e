package orchestrator

import (
	"os"
	"strings"
	"time"
)

var (
	// DefaultWorkflowTimeout bounds a whole release or resume run
	DefaultWorkflowTimeout = getTimeoutOrDefault("WORKFLOW_TIMEOUT", 10*time.Minute, 30*time.Second)
	// DefaultRetryDelay is the initial delay for exponential backoff
	DefaultRetryDelay = getTimeoutOrDefault("RETRY_DELAY", 1*time.Second, 10*time.Millisecond)
)

// isTestEnvironment detects if we're running in a test environment
func isTestEnvironment() bool {
	for _, arg := range os.Args {
		if strings.HasSuffix(arg, ".test") || strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return os.Getenv("GO_TEST") == "true" || os.Getenv("TEST_MODE") == "true"
}

// getTimeoutOrDefault returns the duration in envVar, or a default for the environment
func getTimeoutOrDefault(envVar string, prodDefault, testDefault time.Duration) time.Duration {
	if env := os.Getenv(envVar); env != "" {
		if duration, err := time.ParseDuration(env); err == nil && duration > 0 {
			return duration
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}
