// Package observability provides Prometheus metrics and the status endpoint
// for pcmring. Sentry error telemetry is handled in the telemetry package.
package observability

import "github.com/tphakala/pcmring/internal/logger"

// getLogger returns the package logger, resolved on each call so a logger
// installed after package init is honoured.
func getLogger() logger.Logger {
	return logger.Global().Module("observability")
}
