// Package conf provides configuration management for pcmring.
package conf

import "github.com/tphakala/pcmring/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so that it follows
// a logger installed after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentConfig)
}
