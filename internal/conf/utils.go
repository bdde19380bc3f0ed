// conf/utils.go: path helpers for the configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	componentConfig = "config"
	appName         = "pcmring"
	maskedValue     = "********"
	osWindows       = "windows"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml in
// order of precedence: the working directory, then the per-user config
// directory for the current operating system.
func GetDefaultConfigPaths() []string {
	configPaths := []string{"."}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return configPaths
	}

	switch runtime.GOOS {
	case osWindows:
		configPaths = append(configPaths, filepath.Join(homeDir, "AppData", "Roaming", appName))
	default:
		configPaths = append(configPaths, filepath.Join(homeDir, ".config", appName))
	}
	return configPaths
}

// FindConfigFile returns the config file that Load would read, or an empty
// string when there is none.
func FindConfigFile() string {
	for _, path := range GetDefaultConfigPaths() {
		configFile := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFile); err == nil {
			return configFile
		}
	}
	return ""
}
