// Package app provides the application initialization and wiring.
package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultDataDir returns the default data directory path.
// Uses ~/.envrefresh for user installations, /var/lib/envrefresh as fallback.
func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".envrefresh")
	}
	return "/var/lib/envrefresh"
}

// ConfigureViper sets up viper with standard config file search paths.
// Config file: envrefresh.yaml
// Search paths (in order): /etc/envrefresh, ~/.config/envrefresh, current directory
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("envrefresh")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/envrefresh")
		v.AddConfigPath("$HOME/.config/envrefresh")
		v.AddConfigPath(".")
	}
}
