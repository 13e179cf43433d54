// Package paths resolves the configuration and data directories of crmstore.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "crmstore"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CRMSTORE_CONFIG_DIR"
	EnvDataDir   = "CRMSTORE_DATA_DIR"
)

// ConfigFileName is the configuration file read from the config directory.
const ConfigFileName = "config.yaml"

// DefaultConfigDir returns $XDG_CONFIG_HOME/crmstore, using the platform
// equivalent on macOS and Windows.
func DefaultConfigDir() string {
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultDataDir returns $XDG_DATA_HOME/crmstore, using the platform
// equivalent on macOS and Windows.
func DefaultDataDir() string {
	xdg.Reload()
	return filepath.Join(xdg.DataHome, AppName)
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > CRMSTORE_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir(), nil
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > config file value > CRMSTORE_DATA_DIR > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir(), nil
}
