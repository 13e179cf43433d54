package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/crmstore/internal/paths"
	"github.com/mesh-intelligence/crmstore/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyBackend               = "backend"
	cfgKeyDataDir               = "data_dir"
	cfgKeyFixedCatalogSort      = "fixed_catalog_sort"
	cfgKeyDisablePartCascade    = "disable_participants_cascade"
	cfgKeyUpdateCRM             = "update_crm"
	cfgKeyDisableDataModelCheck = "disable_data_model_check"
)

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend                    string `yaml:"backend"`
	DataDir                    string `yaml:"data_dir,omitempty"`
	FixedCatalogSort           bool   `yaml:"fixed_catalog_sort"`
	DisableParticipantsCascade bool   `yaml:"disable_participants_cascade"`
	UpdateCRM                  bool   `yaml:"update_crm"`
	DisableDataModelCheck      bool   `yaml:"disable_data_model_check"`
}

// loadConfig reads config.yaml from configDir, writing a default file on
// first run. Environment variables prefixed CRMSTORE_ override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, paths.ConfigFileName)); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("CRMSTORE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values. An existing
// file is left alone.
func writeConfigIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&configFile{Backend: types.BackendSQLite})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// storeConfig builds the store configuration from the config file and the
// --data-dir flag.
func storeConfig(v *viper.Viper, dataDirFlag string) (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend:                    v.GetString(cfgKeyBackend),
		DataDir:                    dataDir,
		FixedCatalogSortBySortInfo: v.GetBool(cfgKeyFixedCatalogSort),
		DisableParticipantsCascade: v.GetBool(cfgKeyDisablePartCascade),
		UpdateCRM:                  v.GetBool(cfgKeyUpdateCRM),
		DisableDataModelCheck:      v.GetBool(cfgKeyDisableDataModelCheck),
	}
	return cfg, cfg.Validate()
}
