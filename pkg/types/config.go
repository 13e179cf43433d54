package types

import "errors"

// Config holds backend selection and behavior flags for DataStore.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// FixedCatalogSortBySortInfo orders fixed catalog values by sort info,
	// then code. When false they are ordered by code only.
	FixedCatalogSortBySortInfo bool `json:"fixed_catalog_sort" yaml:"fixed_catalog_sort"`

	// DisableParticipantsCascade stops DeleteRecord from clearing the
	// participants side-tables of the deleted record.
	DisableParticipantsCascade bool `json:"disable_participants_cascade" yaml:"disable_participants_cascade"`

	// UpdateCRM enables the additional project and contact-person virtual links.
	UpdateCRM bool `json:"update_crm" yaml:"update_crm"`

	// DisableDataModelCheck writes fields that the data model does not declare.
	DisableDataModelCheck bool `json:"disable_data_model_check" yaml:"disable_data_model_check"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}
