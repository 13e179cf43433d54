package types

import "errors"

// DataStore is the offline CRM store used by the rest of the application.
// Callers attach to a backend, read and write records, and detach when done.
type DataStore interface {
	// Attach opens the store described by config and brings its schema
	// up to date. Returns ErrAlreadyAttached if called twice.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// TableInfo returns the data model of an info area.
	TableInfo(infoAreaID string) (*TableInfo, bool)

	// StoreDataDictionary replaces the persisted data model and reloads it.
	StoreDataDictionary(dict *DataDictionary) error

	// ResetDataModel discards the in-memory data model and reloads it.
	ResetDataModel() error

	// UpdateDDL re-runs the schema migration and aligns all info-area tables.
	UpdateDDL() error

	// CreateRecord inserts a new record, generating an offline id when the
	// record has none. Returns the record id used.
	CreateRecord(rec *CRMRecord) (string, error)

	// SaveRecord inserts or updates a record.
	SaveRecord(rec *CRMRecord) error

	// SaveRecords writes a batch in one transaction and returns how many
	// records were written. Unmappable records are skipped.
	SaveRecords(recs []*CRMRecord) (int, error)

	// UndoRecord restores the old field values of a record.
	UndoRecord(rec *CRMRecord) error

	// ReadRecord loads a record back into its loosely typed form. An empty
	// fieldIDs list reads every declared field.
	ReadRecord(rid RecordIdentification, fieldIDs []int) (*CRMRecord, error)

	// DeleteRecord removes a record and its participants rows.
	DeleteRecord(rid RecordIdentification) error

	// ReportSync records a sync checkpoint for a dataset.
	ReportSync(dataset string, recordCount int, fullSyncTimestamp, lastSyncTimestamp, infoAreaID string) error

	// LastSyncOf returns the last sync timestamp of a dataset. The bool is
	// false when the dataset never synced.
	LastSyncOf(dataset string) (string, bool, error)

	// CreateIndexFor creates an index on one field. Returns false when the
	// index already existed.
	CreateIndexFor(infoAreaID string, fieldID int, prefix string) (bool, error)

	// UpdateLinksFromRecordIDToRecordID points the selected link columns
	// from one record to another in one transaction and returns the number
	// of rows changed.
	UpdateLinksFromRecordIDToRecordID(updates []LinkRecordUpdate, from, to RecordIdentification) (int64, error)
}

// DataStore lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrSchemaInit      = errors.New("schema initialization failed")
)

// Data access errors.
var (
	ErrNotFound                    = errors.New("entity not found")
	ErrInvalidData                 = errors.New("invalid entity data")
	ErrUnknownInfoArea             = errors.New("unknown info area")
	ErrUnknownField                = errors.New("unknown field")
	ErrUnknownLink                 = errors.New("unknown link")
	ErrUnmappableRecord            = errors.New("record cannot be mapped to the data model")
	ErrInvalidRecordIdentification = errors.New("invalid record identification")
	ErrInvalidIndexColumns         = errors.New("index needs at least one column")
)

// ResultCode converts an operation result to the numeric form used by the
// server protocol: 0 for success, 1 for failure.
func ResultCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}
