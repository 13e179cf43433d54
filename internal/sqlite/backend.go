package sqlite

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// DatabaseFileName is the SQLite file created in Config.DataDir.
const DatabaseFileName = "crm.db"

// offlineRecordIDPrefix marks record ids assigned while offline.
const offlineRecordIDPrefix = "new"

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for schema changes and skipped records.
func WithLogger(log *slog.Logger) Option {
	return func(b *Backend) {
		if log != nil {
			b.log = log
		}
	}
}

// Backend implements types.DataStore on a single SQLite file. mu guards the
// attachment state and the component pointers; lock is the store lock shared
// with the migrator and the sync ledger and serializes every DDL and DML path.
type Backend struct {
	mu       sync.RWMutex
	lock     sync.Mutex
	attached bool
	config   types.Config
	dbPath   string
	db       *sql.DB
	log      *slog.Logger

	migrator *Migrator
	catalog  *Catalog
	resolver *VirtualLinkResolver
	mapper   *RecordMapper
	ledger   *SyncLedger
}

var _ types.DataStore = (*Backend)(nil)

// NewBackend creates a detached backend. Call Attach with a Config to open it.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens DataDir/crm.db, creating DataDir when needed, brings the
// schema up to date and loads the data model. Returns ErrAlreadyAttached if
// already attached and an error wrapping ErrSchemaInit when the schema
// cannot be initialized.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	b.config = config
	b.dbPath = filepath.Join(dataDir, DatabaseFileName)
	if err := b.openLocked(); err != nil {
		return err
	}
	b.attached = true
	b.log.Info("store attached", "path", b.dbPath)
	return nil
}

// openLocked opens the database file, runs the migrator and loads the
// catalog. The virtual record cache survives reopening.
func (b *Backend) openLocked() error {
	db, err := sql.Open("sqlite", b.dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", b.dbPath, err)
	}
	db.SetMaxOpenConns(1)

	migrator := newMigrator(db, &b.lock, b.log)
	if err := migrator.ensureSchemaLocked(); err != nil {
		db.Close()
		return err
	}

	catalog, err := loadCatalog(db, virtualLinkTable(b.config.UpdateCRM))
	if err != nil {
		db.Close()
		return fmt.Errorf("loading data model: %w", err)
	}

	b.db = db
	b.migrator = migrator
	b.ledger = newSyncLedger(db, &b.lock)
	b.setCatalogLocked(catalog)
	return nil
}

func (b *Backend) setCatalogLocked(c *Catalog) {
	b.catalog = c
	if b.resolver == nil {
		b.resolver = newVirtualLinkResolver(c)
	} else {
		b.resolver.setCatalog(c)
	}
	b.mapper = newRecordMapper(c, b.resolver, b.config.DisableDataModelCheck, b.log)
}

func (b *Backend) reloadCatalogLocked() error {
	catalog, err := loadCatalog(b.db, virtualLinkTable(b.config.UpdateCRM))
	if err != nil {
		return fmt.Errorf("loading data model: %w", err)
	}
	b.setCatalogLocked(catalog)
	return nil
}

// Detach closes the database. After Detach every operation returns
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false
	return nil
}

// Recreate deletes the database file and creates a fresh schema in its place.
func (b *Backend) Recreate() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false
	if err := os.Remove(b.dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", b.dbPath, err)
	}
	b.log.Info("recreating store", "path", b.dbPath)
	if err := b.openLocked(); err != nil {
		return err
	}
	b.attached = true
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// TableInfo returns the data model of an info area.
func (b *Backend) TableInfo(infoAreaID string) (*types.TableInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, false
	}
	return b.catalog.TableInfo(infoAreaID)
}

// FieldInfo returns one field of an info area.
func (b *Backend) FieldInfo(infoAreaID string, fieldID int) (types.FieldInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.FieldInfo{}, false
	}
	return b.catalog.FieldInfo(infoAreaID, fieldID)
}

// LinkInfo returns the link from infoAreaID to targetInfoAreaID with linkID.
func (b *Backend) LinkInfo(infoAreaID, targetInfoAreaID string, linkID int) (types.LinkInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.LinkInfo{}, false
	}
	return b.catalog.LinkInfo(infoAreaID, targetInfoAreaID, linkID)
}

// CatalogInfo returns a fixed or variable catalog definition.
func (b *Backend) CatalogInfo(nr int, fixed bool) (types.CatalogInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.CatalogInfo{}, false
	}
	return b.catalog.CatalogInfo(nr, fixed)
}

// InfoAreaIDs returns the info areas of the loaded data model.
func (b *Backend) InfoAreaIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil
	}
	return b.catalog.InfoAreaIDs()
}

// StoreDataDictionary replaces the persisted data model with dict, creates
// or extends the info-area tables it describes and reloads the catalog.
func (b *Backend) StoreDataDictionary(dict *types.DataDictionary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	if dict == nil {
		return fmt.Errorf("%w: nil data dictionary", types.ErrInvalidData)
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if err := withTx(b.db, func(tx *sql.Tx) error {
		return writeDataDictionary(tx, dict)
	}); err != nil {
		return fmt.Errorf("storing data dictionary: %w", err)
	}
	for i := range dict.Tables {
		if err := b.migrator.ensureInfoAreaTable(&dict.Tables[i]); err != nil {
			return err
		}
	}
	return b.reloadCatalogLocked()
}

// ResetDataModel discards the in-memory data model and reloads it from
// the dictionary tables.
func (b *Backend) ResetDataModel() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return b.reloadCatalogLocked()
}

// UpdateDDL re-runs the schema migration, reloads the data model and
// aligns every info-area table with it.
func (b *Backend) UpdateDDL() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.migrator.ensureSchemaLocked(); err != nil {
		return err
	}
	if err := b.reloadCatalogLocked(); err != nil {
		return err
	}
	for _, id := range b.catalog.InfoAreaIDs() {
		t, _ := b.catalog.TableInfo(id)
		if err := b.migrator.ensureInfoAreaTable(t); err != nil {
			return err
		}
	}
	return nil
}

// SetHasLookup updates the has-lookup flag of an info area in memory and on disk.
func (b *Backend) SetHasLookup(infoAreaID string, hasLookup bool) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if err := writeHasLookup(b.db, infoAreaID, hasLookup); err != nil {
		return err
	}
	b.catalog.setHasLookup(infoAreaID, hasLookup)
	return nil
}

// generateRecordID returns a new offline record id.
func generateRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return offlineRecordIDPrefix + uuid.New().String()
	}
	return offlineRecordIDPrefix + id.String()
}

// CreateRecord writes a new record. A record without an id gets an offline
// id. The id used is returned.
func (b *Backend) CreateRecord(rec *types.CRMRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: nil record", types.ErrInvalidData)
	}
	created := *rec
	created.Mode = types.RecordModeNew
	if created.RecordID == "" {
		created.RecordID = generateRecordID()
	}
	if err := b.writeRecord(&created, false); err != nil {
		return "", err
	}
	return created.RecordID, nil
}

// SaveRecord inserts or updates a record together with its participants rows.
func (b *Backend) SaveRecord(rec *types.CRMRecord) error {
	return b.writeRecord(rec, false)
}

// UndoRecord writes the old values of rec back to its row.
func (b *Backend) UndoRecord(rec *types.CRMRecord) error {
	return b.writeRecord(rec, true)
}

func (b *Backend) writeRecord(rec *types.CRMRecord, undo bool) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	r, ok := b.mapper.BuildRecord(rec, undo)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnmappableRecord, recordLabel(rec))
	}
	return withTx(b.db, func(tx *sql.Tx) error {
		return r.Execute(tx)
	})
}

// SaveRecords writes a batch of records in one transaction. Records that
// cannot be mapped are skipped; the count of written records is returned.
func (b *Backend) SaveRecords(recs []*types.CRMRecord) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return 0, types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	records := make([]*Record, 0, len(recs))
	for _, rec := range recs {
		r, ok := b.mapper.BuildRecord(rec, false)
		if !ok {
			b.log.Warn("skipping unmappable record", "record", recordLabel(rec))
			continue
		}
		records = append(records, r)
	}

	err := withTx(b.db, func(tx *sql.Tx) error {
		for _, r := range records {
			if err := r.Execute(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func recordLabel(rec *types.CRMRecord) string {
	if rec == nil {
		return "<nil>"
	}
	return rec.Identification().String()
}

// ReadRecord loads a record back into its CRM form.
func (b *Backend) ReadRecord(rid types.RecordIdentification, fieldIDs []int) (*types.CRMRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	t, ok := b.catalog.TableInfo(rid.InfoAreaID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownInfoArea, rid.InfoAreaID)
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return readRecord(b.db, t, rid.RecordID, fieldIDs)
}

// DeleteRecord removes a record and, unless the participants cascade is
// disabled, its participants rows. Returns ErrNotFound when no row matched;
// leftover participants rows are removed in that case too.
func (b *Backend) DeleteRecord(rid types.RecordIdentification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	t, ok := b.catalog.TableInfo(rid.InfoAreaID)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownInfoArea, rid.InfoAreaID)
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	var found bool
	err := withTx(b.db, func(tx *sql.Tx) error {
		var err error
		found, err = deleteRecord(tx, t, rid.RecordID, !b.config.DisableParticipantsCascade)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", types.ErrNotFound, rid)
	}
	return nil
}

// CreateIndexFor creates an index on one field of an info area. It returns
// false when the index already existed.
func (b *Backend) CreateIndexFor(infoAreaID string, fieldID int, prefix string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return false, types.ErrStoreDetached
	}
	f, ok := b.catalog.FieldInfo(infoAreaID, fieldID)
	if !ok {
		return false, fmt.Errorf("%w: %s.%d", types.ErrUnknownField, infoAreaID, fieldID)
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return createIndex(b.db, b.log, types.TablePrefix+infoAreaID, prefix, []string{f.ColumnName()})
}

// CreateIndex creates an index on explicit columns of an info-area table.
// A column prefixed with "d" is indexed descending.
func (b *Backend) CreateIndex(infoAreaID, prefix string, columns []string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return false, types.ErrStoreDetached
	}
	if _, ok := b.catalog.TableInfo(infoAreaID); !ok {
		return false, fmt.Errorf("%w: %s", types.ErrUnknownInfoArea, infoAreaID)
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return createIndex(b.db, b.log, types.TablePrefix+infoAreaID, prefix, columns)
}

// UpdateLinksFromRecordIDToRecordID points the selected link columns from
// one record to another in a single transaction and returns the number of
// rows changed. Generic links also get their discriminator rewritten.
func (b *Backend) UpdateLinksFromRecordIDToRecordID(updates []types.LinkRecordUpdate, from, to types.RecordIdentification) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return 0, types.ErrStoreDetached
	}
	if from.IsEmpty() || to.IsEmpty() {
		return 0, fmt.Errorf("%w: %s -> %s", types.ErrInvalidRecordIdentification, from, to)
	}
	resolved := make([]types.LinkRecordUpdate, len(updates))
	for i, u := range updates {
		l, ok := b.catalog.LinkInfo(u.Link.InfoAreaID, u.Link.TargetInfoAreaID, u.Link.LinkID)
		if !ok {
			return 0, fmt.Errorf("%w: %s->%s#%d", types.ErrUnknownLink, u.Link.InfoAreaID, u.Link.TargetInfoAreaID, u.Link.LinkID)
		}
		resolved[i] = types.LinkRecordUpdate{Link: l, RecordIDs: u.RecordIDs}
	}

	fromArea := b.resolver.RootPhysicalInfoAreaID(from.InfoAreaID)
	toArea := b.resolver.RootPhysicalInfoAreaID(to.InfoAreaID)

	b.lock.Lock()
	defer b.lock.Unlock()

	var n int64
	err := withTx(b.db, func(tx *sql.Tx) error {
		var err error
		n, err = rewriteLinks(tx, resolved, from.RecordID, to.RecordID, fromArea, toArea)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// StoreCatalogValues replaces the values of every catalog present in values.
func (b *Backend) StoreCatalogValues(values []types.CatalogValue) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return withTx(b.db, func(tx *sql.Tx) error {
		return writeCatalogValues(tx, values)
	})
}

// CatalogValues returns the values of a catalog in display order.
func (b *Backend) CatalogValues(nr int, fixed bool) ([]types.CatalogValue, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return readCatalogValues(b.db, nr, fixed, b.config.FixedCatalogSortBySortInfo)
}

// DependentCatalogValues returns the values of a dependent variable
// catalog that belong to parentCode.
func (b *Backend) DependentCatalogValues(nr, parentCode int) ([]types.CatalogValue, error) {
	values, err := b.CatalogValues(nr, false)
	if err != nil {
		return nil, err
	}
	var out []types.CatalogValue
	for _, v := range values {
		if v.ParentCode == parentCode {
			out = append(out, v)
		}
	}
	return out, nil
}

// ReportSync records a sync checkpoint for a dataset.
func (b *Backend) ReportSync(dataset string, recordCount int, fullSyncTimestamp, lastSyncTimestamp, infoAreaID string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	return b.ledger.ReportSync(dataset, recordCount, fullSyncTimestamp, lastSyncTimestamp, infoAreaID)
}

// LastSyncOf returns the last sync timestamp of a dataset.
func (b *Backend) LastSyncOf(dataset string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return "", false, types.ErrStoreDetached
	}
	return b.ledger.LastSyncOf(dataset)
}

// SyncRecords returns every sync checkpoint.
func (b *Backend) SyncRecords() ([]types.SyncRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.ledger.SyncRecords()
}

// SyncRecordOf returns the checkpoint of one dataset.
func (b *Backend) SyncRecordOf(dataset string) (types.SyncRecord, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.SyncRecord{}, false, types.ErrStoreDetached
	}
	return b.ledger.SyncRecordOf(dataset)
}

// StoreRollbackInfo appends rollback entries in one transaction.
func (b *Backend) StoreRollbackInfo(infos ...types.RollbackInfo) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return withTx(b.db, func(tx *sql.Tx) error {
		for _, info := range infos {
			if err := writeRollbackInfo(tx, info); err != nil {
				return err
			}
		}
		return nil
	})
}

// RollbackInfos returns the rollback entries of a request in insertion order.
func (b *Backend) RollbackInfos(requestNr int) ([]types.RollbackInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return readRollbackInfos(b.db, requestNr)
}

// DeleteRollbackInfo removes the rollback entries of a request.
func (b *Backend) DeleteRollbackInfo(requestNr int) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	return deleteRollbackInfos(b.db, requestNr)
}

// DataModelVersion returns the schema version of the datamodel row.
func (b *Backend) DataModelVersion() string {
	return b.properties().Version
}

// TimeZone returns the time zone of the data model.
func (b *Backend) TimeZone() string {
	return b.properties().TimeZone
}

// UTCOffset returns the UTC offset of the data model.
func (b *Backend) UTCOffset() int {
	return b.properties().UTCOffset
}

func (b *Backend) properties() types.DataModelProperties {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.DataModelProperties{}
	}
	return b.migrator.Properties()
}

// SetTimeZone persists the time zone and UTC offset of the data model.
func (b *Backend) SetTimeZone(timeZone string, utcOffset int) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	return b.migrator.SetTimeZone(timeZone, utcOffset)
}

// RootPhysicalInfoAreaID returns the physical info area behind a possibly
// virtual one.
func (b *Backend) RootPhysicalInfoAreaID(infoAreaID string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return infoAreaID
	}
	return b.resolver.RootPhysicalInfoAreaID(infoAreaID)
}

// VirtualInfoAreaIDForRecord returns the info area a record is grouped under.
func (b *Backend) VirtualInfoAreaIDForRecord(rid types.RecordIdentification) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return rid.InfoAreaID
	}
	return b.resolver.VirtualInfoAreaIDForRecord(rid)
}

// RegisterMove records that rid moved from another info area.
func (b *Backend) RegisterMove(rid types.RecordIdentification, movedFromInfoAreaID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return "", false
	}
	return b.resolver.RegisterMove(rid, movedFromInfoAreaID)
}

// SetVirtualInfoAreaForRecord overrides the virtual info area of a record.
func (b *Backend) SetVirtualInfoAreaForRecord(rid types.RecordIdentification, virtualInfoAreaID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return false
	}
	return b.catalog.SetVirtualInfoAreaForRecord(rid.InfoAreaID, rid.RecordID, virtualInfoAreaID)
}
