// This file implements the schema migrator: fresh creation of the core
// tables and additive ALTER TABLE migrations of existing databases.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// Migrator keeps the physical schema in line with the current data model.
// It shares the store lock with the rest of the backend.
type Migrator struct {
	db    execer
	lock  *sync.Mutex
	log   *slog.Logger
	props types.DataModelProperties
}

func newMigrator(db execer, lock *sync.Mutex, log *slog.Logger) *Migrator {
	return &Migrator{db: db, lock: lock, log: log}
}

// EnsureSchema creates the core tables on an empty database, or adds every
// column the current schema needs to an existing one. Any DDL failure aborts
// the phase and is returned wrapped in types.ErrSchemaInit. Running it twice
// in a row issues no further DDL.
func (m *Migrator) EnsureSchema() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.ensureSchemaLocked()
}

// Properties returns the datamodel values read by the last EnsureSchema.
func (m *Migrator) Properties() types.DataModelProperties {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.props
}

// SetTimeZone persists the time zone and UTC offset of the data model.
func (m *Migrator) SetTimeZone(timeZone string, utcOffset int) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, err := m.db.Exec(
		"UPDATE datamodel SET timezone = ?, utctimeoffset = ?", nullString(timeZone), utcOffset,
	); err != nil {
		return fmt.Errorf("updating time zone: %w", err)
	}
	m.props.TimeZone = timeZone
	m.props.UTCOffset = utcOffset
	return nil
}

func (m *Migrator) ensureSchemaLocked() error {
	exists, err := tableExists(m.db, tableTableInfo)
	if err != nil {
		return m.fail(err)
	}

	if !exists {
		err = m.createSchema()
	} else {
		err = m.migrateSchema()
	}
	if err != nil {
		return m.fail(err)
	}

	if err := m.ensureRollbackTable(); err != nil {
		return m.fail(err)
	}

	props, err := readDataModelProperties(m.db)
	if err != nil {
		return m.fail(err)
	}
	m.props = props
	return nil
}

func (m *Migrator) fail(err error) error {
	m.log.Error("schema initialization failed", "error", err)
	return fmt.Errorf("%w: %w", types.ErrSchemaInit, err)
}

// createSchema creates all core tables in dependency order and writes the
// bootstrap datamodel row.
func (m *Migrator) createSchema() error {
	m.log.Info("creating database schema", "version", SchemaVersion)
	for _, ct := range schemaDDL {
		if err := m.execDDL(ct.ddl); err != nil {
			return fmt.Errorf("creating table %s: %w", ct.name, err)
		}
	}
	return m.insertBootstrapRow()
}

// migrateSchema walks every core table, creates the ones that are missing
// and adds the columns later releases introduced.
func (m *Migrator) migrateSchema() error {
	for _, ct := range schemaDDL {
		meta, err := readTableMetaInfo(m.db, ct.name)
		if err != nil {
			return err
		}

		if len(meta.columns) == 0 {
			if err := m.execDDL(ct.ddl); err != nil {
				return fmt.Errorf("creating table %s: %w", ct.name, err)
			}
			if ct.name == tableDataModel {
				if err := m.insertBootstrapRow(); err != nil {
					return err
				}
			}
			continue
		}

		for _, col := range meta.missingColumns(migrationColumns(ct.name)) {
			ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", ct.name, col.name, col.sqlType)
			if err := m.execDDL(ddl); err != nil {
				return fmt.Errorf("adding column %s.%s: %w", ct.name, col.name, err)
			}
			if ct.name == tableSyncInfo && col.name == "infoareaid" {
				if err := m.backfillSyncInfoAreas(); err != nil {
					return err
				}
			}
		}
	}

	return m.ensureDataModelRow()
}

func (m *Migrator) ensureRollbackTable() error {
	exists, err := tableExists(m.db, tableRollbackInfo)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := m.execDDL(createRollbackInfo); err != nil {
		return fmt.Errorf("creating table %s: %w", tableRollbackInfo, err)
	}
	return nil
}

func (m *Migrator) execDDL(ddl string) error {
	m.log.Debug("executing DDL", "statement", ddl)
	_, err := m.db.Exec(ddl)
	return err
}

func (m *Migrator) insertBootstrapRow() error {
	if _, err := m.db.Exec("INSERT INTO datamodel (version) VALUES (?)", SchemaVersion); err != nil {
		return fmt.Errorf("writing datamodel row: %w", err)
	}
	return nil
}

func (m *Migrator) ensureDataModelRow() error {
	var n int
	if err := m.db.QueryRow("SELECT COUNT(*) FROM datamodel").Scan(&n); err != nil {
		return fmt.Errorf("counting datamodel rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	return m.insertBootstrapRow()
}

// backfillSyncInfoAreas derives the info-area id of existing sync rows from
// their dataset names.
func (m *Migrator) backfillSyncInfoAreas() error {
	rows, err := m.db.Query("SELECT datasetname FROM syncinfo")
	if err != nil {
		return fmt.Errorf("reading sync datasets: %w", err)
	}
	var datasets []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scanning sync dataset: %w", err)
		}
		datasets = append(datasets, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating sync datasets: %w", err)
	}
	rows.Close()

	for _, name := range datasets {
		if _, err := m.db.Exec(
			"UPDATE syncinfo SET infoareaid = ? WHERE datasetname = ?",
			nullString(infoAreaFromDatasetName(name)), name,
		); err != nil {
			return fmt.Errorf("backfilling info area of %s: %w", name, err)
		}
	}
	return nil
}

// migrationColumns returns the columns added to table after its first release.
func migrationColumns(table string) []columnDef {
	for _, mig := range columnMigrations {
		if mig.table == table {
			return mig.columns
		}
	}
	return nil
}

// infoAreaFromDatasetName returns the leading alphanumeric run of a dataset
// name ("FI.offline" -> "FI").
func infoAreaFromDatasetName(name string) string {
	end := strings.IndexFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if end < 0 {
		return name
	}
	return name[:end]
}

func readDataModelProperties(db execer) (types.DataModelProperties, error) {
	var (
		version  sql.NullString
		timeZone sql.NullString
		offset   sql.NullInt64
	)
	err := db.QueryRow("SELECT version, timezone, utctimeoffset FROM datamodel LIMIT 1").
		Scan(&version, &timeZone, &offset)
	if err == sql.ErrNoRows {
		return types.DataModelProperties{}, nil
	}
	if err != nil {
		return types.DataModelProperties{}, fmt.Errorf("reading datamodel properties: %w", err)
	}
	return types.DataModelProperties{
		Version:   optionalString(version),
		TimeZone:  optionalString(timeZone),
		UTCOffset: optionalInt(offset, 0),
	}, nil
}
