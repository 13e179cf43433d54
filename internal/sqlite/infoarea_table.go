package sqlite

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// Fixed columns of every info-area table.
var infoAreaBaseColumns = []columnDef{
	{"recid", "TEXT PRIMARY KEY"},
	{"title", "TEXT"},
	{"sync", "TEXT"},
	{"lookup", "INTEGER"},
}

// infoAreaColumns returns the data-driven columns of an info-area table:
// one per field, then one per physical link. Generic links get their
// info-area discriminator ahead of the record-id column.
func infoAreaColumns(t *types.TableInfo) []columnDef {
	seen := make(map[string]bool)
	var cols []columnDef
	add := func(name, sqlType string) {
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		cols = append(cols, columnDef{name, sqlType})
	}

	for _, f := range t.Fields {
		add(f.ColumnName(), f.Type.SQLType())
	}
	for _, l := range t.Links {
		if !l.HasColumn() {
			continue
		}
		if l.IsGeneric() {
			add(l.InfoAreaColumnName(), "TEXT")
		}
		add(l.ColumnName(), "TEXT")
	}
	return cols
}

// EnsureInfoAreaTable creates the physical table of an info area or adds
// the field and link columns it lacks, then creates its participants
// side-tables.
func (m *Migrator) EnsureInfoAreaTable(t *types.TableInfo) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.ensureInfoAreaTable(t)
}

func (m *Migrator) ensureInfoAreaTable(t *types.TableInfo) error {
	name := t.TableName()
	meta, err := readTableMetaInfo(m.db, name)
	if err != nil {
		return err
	}

	cols := infoAreaColumns(t)
	if len(meta.columns) == 0 {
		defs := make([]string, 0, len(infoAreaBaseColumns)+len(cols))
		for _, c := range append(append([]columnDef{}, infoAreaBaseColumns...), cols...) {
			defs = append(defs, quoteIdent(c.name)+" "+c.sqlType)
		}
		ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
		if err := m.execDDL(ddl); err != nil {
			return fmt.Errorf("creating table %s: %w", name, err)
		}
	} else {
		for _, c := range meta.missingColumns(cols) {
			ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(name), quoteIdent(c.name), c.sqlType)
			if err := m.execDDL(ddl); err != nil {
				return fmt.Errorf("adding column %s.%s: %w", name, c.name, err)
			}
		}
	}

	for _, f := range t.ParticipantsFields() {
		part := t.ParticipantsTableName(f)
		exists, err := tableExists(m.db, part)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		ddl := fmt.Sprintf(
			"CREATE TABLE %s (recid TEXT NOT NULL, nr INTEGER NOT NULL, value TEXT, PRIMARY KEY (recid, nr))",
			quoteIdent(part),
		)
		if err := m.execDDL(ddl); err != nil {
			return fmt.Errorf("creating table %s: %w", part, err)
		}
	}
	return nil
}
