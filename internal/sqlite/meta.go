package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// tableMetaInfo is the physical column layout of one table.
type tableMetaInfo struct {
	name    string
	columns []string
	byName  map[string]bool
}

// hasColumn reports whether the table has the column. SQLite column names
// are case-insensitive.
func (m *tableMetaInfo) hasColumn(name string) bool {
	return m.byName[strings.ToLower(name)]
}

// missingColumns returns the entries of want that the table lacks.
func (m *tableMetaInfo) missingColumns(want []columnDef) []columnDef {
	var missing []columnDef
	for _, c := range want {
		if !m.hasColumn(c.name) {
			missing = append(missing, c)
		}
	}
	return missing
}

// tableExists reports whether a table with the given name exists.
func tableExists(db execer, name string) (bool, error) {
	return masterEntryExists(db, "table", name)
}

// indexExists reports whether an index with the given name exists.
func indexExists(db execer, name string) (bool, error) {
	return masterEntryExists(db, "index", name)
}

func masterEntryExists(db execer, kind, name string) (bool, error) {
	var found string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = ? AND name = ?", kind, name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s %s: %w", kind, name, err)
	}
	return true, nil
}

// readTableMetaInfo introspects the columns of a table. A missing table
// yields an empty column set.
func readTableMetaInfo(db execer, name string) (*tableMetaInfo, error) {
	rows, err := db.Query("PRAGMA table_info(" + quoteIdent(name) + ")")
	if err != nil {
		return nil, fmt.Errorf("reading table info of %s: %w", name, err)
	}
	defer rows.Close()

	meta := &tableMetaInfo{name: name, byName: make(map[string]bool)}
	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning table info of %s: %w", name, err)
		}
		meta.columns = append(meta.columns, colName)
		meta.byName[strings.ToLower(colName)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating table info of %s: %w", name, err)
	}
	return meta, nil
}
