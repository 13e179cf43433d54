package sqlite

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// defaultIndexPrefix names indexes created without an explicit prefix.
const defaultIndexPrefix = "IX"

// indexName derives the index name from prefix, table and column specs so
// repeated requests map to the same index.
func indexName(prefix, table string, columns []string) string {
	if prefix == "" {
		prefix = defaultIndexPrefix
	}
	return prefix + "_" + table + "_" + strings.Join(columns, "_")
}

// indexColumn renders one column spec. A leading "d" marks a descending
// key and is stripped from the emitted column name.
func indexColumn(spec string) string {
	if name, ok := strings.CutPrefix(spec, "d"); ok && name != "" {
		return quoteIdent(name) + " DESC"
	}
	return quoteIdent(spec)
}

// createIndex creates the index over columns of table unless it already
// exists. It reports whether a CREATE INDEX statement ran.
func createIndex(db execer, log *slog.Logger, table, prefix string, columns []string) (bool, error) {
	if len(columns) == 0 {
		return false, types.ErrInvalidIndexColumns
	}

	name := indexName(prefix, table, columns)
	exists, err := indexExists(db, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = indexColumn(c)
	}
	ddl := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", quoteIdent(name), quoteIdent(table), strings.Join(cols, ", "))
	log.Debug("executing DDL", "statement", ddl)
	if _, err := db.Exec(ddl); err != nil {
		return false, fmt.Errorf("creating index %s: %w", name, err)
	}
	return true, nil
}
