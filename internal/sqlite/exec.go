package sqlite

import "database/sql"

// execer is the subset of database/sql used by the store internals. Both
// *sql.DB and *sql.Tx satisfy it.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// withTx begins a transaction, runs fn with it, and commits when fn succeeds.
// When fn fails the transaction is rolled back and fn's error returned.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func optionalString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func optionalInt(ni sql.NullInt64, fallback int) int {
	if !ni.Valid {
		return fallback
	}
	return int(ni.Int64)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
