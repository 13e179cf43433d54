package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// rewriteLinks points the selected link columns from one record to another
// and returns the number of rows changed. fromArea and toArea are the
// physical info areas written to generic link discriminators.
func rewriteLinks(db execer, updates []types.LinkRecordUpdate, fromID, toID, fromArea, toArea string) (int64, error) {
	var total int64
	for _, u := range updates {
		if !u.Link.HasColumn() {
			continue
		}
		table := quoteIdent(types.TablePrefix + u.Link.InfoAreaID)
		col := quoteIdent(u.Link.ColumnName())

		set := col + " = ?"
		where := col + " = ?"
		args := []any{toID}
		whereArgs := []any{fromID}
		if u.Link.IsGeneric() {
			area := quoteIdent(u.Link.InfoAreaColumnName())
			set += ", " + area + " = ?"
			args = append(args, toArea)
			where += " AND " + area + " = ?"
			whereArgs = append(whereArgs, fromArea)
		}
		query := "UPDATE " + table + " SET " + set + " WHERE " + where

		if len(u.RecordIDs) == 0 {
			n, err := execCount(db, query, append(args, whereArgs...)...)
			if err != nil {
				return total, fmt.Errorf("rewriting %s.%s: %w", u.Link.InfoAreaID, u.Link.ColumnName(), err)
			}
			total += n
			continue
		}

		query += " AND recid = ?"
		for _, recID := range u.RecordIDs {
			callArgs := append(append(append([]any{}, args...), whereArgs...), recID)
			n, err := execCount(db, query, callArgs...)
			if err != nil {
				return total, fmt.Errorf("rewriting %s.%s of %s: %w", u.Link.InfoAreaID, u.Link.ColumnName(), recID, err)
			}
			total += n
		}
	}
	return total, nil
}

func execCount(db execer, query string, args ...any) (int64, error) {
	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
