package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// deleteRecord removes the row of recordID from t and, when cascade is set,
// its rows in every participants side-table of t. The side-tables are
// cleared even when the main row is gone. found reports whether the main
// row existed.
func deleteRecord(db execer, t *types.TableInfo, recordID string, cascade bool) (found bool, err error) {
	if cascade {
		for _, f := range t.ParticipantsFields() {
			part := t.ParticipantsTableName(f)
			if _, err := db.Exec("DELETE FROM "+quoteIdent(part)+" WHERE recid = ?", recordID); err != nil {
				return false, fmt.Errorf("deleting %s rows of %s: %w", part, recordID, err)
			}
		}
	}

	n, err := execCount(db, "DELETE FROM "+quoteIdent(t.TableName())+" WHERE recid = ?", recordID)
	if err != nil {
		return false, fmt.Errorf("deleting %s.%s: %w", t.InfoAreaID, recordID, err)
	}
	return n > 0, nil
}
