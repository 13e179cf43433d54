package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// readRecord loads one row of t back into a CRM record. An empty fieldIDs
// list reads every declared field. Every link with a physical column whose
// value is set comes back as a record link.
func readRecord(db execer, t *types.TableInfo, recordID string, fieldIDs []int) (*types.CRMRecord, error) {
	var fields []types.FieldInfo
	if len(fieldIDs) == 0 {
		fields = t.Fields
	} else {
		for _, id := range fieldIDs {
			f, ok := t.FieldByID(id)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%d", types.ErrUnknownField, t.InfoAreaID, id)
			}
			fields = append(fields, f)
		}
	}

	var links []types.LinkInfo
	for _, l := range t.Links {
		if l.HasColumn() {
			links = append(links, l)
		}
	}

	cols := []string{"recid"}
	for _, f := range fields {
		cols = append(cols, quoteIdent(f.ColumnName()))
	}
	for _, l := range links {
		if l.IsGeneric() {
			cols = append(cols, quoteIdent(l.InfoAreaColumnName()))
		}
		cols = append(cols, quoteIdent(l.ColumnName()))
	}

	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE recid = ?", strings.Join(cols, ", "), quoteIdent(t.TableName()))
	err := db.QueryRow(query, recordID).Scan(ptrs...)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s.%s: %w", t.InfoAreaID, recordID, err)
	}

	rec := &types.CRMRecord{InfoAreaID: t.InfoAreaID, RecordID: recordID, Mode: types.RecordModeUpdate}
	i := 1
	for _, f := range fields {
		rec.Fields = append(rec.Fields, types.FieldValue{FieldID: f.FieldID, Value: stringValue(f.Type, dest[i])})
		i++
	}
	for _, l := range links {
		target := l.TargetInfoAreaID
		if l.IsGeneric() {
			if v := stringValue(types.FieldTypeChar, dest[i]); v != "" {
				target = v
			}
			i++
		}
		id := stringValue(types.FieldTypeChar, dest[i])
		i++
		if id == "" {
			continue
		}
		rec.Links = append(rec.Links, types.RecordLink{InfoAreaID: target, LinkID: l.LinkID, RecordID: id})
	}
	return rec, nil
}
