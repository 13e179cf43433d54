package sqlite

import (
	"fmt"
	"strings"
)

// RecordTemplate is the column layout of one physical write: the field ids
// and link column names in the order their values are bound.
type RecordTemplate struct {
	table       string
	fieldIDs    []int
	linkColumns []string
	columns     []string
}

func newRecordTemplate(table string, fieldIDs []int, fieldColumns, linkColumns []string) *RecordTemplate {
	cols := make([]string, 0, len(fieldColumns)+len(linkColumns))
	cols = append(cols, fieldColumns...)
	cols = append(cols, linkColumns...)
	return &RecordTemplate{
		table:       table,
		fieldIDs:    fieldIDs,
		linkColumns: linkColumns,
		columns:     cols,
	}
}

// Table returns the physical table the template writes to.
func (t *RecordTemplate) Table() string { return t.table }

// FieldIDs returns the bound field ids in order.
func (t *RecordTemplate) FieldIDs() []int { return t.fieldIDs }

// LinkColumns returns the bound link columns in order.
func (t *RecordTemplate) LinkColumns() []string { return t.linkColumns }

// Columns returns every bound column: fields first, then links.
func (t *RecordTemplate) Columns() []string { return t.columns }

func (t *RecordTemplate) upsertStatement() string {
	if len(t.columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s (recid) VALUES (?) ON CONFLICT(recid) DO NOTHING", quoteIdent(t.table))
	}

	names := make([]string, 0, len(t.columns)+1)
	marks := make([]string, 0, len(t.columns)+1)
	sets := make([]string, 0, len(t.columns))
	names = append(names, "recid")
	marks = append(marks, "?")
	for _, c := range t.columns {
		q := quoteIdent(c)
		names = append(names, q)
		marks = append(marks, "?")
		sets = append(sets, q+" = excluded."+q)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(recid) DO UPDATE SET %s",
		quoteIdent(t.table), strings.Join(names, ", "), strings.Join(marks, ", "), strings.Join(sets, ", "))
}

func (t *RecordTemplate) updateStatement() string {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = quoteIdent(c) + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE recid = ?", quoteIdent(t.table), strings.Join(sets, ", "))
}

// participantsWrite replaces the side-table rows of one participants field.
type participantsWrite struct {
	table  string
	values []string
}

// Record is one bound physical write built by RecordMapper. It is executed
// once and discarded.
type Record struct {
	template     *RecordTemplate
	recordID     string
	values       []any
	undo         bool
	participants []participantsWrite
}

// RecordID returns the id of the row the record writes.
func (r *Record) RecordID() string { return r.recordID }

// Template returns the record's column layout.
func (r *Record) Template() *RecordTemplate { return r.template }

// Values returns the bound values in template order.
func (r *Record) Values() []any { return r.values }

// Undo reports whether the record restores old values.
func (r *Record) Undo() bool { return r.undo }

// Execute writes the record with db, which is usually the caller's
// transaction. A normal record is inserted or updated; an undo record only
// updates an existing row.
func (r *Record) Execute(db execer) error {
	if r.undo {
		if len(r.template.columns) > 0 {
			args := append(append([]any{}, r.values...), r.recordID)
			if _, err := db.Exec(r.template.updateStatement(), args...); err != nil {
				return fmt.Errorf("updating %s %s: %w", r.template.table, r.recordID, err)
			}
		}
	} else {
		args := append([]any{r.recordID}, r.values...)
		if _, err := db.Exec(r.template.upsertStatement(), args...); err != nil {
			return fmt.Errorf("writing %s %s: %w", r.template.table, r.recordID, err)
		}
	}

	for _, p := range r.participants {
		if err := p.execute(db, r.recordID); err != nil {
			return err
		}
	}
	return nil
}

func (p participantsWrite) execute(db execer, recordID string) error {
	if _, err := db.Exec("DELETE FROM "+quoteIdent(p.table)+" WHERE recid = ?", recordID); err != nil {
		return fmt.Errorf("clearing %s %s: %w", p.table, recordID, err)
	}
	for nr, v := range p.values {
		if _, err := db.Exec(
			"INSERT INTO "+quoteIdent(p.table)+" (recid, nr, value) VALUES (?, ?, ?)", recordID, nr, v,
		); err != nil {
			return fmt.Errorf("writing %s %s/%d: %w", p.table, recordID, nr, err)
		}
	}
	return nil
}
