package sqlite

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// dictionaryTables are cleared before a data dictionary is written.
var dictionaryTables = []string{
	tableTableInfo, tableFieldInfo, tableLinkInfo, tableLinkFields, tableVarCatInfo, tableFixCatInfo,
}

// writeDataDictionary replaces the dictionary rows with dict.
func writeDataDictionary(db execer, dict *types.DataDictionary) error {
	for _, name := range dictionaryTables {
		if _, err := db.Exec("DELETE FROM " + name); err != nil {
			return fmt.Errorf("clearing %s: %w", name, err)
		}
	}

	for i := range dict.Tables {
		t := &dict.Tables[i]
		if err := writeTableInfo(db, t); err != nil {
			return err
		}
		for _, f := range t.Fields {
			f.InfoAreaID = t.InfoAreaID
			if err := writeFieldInfo(db, f); err != nil {
				return err
			}
		}
		for _, l := range t.Links {
			l.InfoAreaID = t.InfoAreaID
			if err := writeLinkInfo(db, l); err != nil {
				return err
			}
		}
	}

	for _, c := range dict.Catalogs {
		if err := writeCatalogInfo(db, c); err != nil {
			return err
		}
	}
	return writeCatalogValues(db, dict.CatalogValues)
}

func writeTableInfo(db execer, t *types.TableInfo) error {
	_, err := db.Exec(
		"INSERT INTO tableinfo (infoareaid, rootinfoareaid, name, haslookup) VALUES (?, ?, ?, ?)",
		t.InfoAreaID, nullString(t.RootInfoAreaID), nullString(t.Name), boolToInt(t.HasLookup),
	)
	if err != nil {
		return fmt.Errorf("writing tableinfo %s: %w", t.InfoAreaID, err)
	}
	return nil
}

func writeFieldInfo(db execer, f types.FieldInfo) error {
	_, err := db.Exec(
		`INSERT INTO fieldinfo (infoareaid, fieldid, xmlname, name, fieldtype, fieldlen, cat, ucat,
			attributes, repMode, rights, format, arrayfieldindices)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.InfoAreaID, f.FieldID, nullString(f.XMLName), nullString(f.Name), f.Type.String(), f.Length,
		f.FixCatalog, f.VarCatalog, f.Attributes, f.ReplicationMode, f.Rights,
		nullString(f.Format), nullString(f.ArrayFieldIndicesString()),
	)
	if err != nil {
		return fmt.Errorf("writing fieldinfo %s.%d: %w", f.InfoAreaID, f.FieldID, err)
	}
	return nil
}

func writeLinkInfo(db execer, l types.LinkInfo) error {
	_, err := db.Exec(
		`INSERT INTO linkinfo (infoareaid, targetinfoareaid, linkid, relationtype, reverseLinkId,
			sourceFieldId, destFieldId, fieldBased, useLinkFields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.InfoAreaID, l.TargetInfoAreaID, l.LinkID, int(l.RelationType), l.ReverseLinkID,
		l.SourceFieldID, l.DestFieldID, boolToInt(l.FieldBased), boolToInt(l.UseLinkFields),
	)
	if err != nil {
		return fmt.Errorf("writing linkinfo %s->%s#%d: %w", l.InfoAreaID, l.TargetInfoAreaID, l.LinkID, err)
	}

	for _, lf := range l.LinkFields {
		if _, err := db.Exec(
			`INSERT INTO linkfields (infoareaid, targetinfoareaid, linkid, nr, sourceFieldId, destFieldId,
				sourceValue, destValue)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.InfoAreaID, l.TargetInfoAreaID, l.LinkID, lf.Nr, lf.SourceFieldID, lf.DestFieldID,
			nullString(lf.SourceValue), nullString(lf.DestValue),
		); err != nil {
			return fmt.Errorf("writing linkfield %s->%s#%d/%d: %w",
				l.InfoAreaID, l.TargetInfoAreaID, l.LinkID, lf.Nr, err)
		}
	}
	return nil
}

func writeCatalogInfo(db execer, c types.CatalogInfo) error {
	var err error
	if c.Fixed {
		_, err = db.Exec("INSERT OR REPLACE INTO fixcatinfo (catnr) VALUES (?)", c.CatalogNr)
	} else {
		_, err = db.Exec("INSERT OR REPLACE INTO varcatinfo (catnr, parentcatnr) VALUES (?, ?)",
			c.CatalogNr, c.ParentCatalogNr)
	}
	if err != nil {
		return fmt.Errorf("writing catalog %d: %w", c.CatalogNr, err)
	}
	return nil
}

// writeCatalogValues replaces the values of every catalog present in values.
func writeCatalogValues(db execer, values []types.CatalogValue) error {
	cleared := make(map[catalogKey]bool)
	for _, v := range values {
		key := catalogKey{v.CatalogNr, v.Fixed}
		if !cleared[key] {
			if _, err := db.Exec("DELETE FROM "+catalogValueTable(v.Fixed)+" WHERE catnr = ?", v.CatalogNr); err != nil {
				return fmt.Errorf("clearing catalog %d: %w", v.CatalogNr, err)
			}
			cleared[key] = true
		}

		var err error
		if v.Fixed {
			_, err = db.Exec(
				"INSERT INTO fixcatvalue (catnr, code, text, extkey, sortinfo) VALUES (?, ?, ?, ?, ?)",
				v.CatalogNr, v.Code, v.Text, nullString(v.ExtKey), nullString(v.SortInfo),
			)
		} else {
			_, err = db.Exec(
				"INSERT INTO varcatvalue (catnr, code, text, extkey, sortinfo, parentcode) VALUES (?, ?, ?, ?, ?, ?)",
				v.CatalogNr, v.Code, v.Text, nullString(v.ExtKey), nullString(v.SortInfo), v.ParentCode,
			)
		}
		if err != nil {
			return fmt.Errorf("writing catalog value %d/%d: %w", v.CatalogNr, v.Code, err)
		}
	}
	return nil
}

func catalogValueTable(fixed bool) string {
	if fixed {
		return tableFixCatValue
	}
	return tableVarCatValue
}

// readCatalogValues loads the values of one catalog. Fixed catalogs are
// ordered by code, or by sort info then code when sortBySortInfo is set.
// Variable catalogs are ordered by text.
func readCatalogValues(db execer, nr int, fixed, sortBySortInfo bool) ([]types.CatalogValue, error) {
	query := "SELECT catnr, code, text, extkey, sortinfo, parentcode FROM varcatvalue WHERE catnr = ?"
	if fixed {
		query = "SELECT catnr, code, text, extkey, sortinfo, 0 FROM fixcatvalue WHERE catnr = ?"
	}
	rows, err := db.Query(query, nr)
	if err != nil {
		return nil, fmt.Errorf("querying catalog %d: %w", nr, err)
	}
	defer rows.Close()

	var values []types.CatalogValue
	for rows.Next() {
		var (
			v                      types.CatalogValue
			text, extKey, sortInfo sql.NullString
			parent                 sql.NullInt64
		)
		if err := rows.Scan(&v.CatalogNr, &v.Code, &text, &extKey, &sortInfo, &parent); err != nil {
			return nil, fmt.Errorf("scanning catalog %d: %w", nr, err)
		}
		v.Fixed = fixed
		v.Text = optionalString(text)
		v.ExtKey = optionalString(extKey)
		v.SortInfo = optionalString(sortInfo)
		v.ParentCode = optionalInt(parent, 0)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog %d: %w", nr, err)
	}

	sortCatalogValues(values, fixed, sortBySortInfo)
	return values, nil
}

func sortCatalogValues(values []types.CatalogValue, fixed, sortBySortInfo bool) {
	sort.SliceStable(values, func(i, j int) bool {
		a, b := values[i], values[j]
		switch {
		case !fixed:
			if a.Text != b.Text {
				return a.Text < b.Text
			}
		case sortBySortInfo:
			if a.SortInfo != b.SortInfo {
				return a.SortInfo < b.SortInfo
			}
		}
		return a.Code < b.Code
	})
}

func writeHasLookup(db execer, infoAreaID string, hasLookup bool) error {
	res, err := db.Exec("UPDATE tableinfo SET haslookup = ? WHERE infoareaid = ?", boolToInt(hasLookup), infoAreaID)
	if err != nil {
		return fmt.Errorf("updating haslookup of %s: %w", infoAreaID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating haslookup of %s: %w", infoAreaID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrUnknownInfoArea, infoAreaID)
	}
	return nil
}
