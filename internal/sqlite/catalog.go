package sqlite

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// Catalog is the in-memory data model: tables, fields, links and catalog
// definitions loaded from the dictionary tables, plus the virtual links
// registered for the store. Table definitions are immutable after load
// except for the has-lookup flag and the per-table virtual overrides.
type Catalog struct {
	mu       sync.RWMutex
	tables   map[string]*tableEntry
	catalogs map[catalogKey]types.CatalogInfo
	virtual  []types.VirtualLinkInfo
}

// tableEntry holds one info area and the virtual info-area ids assigned to
// its records by sync metadata.
type tableEntry struct {
	info              types.TableInfo
	virtualByRecordID map[string]string
}

type catalogKey struct {
	nr    int
	fixed bool
}

func newCatalog(virtual []types.VirtualLinkInfo) *Catalog {
	return &Catalog{
		tables:   make(map[string]*tableEntry),
		catalogs: make(map[catalogKey]types.CatalogInfo),
		virtual:  virtual,
	}
}

// TableInfo returns a copy of the definition of an info area.
func (c *Catalog) TableInfo(infoAreaID string) (*types.TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.tables[infoAreaID]
	if !ok {
		return nil, false
	}
	info := e.info
	return &info, true
}

// FieldInfo returns one field of an info area.
func (c *Catalog) FieldInfo(infoAreaID string, fieldID int) (types.FieldInfo, bool) {
	t, ok := c.TableInfo(infoAreaID)
	if !ok {
		return types.FieldInfo{}, false
	}
	return t.FieldByID(fieldID)
}

// LinkInfo returns the link from infoAreaID to targetInfoAreaID with the
// given id. A negative id selects the first link to the target.
func (c *Catalog) LinkInfo(infoAreaID, targetInfoAreaID string, linkID int) (types.LinkInfo, bool) {
	t, ok := c.TableInfo(infoAreaID)
	if !ok {
		return types.LinkInfo{}, false
	}
	return t.LinkFor(targetInfoAreaID, linkID)
}

// CatalogInfo returns a fixed or variable catalog definition.
func (c *Catalog) CatalogInfo(nr int, fixed bool) (types.CatalogInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.catalogs[catalogKey{nr, fixed}]
	return info, ok
}

// InfoAreaIDs returns the known info areas in sorted order.
func (c *Catalog) InfoAreaIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.tables))
	for id := range c.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VirtualLinks returns the registered virtual links.
func (c *Catalog) VirtualLinks() []types.VirtualLinkInfo {
	out := make([]types.VirtualLinkInfo, len(c.virtual))
	copy(out, c.virtual)
	return out
}

// SetVirtualInfoAreaForRecord records that a record of infoAreaID is
// grouped under virtualInfoAreaID.
func (c *Catalog) SetVirtualInfoAreaForRecord(infoAreaID, recordID, virtualInfoAreaID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.tables[infoAreaID]
	if !ok {
		return false
	}
	if e.virtualByRecordID == nil {
		e.virtualByRecordID = make(map[string]string)
	}
	e.virtualByRecordID[recordID] = virtualInfoAreaID
	return true
}

func (c *Catalog) virtualOverride(rid types.RecordIdentification) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.tables[rid.InfoAreaID]
	if !ok {
		return "", false
	}
	v, ok := e.virtualByRecordID[rid.RecordID]
	return v, ok
}

func (c *Catalog) setHasLookup(infoAreaID string, hasLookup bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.tables[infoAreaID]
	if !ok {
		return false
	}
	e.info.HasLookup = hasLookup
	return true
}

func (c *Catalog) addTable(info types.TableInfo) {
	c.tables[info.InfoAreaID] = &tableEntry{info: info}
}

// loadCatalog reads the dictionary tables into a fresh Catalog.
func loadCatalog(db execer, virtual []types.VirtualLinkInfo) (*Catalog, error) {
	c := newCatalog(virtual)

	if err := c.loadTables(db); err != nil {
		return nil, err
	}
	if err := c.loadFields(db); err != nil {
		return nil, err
	}
	links, err := loadLinks(db)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if e, ok := c.tables[l.InfoAreaID]; ok {
			e.info.Links = append(e.info.Links, l)
		}
	}
	if err := c.loadCatalogs(db); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) loadTables(db execer) error {
	rows, err := db.Query("SELECT infoareaid, rootinfoareaid, name, haslookup FROM tableinfo ORDER BY infoareaid")
	if err != nil {
		return fmt.Errorf("querying tableinfo: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			root      sql.NullString
			name      sql.NullString
			hasLookup sql.NullInt64
		)
		if err := rows.Scan(&id, &root, &name, &hasLookup); err != nil {
			return fmt.Errorf("scanning tableinfo: %w", err)
		}
		c.addTable(types.TableInfo{
			InfoAreaID:     id,
			RootInfoAreaID: optionalString(root),
			Name:           optionalString(name),
			HasLookup:      optionalInt(hasLookup, 0) != 0,
		})
	}
	return rows.Err()
}

func (c *Catalog) loadFields(db execer) error {
	rows, err := db.Query(`SELECT infoareaid, fieldid, xmlname, name, fieldtype, fieldlen, cat, ucat,
		attributes, repMode, rights, format, arrayfieldindices
		FROM fieldinfo ORDER BY infoareaid, rowid`)
	if err != nil {
		return fmt.Errorf("querying fieldinfo: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f                                          types.FieldInfo
			xmlName, name, fieldType, format, arrayIdx sql.NullString
			length, cat, ucat, attrs, repMode, rights  sql.NullInt64
		)
		if err := rows.Scan(&f.InfoAreaID, &f.FieldID, &xmlName, &name, &fieldType, &length, &cat, &ucat,
			&attrs, &repMode, &rights, &format, &arrayIdx); err != nil {
			return fmt.Errorf("scanning fieldinfo: %w", err)
		}
		if err := f.Type.UnmarshalText([]byte(optionalString(fieldType))); err != nil {
			return fmt.Errorf("field %s.%d: %w", f.InfoAreaID, f.FieldID, err)
		}
		indices, err := types.ParseArrayFieldIndices(optionalString(arrayIdx))
		if err != nil {
			return fmt.Errorf("field %s.%d: %w", f.InfoAreaID, f.FieldID, err)
		}
		f.XMLName = optionalString(xmlName)
		f.Name = optionalString(name)
		f.Length = optionalInt(length, 0)
		f.FixCatalog = optionalInt(cat, 0)
		f.VarCatalog = optionalInt(ucat, 0)
		f.Attributes = optionalInt(attrs, 0)
		f.ReplicationMode = optionalInt(repMode, 0)
		f.Rights = optionalInt(rights, 0)
		f.Format = optionalString(format)
		f.ArrayFieldIndices = indices

		if e, ok := c.tables[f.InfoAreaID]; ok {
			e.info.Fields = append(e.info.Fields, f)
		}
	}
	return rows.Err()
}

type linkKey struct {
	infoAreaID, targetInfoAreaID string
	linkID                       int
}

// loadLinks reads linkinfo with its linkfields in declaration order.
func loadLinks(db execer) ([]types.LinkInfo, error) {
	rows, err := db.Query(`SELECT infoareaid, targetinfoareaid, linkid, relationtype, reverseLinkId,
		sourceFieldId, destFieldId, fieldBased, useLinkFields
		FROM linkinfo ORDER BY infoareaid, rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying linkinfo: %w", err)
	}

	var links []types.LinkInfo
	for rows.Next() {
		var (
			l                                               types.LinkInfo
			relation, reverse, src, dest, fieldBased, useLF sql.NullInt64
		)
		if err := rows.Scan(&l.InfoAreaID, &l.TargetInfoAreaID, &l.LinkID, &relation, &reverse,
			&src, &dest, &fieldBased, &useLF); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning linkinfo: %w", err)
		}
		l.RelationType = types.RelationType(optionalInt(relation, 0))
		l.ReverseLinkID = optionalInt(reverse, 0)
		l.SourceFieldID = optionalInt(src, -1)
		l.DestFieldID = optionalInt(dest, -1)
		// Rows written before fieldBased existed carry the field ids only.
		if fieldBased.Valid {
			l.FieldBased = fieldBased.Int64 != 0
		} else {
			l.FieldBased = l.SourceFieldID >= 0 && l.DestFieldID >= 0
		}
		l.UseLinkFields = optionalInt(useLF, 0) != 0
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating linkinfo: %w", err)
	}
	rows.Close()

	index := make(map[linkKey]int, len(links))
	for i, l := range links {
		index[linkKey{l.InfoAreaID, l.TargetInfoAreaID, l.LinkID}] = i
	}

	rows, err = db.Query(`SELECT infoareaid, targetinfoareaid, linkid, nr, sourceFieldId, destFieldId,
		sourceValue, destValue
		FROM linkfields ORDER BY infoareaid, targetinfoareaid, linkid, nr`)
	if err != nil {
		return nil, fmt.Errorf("querying linkfields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key                 linkKey
			lf                  types.LinkFieldInfo
			src, dest           sql.NullInt64
			srcValue, destValue sql.NullString
		)
		if err := rows.Scan(&key.infoAreaID, &key.targetInfoAreaID, &key.linkID, &lf.Nr, &src, &dest,
			&srcValue, &destValue); err != nil {
			return nil, fmt.Errorf("scanning linkfields: %w", err)
		}
		lf.SourceFieldID = optionalInt(src, -1)
		lf.DestFieldID = optionalInt(dest, -1)
		lf.SourceValue = optionalString(srcValue)
		lf.DestValue = optionalString(destValue)
		if i, ok := index[key]; ok {
			links[i].LinkFields = append(links[i].LinkFields, lf)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating linkfields: %w", err)
	}
	return links, nil
}

func (c *Catalog) loadCatalogs(db execer) error {
	rows, err := db.Query("SELECT catnr, parentcatnr FROM varcatinfo")
	if err != nil {
		return fmt.Errorf("querying varcatinfo: %w", err)
	}
	for rows.Next() {
		var (
			nr     int
			parent sql.NullInt64
		)
		if err := rows.Scan(&nr, &parent); err != nil {
			rows.Close()
			return fmt.Errorf("scanning varcatinfo: %w", err)
		}
		c.catalogs[catalogKey{nr, false}] = types.CatalogInfo{CatalogNr: nr, ParentCatalogNr: optionalInt(parent, 0)}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating varcatinfo: %w", err)
	}
	rows.Close()

	rows, err = db.Query("SELECT catnr FROM fixcatinfo")
	if err != nil {
		return fmt.Errorf("querying fixcatinfo: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var nr int
		if err := rows.Scan(&nr); err != nil {
			return fmt.Errorf("scanning fixcatinfo: %w", err)
		}
		c.catalogs[catalogKey{nr, true}] = types.CatalogInfo{CatalogNr: nr, Fixed: true}
	}
	return rows.Err()
}
