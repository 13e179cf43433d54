package types

// TablePrefix is prepended to the info-area id to form the physical table name.
const TablePrefix = "CRM_"

// TableInfo describes one info area: its fields and its outgoing links.
type TableInfo struct {
	InfoAreaID     string      `json:"infoAreaId"`
	RootInfoAreaID string      `json:"rootInfoAreaId,omitempty"`
	Name           string      `json:"name,omitempty"`
	HasLookup      bool        `json:"hasLookup,omitempty"`
	Fields         []FieldInfo `json:"fields,omitempty"`
	Links          []LinkInfo  `json:"links,omitempty"`
}

// TableName returns the physical table that stores records of the info area.
func (t *TableInfo) TableName() string {
	return TablePrefix + t.InfoAreaID
}

// ParticipantsTableName returns the side-table of a participants field.
func (t *TableInfo) ParticipantsTableName(f FieldInfo) string {
	return t.TableName() + "_PART_" + f.ColumnName()
}

// EffectiveRootInfoAreaID returns the root info area, or the info area
// itself when no distinct root is declared.
func (t *TableInfo) EffectiveRootInfoAreaID() string {
	if t.RootInfoAreaID == "" {
		return t.InfoAreaID
	}
	return t.RootInfoAreaID
}

// FieldByID returns the field with the given id.
func (t *TableInfo) FieldByID(id int) (FieldInfo, bool) {
	for _, f := range t.Fields {
		if f.FieldID == id {
			return f, true
		}
	}
	return FieldInfo{}, false
}

// FieldByXMLName returns the first field with the given xml name.
func (t *TableInfo) FieldByXMLName(name string) (FieldInfo, bool) {
	for _, f := range t.Fields {
		if f.XMLName == name {
			return f, true
		}
	}
	return FieldInfo{}, false
}

// ParticipantsFields returns the fields that keep participants side-tables.
func (t *TableInfo) ParticipantsFields() []FieldInfo {
	var out []FieldInfo
	for _, f := range t.Fields {
		if f.IsParticipantsField() {
			out = append(out, f)
		}
	}
	return out
}

// LinkByColumnName returns the link whose physical column has the given name.
func (t *TableInfo) LinkByColumnName(name string) (LinkInfo, bool) {
	for _, l := range t.Links {
		if l.ColumnName() == name {
			return l, true
		}
	}
	return LinkInfo{}, false
}

// LinkFor returns the link to targetInfoAreaID with the given id. A negative
// linkID selects the first declared link to the target.
func (t *TableInfo) LinkFor(targetInfoAreaID string, linkID int) (LinkInfo, bool) {
	for _, l := range t.Links {
		if l.TargetInfoAreaID != targetInfoAreaID {
			continue
		}
		if linkID < 0 || l.LinkID == linkID {
			return l, true
		}
	}
	return LinkInfo{}, false
}
