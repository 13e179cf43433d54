package types

// DataDictionary is the server-provided description of the data model.
type DataDictionary struct {
	Tables        []TableInfo    `json:"tables"`
	Catalogs      []CatalogInfo  `json:"catalogs,omitempty"`
	CatalogValues []CatalogValue `json:"catalogValues,omitempty"`
}

// Table returns the dictionary entry for an info area.
func (d *DataDictionary) Table(infoAreaID string) (*TableInfo, bool) {
	for i := range d.Tables {
		if d.Tables[i].InfoAreaID == infoAreaID {
			return &d.Tables[i], true
		}
	}
	return nil, false
}
