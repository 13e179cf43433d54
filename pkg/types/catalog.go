package types

// CatalogInfo defines a fixed or variable catalog. Variable catalogs may
// depend on a parent catalog; ParentCatalogNr is 0 when they do not.
type CatalogInfo struct {
	CatalogNr       int  `json:"catNr"`
	ParentCatalogNr int  `json:"parentCatNr,omitempty"`
	Fixed           bool `json:"fixed,omitempty"`
}

// IsDependent reports whether the catalog's values are keyed by a parent code.
func (c CatalogInfo) IsDependent() bool {
	return !c.Fixed && c.ParentCatalogNr > 0
}

// CatalogValue maps one catalog code to its text.
type CatalogValue struct {
	CatalogNr  int    `json:"catNr"`
	Fixed      bool   `json:"fixed,omitempty"`
	Code       int    `json:"code"`
	Text       string `json:"text"`
	ExtKey     string `json:"extKey,omitempty"`
	SortInfo   string `json:"sortInfo,omitempty"`
	ParentCode int    `json:"parentCode,omitempty"`
}
