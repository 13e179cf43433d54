package types

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType is the single character type code of a CRM field.
type FieldType byte

// Field type codes.
const (
	FieldTypeChar       FieldType = 'C'
	FieldTypeText       FieldType = 'Z'
	FieldTypeLong       FieldType = 'L'
	FieldTypeShort      FieldType = 'S'
	FieldTypeFloat      FieldType = 'F'
	FieldTypeBoolean    FieldType = 'B'
	FieldTypeDate       FieldType = 'D'
	FieldTypeTime       FieldType = 'T'
	FieldTypeVarCatalog FieldType = 'K'
	FieldTypeFixCatalog FieldType = 'X'
)

// String returns the type code as a one character string.
func (t FieldType) String() string {
	if t == 0 {
		return ""
	}
	return string(rune(t))
}

// MarshalText encodes the type code as its character.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a one character type code. An empty value decodes
// to the zero type.
func (t *FieldType) UnmarshalText(text []byte) error {
	switch len(text) {
	case 0:
		*t = 0
	case 1:
		*t = FieldType(text[0])
	default:
		return fmt.Errorf("%w: field type %q", ErrInvalidData, text)
	}
	return nil
}

// IsNumeric reports whether values of this type are stored as numbers.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldTypeLong, FieldTypeShort, FieldTypeFloat, FieldTypeBoolean,
		FieldTypeVarCatalog, FieldTypeFixCatalog:
		return true
	}
	return false
}

// SQLType returns the SQLite column type used to store values of this type.
func (t FieldType) SQLType() string {
	switch t {
	case FieldTypeLong, FieldTypeShort, FieldTypeBoolean, FieldTypeVarCatalog, FieldTypeFixCatalog:
		return "INTEGER"
	case FieldTypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Field attribute bits.
const (
	FieldAttrHidden       = 1 << 0
	FieldAttrReadOnly     = 1 << 1
	FieldAttrParticipants = 1 << 10
)

// XML names of the fields that carry offline record numbering.
const (
	XMLNameStationNumber = "StaNo"
	XMLNameRecordNumber  = "LNr"
)

// FieldInfo describes one column of an info area.
type FieldInfo struct {
	InfoAreaID        string    `json:"infoAreaId"`
	FieldID           int       `json:"fieldId"`
	XMLName           string    `json:"xmlName,omitempty"`
	Name              string    `json:"name,omitempty"`
	Type              FieldType `json:"fieldType"`
	Length            int       `json:"fieldLen,omitempty"`
	FixCatalog        int       `json:"cat,omitempty"`
	VarCatalog        int       `json:"ucat,omitempty"`
	Attributes        int       `json:"attributes,omitempty"`
	ReplicationMode   int       `json:"repMode,omitempty"`
	Rights            int       `json:"rights,omitempty"`
	Format            string    `json:"format,omitempty"`
	ArrayFieldIndices []int     `json:"arrayFieldIndices,omitempty"`
}

// ColumnName returns the physical column name of the field.
func (f FieldInfo) ColumnName() string {
	return "F" + strconv.Itoa(f.FieldID)
}

// IsParticipantsField reports whether the field keeps a participants side-table.
func (f FieldInfo) IsParticipantsField() bool {
	return f.Attributes&FieldAttrParticipants != 0
}

// IsArrayField reports whether the field is composed of sub-fields.
func (f FieldInfo) IsArrayField() bool {
	return len(f.ArrayFieldIndices) > 0
}

// ArrayFieldIndicesString joins the sub-field indices with commas.
func (f FieldInfo) ArrayFieldIndicesString() string {
	if len(f.ArrayFieldIndices) == 0 {
		return ""
	}
	parts := make([]string, len(f.ArrayFieldIndices))
	for i, idx := range f.ArrayFieldIndices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ",")
}

// ParseArrayFieldIndices parses a comma-joined index list. Empty input yields nil.
func ParseArrayFieldIndices(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	indices := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parsing array field index %q: %w", p, err)
		}
		indices = append(indices, n)
	}
	return indices, nil
}
