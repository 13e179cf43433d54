package types

import (
	"encoding/json"
	"strconv"
)

// RelationType classifies a link between two info areas.
type RelationType int

// Relation types as delivered by the server data dictionary.
const (
	RelationUnknown RelationType = iota
	RelationParent
	RelationChild
	RelationOneToOne
	RelationGeneric
	RelationManyToMany
)

// LinkInfo describes a relationship from one info area to another. The
// triple (InfoAreaID, TargetInfoAreaID, LinkID) is its identity. A link is
// backed by a physical record-id column unless FieldBased or UseLinkFields
// is set, so the zero value of both flags means a column exists.
type LinkInfo struct {
	InfoAreaID       string          `json:"infoAreaId"`
	TargetInfoAreaID string          `json:"targetInfoAreaId"`
	LinkID           int             `json:"linkId"`
	RelationType     RelationType    `json:"relationType"`
	ReverseLinkID    int             `json:"reverseLinkId"`
	SourceFieldID    int             `json:"sourceFieldId"`
	DestFieldID      int             `json:"destFieldId"`
	FieldBased       bool            `json:"fieldBased,omitempty"`
	UseLinkFields    bool            `json:"useLinkFields,omitempty"`
	LinkFields       []LinkFieldInfo `json:"linkFields,omitempty"`
}

// UnmarshalJSON decodes a link, defaulting absent field ids to -1. Server
// dictionaries mark field-value links only by a source and destination field
// id, so a pair of ids sets FieldBased.
func (l *LinkInfo) UnmarshalJSON(data []byte) error {
	type plain LinkInfo
	p := plain{SourceFieldID: -1, DestFieldID: -1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.SourceFieldID >= 0 && p.DestFieldID >= 0 {
		p.FieldBased = true
	}
	*l = LinkInfo(p)
	return nil
}

// HasColumn reports whether the link is backed by a physical column on the
// source table. Links expressed through field values have none.
func (l LinkInfo) HasColumn() bool {
	return !l.IsFieldLink() && l.RelationType != RelationChild
}

// IsGeneric reports whether the link may point at more than one physical
// info area and therefore carries an info-area discriminator column.
func (l LinkInfo) IsGeneric() bool {
	return l.RelationType == RelationGeneric
}

// IsFieldLink reports whether the link is expressed by matching field values.
func (l LinkInfo) IsFieldLink() bool {
	return l.FieldBased || l.UseLinkFields
}

// ColumnName returns the physical record-id column of the link.
func (l LinkInfo) ColumnName() string {
	id := l.LinkID
	if id < 0 {
		id = 0
	}
	return "LINK_" + l.TargetInfoAreaID + "_" + strconv.Itoa(id)
}

// InfoAreaColumnName returns the discriminator column of a generic link.
func (l LinkInfo) InfoAreaColumnName() string {
	return l.ColumnName() + "_INFOAREAID"
}

// LinkRecordUpdate selects rows whose link column is rewritten: the rows of
// Link's source table with the given record ids, or every row pointing at
// the old record when RecordIDs is empty.
type LinkRecordUpdate struct {
	Link      LinkInfo
	RecordIDs []string
}

// LinkFieldInfo is one field equality of a link keyed by several fields.
// SourceValue and DestValue, when set, are fixed value predicates.
type LinkFieldInfo struct {
	Nr            int    `json:"nr"`
	SourceFieldID int    `json:"sourceFieldId"`
	DestFieldID   int    `json:"destFieldId"`
	SourceValue   string `json:"sourceValue,omitempty"`
	DestValue     string `json:"destValue,omitempty"`
}

// MoveDirection selects which side of a virtual link the record moved from.
type MoveDirection int

// Virtual link directions.
const (
	MoveFromSource MoveDirection = iota
	MoveFromTarget
)

// String returns a readable direction name.
func (d MoveDirection) String() string {
	if d == MoveFromTarget {
		return "from-target"
	}
	return "from-source"
}

// VirtualLinkInfo is a synthetic relationship for records that moved
// between info areas without a schema-level link.
type VirtualLinkInfo struct {
	SourceInfoAreaID     string
	TargetInfoAreaID     string
	Move                 MoveDirection
	DesignatorInfoAreaID string
}

// MovedFrom returns the info area the record came from.
func (v VirtualLinkInfo) MovedFrom() string {
	if v.Move == MoveFromTarget {
		return v.TargetInfoAreaID
	}
	return v.SourceInfoAreaID
}

// MovedTo returns the info area that physically holds the moved record.
func (v VirtualLinkInfo) MovedTo() string {
	if v.Move == MoveFromTarget {
		return v.SourceInfoAreaID
	}
	return v.TargetInfoAreaID
}

// VirtualInfoAreaID returns the derived identifier used to group moved
// records. Twin entries describing the same move return the same value.
func (v VirtualLinkInfo) VirtualInfoAreaID() string {
	return v.DesignatorInfoAreaID + "_" + v.MovedFrom() + "_" + v.MovedTo()
}
