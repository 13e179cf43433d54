package types

import (
	"fmt"
	"strings"
)

// RecordIdentification addresses one record: info-area id plus record id.
type RecordIdentification struct {
	InfoAreaID string `json:"infoAreaId"`
	RecordID   string `json:"recordId"`
}

// String renders the identification as "<infoAreaId>.<recordId>".
func (r RecordIdentification) String() string {
	return r.InfoAreaID + "." + r.RecordID
}

// IsEmpty reports whether either part is missing.
func (r RecordIdentification) IsEmpty() bool {
	return r.InfoAreaID == "" || r.RecordID == ""
}

// ParseRecordIdentification parses "<infoAreaId>.<recordId>".
func ParseRecordIdentification(s string) (RecordIdentification, error) {
	ia, rec, ok := strings.Cut(s, ".")
	if !ok || ia == "" || rec == "" {
		return RecordIdentification{}, fmt.Errorf("%w: %q", ErrInvalidRecordIdentification, s)
	}
	return RecordIdentification{InfoAreaID: ia, RecordID: rec}, nil
}

// RecordMode tells the store how the logical record came to be.
type RecordMode int

// Record modes.
const (
	RecordModeUpdate RecordMode = iota
	RecordModeNew
)

// FieldValue is one field of a logical record. OldValue is the value before
// the change and is what an undo writes back.
type FieldValue struct {
	FieldID  int    `json:"fieldId"`
	Value    string `json:"value"`
	OldValue string `json:"oldValue,omitempty"`
}

// RecordLink points a logical record at another record. The link is found
// by LinkFieldName when set, otherwise by (InfoAreaID, LinkID).
type RecordLink struct {
	InfoAreaID    string `json:"infoAreaId"`
	LinkID        int    `json:"linkId"`
	RecordID      string `json:"recordId"`
	LinkFieldName string `json:"linkFieldName,omitempty"`
}

// CRMRecord is a loosely typed CRM record as exchanged with the server.
type CRMRecord struct {
	InfoAreaID string       `json:"infoAreaId"`
	RecordID   string       `json:"recordId"`
	Mode       RecordMode   `json:"mode,omitempty"`
	Fields     []FieldValue `json:"fields,omitempty"`
	Links      []RecordLink `json:"links,omitempty"`

	// Offline numbering assigned to records created without a connection.
	OfflineStationNumber int `json:"offlineStationNumber,omitempty"`
	OfflineRecordNumber  int `json:"offlineRecordNumber,omitempty"`
}

// Identification returns the record's identification.
func (r *CRMRecord) Identification() RecordIdentification {
	return RecordIdentification{InfoAreaID: r.InfoAreaID, RecordID: r.RecordID}
}

// HasField reports whether the record carries a value for the field id.
func (r *CRMRecord) HasField(fieldID int) bool {
	for _, f := range r.Fields {
		if f.FieldID == fieldID {
			return true
		}
	}
	return false
}

// Value returns the value of the field id.
func (r *CRMRecord) Value(fieldID int) (string, bool) {
	for _, f := range r.Fields {
		if f.FieldID == fieldID {
			return f.Value, true
		}
	}
	return "", false
}
