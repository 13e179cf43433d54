package sqlite

import (
	"log/slog"
	"strconv"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// RecordMapper turns logical CRM records into bound physical writes.
type RecordMapper struct {
	catalog               *Catalog
	resolver              *VirtualLinkResolver
	disableDataModelCheck bool
	log                   *slog.Logger
}

func newRecordMapper(c *Catalog, resolver *VirtualLinkResolver, disableDataModelCheck bool, log *slog.Logger) *RecordMapper {
	return &RecordMapper{
		catalog:               c,
		resolver:              resolver,
		disableDataModelCheck: disableDataModelCheck,
		log:                   log,
	}
}

// BuildRecord maps rec onto its info-area table. It returns false when the
// record cannot be mapped: the info area is unknown or the record has no id.
// Fields the data model does not declare are dropped. With undo set the old
// field values are bound and links are left out.
func (m *RecordMapper) BuildRecord(rec *types.CRMRecord, undo bool) (*Record, bool) {
	if rec == nil || rec.RecordID == "" {
		return nil, false
	}
	t, ok := m.catalog.TableInfo(rec.InfoAreaID)
	if !ok {
		m.log.Warn("skipping record of unknown info area", "record", rec.Identification().String())
		return nil, false
	}

	var (
		fieldIDs     []int
		fieldColumns []string
		values       []any
		participants []participantsWrite
		seen         = make(map[int]bool)
	)
	addField := func(f types.FieldInfo, value string) {
		seen[f.FieldID] = true
		fieldIDs = append(fieldIDs, f.FieldID)
		fieldColumns = append(fieldColumns, f.ColumnName())
		values = append(values, columnValue(f.Type, value))
		if f.IsParticipantsField() {
			participants = append(participants, participantsWrite{
				table:  t.ParticipantsTableName(f),
				values: participantValues(value),
			})
		}
	}

	for _, fv := range rec.Fields {
		if seen[fv.FieldID] {
			continue
		}
		f, ok := t.FieldByID(fv.FieldID)
		if !ok {
			if !m.disableDataModelCheck {
				m.log.Warn("dropping undeclared field", "record", rec.Identification().String(), "field", fv.FieldID)
				continue
			}
			f = types.FieldInfo{InfoAreaID: t.InfoAreaID, FieldID: fv.FieldID, Type: types.FieldTypeChar}
		}
		value := fv.Value
		if undo {
			value = fv.OldValue
		}
		addField(f, value)
	}

	if !undo && rec.Mode == types.RecordModeNew && rec.OfflineStationNumber > 0 && rec.OfflineRecordNumber > 0 {
		sta, okSta := t.FieldByXMLName(types.XMLNameStationNumber)
		lnr, okLnr := t.FieldByXMLName(types.XMLNameRecordNumber)
		if okSta && okLnr {
			if !seen[sta.FieldID] {
				addField(sta, strconv.Itoa(rec.OfflineStationNumber))
			}
			if !seen[lnr.FieldID] {
				addField(lnr, strconv.Itoa(rec.OfflineRecordNumber))
			}
		}
	}

	var linkColumns []string
	if !undo {
		linked := make(map[string]bool)
		for _, rl := range rec.Links {
			l, ok := m.resolveLink(t, rl)
			if !ok {
				m.log.Warn("skipping unknown link", "record", rec.Identification().String(),
					"target", rl.InfoAreaID, "link", rl.LinkID)
				continue
			}
			if !l.HasColumn() || linked[l.ColumnName()] {
				continue
			}
			linked[l.ColumnName()] = true
			if l.IsGeneric() {
				linkColumns = append(linkColumns, l.InfoAreaColumnName())
				values = append(values, m.resolver.RootPhysicalInfoAreaID(rl.InfoAreaID))
			}
			linkColumns = append(linkColumns, l.ColumnName())
			values = append(values, nullString(rl.RecordID))
		}
	}

	return &Record{
		template:     newRecordTemplate(t.TableName(), fieldIDs, fieldColumns, linkColumns),
		recordID:     rec.RecordID,
		values:       values,
		undo:         undo,
		participants: participants,
	}, true
}

// resolveLink finds the link a record link refers to: by column name when
// given, else by target and link id, retrying with the physical root of a
// virtual target.
func (m *RecordMapper) resolveLink(t *types.TableInfo, rl types.RecordLink) (types.LinkInfo, bool) {
	if rl.LinkFieldName != "" {
		return t.LinkByColumnName(rl.LinkFieldName)
	}
	if l, ok := t.LinkFor(rl.InfoAreaID, rl.LinkID); ok {
		return l, true
	}
	if root := m.resolver.RootPhysicalInfoAreaID(rl.InfoAreaID); root != rl.InfoAreaID {
		return t.LinkFor(root, rl.LinkID)
	}
	return types.LinkInfo{}, false
}
