package sqlite

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

func newTestMapper(disableCheck bool) *RecordMapper {
	c := testCatalog(false)
	return newRecordMapper(c, newVirtualLinkResolver(c), disableCheck, discardLogger())
}

func TestBuildRecord_DropsUndeclaredFields(t *testing.T) {
	m := newTestMapper(false)

	r, ok := m.BuildRecord(&types.CRMRecord{
		InfoAreaID: "KP",
		RecordID:   "r1",
		Fields: []types.FieldValue{
			{FieldID: 1, Value: "Miller"},
			{FieldID: 99, Value: "ignored"},
			{FieldID: 2, Value: "7"},
		},
	}, false)
	require.True(t, ok)

	assert.Equal(t, "CRM_KP", r.Template().Table())
	assert.Equal(t, []int{1, 2}, r.Template().FieldIDs())
	assert.Equal(t, []string{"F1", "F2"}, r.Template().Columns())
	assert.Equal(t, []any{"Miller", int64(7)}, r.Values())
	assert.Empty(t, r.Template().LinkColumns())
}

func TestBuildRecord_DataModelCheckDisabled(t *testing.T) {
	m := newTestMapper(true)

	r, ok := m.BuildRecord(&types.CRMRecord{
		InfoAreaID: "KP",
		RecordID:   "r1",
		Fields:     []types.FieldValue{{FieldID: 99, Value: "kept"}},
	}, false)
	require.True(t, ok)
	assert.Equal(t, []int{99}, r.Template().FieldIDs())
	assert.Equal(t, []any{"kept"}, r.Values())
}

func TestBuildRecord_Unmappable(t *testing.T) {
	m := newTestMapper(false)

	tests := []struct {
		name string
		rec  *types.CRMRecord
	}{
		{"nil record", nil},
		{"unknown info area", &types.CRMRecord{InfoAreaID: "ZZ", RecordID: "r1"}},
		{"missing record id", &types.CRMRecord{InfoAreaID: "KP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := m.BuildRecord(tt.rec, false)
			assert.False(t, ok)
			assert.Nil(t, r)
		})
	}
}

func TestBuildRecord_Undo(t *testing.T) {
	m := newTestMapper(false)

	r, ok := m.BuildRecord(&types.CRMRecord{
		InfoAreaID: "KP",
		RecordID:   "r1",
		Fields: []types.FieldValue{
			{FieldID: 1, Value: "New", OldValue: "Old"},
			{FieldID: 2, Value: "9", OldValue: "3"},
		},
		Links: []types.RecordLink{
			{InfoAreaID: "FI", LinkID: 0, RecordID: "fi1"},
			{InfoAreaID: "MA", LinkID: 1, RecordID: "ma1"},
		},
	}, true)
	require.True(t, ok)

	assert.True(t, r.Undo())
	assert.Equal(t, []any{"Old", int64(3)}, r.Values())
	assert.Empty(t, r.Template().LinkColumns())
}

func TestBuildRecord_OfflineNumbers(t *testing.T) {
	m := newTestMapper(false)

	t.Run("forced for new offline records", func(t *testing.T) {
		r, ok := m.BuildRecord(&types.CRMRecord{
			InfoAreaID:           "KP",
			RecordID:             "new1",
			Mode:                 types.RecordModeNew,
			Fields:               []types.FieldValue{{FieldID: 1, Value: "Miller"}},
			OfflineStationNumber: 3,
			OfflineRecordNumber:  42,
		}, false)
		require.True(t, ok)
		assert.Equal(t, []int{1, 5, 6}, r.Template().FieldIDs())
		assert.Equal(t, []any{"Miller", int64(3), int64(42)}, r.Values())
	})

	t.Run("explicit values win", func(t *testing.T) {
		r, ok := m.BuildRecord(&types.CRMRecord{
			InfoAreaID:           "KP",
			RecordID:             "new1",
			Mode:                 types.RecordModeNew,
			Fields:               []types.FieldValue{{FieldID: 5, Value: "9"}},
			OfflineStationNumber: 3,
			OfflineRecordNumber:  42,
		}, false)
		require.True(t, ok)
		assert.Equal(t, []int{5, 6}, r.Template().FieldIDs())
		assert.Equal(t, []any{int64(9), int64(42)}, r.Values())
	})

	t.Run("not forced for updates", func(t *testing.T) {
		r, ok := m.BuildRecord(&types.CRMRecord{
			InfoAreaID:           "KP",
			RecordID:             "r1",
			Fields:               []types.FieldValue{{FieldID: 1, Value: "Miller"}},
			OfflineStationNumber: 3,
			OfflineRecordNumber:  42,
		}, false)
		require.True(t, ok)
		assert.Equal(t, []int{1}, r.Template().FieldIDs())
	})
}

func TestBuildRecord_Links(t *testing.T) {
	m := newTestMapper(false)

	r, ok := m.BuildRecord(&types.CRMRecord{
		InfoAreaID: "KP",
		RecordID:   "r1",
		Fields:     []types.FieldValue{{FieldID: 1, Value: "Miller"}},
		Links: []types.RecordLink{
			{InfoAreaID: "FI", LinkID: 0, RecordID: "fi1"},
			{InfoAreaID: "MB_KP_MA", LinkID: 1, RecordID: "ma1"},
			{InfoAreaID: "PE", LinkID: 0, RecordID: "pe1"},
			{InfoAreaID: "CP", LinkID: 2, RecordID: "cp1"},
			{InfoAreaID: "ZZ", LinkID: 0, RecordID: "zz1"},
		},
	}, false)
	require.True(t, ok)

	assert.Equal(t, []string{"LINK_FI_0", "LINK_MA_1_INFOAREAID", "LINK_MA_1"}, r.Template().LinkColumns())
	assert.Equal(t, []string{"F1", "LINK_FI_0", "LINK_MA_1_INFOAREAID", "LINK_MA_1"}, r.Template().Columns())
	assert.Equal(t, []any{
		"Miller",
		sql.NullString{String: "fi1", Valid: true},
		"MA",
		sql.NullString{String: "ma1", Valid: true},
	}, r.Values())
}

func TestBuildRecord_LinkByColumnName(t *testing.T) {
	m := newTestMapper(false)

	r, ok := m.BuildRecord(&types.CRMRecord{
		InfoAreaID: "KP",
		RecordID:   "r1",
		Links:      []types.RecordLink{{LinkFieldName: "LINK_FI_0", RecordID: "fi1"}},
	}, false)
	require.True(t, ok)
	assert.Equal(t, []string{"LINK_FI_0"}, r.Template().LinkColumns())
}

func TestBuildRecord_Participants(t *testing.T) {
	m := newTestMapper(false)

	r, ok := m.BuildRecord(&types.CRMRecord{
		InfoAreaID: "KP",
		RecordID:   "r1",
		Fields:     []types.FieldValue{{FieldID: 7, Value: "a; b;;c"}},
	}, false)
	require.True(t, ok)
	require.Len(t, r.participants, 1)
	assert.Equal(t, "CRM_KP_PART_F7", r.participants[0].table)
	assert.Equal(t, []string{"a", "b", "c"}, r.participants[0].values)
}

func TestRecordTemplate_Statements(t *testing.T) {
	tmpl := newRecordTemplate("CRM_KP", []int{1}, []string{"F1"}, []string{"LINK_FI_0"})
	assert.Equal(t,
		`INSERT INTO "CRM_KP" (recid, "F1", "LINK_FI_0") VALUES (?, ?, ?) ON CONFLICT(recid) DO UPDATE SET "F1" = excluded."F1", "LINK_FI_0" = excluded."LINK_FI_0"`,
		tmpl.upsertStatement())
	assert.Equal(t, `UPDATE "CRM_KP" SET "F1" = ?, "LINK_FI_0" = ? WHERE recid = ?`, tmpl.updateStatement())

	empty := newRecordTemplate("CRM_KP", nil, nil, nil)
	assert.Equal(t, `INSERT INTO "CRM_KP" (recid) VALUES (?) ON CONFLICT(recid) DO NOTHING`, empty.upsertStatement())
}
