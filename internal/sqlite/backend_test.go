package sqlite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

func kp(id string) types.RecordIdentification {
	return types.RecordIdentification{InfoAreaID: "KP", RecordID: id}
}

func countRows(t *testing.T, b *Backend, table, recordID string) int {
	t.Helper()
	var n int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM "+quoteIdent(table)+" WHERE recid = ?", recordID).Scan(&n))
	return n
}

func TestBackend_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend(WithLogger(discardLogger()))

	assert.ErrorIs(t, b.Attach(types.Config{}), types.ErrBackendEmpty)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: "postgres"}), types.ErrBackendUnknown)

	cfg := types.Config{Backend: types.BackendSQLite, DataDir: filepath.Join(dir, "nested")}
	require.NoError(t, b.Attach(cfg))
	assert.ErrorIs(t, b.Attach(cfg), types.ErrAlreadyAttached)
	assert.FileExists(t, filepath.Join(dir, "nested", DatabaseFileName))
	assert.Equal(t, cfg, b.Config())
	assert.Equal(t, SchemaVersion, b.DataModelVersion())

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach())
	require.NoError(t, b.Attach(cfg))
	require.NoError(t, b.Detach())
}

func TestBackend_DetachedOperations(t *testing.T) {
	b := NewBackend()

	tests := []struct {
		name string
		call func() error
	}{
		{"StoreDataDictionary", func() error { return b.StoreDataDictionary(testDictionary()) }},
		{"ResetDataModel", b.ResetDataModel},
		{"UpdateDDL", b.UpdateDDL},
		{"Recreate", b.Recreate},
		{"SaveRecord", func() error { return b.SaveRecord(&types.CRMRecord{InfoAreaID: "KP", RecordID: "r1"}) }},
		{"DeleteRecord", func() error { return b.DeleteRecord(kp("r1")) }},
		{"ReadRecord", func() error { _, err := b.ReadRecord(kp("r1"), nil); return err }},
		{"SaveRecords", func() error { _, err := b.SaveRecords(nil); return err }},
		{"CreateIndexFor", func() error { _, err := b.CreateIndexFor("KP", 1, ""); return err }},
		{"ReportSync", func() error { return b.ReportSync("KP", 1, "T", "", "KP") }},
		{"LastSyncOf", func() error { _, _, err := b.LastSyncOf("KP"); return err }},
		{"CatalogValues", func() error { _, err := b.CatalogValues(3, true); return err }},
		{"StoreRollbackInfo", func() error { return b.StoreRollbackInfo(types.RollbackInfo{RequestNr: 1}) }},
		{"SetTimeZone", func() error { return b.SetTimeZone("UTC", 0) }},
		{"UpdateLinks", func() error {
			_, err := b.UpdateLinksFromRecordIDToRecordID(nil, kp("a"), kp("b"))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), types.ErrStoreDetached)
		})
	}

	_, ok := b.TableInfo("KP")
	assert.False(t, ok)
	assert.Empty(t, b.InfoAreaIDs())
	assert.Equal(t, "MB_KP_MA", b.RootPhysicalInfoAreaID("MB_KP_MA"))
}

func TestBackend_DataModel(t *testing.T) {
	b := newTestBackend(t)

	assert.Equal(t, []string{"FI", "KM", "KP", "MA"}, b.InfoAreaIDs())

	f, ok := b.FieldInfo("KP", 7)
	require.True(t, ok)
	assert.True(t, f.IsParticipantsField())

	km, ok := b.FieldInfo("KM", 1)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, km.ArrayFieldIndices)

	l, ok := b.LinkInfo("KP", "CP", 2)
	require.True(t, ok)
	assert.True(t, l.UseLinkFields)
	require.Len(t, l.LinkFields, 1)
	assert.Equal(t, "X", l.LinkFields[0].DestValue)

	c, ok := b.CatalogInfo(11, false)
	require.True(t, ok)
	assert.True(t, c.IsDependent())
	_, ok = b.CatalogInfo(3, true)
	assert.True(t, ok)

	for _, table := range []string{"CRM_KP", "CRM_KP_PART_F7", "CRM_FI", "CRM_MA", "CRM_KM"} {
		exists, err := tableExists(b.db, table)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	meta, err := readTableMetaInfo(b.db, "CRM_KP")
	require.NoError(t, err)
	for _, col := range []string{"recid", "title", "sync", "lookup", "F1", "F8", "LINK_FI_0", "LINK_MA_1_INFOAREAID", "LINK_MA_1"} {
		assert.True(t, meta.hasColumn(col), col)
	}
	assert.False(t, meta.hasColumn("LINK_PE_0"))
	assert.False(t, meta.hasColumn("LINK_CP_2"))

	require.NoError(t, b.UpdateDDL())
	require.NoError(t, b.ResetDataModel())
	assert.Equal(t, []string{"FI", "KM", "KP", "MA"}, b.InfoAreaIDs())
}

func TestBackend_StoreDataDictionaryAddsColumns(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.SaveRecord(&types.CRMRecord{
		InfoAreaID: "KP", RecordID: "r1",
		Fields: []types.FieldValue{{FieldID: 1, Value: "Miller"}},
	}))

	dict := testDictionary()
	kpTable, ok := dict.Table("KP")
	require.True(t, ok)
	kpTable.Fields = append(kpTable.Fields, types.FieldInfo{FieldID: 9, XMLName: "Town", Type: types.FieldTypeChar})
	require.NoError(t, b.StoreDataDictionary(dict))

	rec, err := b.ReadRecord(kp("r1"), []int{1, 9})
	require.NoError(t, err)
	assert.Equal(t, []types.FieldValue{{FieldID: 1, Value: "Miller"}, {FieldID: 9, Value: ""}}, rec.Fields)

	require.NoError(t, b.SaveRecord(&types.CRMRecord{
		InfoAreaID: "KP", RecordID: "r1",
		Fields: []types.FieldValue{{FieldID: 9, Value: "Vienna"}},
	}))
	rec, err = b.ReadRecord(kp("r1"), []int{1, 9})
	require.NoError(t, err)
	assert.Equal(t, []types.FieldValue{{FieldID: 1, Value: "Miller"}, {FieldID: 9, Value: "Vienna"}}, rec.Fields)

	_, err = b.ReadRecord(kp("r1"), []int{42})
	assert.ErrorIs(t, err, types.ErrUnknownField)
}

func TestBackend_LinkWithDefaultFieldIDs(t *testing.T) {
	b := newTestBackend(t)

	dict := testDictionary()
	dict.Tables = append(dict.Tables, types.TableInfo{
		InfoAreaID: "AB",
		Fields:     []types.FieldInfo{{FieldID: 1, XMLName: "Subject", Type: types.FieldTypeChar}},
		Links:      []types.LinkInfo{{TargetInfoAreaID: "FI", LinkID: 0, RelationType: types.RelationParent}},
	})
	require.NoError(t, b.StoreDataDictionary(dict))

	ab, ok := b.TableInfo("AB")
	require.True(t, ok)
	require.Len(t, ab.Links, 1)
	assert.True(t, ab.Links[0].HasColumn())

	require.NoError(t, b.SaveRecord(&types.CRMRecord{
		InfoAreaID: "AB", RecordID: "a1",
		Fields: []types.FieldValue{{FieldID: 1, Value: "Visit"}},
		Links:  []types.RecordLink{{InfoAreaID: "FI", LinkID: 0, RecordID: "f1"}},
	}))
	rec, err := b.ReadRecord(types.RecordIdentification{InfoAreaID: "AB", RecordID: "a1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.RecordLink{{InfoAreaID: "FI", LinkID: 0, RecordID: "f1"}}, rec.Links)
}

func TestBackend_SaveAndReadRecord(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.SaveRecord(&types.CRMRecord{
		InfoAreaID: "KP",
		RecordID:   "r1",
		Fields: []types.FieldValue{
			{FieldID: 1, Value: "Miller"},
			{FieldID: 2, Value: "7"},
			{FieldID: 3, Value: "1.5"},
			{FieldID: 4, Value: "yes"},
			{FieldID: 7, Value: "a;b"},
			{FieldID: 8, Value: "3"},
		},
		Links: []types.RecordLink{
			{InfoAreaID: "FI", LinkID: 0, RecordID: "fi1"},
			{InfoAreaID: "MA", LinkID: 1, RecordID: "ma1"},
		},
	}))

	rec, err := b.ReadRecord(kp("r1"), nil)
	require.NoError(t, err)
	assert.Equal(t, types.RecordModeUpdate, rec.Mode)
	assert.Equal(t, []types.FieldValue{
		{FieldID: 1, Value: "Miller"},
		{FieldID: 2, Value: "7"},
		{FieldID: 3, Value: "1.5"},
		{FieldID: 4, Value: "true"},
		{FieldID: 5, Value: ""},
		{FieldID: 6, Value: ""},
		{FieldID: 7, Value: "a;b"},
		{FieldID: 8, Value: "3"},
	}, rec.Fields)
	assert.Equal(t, []types.RecordLink{
		{InfoAreaID: "FI", LinkID: 0, RecordID: "fi1"},
		{InfoAreaID: "MA", LinkID: 1, RecordID: "ma1"},
	}, rec.Links)

	rows, err := b.db.Query(`SELECT nr, value FROM "CRM_KP_PART_F7" WHERE recid = ? ORDER BY nr`, "r1")
	require.NoError(t, err)
	var values []string
	for rows.Next() {
		var (
			nr    int
			value string
		)
		require.NoError(t, rows.Scan(&nr, &value))
		values = append(values, value)
	}
	require.NoError(t, rows.Err())
	rows.Close()
	assert.Equal(t, []string{"a", "b"}, values)

	// A second write updates only the bound columns.
	require.NoError(t, b.SaveRecord(&types.CRMRecord{
		InfoAreaID: "KP",
		RecordID:   "r1",
		Fields:     []types.FieldValue{{FieldID: 2, Value: "8"}, {FieldID: 7, Value: "c"}},
	}))
	rec, err = b.ReadRecord(kp("r1"), []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []types.FieldValue{{FieldID: 1, Value: "Miller"}, {FieldID: 2, Value: "8"}}, rec.Fields)
	assert.Equal(t, 1, countRows(t, b, "CRM_KP_PART_F7", "r1"))

	_, err = b.ReadRecord(kp("missing"), nil)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.ReadRecord(types.RecordIdentification{InfoAreaID: "ZZ", RecordID: "r1"}, nil)
	assert.ErrorIs(t, err, types.ErrUnknownInfoArea)

	err = b.SaveRecord(&types.CRMRecord{InfoAreaID: "ZZ", RecordID: "r1"})
	assert.ErrorIs(t, err, types.ErrUnmappableRecord)
}

func TestBackend_CreateRecord(t *testing.T) {
	b := newTestBackend(t)

	id, err := b.CreateRecord(&types.CRMRecord{
		InfoAreaID:           "KP",
		Fields:               []types.FieldValue{{FieldID: 1, Value: "Offline"}},
		OfflineStationNumber: 3,
		OfflineRecordNumber:  42,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, offlineRecordIDPrefix), id)

	rec, err := b.ReadRecord(kp(id), []int{1, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []types.FieldValue{
		{FieldID: 1, Value: "Offline"},
		{FieldID: 5, Value: "3"},
		{FieldID: 6, Value: "42"},
	}, rec.Fields)

	id, err = b.CreateRecord(&types.CRMRecord{InfoAreaID: "KP", RecordID: "given"})
	require.NoError(t, err)
	assert.Equal(t, "given", id)

	_, err = b.CreateRecord(nil)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestBackend_SaveRecords(t *testing.T) {
	b := newTestBackend(t)

	n, err := b.SaveRecords([]*types.CRMRecord{
		{InfoAreaID: "KP", RecordID: "r1", Fields: []types.FieldValue{{FieldID: 1, Value: "A"}}},
		{InfoAreaID: "ZZ", RecordID: "z1"},
		nil,
		{InfoAreaID: "FI", RecordID: "f1", Fields: []types.FieldValue{{FieldID: 1, Value: "B"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, countRows(t, b, "CRM_KP", "r1"))
	assert.Equal(t, 1, countRows(t, b, "CRM_FI", "f1"))
}

func TestBackend_UndoRecord(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.SaveRecord(&types.CRMRecord{
		InfoAreaID: "KP", RecordID: "r1",
		Fields: []types.FieldValue{{FieldID: 1, Value: "New"}, {FieldID: 2, Value: "9"}},
		Links:  []types.RecordLink{{InfoAreaID: "FI", LinkID: 0, RecordID: "fi1"}},
	}))

	require.NoError(t, b.UndoRecord(&types.CRMRecord{
		InfoAreaID: "KP", RecordID: "r1",
		Fields: []types.FieldValue{{FieldID: 1, Value: "New", OldValue: "Old"}, {FieldID: 2, Value: "9", OldValue: ""}},
		Links:  []types.RecordLink{{InfoAreaID: "FI", LinkID: 0, RecordID: "fi2"}},
	}))

	rec, err := b.ReadRecord(kp("r1"), []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []types.FieldValue{{FieldID: 1, Value: "Old"}, {FieldID: 2, Value: ""}}, rec.Fields)
	assert.Equal(t, []types.RecordLink{{InfoAreaID: "FI", LinkID: 0, RecordID: "fi1"}}, rec.Links)

	// Undo never inserts.
	require.NoError(t, b.UndoRecord(&types.CRMRecord{
		InfoAreaID: "KP", RecordID: "r2",
		Fields: []types.FieldValue{{FieldID: 1, OldValue: "Ghost"}},
	}))
	assert.Equal(t, 0, countRows(t, b, "CRM_KP", "r2"))
}

func TestBackend_DeleteRecord(t *testing.T) {
	tests := []struct {
		name        string
		noCascade   bool
		wantPartCnt int
	}{
		{"cascade", false, 0},
		{"cascade disabled", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t, func(c *types.Config) { c.DisableParticipantsCascade = tt.noCascade })
			require.NoError(t, b.SaveRecord(&types.CRMRecord{
				InfoAreaID: "KP", RecordID: "r1",
				Fields: []types.FieldValue{{FieldID: 7, Value: "a;b"}},
			}))
			require.Equal(t, 2, countRows(t, b, "CRM_KP_PART_F7", "r1"))

			require.NoError(t, b.DeleteRecord(kp("r1")))
			assert.Equal(t, 0, countRows(t, b, "CRM_KP", "r1"))
			assert.Equal(t, tt.wantPartCnt, countRows(t, b, "CRM_KP_PART_F7", "r1"))

			assert.ErrorIs(t, b.DeleteRecord(kp("r1")), types.ErrNotFound)
		})
	}

	b := newTestBackend(t)
	assert.ErrorIs(t, b.DeleteRecord(types.RecordIdentification{InfoAreaID: "ZZ", RecordID: "r1"}), types.ErrUnknownInfoArea)

	t.Run("leftover participants rows", func(t *testing.T) {
		require.NoError(t, b.SaveRecord(&types.CRMRecord{
			InfoAreaID: "KP", RecordID: "r2",
			Fields: []types.FieldValue{{FieldID: 7, Value: "a;b"}},
		}))
		_, err := b.db.Exec(`DELETE FROM "CRM_KP" WHERE recid = ?`, "r2")
		require.NoError(t, err)
		require.Equal(t, 2, countRows(t, b, "CRM_KP_PART_F7", "r2"))

		assert.ErrorIs(t, b.DeleteRecord(kp("r2")), types.ErrNotFound)
		assert.Equal(t, 0, countRows(t, b, "CRM_KP_PART_F7", "r2"))
	})
}

func TestBackend_CreateIndexFor(t *testing.T) {
	b := newTestBackend(t)

	created, err := b.CreateIndexFor("KP", 1, "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = b.CreateIndexFor("KP", 1, "")
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := indexExists(b.db, "IX_CRM_KP_F1")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = b.CreateIndexFor("KP", 42, "")
	assert.ErrorIs(t, err, types.ErrUnknownField)

	created, err = b.CreateIndex("KP", "LNK", []string{"LINK_FI_0", "dF2"})
	require.NoError(t, err)
	assert.True(t, created)

	_, err = b.CreateIndex("ZZ", "", []string{"F1"})
	assert.ErrorIs(t, err, types.ErrUnknownInfoArea)
}

func TestBackend_UpdateLinks(t *testing.T) {
	b := newTestBackend(t)
	for _, id := range []string{"r1", "r2", "r3"} {
		links := []types.RecordLink{{InfoAreaID: "FI", LinkID: 0, RecordID: "fi1"}}
		if id == "r3" {
			links = []types.RecordLink{{InfoAreaID: "FI", LinkID: 0, RecordID: "other"}}
		}
		links = append(links, types.RecordLink{InfoAreaID: "MA", LinkID: 1, RecordID: "ma1"})
		require.NoError(t, b.SaveRecord(&types.CRMRecord{InfoAreaID: "KP", RecordID: id, Links: links}))
	}
	fiLink, ok := b.LinkInfo("KP", "FI", 0)
	require.True(t, ok)
	maLink, ok := b.LinkInfo("KP", "MA", 1)
	require.True(t, ok)

	fi := func(id string) types.RecordIdentification {
		return types.RecordIdentification{InfoAreaID: "FI", RecordID: id}
	}
	ma := func(id string) types.RecordIdentification {
		return types.RecordIdentification{InfoAreaID: "MA", RecordID: id}
	}

	t.Run("selected rows", func(t *testing.T) {
		n, err := b.UpdateLinksFromRecordIDToRecordID(
			[]types.LinkRecordUpdate{{Link: fiLink, RecordIDs: []string{"r1", "r3"}}}, fi("fi1"), fi("fi2"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("every row", func(t *testing.T) {
		n, err := b.UpdateLinksFromRecordIDToRecordID(
			[]types.LinkRecordUpdate{{Link: fiLink}}, fi("fi1"), fi("fi2"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		rec, err := b.ReadRecord(kp("r2"), []int{1})
		require.NoError(t, err)
		assert.Contains(t, rec.Links, types.RecordLink{InfoAreaID: "FI", LinkID: 0, RecordID: "fi2"})
	})

	t.Run("generic discriminator must match", func(t *testing.T) {
		n, err := b.UpdateLinksFromRecordIDToRecordID(
			[]types.LinkRecordUpdate{{Link: maLink}}, fi("ma1"), ma("ma2"))
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("generic", func(t *testing.T) {
		n, err := b.UpdateLinksFromRecordIDToRecordID(
			[]types.LinkRecordUpdate{{Link: maLink, RecordIDs: []string{"r1"}}}, ma("ma1"), fi("fi9"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		rec, err := b.ReadRecord(kp("r1"), []int{1})
		require.NoError(t, err)
		assert.Contains(t, rec.Links, types.RecordLink{InfoAreaID: "FI", LinkID: 1, RecordID: "fi9"})
	})

	_, err := b.UpdateLinksFromRecordIDToRecordID(nil, fi(""), fi("x"))
	assert.ErrorIs(t, err, types.ErrInvalidRecordIdentification)

	unknown := types.LinkInfo{InfoAreaID: "KP", TargetInfoAreaID: "ZZ", LinkID: 4}
	_, err = b.UpdateLinksFromRecordIDToRecordID([]types.LinkRecordUpdate{{Link: unknown}}, fi("fi2"), fi("fi3"))
	assert.ErrorIs(t, err, types.ErrUnknownLink)
}

func TestBackend_CatalogValues(t *testing.T) {
	values := []types.CatalogValue{
		{CatalogNr: 3, Fixed: true, Code: 2, Text: "Beta", SortInfo: "1"},
		{CatalogNr: 3, Fixed: true, Code: 1, Text: "Alpha", SortInfo: "2"},
		{CatalogNr: 10, Code: 1, Text: "Zeta"},
		{CatalogNr: 10, Code: 2, Text: "Alpha"},
		{CatalogNr: 11, Code: 1, Text: "Child A", ParentCode: 1},
		{CatalogNr: 11, Code: 2, Text: "Child B", ParentCode: 2},
	}
	codes := func(vs []types.CatalogValue) []int {
		out := make([]int, len(vs))
		for i, v := range vs {
			out[i] = v.Code
		}
		return out
	}

	tests := []struct {
		name       string
		sortByInfo bool
		wantFixed  []int
	}{
		{"by code", false, []int{1, 2}},
		{"by sort info", true, []int{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t, func(c *types.Config) { c.FixedCatalogSortBySortInfo = tt.sortByInfo })
			require.NoError(t, b.StoreCatalogValues(values))

			fixed, err := b.CatalogValues(3, true)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFixed, codes(fixed))

			variable, err := b.CatalogValues(10, false)
			require.NoError(t, err)
			assert.Equal(t, []int{2, 1}, codes(variable))

			dependent, err := b.DependentCatalogValues(11, 2)
			require.NoError(t, err)
			require.Len(t, dependent, 1)
			assert.Equal(t, "Child B", dependent[0].Text)
		})
	}

	t.Run("replaces catalog", func(t *testing.T) {
		b := newTestBackend(t)
		require.NoError(t, b.StoreCatalogValues(values))
		require.NoError(t, b.StoreCatalogValues([]types.CatalogValue{{CatalogNr: 10, Code: 5, Text: "Only"}}))

		variable, err := b.CatalogValues(10, false)
		require.NoError(t, err)
		assert.Equal(t, []int{5}, codes(variable))

		fixed, err := b.CatalogValues(3, true)
		require.NoError(t, err)
		assert.Len(t, fixed, 2)
	})
}

func TestBackend_SyncLedger(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.ReportSync("KP_1", 3, "T1", "", "KP"))
	require.NoError(t, b.ReportSync("KP_1", 0, "", "T2", ""))

	ts, ok, err := b.LastSyncOf("KP_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T2", ts)

	rec, ok, err := b.SyncRecordOf("KP_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, rec.RecordCount)
	assert.Equal(t, "T1", rec.FullSyncTimestamp)

	recs, err := b.SyncRecords()
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestBackend_RollbackInfo(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.StoreRollbackInfo(
		types.RollbackInfo{RequestNr: 5, InfoAreaID: "KP", RecordID: "r1", Info: "first"},
		types.RollbackInfo{RequestNr: 6, InfoAreaID: "KP", RecordID: "r2"},
		types.RollbackInfo{RequestNr: 5, InfoAreaID: "FI", RecordID: "f1", Info: "second"},
	))

	infos, err := b.RollbackInfos(5)
	require.NoError(t, err)
	assert.Equal(t, []types.RollbackInfo{
		{RequestNr: 5, InfoAreaID: "KP", RecordID: "r1", Info: "first"},
		{RequestNr: 5, InfoAreaID: "FI", RecordID: "f1", Info: "second"},
	}, infos)

	require.NoError(t, b.DeleteRollbackInfo(5))
	infos, err = b.RollbackInfos(5)
	require.NoError(t, err)
	assert.Empty(t, infos)

	infos, err = b.RollbackInfos(6)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestBackend_TimeZonePersists(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend(WithLogger(discardLogger()))
	require.NoError(t, b.Attach(cfg))
	require.NoError(t, b.SetTimeZone("Europe/Vienna", 120))
	assert.Equal(t, "Europe/Vienna", b.TimeZone())
	require.NoError(t, b.Detach())

	again := NewBackend(WithLogger(discardLogger()))
	require.NoError(t, again.Attach(cfg))
	defer again.Detach()
	assert.Equal(t, "Europe/Vienna", again.TimeZone())
	assert.Equal(t, 120, again.UTCOffset())
}

func TestBackend_SetHasLookup(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.SetHasLookup("KP", true))
	info, ok := b.TableInfo("KP")
	require.True(t, ok)
	assert.True(t, info.HasLookup)

	require.NoError(t, b.ResetDataModel())
	info, ok = b.TableInfo("KP")
	require.True(t, ok)
	assert.True(t, info.HasLookup)

	assert.ErrorIs(t, b.SetHasLookup("ZZ", true), types.ErrUnknownInfoArea)
}

func TestBackend_Recreate(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.SaveRecord(&types.CRMRecord{InfoAreaID: "KP", RecordID: "r1"}))
	require.NoError(t, b.ReportSync("KP", 1, "T1", "", "KP"))

	require.NoError(t, b.Recreate())
	assert.Empty(t, b.InfoAreaIDs())
	_, ok, err := b.LastSyncOf("KP")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, SchemaVersion, b.DataModelVersion())

	_, err = os.Stat(filepath.Join(b.Config().DataDir, DatabaseFileName))
	assert.NoError(t, err)
}

func TestBackend_VirtualLinks(t *testing.T) {
	b := newTestBackend(t)
	rid := kp("k1")

	id, ok := b.RegisterMove(rid, "MA")
	require.True(t, ok)
	assert.Equal(t, "MB_MA_KP", id)
	assert.Equal(t, "MB_MA_KP", b.VirtualInfoAreaIDForRecord(rid))
	assert.Equal(t, "KP", b.RootPhysicalInfoAreaID(id))
	assert.Equal(t, "KP", b.RootPhysicalInfoAreaID("KM"))

	require.NoError(t, b.ResetDataModel())
	assert.Equal(t, "MB_MA_KP", b.VirtualInfoAreaIDForRecord(rid))

	assert.True(t, b.SetVirtualInfoAreaForRecord(rid, "MB_FI_KP"))
	assert.Equal(t, "MB_FI_KP", b.VirtualInfoAreaIDForRecord(rid))
	assert.False(t, b.SetVirtualInfoAreaForRecord(types.RecordIdentification{InfoAreaID: "ZZ", RecordID: "z"}, "MB_FI_KP"))

	// A link to a virtual info area writes its physical root as discriminator.
	require.NoError(t, b.SaveRecord(&types.CRMRecord{
		InfoAreaID: "KP", RecordID: "r1",
		Links: []types.RecordLink{{InfoAreaID: "MB_KP_MA", LinkID: 1, RecordID: "ma1"}},
	}))
	rec, err := b.ReadRecord(kp("r1"), []int{1})
	require.NoError(t, err)
	assert.Equal(t, []types.RecordLink{{InfoAreaID: "MA", LinkID: 1, RecordID: "ma1"}}, rec.Links)
}
