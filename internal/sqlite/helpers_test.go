package sqlite

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestDB opens a SQLite file in a temp dir.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// recordingExecer records every statement passed to Exec.
type recordingExecer struct {
	execer
	statements []string
}

func (r *recordingExecer) Exec(query string, args ...any) (sql.Result, error) {
	r.statements = append(r.statements, query)
	return r.execer.Exec(query, args...)
}

// ddl returns the recorded CREATE and ALTER statements.
func (r *recordingExecer) ddl() []string {
	var out []string
	for _, s := range r.statements {
		upper := strings.ToUpper(strings.TrimSpace(s))
		if strings.HasPrefix(upper, "CREATE") || strings.HasPrefix(upper, "ALTER") {
			out = append(out, s)
		}
	}
	return out
}

// testDictionary describes a small data model: persons (KP) linked to an
// installed base (FI), generically to a company (MA), plus a child link and
// a field-value link that have no column.
func testDictionary() *types.DataDictionary {
	return &types.DataDictionary{
		Tables: []types.TableInfo{
			{
				InfoAreaID: "KP",
				Name:       "Person",
				Fields: []types.FieldInfo{
					{FieldID: 1, XMLName: "Name", Name: "Name", Type: types.FieldTypeChar, Length: 80},
					{FieldID: 2, XMLName: "Count", Type: types.FieldTypeLong},
					{FieldID: 3, XMLName: "Amount", Type: types.FieldTypeFloat},
					{FieldID: 4, XMLName: "Active", Type: types.FieldTypeBoolean},
					{FieldID: 5, XMLName: types.XMLNameStationNumber, Type: types.FieldTypeLong},
					{FieldID: 6, XMLName: types.XMLNameRecordNumber, Type: types.FieldTypeLong},
					{FieldID: 7, XMLName: "Participants", Type: types.FieldTypeChar, Attributes: types.FieldAttrParticipants},
					{FieldID: 8, XMLName: "Country", Type: types.FieldTypeFixCatalog, FixCatalog: 3},
				},
				Links: []types.LinkInfo{
					{TargetInfoAreaID: "FI", LinkID: 0, RelationType: types.RelationParent, SourceFieldID: -1, DestFieldID: -1},
					{TargetInfoAreaID: "MA", LinkID: 1, RelationType: types.RelationGeneric, SourceFieldID: -1, DestFieldID: -1},
					{TargetInfoAreaID: "PE", LinkID: 0, RelationType: types.RelationChild, SourceFieldID: -1, DestFieldID: -1},
					{
						TargetInfoAreaID: "CP", LinkID: 2, RelationType: types.RelationOneToOne,
						SourceFieldID: 1, DestFieldID: 2, FieldBased: true, UseLinkFields: true,
						LinkFields: []types.LinkFieldInfo{{Nr: 0, SourceFieldID: 1, DestFieldID: 2, DestValue: "X"}},
					},
				},
			},
			{
				InfoAreaID: "FI",
				Name:       "Installed base",
				Fields:     []types.FieldInfo{{FieldID: 1, XMLName: "Name", Type: types.FieldTypeChar}},
			},
			{
				InfoAreaID: "MA",
				Name:       "Company",
				Fields:     []types.FieldInfo{{FieldID: 1, XMLName: "Name", Type: types.FieldTypeChar}},
			},
			{
				InfoAreaID:     "KM",
				RootInfoAreaID: "KP",
				Name:           "Person variant",
				Fields:         []types.FieldInfo{{FieldID: 1, XMLName: "Name", Type: types.FieldTypeChar, ArrayFieldIndices: []int{1, 2}}},
			},
		},
		Catalogs: []types.CatalogInfo{
			{CatalogNr: 3, Fixed: true},
			{CatalogNr: 10},
			{CatalogNr: 11, ParentCatalogNr: 10},
		},
	}
}

// testCatalog builds an in-memory catalog from testDictionary.
func testCatalog(updateCRM bool) *Catalog {
	c := newCatalog(virtualLinkTable(updateCRM))
	for _, t := range testDictionary().Tables {
		for i := range t.Fields {
			t.Fields[i].InfoAreaID = t.InfoAreaID
		}
		for i := range t.Links {
			t.Links[i].InfoAreaID = t.InfoAreaID
		}
		c.addTable(t)
	}
	return c
}

// newTestBackend attaches a backend in a temp dir and stores testDictionary.
func newTestBackend(t *testing.T, configure ...func(*types.Config)) *Backend {
	t.Helper()

	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}
	for _, fn := range configure {
		fn(&cfg)
	}

	b := NewBackend(WithLogger(discardLogger()))
	require.NoError(t, b.Attach(cfg))
	t.Cleanup(func() { b.Detach() })
	require.NoError(t, b.StoreDataDictionary(testDictionary()))
	return b
}
