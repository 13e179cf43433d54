// Package sqlite implements the SQLite backend of the offline CRM store.
package sqlite

// SchemaVersion is written to the datamodel row of a freshly created database.
const SchemaVersion = "2.0"

// Core table names.
const (
	tableDataModel        = "datamodel"
	tableTableInfo        = "tableinfo"
	tableFieldInfo        = "fieldinfo"
	tableLinkInfo         = "linkinfo"
	tableLinkFields       = "linkfields"
	tableVarCatInfo       = "varcatinfo"
	tableFixCatInfo       = "fixcatinfo"
	tableVarCatValue      = "varcatvalue"
	tableFixCatValue      = "fixcatvalue"
	tableQueryResult      = "queryresult"
	tableQueryResultTable = "queryresulttable"
	tableQueryResultField = "queryresultfield"
	tableSyncInfo         = "syncinfo"
	tableRollbackInfo     = "rollbackinfo"
)

// Schema DDL for the core tables.
const (
	createDataModel = `CREATE TABLE datamodel (
    version TEXT,
    timezone TEXT,
    utctimeoffset INTEGER
);`

	createTableInfo = `CREATE TABLE tableinfo (
    infoareaid TEXT PRIMARY KEY,
    rootinfoareaid TEXT,
    name TEXT,
    haslookup INTEGER
);`

	createFieldInfo = `CREATE TABLE fieldinfo (
    infoareaid TEXT NOT NULL,
    fieldid INTEGER NOT NULL,
    xmlname TEXT,
    name TEXT,
    fieldtype TEXT,
    fieldlen INTEGER,
    cat INTEGER,
    ucat INTEGER,
    attributes INTEGER,
    repMode INTEGER,
    rights INTEGER,
    format TEXT,
    arrayfieldindices TEXT,
    PRIMARY KEY (infoareaid, fieldid)
);`

	createLinkInfo = `CREATE TABLE linkinfo (
    infoareaid TEXT NOT NULL,
    targetinfoareaid TEXT NOT NULL,
    linkid INTEGER NOT NULL,
    relationtype INTEGER,
    reverseLinkId INTEGER,
    sourceFieldId INTEGER,
    destFieldId INTEGER,
    fieldBased INTEGER,
    useLinkFields INTEGER,
    PRIMARY KEY (infoareaid, targetinfoareaid, linkid)
);`

	createLinkFields = `CREATE TABLE linkfields (
    infoareaid TEXT NOT NULL,
    targetinfoareaid TEXT NOT NULL,
    linkid INTEGER NOT NULL,
    nr INTEGER NOT NULL,
    sourceFieldId INTEGER,
    destFieldId INTEGER,
    sourceValue TEXT,
    destValue TEXT,
    PRIMARY KEY (infoareaid, targetinfoareaid, linkid, nr)
);`

	createVarCatInfo = `CREATE TABLE varcatinfo (
    catnr INTEGER PRIMARY KEY,
    parentcatnr INTEGER
);`

	createFixCatInfo = `CREATE TABLE fixcatinfo (
    catnr INTEGER PRIMARY KEY
);`

	createVarCatValue = `CREATE TABLE varcatvalue (
    catnr INTEGER NOT NULL,
    code INTEGER NOT NULL,
    text TEXT,
    extkey TEXT,
    sortinfo TEXT,
    parentcode INTEGER,
    PRIMARY KEY (catnr, code)
);`

	createFixCatValue = `CREATE TABLE fixcatvalue (
    catnr INTEGER NOT NULL,
    code INTEGER NOT NULL,
    text TEXT,
    extkey TEXT,
    sortinfo TEXT,
    PRIMARY KEY (catnr, code)
);`

	createQueryResult = `CREATE TABLE queryresult (
    queryid TEXT PRIMARY KEY,
    name TEXT,
    infoareaid TEXT,
    created TEXT
);`

	createQueryResultTable = `CREATE TABLE queryresulttable (
    queryid TEXT NOT NULL,
    nr INTEGER NOT NULL,
    infoareaid TEXT,
    linkid INTEGER,
    parentnr INTEGER,
    PRIMARY KEY (queryid, nr)
);`

	createQueryResultField = `CREATE TABLE queryresultfield (
    queryid TEXT NOT NULL,
    tablenr INTEGER NOT NULL,
    nr INTEGER NOT NULL,
    fieldid INTEGER,
    PRIMARY KEY (queryid, tablenr, nr)
);`

	createSyncInfo = `CREATE TABLE syncinfo (
    datasetname TEXT PRIMARY KEY,
    recordcount INTEGER,
    fullsynctimestamp TEXT,
    synctimestamp TEXT,
    infoareaid TEXT
);`

	createRollbackInfo = `CREATE TABLE rollbackinfo (
    requestnr INTEGER NOT NULL,
    infoareaid TEXT NOT NULL,
    recordid TEXT NOT NULL,
    rollbackinfo TEXT
);`
)

// coreTable pairs a core table with its CREATE statement.
type coreTable struct {
	name string
	ddl  string
}

// schemaDDL lists the core tables in dependency order. The rollback table is
// handled separately and never altered.
var schemaDDL = []coreTable{
	{tableDataModel, createDataModel},
	{tableTableInfo, createTableInfo},
	{tableFieldInfo, createFieldInfo},
	{tableLinkInfo, createLinkInfo},
	{tableLinkFields, createLinkFields},
	{tableVarCatInfo, createVarCatInfo},
	{tableFixCatInfo, createFixCatInfo},
	{tableVarCatValue, createVarCatValue},
	{tableFixCatValue, createFixCatValue},
	{tableQueryResult, createQueryResult},
	{tableQueryResultTable, createQueryResultTable},
	{tableQueryResultField, createQueryResultField},
	{tableSyncInfo, createSyncInfo},
}

// columnDef is a column a table must have in the current schema.
type columnDef struct {
	name    string
	sqlType string
}

// columnMigration lists the columns added to a table after its first release.
type columnMigration struct {
	table   string
	columns []columnDef
}

// columnMigrations are the additive migrations applied to existing databases.
var columnMigrations = []columnMigration{
	{tableDataModel, []columnDef{{"timezone", "TEXT"}, {"utctimeoffset", "INTEGER"}}},
	{tableTableInfo, []columnDef{{"haslookup", "INTEGER"}}},
	{tableLinkInfo, []columnDef{{"sourceFieldId", "INTEGER"}, {"destFieldId", "INTEGER"}, {"useLinkFields", "INTEGER"}, {"fieldBased", "INTEGER"}}},
	{tableLinkFields, []columnDef{{"sourceValue", "TEXT"}, {"destValue", "TEXT"}}},
	{tableFieldInfo, []columnDef{{"rights", "INTEGER"}, {"format", "TEXT"}, {"arrayfieldindices", "TEXT"}}},
	{tableSyncInfo, []columnDef{{"infoareaid", "TEXT"}}},
}
