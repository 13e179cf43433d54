package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// SyncLedger persists the sync checkpoint of every dataset in syncinfo.
type SyncLedger struct {
	db   *sql.DB
	lock *sync.Mutex
}

func newSyncLedger(db *sql.DB, lock *sync.Mutex) *SyncLedger {
	return &SyncLedger{db: db, lock: lock}
}

// ReportSync records a sync of dataset. The first report inserts the row.
// A report with a full sync timestamp rebases the record count, both
// timestamps and the info area; any other report only moves the last sync
// timestamp. An empty lastSyncTimestamp defaults to fullSyncTimestamp; a
// later report with neither timestamp leaves the row unchanged.
func (s *SyncLedger) ReportSync(dataset string, recordCount int, fullSyncTimestamp, lastSyncTimestamp, infoAreaID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.reportSync(dataset, recordCount, fullSyncTimestamp, lastSyncTimestamp, infoAreaID)
}

func (s *SyncLedger) reportSync(dataset string, recordCount int, fullSyncTimestamp, lastSyncTimestamp, infoAreaID string) error {
	if dataset == "" {
		return fmt.Errorf("%w: empty dataset name", types.ErrInvalidData)
	}
	if lastSyncTimestamp == "" {
		lastSyncTimestamp = fullSyncTimestamp
	}

	err := withTx(s.db, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRow("SELECT 1 FROM syncinfo WHERE datasetname = ?", dataset).Scan(&one)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.Exec(
				`INSERT INTO syncinfo (datasetname, recordcount, fullsynctimestamp, synctimestamp, infoareaid)
				VALUES (?, ?, ?, ?, ?)`,
				dataset, recordCount, nullString(fullSyncTimestamp), nullString(lastSyncTimestamp), nullString(infoAreaID),
			)
		case err != nil:
			return err
		case lastSyncTimestamp == "":
			return nil
		case fullSyncTimestamp != "":
			_, err = tx.Exec(
				`UPDATE syncinfo SET recordcount = ?, fullsynctimestamp = ?, synctimestamp = ?, infoareaid = ?
				WHERE datasetname = ?`,
				recordCount, fullSyncTimestamp, nullString(lastSyncTimestamp), nullString(infoAreaID), dataset,
			)
		default:
			_, err = tx.Exec("UPDATE syncinfo SET synctimestamp = ? WHERE datasetname = ?",
				nullString(lastSyncTimestamp), dataset)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("reporting sync of %s: %w", dataset, err)
	}
	return nil
}

// LastSyncOf returns the last sync timestamp of dataset. The bool is false
// when the dataset has no row or an empty timestamp.
func (s *SyncLedger) LastSyncOf(dataset string) (string, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lastSyncOf(dataset)
}

func (s *SyncLedger) lastSyncOf(dataset string) (string, bool, error) {
	var ts sql.NullString
	err := s.db.QueryRow("SELECT synctimestamp FROM syncinfo WHERE datasetname = ?", dataset).Scan(&ts)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading sync of %s: %w", dataset, err)
	}
	if !ts.Valid || ts.String == "" {
		return "", false, nil
	}
	return ts.String, true, nil
}

// SyncRecordOf returns the full checkpoint row of dataset.
func (s *SyncLedger) SyncRecordOf(dataset string) (types.SyncRecord, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	rows, err := s.db.Query(syncRecordQuery+" WHERE datasetname = ?", dataset)
	if err != nil {
		return types.SyncRecord{}, false, fmt.Errorf("reading sync of %s: %w", dataset, err)
	}
	recs, err := scanSyncRecords(rows)
	if err != nil {
		return types.SyncRecord{}, false, err
	}
	if len(recs) == 0 {
		return types.SyncRecord{}, false, nil
	}
	return recs[0], true, nil
}

// SyncRecords returns every checkpoint ordered by dataset name.
func (s *SyncLedger) SyncRecords() ([]types.SyncRecord, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	rows, err := s.db.Query(syncRecordQuery + " ORDER BY datasetname")
	if err != nil {
		return nil, fmt.Errorf("reading sync records: %w", err)
	}
	return scanSyncRecords(rows)
}

const syncRecordQuery = "SELECT datasetname, recordcount, fullsynctimestamp, synctimestamp, infoareaid FROM syncinfo"

func scanSyncRecords(rows *sql.Rows) ([]types.SyncRecord, error) {
	defer rows.Close()

	var recs []types.SyncRecord
	for rows.Next() {
		var (
			rec              types.SyncRecord
			count            sql.NullInt64
			full, last, area sql.NullString
		)
		if err := rows.Scan(&rec.DatasetName, &count, &full, &last, &area); err != nil {
			return nil, fmt.Errorf("scanning sync record: %w", err)
		}
		rec.RecordCount = optionalInt(count, 0)
		rec.FullSyncTimestamp = optionalString(full)
		rec.SyncTimestamp = optionalString(last)
		rec.InfoAreaID = optionalString(area)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync records: %w", err)
	}
	return recs, nil
}
