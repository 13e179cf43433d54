package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

func writeRollbackInfo(db execer, info types.RollbackInfo) error {
	_, err := db.Exec(
		"INSERT INTO rollbackinfo (requestnr, infoareaid, recordid, rollbackinfo) VALUES (?, ?, ?, ?)",
		info.RequestNr, info.InfoAreaID, info.RecordID, nullString(info.Info),
	)
	if err != nil {
		return fmt.Errorf("writing rollback info %d %s.%s: %w", info.RequestNr, info.InfoAreaID, info.RecordID, err)
	}
	return nil
}

func readRollbackInfos(db execer, requestNr int) ([]types.RollbackInfo, error) {
	rows, err := db.Query(
		"SELECT requestnr, infoareaid, recordid, rollbackinfo FROM rollbackinfo WHERE requestnr = ? ORDER BY rowid",
		requestNr,
	)
	if err != nil {
		return nil, fmt.Errorf("querying rollback info %d: %w", requestNr, err)
	}
	defer rows.Close()

	var infos []types.RollbackInfo
	for rows.Next() {
		var (
			info types.RollbackInfo
			text sql.NullString
		)
		if err := rows.Scan(&info.RequestNr, &info.InfoAreaID, &info.RecordID, &text); err != nil {
			return nil, fmt.Errorf("scanning rollback info: %w", err)
		}
		info.Info = optionalString(text)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rollback info: %w", err)
	}
	return infos, nil
}

func deleteRollbackInfos(db execer, requestNr int) error {
	if _, err := db.Exec("DELETE FROM rollbackinfo WHERE requestnr = ?", requestNr); err != nil {
		return fmt.Errorf("deleting rollback info %d: %w", requestNr, err)
	}
	return nil
}
