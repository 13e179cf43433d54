package types

// SyncRecord is the checkpoint of one synchronized dataset.
type SyncRecord struct {
	DatasetName       string `json:"datasetName"`
	RecordCount       int    `json:"recordCount"`
	FullSyncTimestamp string `json:"fullSyncTimestamp,omitempty"`
	SyncTimestamp     string `json:"syncTimestamp,omitempty"`
	InfoAreaID        string `json:"infoAreaId,omitempty"`
}

// RollbackInfo keeps what is needed to revert one record of a request.
type RollbackInfo struct {
	RequestNr  int    `json:"requestNr"`
	InfoAreaID string `json:"infoAreaId"`
	RecordID   string `json:"recordId"`
	Info       string `json:"rollbackInfo"`
}

// DataModelProperties are the singleton values of the datamodel table.
type DataModelProperties struct {
	Version   string
	TimeZone  string
	UTCOffset int
}
