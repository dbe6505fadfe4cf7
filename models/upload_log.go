package models

import (
	"database/sql"
	"time"
)

// UploadLog represents one append-only LOGS_TABLE row
type UploadLog struct {
	FileName   string         `db:"file_name" json:"file_name"`
	Category   string         `db:"category" json:"category"`
	UploadDate time.Time      `db:"upload_date" json:"upload_date"`
	UploadedBy string         `db:"uploaded_by" json:"uploaded_by"`
	Remark     string         `db:"remark" json:"remark"`
	IPAddress  string         `db:"ip_address" json:"ip_address"`
	ArchiveKey sql.NullString `db:"archive_key" json:"archive_key,omitempty"`
}
