package models

import (
	"database/sql"
	"time"
)

// Withdrawal represents the WITHDRAWS table
type Withdrawal struct {
	AppNo          string       `db:"app_no" json:"app_no"`
	Date           time.Time    `db:"date" json:"date"`
	UploadedBy     string       `db:"uploaded_by" json:"uploaded_by"`
	UploadDateTime sql.NullTime `db:"upload_date_time" json:"upload_date_time,omitempty"`
}
