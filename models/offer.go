package models

import (
	"database/sql"
	"strings"
)

// Offer status values written by the derivation engine and withdrawals.
const (
	StatusAccept         = "accept"
	StatusUpgrade        = "upgrade"
	StatusWithdraw       = "withdraw"
	StatusAcceptUpgraded = "accept & upgraded"
	WaitlistOfferCode    = "WL"
)

// Offer represents one ITERATION_OFFER row: the offer an applicant received
// in a single iteration.
type Offer struct {
	AppNo          string         `db:"app_no" json:"app_no"`
	ItrNo          int            `db:"itr_no" json:"itr_no"`
	Offer          string         `db:"offer" json:"offer"`
	Scholarship    sql.NullInt64  `db:"scholarship" json:"scholarship,omitempty"`
	Status         sql.NullString `db:"status" json:"status,omitempty"`
	UploadedBy     string         `db:"uploaded_by" json:"uploaded_by"`
	UploadDatetime sql.NullTime   `db:"upload_datetime" json:"upload_datetime,omitempty"`
}

// IsAccepted reports whether the status is any accept variant.
func IsAccepted(status sql.NullString) bool {
	return status.Valid && strings.Contains(status.String, StatusAccept)
}
