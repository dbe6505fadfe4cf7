package models

// Applicant represents the MASTER_TABLE table
type Applicant struct {
	AppNo string `db:"app_no" json:"app_no"`
	Name  string `db:"name" json:"name"`
}
