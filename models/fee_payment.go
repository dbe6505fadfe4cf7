package models

import "database/sql"

// FeePayment represents the FEES_PAID table. Admission and tuition are
// tracked independently; status columns hold 0 or 1.
type FeePayment struct {
	AppNo string `db:"app_no" json:"app_no"`

	AdmissionFeesAmount         sql.NullInt64  `db:"admission_fees_amount" json:"admission_fees_amount,omitempty"`
	AdmissionFeesStatus         sql.NullInt64  `db:"admission_fees_status" json:"admission_fees_status,omitempty"`
	AdmissionFeesPaidDate       sql.NullTime   `db:"admission_fees_paid_date" json:"admission_fees_paid_date,omitempty"`
	AdmissionFeesUploadedBy     sql.NullString `db:"admission_fees_uploaded_by" json:"admission_fees_uploaded_by,omitempty"`
	AdmissionFeesUploadDateTime sql.NullTime   `db:"admission_fees_upload_date_time" json:"admission_fees_upload_date_time,omitempty"`

	TuitionFeesAmount         sql.NullInt64  `db:"tuition_fees_amount" json:"tuition_fees_amount,omitempty"`
	TuitionFeesStatus         sql.NullInt64  `db:"tuition_fees_status" json:"tuition_fees_status,omitempty"`
	TuitionFeesPaidDate       sql.NullTime   `db:"tuition_fees_paid_date" json:"tuition_fees_paid_date,omitempty"`
	TuitionFeesUploadedBy     sql.NullString `db:"tuition_fees_uploaded_by" json:"tuition_fees_uploaded_by,omitempty"`
	TuitionFeesUploadDateTime sql.NullTime   `db:"tuition_fees_upload_date_time" json:"tuition_fees_upload_date_time,omitempty"`
}

// AdmissionPaid reports whether the admission fee flag is set.
func (f FeePayment) AdmissionPaid() bool {
	return f.AdmissionFeesStatus.Valid && f.AdmissionFeesStatus.Int64 != 0
}

// TuitionPaid reports whether the tuition fee flag is set.
func (f FeePayment) TuitionPaid() bool {
	return f.TuitionFeesStatus.Valid && f.TuitionFeesStatus.Int64 != 0
}
