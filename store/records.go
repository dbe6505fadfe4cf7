package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nonsonwune/admission_cycle/models"
)

// LatestIteration returns the ITERATION_DATE row with the most recent date.
// The iteration number is whichever was uploaded last, not the highest one.
func LatestIteration(ctx context.Context, q Queryer) (models.IterationDate, bool, error) {
	var it models.IterationDate
	err := q.QueryRowContext(ctx,
		`SELECT iteration, date FROM ITERATION_DATE ORDER BY date DESC, iteration DESC LIMIT 1`,
	).Scan(&it.Iteration, &it.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return it, false, nil
	}
	if err != nil {
		return it, false, fmt.Errorf("select latest iteration: %w", err)
	}
	return it, true, nil
}

// IterationDates lists all iterations on file ordered by iteration number.
func IterationDates(ctx context.Context, q Queryer) ([]models.IterationDate, error) {
	rows, err := q.QueryContext(ctx, `SELECT iteration, date FROM ITERATION_DATE ORDER BY iteration`)
	if err != nil {
		return nil, fmt.Errorf("select iteration dates: %w", err)
	}
	defer rows.Close()

	var out []models.IterationDate
	for rows.Next() {
		var it models.IterationDate
		if err := rows.Scan(&it.Iteration, &it.Date); err != nil {
			return nil, fmt.Errorf("scan iteration date: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpsertIterationDate records date as the most recent upload of iteration.
func UpsertIterationDate(ctx context.Context, q Queryer, iteration int, date time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ITERATION_DATE (iteration, date) VALUES (?, ?)
		ON CONFLICT (iteration) DO UPDATE SET date = EXCLUDED.date`,
		iteration, date.UTC())
	if err != nil {
		return fmt.Errorf("upsert iteration date %d: %w", iteration, err)
	}
	return nil
}

const feeColumns = `app_no,
	admission_fees_amount, admission_fees_status, admission_fees_paid_date,
	admission_fees_uploaded_by, admission_fees_upload_date_time,
	tuition_fees_amount, tuition_fees_status, tuition_fees_paid_date,
	tuition_fees_uploaded_by, tuition_fees_upload_date_time`

func scanFee(row interface{ Scan(...any) error }) (models.FeePayment, error) {
	var f models.FeePayment
	err := row.Scan(&f.AppNo,
		&f.AdmissionFeesAmount, &f.AdmissionFeesStatus, &f.AdmissionFeesPaidDate,
		&f.AdmissionFeesUploadedBy, &f.AdmissionFeesUploadDateTime,
		&f.TuitionFeesAmount, &f.TuitionFeesStatus, &f.TuitionFeesPaidDate,
		&f.TuitionFeesUploadedBy, &f.TuitionFeesUploadDateTime)
	return f, err
}

// FeePayment loads the fee row for appNo.
func FeePayment(ctx context.Context, q Queryer, appNo string) (models.FeePayment, bool, error) {
	f, err := scanFee(q.QueryRowContext(ctx,
		`SELECT `+feeColumns+` FROM FEES_PAID WHERE app_no = ?`, appNo))
	if errors.Is(err, sql.ErrNoRows) {
		return f, false, nil
	}
	if err != nil {
		return f, false, fmt.Errorf("select fee payment %s: %w", appNo, err)
	}
	return f, true, nil
}

// FeePaymentAppNos lists the app_no of every FEES_PAID row.
func FeePaymentAppNos(ctx context.Context, q Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT app_no FROM FEES_PAID ORDER BY app_no`)
	if err != nil {
		return nil, fmt.Errorf("select fee payments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var appNo string
		if err := rows.Scan(&appNo); err != nil {
			return nil, fmt.Errorf("scan fee payment: %w", err)
		}
		out = append(out, appNo)
	}
	return out, rows.Err()
}

const offerColumns = `app_no, itr_no, offer, scholarship, status, uploaded_by, upload_datetime`

func scanOffer(row interface{ Scan(...any) error }) (models.Offer, error) {
	var o models.Offer
	err := row.Scan(&o.AppNo, &o.ItrNo, &o.Offer, &o.Scholarship, &o.Status, &o.UploadedBy, &o.UploadDatetime)
	return o, err
}

// RecentOffers returns up to limit offers of appNo, highest itr_no first.
func RecentOffers(ctx context.Context, q Queryer, appNo string, limit int) ([]models.Offer, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM ITERATION_OFFER WHERE app_no = ? ORDER BY itr_no DESC LIMIT ?`,
		appNo, limit)
	if err != nil {
		return nil, fmt.Errorf("select offers %s: %w", appNo, err)
	}
	defer rows.Close()

	var out []models.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// OfferAt loads the offer of appNo in iteration itrNo.
func OfferAt(ctx context.Context, q Queryer, appNo string, itrNo int) (models.Offer, bool, error) {
	o, err := scanOffer(q.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM ITERATION_OFFER WHERE app_no = ? AND itr_no = ?`, appNo, itrNo))
	if errors.Is(err, sql.ErrNoRows) {
		return o, false, nil
	}
	if err != nil {
		return o, false, fmt.Errorf("select offer %s/%d: %w", appNo, itrNo, err)
	}
	return o, true, nil
}

// SetOfferStatus writes status on (appNo, itrNo). It reports false when no
// such offer row exists.
func SetOfferStatus(ctx context.Context, q Queryer, appNo string, itrNo int, status string) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE ITERATION_OFFER SET status = ? WHERE app_no = ? AND itr_no = ?`,
		status, appNo, itrNo)
	if err != nil {
		return false, fmt.Errorf("update offer status %s/%d: %w", appNo, itrNo, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ApplicantExists reports whether appNo has a MASTER_TABLE row.
func ApplicantExists(ctx context.Context, q Queryer, appNo string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM MASTER_TABLE WHERE app_no = ?`, appNo).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select applicant %s: %w", appNo, err)
	}
	return true, nil
}

// UpsertWithdrawal records a withdrawal; the latest one wins.
func UpsertWithdrawal(ctx context.Context, q Queryer, w models.Withdrawal) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO WITHDRAWS (app_no, date, uploaded_by, upload_date_time) VALUES (?, ?, ?, ?)
		ON CONFLICT (app_no) DO UPDATE SET
			date = EXCLUDED.date,
			uploaded_by = EXCLUDED.uploaded_by,
			upload_date_time = EXCLUDED.upload_date_time`,
		w.AppNo, w.Date.UTC(), w.UploadedBy, w.UploadDateTime)
	if err != nil {
		return fmt.Errorf("upsert withdrawal %s: %w", w.AppNo, err)
	}
	return nil
}

// AppendLog writes one audit row.
func AppendLog(ctx context.Context, q Queryer, l models.UploadLog) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO LOGS_TABLE (file_name, category, upload_date, uploaded_by, remark, ip_address, archive_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.FileName, l.Category, l.UploadDate.UTC(), l.UploadedBy, l.Remark, l.IPAddress, l.ArchiveKey)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// UploadLogByArchiveKey finds the audit row that points at an archived file.
func UploadLogByArchiveKey(ctx context.Context, q Queryer, key string) (models.UploadLog, bool, error) {
	var l models.UploadLog
	err := q.QueryRowContext(ctx, `
		SELECT file_name, category, upload_date, uploaded_by, remark, ip_address, archive_key
		FROM LOGS_TABLE WHERE archive_key = ? ORDER BY upload_date DESC LIMIT 1`, key,
	).Scan(&l.FileName, &l.Category, &l.UploadDate, &l.UploadedBy, &l.Remark, &l.IPAddress, &l.ArchiveKey)
	if errors.Is(err, sql.ErrNoRows) {
		return l, false, nil
	}
	if err != nil {
		return l, false, fmt.Errorf("select upload log %s: %w", key, err)
	}
	return l, true, nil
}

// UserByEmail loads a user by email.
func UserByEmail(ctx context.Context, q Queryer, email string) (models.User, bool, error) {
	var u models.User
	err := q.QueryRowContext(ctx,
		`SELECT id, name, contact, campus, email, hashed_password FROM USERS WHERE email = ?`, email,
	).Scan(&u.ID, &u.Name, &u.Contact, &u.Campus, &u.Email, &u.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return u, false, nil
	}
	if err != nil {
		return u, false, fmt.Errorf("select user: %w", err)
	}
	return u, true, nil
}

// InsertUser stores a new user. The UNIQUE constraint on email is the final
// guard against duplicate registration.
func InsertUser(ctx context.Context, q Queryer, u models.User) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO USERS (name, contact, campus, email, hashed_password) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Contact, u.Campus, u.Email, u.HashedPassword)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}
